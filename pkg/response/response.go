package response

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"CoachCheck/pkg/errors"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusFor 业务错误码到 HTTP 状态码的映射
func StatusFor(err error) int {
	def, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.InvalidRequest.Code, errors.InvalidUserID.Code,
		errors.WindowConfigInvalid.Code, errors.ScheduleInvalid.Code,
		errors.TimestampInvalid.Code:
		return http.StatusBadRequest
	case errors.Unauthorized.Code:
		return http.StatusUnauthorized
	case errors.Forbidden.Code:
		return http.StatusForbidden
	case errors.TooManyRequests.Code:
		return http.StatusTooManyRequests
	case errors.FormNotFound.Code, errors.ClientNotFound.Code, errors.CheckInNotFound.Code:
		return http.StatusNotFound
	case errors.CheckInWindowClosed.Code, errors.CheckInAlreadyDone.Code,
		errors.AllocationInProgress.Code, errors.SeriesAlreadyAssigned.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error 返回错误响应；包装过的业务错误会带上具体原因
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	detail := ErrorDetail{Code: "INTERNAL_ERROR", Message: "Internal server error", Details: details}

	if def, ok := errors.As(err); ok {
		detail.Code = def.Code
		detail.Message = def.Message
		if msg := err.Error(); msg != def.Message {
			if detail.Details == nil {
				detail.Details = map[string]interface{}{}
			}
			detail.Details["reason"] = msg
		}
	}

	c.JSON(StatusFor(err), ErrorResponse{Error: detail})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

// Created 返回 201
func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}
