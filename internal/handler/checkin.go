package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"CoachCheck/internal/middleware"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/response"
)

// ListCheckIns 当前客户的全部打卡期
// GET /v1/check-ins
func ListCheckIns(ctx context.Context, c *app.RequestContext) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := service.CheckIn().ListForClient(ctx, id.PublicID, time.Now())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetCheckInWindow 单期的窗口状态
// GET /v1/check-ins/:occurrence_id/window
func GetCheckInWindow(ctx context.Context, c *app.RequestContext) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := service.CheckIn().GetWindowStatus(ctx, id.PublicID, c.Param("occurrence_id"), time.Now())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// CompleteCheckIn 提交一期打卡
// POST /v1/check-ins/:occurrence_id/complete
func CompleteCheckIn(ctx context.Context, c *app.RequestContext) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := service.CheckIn().Complete(ctx, id.PublicID, c.Param("occurrence_id"), time.Now())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// GetCurrentWindow 默认窗口此刻是否开启，不针对具体某一期
// GET /v1/check-ins/window
func GetCurrentWindow(ctx context.Context, c *app.RequestContext) {
	result, err := service.CheckIn().CurrentWindow(time.Now())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
