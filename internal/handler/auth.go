package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"CoachCheck/internal/model/dto"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/response"
)

// RefreshToken 刷新 token
// POST /v1/auth/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	result, err := service.Auth().RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
