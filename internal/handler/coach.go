package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"CoachCheck/internal/middleware"
	"CoachCheck/internal/model/dto"
	"CoachCheck/internal/service"
	"CoachCheck/pkg/errors"
	"CoachCheck/pkg/response"
)

// AssignCheckIns 为客户分配一组打卡；序列已存在时返回 200 与原有序列
// POST /v1/coach/assignments
func AssignCheckIns(ctx context.Context, c *app.RequestContext) {
	allocate(ctx, c, false)
}

// OnboardClient 新客户首次分配，首期对齐到窗口开启日
// POST /v1/coach/onboarding
func OnboardClient(ctx context.Context, c *app.RequestContext) {
	allocate(ctx, c, true)
}

func allocate(ctx context.Context, c *app.RequestContext, onboarding bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.AllocateRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	allocation := service.Allocation()
	var (
		result *dto.AllocateResponse
		err    error
	)
	if onboarding {
		result, err = allocation.AllocateOnboarding(ctx, id.PublicID, req, time.Now())
	} else {
		result, err = allocation.Allocate(ctx, id.PublicID, req, time.Now())
	}
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	if result.Created {
		response.Created(ctx, c, result)
		return
	}
	response.Success(ctx, c, result)
}

// GetCoachOverview 名下客户的紧迫度总览，最紧急的排在前面
// GET /v1/coach/overview
func GetCoachOverview(ctx context.Context, c *app.RequestContext) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := service.CheckIn().CoachOverview(ctx, id.PublicID, time.Now())
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}
