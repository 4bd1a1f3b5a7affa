package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
)

// CoachRepository 教练
type CoachRepository interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.Coach, error)
}

// ClientRepository 客户
type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Client, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.Client, error)
	ListByCoach(ctx context.Context, coachID int64) ([]*model.Client, error)
	MarkOnboarded(ctx context.Context, id int64, at time.Time) error
}

// FormRepository 问卷模板
type FormRepository interface {
	GetByPublicID(ctx context.Context, publicID string) (*model.Form, error)
}

// OccurrenceRepository 打卡序列与每一期
type OccurrenceRepository interface {
	// ListBySeriesKey 某个 (client, form) 已有的全部期，按序号升序
	ListBySeriesKey(ctx context.Context, key cadence.SeriesKey) ([]*model.CheckInOccurrence, error)
	// CreateSeries 在一个事务中写入序列与所有期，要么全部成功要么全部失败
	CreateSeries(ctx context.Context, series *model.CheckInSeries, occurrences []*model.CheckInOccurrence) error
	GetByPublicID(ctx context.Context, publicID string) (*model.CheckInOccurrence, error)
	ListByClient(ctx context.Context, clientID int64) ([]*model.CheckInOccurrence, error)
	ListPendingByClients(ctx context.Context, clientIDs []int64) ([]*model.CheckInOccurrence, error)
	// ListPendingDueBefore 漏打扫描的候选：due date 早于 before、id 大于 afterID 的 pending 期，按 id 升序
	ListPendingDueBefore(ctx context.Context, before time.Time, afterID int64, limit int) ([]*model.CheckInOccurrence, error)
	// ListOpeningBetween 窗口可能在 [from, to) 内开启的 pending 期
	// 只按 due date 粗筛（窗口开启时刻与 due date 相差不超过 7 天），调用方需再精确过滤
	ListOpeningBetween(ctx context.Context, from, to time.Time) ([]*model.CheckInOccurrence, error)
	// MarkOverdue 仅当仍为 pending 时改为 overdue，返回是否生效
	MarkOverdue(ctx context.Context, id int64, at time.Time) (bool, error)
	// MarkCompleted 仅当仍为 pending 时改为 completed，返回是否生效
	MarkCompleted(ctx context.Context, id int64, at time.Time, late bool) (bool, error)
}

// Repository 聚合所有仓储，供 service 层注入
type Repository struct {
	Coaches     CoachRepository
	Clients     ClientRepository
	Forms       FormRepository
	Occurrences OccurrenceRepository
}

// New 基于 gorm 连接创建仓储
func New(db *gorm.DB) *Repository {
	return &Repository{
		Coaches:     &coachRepository{db: db},
		Clients:     &clientRepository{db: db},
		Forms:       &formRepository{db: db},
		Occurrences: &occurrenceRepository{db: db},
	}
}
