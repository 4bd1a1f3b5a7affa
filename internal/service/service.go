package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/cache"
	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/metrics"
	"CoachCheck/pkg/snowflake"
)

// Locker 分布式锁，由 cache.Store 实现
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (*cache.Lock, error)
	Unlock(ctx context.Context, lock *cache.Lock) error
}

// ReminderMarker 提醒投放去重，由 cache.Store 实现
type ReminderMarker interface {
	TryMarkReminderScheduled(ctx context.Context, occurrenceID string, opensAt, now time.Time) (bool, error)
	UnmarkReminderScheduled(ctx context.Context, occurrenceID string) error
}

// RefreshTokenStore refresh token 轮换，由 cache.Store 实现
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, role, publicID, refreshToken string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, role, publicID string) (string, error)
}

// EventPublisher 消息发布，由 queue.Producer 实现
type EventPublisher interface {
	PublishWindowReminder(ctx context.Context, msg model.WindowOpenReminderMessage) error
	PublishOccurrenceMissed(ctx context.Context, msg model.OccurrenceMissedMessage) error
}

// Deps 各 service 共享的依赖，由 cmd 组装
type Deps struct {
	Repo      *repository.Repository
	Evaluator *cadence.Evaluator
	// Location 客户未设置时区时使用
	Location  *time.Location
	Cache     *cache.Store
	Publisher EventPublisher
	IDs       snowflake.IDGenerator
	Metrics   *metrics.CheckInMetrics
	Logger    *zap.Logger
}

var (
	depsOnce sync.Once

	allocationService   *AllocationService
	checkInService      *CheckInService
	missedService       *MissedService
	reminderService     *ReminderService
	notificationService *NotificationService
	authService         *AuthService
)

// Init 注册全局依赖，进程启动时调用一次
func Init(d Deps) {
	depsOnce.Do(func() {
		if d.Logger == nil {
			d.Logger = zap.NewNop()
		}
		if d.Location == nil {
			d.Location = time.UTC
		}

		allocationService = NewAllocationService(d.Repo, d.Evaluator, d.Cache, d.IDs, d.Metrics, d.Location, d.Logger.Named("allocation"))
		checkInService = NewCheckInService(d.Repo, d.Evaluator, d.Metrics, d.Location, d.Logger.Named("checkin"))
		missedService = NewMissedService(d.Repo, d.Evaluator, d.Publisher, d.Metrics, d.Location, d.Logger.Named("missed"))
		reminderService = NewReminderService(d.Repo, d.Evaluator, d.Cache, d.Publisher, d.Location, d.Logger.Named("reminder"))
		notificationService = NewNotificationService(d.Repo, d.Logger.Named("notification"))
		authService = NewAuthService(d.Repo, d.Cache, d.Logger.Named("auth"))
	})
}

func Allocation() *AllocationService {
	return allocationService
}

func CheckIn() *CheckInService {
	return checkInService
}

func Missed() *MissedService {
	return missedService
}

func Reminder() *ReminderService {
	return reminderService
}

func Notification() *NotificationService {
	return notificationService
}

func Auth() *AuthService {
	return authService
}
