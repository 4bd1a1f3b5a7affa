package schedule

// 打卡调度器：周期性扫描漏打的期，并为即将开启的窗口投放延迟提醒

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper 漏打扫描，由 service.MissedService 实现
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// ReminderPlanner 提醒投放，由 service.ReminderService 实现
type ReminderPlanner interface {
	PlanWindowReminders(ctx context.Context, now time.Time, lookahead time.Duration) (int, error)
}

type CheckInScheduler struct {
	sweeper   Sweeper
	planner   ReminderPlanner
	lookahead time.Duration
	logger    *zap.Logger
	now       func() time.Time

	sweepMu       sync.Mutex
	sweepRunning  bool
	lastSweepTime time.Time

	reminderMu       sync.Mutex
	reminderRunning  bool
	lastReminderTime time.Time
}

func NewCheckInScheduler(sweeper Sweeper, planner ReminderPlanner, lookahead time.Duration, logger *zap.Logger) *CheckInScheduler {
	return &CheckInScheduler{
		sweeper:   sweeper,
		planner:   planner,
		lookahead: lookahead,
		logger:    logger,
		now:       time.Now,
	}
}

// RunMissedSweep 执行一次漏打扫描，上一次还没结束时直接跳过
func (s *CheckInScheduler) RunMissedSweep(ctx context.Context) error {
	if !acquire(&s.sweepMu, &s.sweepRunning) {
		s.logger.Info("Missed sweep already running, skipping")
		return nil
	}
	defer release(&s.sweepMu, &s.sweepRunning)

	startTime := s.now()
	s.lastSweepTime = startTime

	missed, err := s.sweeper.Sweep(ctx, startTime)
	if err != nil {
		s.logger.Error("Missed sweep failed", zap.Int("missed", missed), zap.Error(err))
		return err
	}

	s.logger.Info("Missed sweep completed",
		zap.Int("missed", missed),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

// RunReminderPlanning 为 lookahead 内开启的窗口投放提醒，上一次还没结束时直接跳过
func (s *CheckInScheduler) RunReminderPlanning(ctx context.Context) error {
	if !acquire(&s.reminderMu, &s.reminderRunning) {
		s.logger.Info("Reminder job already running, skipping")
		return nil
	}
	defer release(&s.reminderMu, &s.reminderRunning)

	startTime := s.now()
	s.lastReminderTime = startTime

	planned, err := s.planner.PlanWindowReminders(ctx, startTime, s.lookahead)
	if err != nil {
		s.logger.Error("Reminder planning failed", zap.Int("planned", planned), zap.Error(err))
		return err
	}

	s.logger.Info("Reminder planning completed",
		zap.Int("planned", planned),
		zap.Duration("lookahead", s.lookahead),
		zap.Duration("duration", time.Since(startTime)),
	)
	return nil
}

func acquire(mu *sync.Mutex, running *bool) bool {
	mu.Lock()
	defer mu.Unlock()
	if *running {
		return false
	}
	*running = true
	return true
}

func release(mu *sync.Mutex, running *bool) {
	mu.Lock()
	*running = false
	mu.Unlock()
}
