package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/metrics"
)

// sweepBatchSize 每页读取的候选数量，按 id 游标翻页直到读完
const sweepBatchSize = 500

// MissedService 把下一期窗口已开启但仍未提交的期标记为逾期
type MissedService struct {
	repo      *repository.Repository
	ev        *cadence.Evaluator
	publisher EventPublisher
	metrics   *metrics.CheckInMetrics
	loc       *time.Location
	logger    *zap.Logger
	batchSize int
}

func NewMissedService(
	repo *repository.Repository,
	ev *cadence.Evaluator,
	publisher EventPublisher,
	m *metrics.CheckInMetrics,
	loc *time.Location,
	logger *zap.Logger,
) *MissedService {
	return &MissedService{
		repo:      repo,
		ev:        ev,
		publisher: publisher,
		metrics:   m,
		loc:       loc,
		logger:    logger,
		batchSize: sweepBatchSize,
	}
}

// Sweep 分页扫描全部过期的 pending 期，返回本次标记为逾期的数量
func (s *MissedService) Sweep(ctx context.Context, now time.Time) (int, error) {
	started := time.Now()
	defer func() {
		s.metrics.RecordSweep(ctx, time.Since(started).Seconds())
	}()

	locs := make(map[int64]*time.Location)
	var (
		afterID    int64
		candidates int
		skipped    int
		missed     int
	)
	for {
		page, err := s.repo.Occurrences.ListPendingDueBefore(ctx, now, afterID, s.batchSize)
		if err != nil {
			return missed, err
		}
		candidates += len(page)

		for _, occ := range page {
			if err := ctx.Err(); err != nil {
				return missed, err
			}
			afterID = occ.ID

			marked, err := s.sweepOne(ctx, occ, locs, now)
			if err != nil {
				return missed, err
			}
			switch marked {
			case sweepMarked:
				missed++
			case sweepSkipped:
				skipped++
			}
		}

		if s.batchSize <= 0 || len(page) < s.batchSize {
			break
		}
	}

	s.metrics.RecordMissed(ctx, missed)
	s.logger.Info("Missed check-in sweep finished",
		zap.Int("candidates", candidates),
		zap.Int("skipped", skipped),
		zap.Int("missed", missed),
		zap.Time("now", now),
	)

	return missed, nil
}

type sweepResult int

const (
	sweepKept sweepResult = iota
	sweepMarked
	sweepSkipped
)

// sweepOne 判断单个候选是否逾期，窗口无法解析的记为 skipped 并保持 pending
func (s *MissedService) sweepOne(ctx context.Context, occ *model.CheckInOccurrence, locs map[int64]*time.Location, now time.Time) (sweepResult, error) {
	loc, err := s.locationOf(ctx, occ.ClientID, locs)
	if err != nil {
		return sweepKept, err
	}

	w, err := occ.WindowConfig()
	if err != nil {
		s.logger.Warn("Skipping occurrence with unreadable window", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
		return sweepSkipped, nil
	}

	opened, err := s.ev.NextWindowHasOpened(occ.DueDate.In(loc), w, now)
	if err != nil {
		s.logger.Warn("Skipping occurrence with invalid window", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
		return sweepSkipped, nil
	}
	if !opened {
		return sweepKept, nil
	}

	ok, err := s.repo.Occurrences.MarkOverdue(ctx, occ.ID, now)
	if err != nil {
		return sweepKept, err
	}
	if !ok {
		// 扫描期间被提交了
		return sweepKept, nil
	}

	msg := model.OccurrenceMissedMessage{
		DueDate:         occ.DueDate.In(loc),
		MissedAt:        now,
		OccurrenceID:    occ.PublicID,
		ClientID:        occ.ClientID,
		FormID:          occ.FormID,
		RecurrenceIndex: occ.RecurrenceIndex,
	}
	if err := s.publisher.PublishOccurrenceMissed(ctx, msg); err != nil {
		// 状态已落库，通知丢失不回滚
		s.logger.Error("Failed to publish missed occurrence",
			zap.String("occurrence_id", occ.PublicID),
			zap.Error(err),
		)
	}
	return sweepMarked, nil
}

func (s *MissedService) locationOf(ctx context.Context, clientID int64, cached map[int64]*time.Location) (*time.Location, error) {
	if loc, ok := cached[clientID]; ok {
		return loc, nil
	}
	client, err := s.repo.Clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	loc := client.Location(s.loc)
	cached[clientID] = loc
	return loc, nil
}
