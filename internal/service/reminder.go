package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/repository"
)

// ReminderService 为即将开启的窗口投放延迟提醒
type ReminderService struct {
	repo      *repository.Repository
	ev        *cadence.Evaluator
	marker    ReminderMarker
	publisher EventPublisher
	loc       *time.Location
	logger    *zap.Logger
}

func NewReminderService(
	repo *repository.Repository,
	ev *cadence.Evaluator,
	marker ReminderMarker,
	publisher EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{repo: repo, ev: ev, marker: marker, publisher: publisher, loc: loc, logger: logger}
}

// PlanWindowReminders 窗口在 [now, now+lookahead) 内开启的 pending 期各投放一条提醒
// 同一期只投放一次，返回本次新投放的数量
func (s *ReminderService) PlanWindowReminders(ctx context.Context, now time.Time, lookahead time.Duration) (int, error) {
	until := now.Add(lookahead)

	candidates, err := s.repo.Occurrences.ListOpeningBetween(ctx, now, until)
	if err != nil {
		return 0, err
	}

	locs := make(map[int64]*time.Location)
	planned := 0
	for _, occ := range candidates {
		loc, ok := locs[occ.ClientID]
		if !ok {
			client, err := s.repo.Clients.GetByID(ctx, occ.ClientID)
			if err != nil {
				return planned, err
			}
			loc = client.Location(s.loc)
			locs[occ.ClientID] = loc
		}

		w, err := occ.WindowConfig()
		if err != nil {
			s.logger.Warn("Skipping occurrence with unreadable window", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
			continue
		}

		due := occ.DueDate.In(loc)
		bounds, err := s.ev.Compute(due, w)
		if err != nil {
			s.logger.Warn("Skipping occurrence with invalid window", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
			continue
		}
		// 禁用的窗口没有开启时刻
		if !bounds.Enabled || bounds.OpensAt.Before(now) || !bounds.OpensAt.Before(until) {
			continue
		}

		first, err := s.marker.TryMarkReminderScheduled(ctx, occ.PublicID, bounds.OpensAt, now)
		if err != nil {
			s.logger.Warn("Failed to mark reminder scheduled", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		msg := model.WindowOpenReminderMessage{
			OpensAt:      bounds.OpensAt,
			ClosesAt:     bounds.ClosesAt,
			DueDate:      due,
			ScheduledAt:  now,
			OccurrenceID: occ.PublicID,
			ClientID:     occ.ClientID,
			FormID:       occ.FormID,
			DelaySeconds: int(bounds.OpensAt.Sub(now) / time.Second),
		}
		if err := s.publisher.PublishWindowReminder(ctx, msg); err != nil {
			s.logger.Error("Failed to publish window reminder", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
			if err := s.marker.UnmarkReminderScheduled(ctx, occ.PublicID); err != nil {
				s.logger.Warn("Failed to unmark reminder", zap.String("occurrence_id", occ.PublicID), zap.Error(err))
			}
			continue
		}
		planned++
	}

	s.logger.Info("Window reminders planned",
		zap.Int("candidates", len(candidates)),
		zap.Int("planned", planned),
		zap.Time("until", until),
	)

	return planned, nil
}
