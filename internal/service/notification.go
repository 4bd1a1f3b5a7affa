package service

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"CoachCheck/internal/cadence"
	"CoachCheck/internal/model"
	"CoachCheck/internal/repository"
	"CoachCheck/pkg/errors"
)

// NotificationService worker 中消费提醒与漏打消息
// 具体投递渠道（邮件 / 推送）在服务之外，这里只做状态复核并记录
type NotificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func NewNotificationService(repo *repository.Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// NotifyWindowOpen 窗口开启提醒；投递时该期已不是 pending 则不再提醒
func (s *NotificationService) NotifyWindowOpen(ctx context.Context, msg model.WindowOpenReminderMessage) error {
	occ, err := s.repo.Occurrences.GetByPublicID(ctx, msg.OccurrenceID)
	if stderrors.Is(err, errors.CheckInNotFound) {
		s.logger.Warn("Reminder for unknown occurrence dropped", zap.String("occurrence_id", msg.OccurrenceID))
		return nil
	}
	if err != nil {
		return err
	}

	if cadence.OccurrenceStatus(occ.Status) != cadence.OccurrenceStatusPending {
		s.logger.Info("Occurrence no longer pending, reminder skipped",
			zap.String("occurrence_id", msg.OccurrenceID),
			zap.String("status", occ.Status),
		)
		return nil
	}

	s.logger.Info("Check-in window open notification",
		zap.String("occurrence_id", msg.OccurrenceID),
		zap.Int64("client_id", msg.ClientID),
		zap.Time("opens_at", msg.OpensAt),
		zap.Time("closes_at", msg.ClosesAt),
	)
	return nil
}

// NotifyOccurrenceMissed 漏打通知（发给教练）
func (s *NotificationService) NotifyOccurrenceMissed(ctx context.Context, msg model.OccurrenceMissedMessage) error {
	s.logger.Info("Missed check-in notification",
		zap.String("occurrence_id", msg.OccurrenceID),
		zap.Int64("client_id", msg.ClientID),
		zap.Int64("form_id", msg.FormID),
		zap.Int("recurrence_index", msg.RecurrenceIndex),
		zap.Time("due_date", msg.DueDate),
	)
	return nil
}
