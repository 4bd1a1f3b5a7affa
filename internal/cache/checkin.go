package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	// 提醒投放标记，防止定时任务重复投放同一期的开启提醒
	reminderScheduledPrefix = "checkin:reminder:scheduled"
	messageProcessedPrefix  = "message:processed"

	processedTTL = 48 * time.Hour
	// reminderMarkerSlack 标记在窗口开启后再保留一段时间
	reminderMarkerSlack = 24 * time.Hour
)

// TryMarkReminderScheduled 原子地标记某期的开启提醒已投放
// 返回 false 表示已经投放过
func (s *Store) TryMarkReminderScheduled(ctx context.Context, occurrenceID string, opensAt, now time.Time) (bool, error) {
	ttl := opensAt.Sub(now) + reminderMarkerSlack
	if ttl < reminderMarkerSlack {
		ttl = reminderMarkerSlack
	}

	ok, err := s.client.SetNX(ctx, s.key(reminderScheduledPrefix, occurrenceID), opensAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder scheduled: %w", err)
	}
	return ok, nil
}

// UnmarkReminderScheduled 投放失败时清除标记，下一轮重试
func (s *Store) UnmarkReminderScheduled(ctx context.Context, occurrenceID string) error {
	return s.client.Del(ctx, s.key(reminderScheduledPrefix, occurrenceID)).Err()
}

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（SETNX）
// 返回 true 表示首次处理，false 表示重复消息或正在处理
func (s *Store) TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = processedTTL
	}

	ok, err := s.client.SetNX(ctx, s.key(messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时取消标记，允许重试
func (s *Store) UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	return s.client.Del(ctx, s.key(messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 处理成功后标记完成并延长 TTL
func (s *Store) MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return s.client.Set(ctx, s.key(messageProcessedPrefix, messageID), "completed", ttl).Err()
}
