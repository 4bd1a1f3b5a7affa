package model

import "time"

// WindowOpenReminderMessage 窗口开启提醒，延迟到 OpensAt 投递
type WindowOpenReminderMessage struct {
	OpensAt      time.Time `json:"opens_at"`
	ClosesAt     time.Time `json:"closes_at"`
	DueDate      time.Time `json:"due_date"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	MessageID    string    `json:"message_id"` // 消息唯一ID，用于幂等性检查
	OccurrenceID string    `json:"occurrence_id"`
	ClientID     int64     `json:"client_id"`
	FormID       int64     `json:"form_id"`
	DelaySeconds int       `json:"delay_seconds"`
}

// OccurrenceMissedMessage 某期被判定为漏打
type OccurrenceMissedMessage struct {
	DueDate         time.Time `json:"due_date"`
	MissedAt        time.Time `json:"missed_at"`
	MessageID       string    `json:"message_id"` // 消息唯一ID，用于幂等性检查
	OccurrenceID    string    `json:"occurrence_id"`
	ClientID        int64     `json:"client_id"`
	FormID          int64     `json:"form_id"`
	RecurrenceIndex int       `json:"recurrence_index"`
}
