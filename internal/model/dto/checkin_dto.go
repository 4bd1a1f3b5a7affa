package dto

import (
	"time"

	"CoachCheck/internal/cadence"
)

// ========== CheckIn 相关 DTO ==========

// OccurrenceView 客户看到的一期打卡：窗口状态 + 紧迫度
type OccurrenceView struct {
	DueDate         time.Time            `json:"due_date"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
	Window          cadence.WindowStatus `json:"window"`
	ID              string               `json:"id"`
	Status          string               `json:"status"`
	Urgency         cadence.Urgency      `json:"urgency,omitempty"` // 仅 pending 有值
	RecurrenceIndex int                  `json:"recurrence_index"`
	RecurrenceTotal int                  `json:"recurrence_total"`
	Late            bool                 `json:"late"`
}

// ListCheckInsResponse 客户的打卡列表
type ListCheckInsResponse struct {
	Items []OccurrenceView `json:"items"`
}

// CompleteCheckInResponse 完成打卡响应
type CompleteCheckInResponse struct {
	CompletedAt time.Time `json:"completed_at"`
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Late        bool      `json:"late"`
}

// AllocateRequest 教练为客户分配一组打卡
// 日期字段接受 RFC3339 字符串、日期字符串、epoch 秒或 {seconds, nanoseconds}
type AllocateRequest struct {
	StartDate           interface{}     `json:"start_date"`
	FirstOccurrenceDate interface{}     `json:"first_occurrence_date,omitempty"`
	Window              *cadence.Window `json:"window,omitempty"`
	ClientID            string          `json:"client_id" vd:"len($)>0"`
	FormID              string          `json:"form_id" vd:"len($)>0"`
	Frequency           string          `json:"frequency" vd:"len($)>0"`
	OccurrenceCount     int             `json:"occurrence_count"`
	// Onboarding 新客户首期对齐到窗口开启日
	Onboarding bool `json:"onboarding"`
}

// AllocateResponse 分配结果；Created=false 表示序列已存在，原样返回
type AllocateResponse struct {
	SeriesID    string           `json:"series_id,omitempty"`
	Occurrences []OccurrenceView `json:"occurrences"`
	Created     bool             `json:"created"`
}

// ClientOverview 教练视角下单个客户的紧迫度统计
type ClientOverview struct {
	ClientID    string          `json:"client_id"`
	DisplayName string          `json:"display_name"`
	Worst       cadence.Urgency `json:"worst,omitempty"`
	OnTrack     int             `json:"on_track"`
	ClosingSoon int             `json:"closing_soon"`
	Overdue     int             `json:"overdue"`
}

// CoachOverviewResponse 教练总览
type CoachOverviewResponse struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Clients     []ClientOverview `json:"clients"`
}
