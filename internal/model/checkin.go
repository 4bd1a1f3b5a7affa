package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"CoachCheck/internal/cadence"
)

// CheckInSeries 一个客户对一份表单的打卡排期，(client_id, form_id) 唯一
type CheckInSeries struct {
	BaseModel
	StartDate           time.Time                          `gorm:"type:timestamptz;not null" json:"start_date"`
	FirstOccurrenceDate time.Time                          `gorm:"type:timestamptz;not null" json:"first_occurrence_date"`
	Window              datatypes.JSONType[cadence.Window] `gorm:"type:jsonb;not null" json:"window"`
	PublicID            string                             `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	Frequency           string                             `gorm:"type:varchar(16);not null" json:"frequency"`
	ClientID            int64                              `gorm:"not null;uniqueIndex:idx_check_in_series_client_form" json:"-"`
	FormID              int64                              `gorm:"not null;uniqueIndex:idx_check_in_series_client_form" json:"-"`
	OccurrenceCount     int                                `gorm:"not null" json:"occurrence_count"`
}

func (CheckInSeries) TableName() string {
	return "check_in_series"
}

// CheckInOccurrence 排期中的一期，只会被提交或漏打扫描修改，不会被删除
type CheckInOccurrence struct {
	BaseModel
	DueDate     time.Time  `gorm:"type:timestamptz;not null;index:idx_check_in_occurrences_status_due" json:"due_date"`
	CompletedAt *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`
	MissedAt    *time.Time `gorm:"type:timestamptz" json:"missed_at,omitempty"`
	// Window 为空表示使用系统默认窗口
	Window          datatypes.JSON `gorm:"type:jsonb" json:"window,omitempty"`
	PublicID        string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	Status          string         `gorm:"type:varchar(16);not null;default:'pending';index:idx_check_in_occurrences_status_due" json:"status"`
	SeriesID        int64          `gorm:"not null;index" json:"-"`
	ClientID        int64          `gorm:"not null;index:idx_check_in_occurrences_client_form" json:"-"`
	FormID          int64          `gorm:"not null;index:idx_check_in_occurrences_client_form" json:"-"`
	RecurrenceIndex int            `gorm:"not null" json:"recurrence_index"`
	RecurrenceTotal int            `gorm:"not null" json:"recurrence_total"`
	Late            bool           `gorm:"not null;default:false" json:"late"`
}

func (CheckInOccurrence) TableName() string {
	return "check_in_occurrences"
}

// WindowConfig 解析本期窗口，nil 表示沿用默认窗口
func (o *CheckInOccurrence) WindowConfig() (*cadence.Window, error) {
	if len(o.Window) == 0 || string(o.Window) == "null" {
		return nil, nil
	}
	var w cadence.Window
	if err := json.Unmarshal(o.Window, &w); err != nil {
		return nil, fmt.Errorf("decode window of occurrence %d: %w", o.ID, err)
	}
	return &w, nil
}

// SetWindow 写入本期窗口，nil 清空
func (o *CheckInOccurrence) SetWindow(w *cadence.Window) error {
	if w == nil {
		o.Window = nil
		return nil
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	o.Window = datatypes.JSON(raw)
	return nil
}

// ToCadence 转换为计算引擎使用的值对象
func (o *CheckInOccurrence) ToCadence() (cadence.Occurrence, error) {
	w, err := o.WindowConfig()
	if err != nil {
		return cadence.Occurrence{}, err
	}
	return cadence.Occurrence{
		Key:             cadence.SeriesKey{ClientID: o.ClientID, FormID: o.FormID},
		DueDate:         o.DueDate,
		Window:          w,
		RecurrenceIndex: o.RecurrenceIndex,
		RecurrenceTotal: o.RecurrenceTotal,
		Status:          cadence.OccurrenceStatus(o.Status),
	}, nil
}
