package model

import "time"

// Coach 教练
type Coach struct {
	BaseModel
	PublicID    string `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	DisplayName string `gorm:"type:varchar(128);not null" json:"display_name"`
}

func (Coach) TableName() string {
	return "coaches"
}

// Client 被教练指导的客户
type Client struct {
	BaseModel
	OnboardedAt *time.Time `gorm:"type:timestamptz" json:"onboarded_at,omitempty"`
	PublicID    string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	DisplayName string     `gorm:"type:varchar(128);not null" json:"display_name"`
	Timezone    string     `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	CoachID     int64      `gorm:"not null;index" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}

// Location 客户时区，非法或为空时退回 fallback
func (c *Client) Location(fallback *time.Location) *time.Location {
	if c.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// Form 打卡问卷模板，问卷内容与评分不在本服务内
type Form struct {
	BaseModel
	PublicID string `gorm:"type:varchar(32);uniqueIndex;not null" json:"id"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	CoachID  int64  `gorm:"not null;index" json:"-"`
}

func (Form) TableName() string {
	return "forms"
}
