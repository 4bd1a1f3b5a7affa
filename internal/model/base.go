package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 所有表共用的字段，ID 由 snowflake 生成
type BaseModel struct {
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ID        int64          `gorm:"primaryKey;autoIncrement:false" json:"-"`
}

// All 返回需要迁移的模型
func All() []interface{} {
	return []interface{}{
		&Coach{},
		&Client{},
		&Form{},
		&CheckInSeries{},
		&CheckInOccurrence{},
	}
}
