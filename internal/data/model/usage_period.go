package model

import (
	"time"
)

// UsagePeriod 账期配额表（每账户每账期一行）
type UsagePeriod struct {
	UsagePeriodID string    `gorm:"primaryKey;type:varchar(36)"`
	AccountID     string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_account_period,priority:1"`
	PeriodKey     string    `gorm:"type:varchar(7);not null;uniqueIndex:uk_account_period,priority:2"` // 2025-08
	QuotaUsed     int64     `gorm:"default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UsagePeriod) TableName() string {
	return "usage_period"
}
