package model

import (
	"time"
)

// SendAttempt 发送记录表
type SendAttempt struct {
	SendAttemptID     string     `gorm:"primaryKey;type:varchar(36)"`
	AccountID         string     `gorm:"type:varchar(36);not null;index:idx_account_date,priority:1"`
	ReservationID     string     `gorm:"type:varchar(36);not null;index"`
	RecipientPhone    string     `gorm:"type:varchar(20);not null"` // E.164
	MessageText       string     `gorm:"type:text;not null"`
	Type              string     `gorm:"type:enum('invitation','notification','promotion');not null"`
	Status            string     `gorm:"type:enum('pending','sent','delivered','failed');not null;default:'pending'"`
	CostUnits         int64      `gorm:"default:0"`
	Segments          int64      `gorm:"default:1"`
	Encoding          string     `gorm:"type:varchar(8);not null"` // gsm7/ucs2
	Retries           int        `gorm:"default:0"`
	ProviderMessageID string     `gorm:"type:varchar(64);index"`
	ErrorDetail       string     `gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index:idx_account_date,priority:2"`
	SentAt            *time.Time `gorm:""`
	DeliveredAt       *time.Time `gorm:""`
}

// TableName 指定表名
func (SendAttempt) TableName() string {
	return "send_attempt"
}
