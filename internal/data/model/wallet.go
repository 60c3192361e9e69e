package model

import (
	"time"
)

// WalletBalance 钱包余额表（每账户一行，跨账期持有）
type WalletBalance struct {
	WalletBalanceID string    `gorm:"primaryKey;type:varchar(36)"`
	AccountID       string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	BalanceUnits    int64     `gorm:"default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (WalletBalance) TableName() string {
	return "wallet_balance"
}
