package model

import (
	"time"
)

// LedgerEntry 账本流水表
// EntryKey 作为幂等键（预留ID或回滚ID），唯一索引挡住重复入账。
type LedgerEntry struct {
	LedgerEntryID string    `gorm:"primaryKey;type:varchar(36)"`
	EntryKey      string    `gorm:"type:varchar(80);not null;uniqueIndex:uk_entry_key_source,priority:1"`
	Source        string    `gorm:"type:varchar(16);not null;uniqueIndex:uk_entry_key_source,priority:2"` // quota/wallet/overage/reversal/bonus
	AccountID     string    `gorm:"type:varchar(36);not null;index:idx_account_date,priority:1"`
	PeriodKey     string    `gorm:"type:varchar(7);not null"`
	Units         int64     `gorm:"not null"` // 扣减为正，归还入账也为正（方向由 Source 表达）
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_account_date,priority:2"`
}

// TableName 指定表名
func (LedgerEntry) TableName() string {
	return "ledger_entry"
}
