package model

import (
	"time"

	"sms-service/internal/constants"
)

// 短信包订单状态常量（引用 constants 包中的常量，保持一致性）
const (
	PackOrderStatusPending = constants.OrderStatusPending // 待支付
	PackOrderStatusSuccess = constants.OrderStatusSuccess // 支付成功
	PackOrderStatusFailed  = constants.OrderStatusFailed  // 支付失败
)

// UnitPackOrder 短信包购买订单表（用于幂等性保证）
type UnitPackOrder struct {
	OrderID   string    `gorm:"primaryKey;type:varchar(64)"`
	AccountID string    `gorm:"type:varchar(36);not null;index"`
	Units     int64     `gorm:"not null"`
	PaymentID *string   `gorm:"type:varchar(64);uniqueIndex"` // 外部账务系统的支付流水号，未支付时为 NULL（空串会在唯一索引上互相冲突）
	Status    string    `gorm:"type:enum('pending','success','failed');not null;default:'pending'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UnitPackOrder) TableName() string {
	return "unit_pack_order"
}
