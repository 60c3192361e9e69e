package biz

import (
	"context"
	"time"
)

// LedgerEvent 账本落库事件
// Redis 快速路径的预留与回滚都通过 MQ 异步落库。同一账户的事件按
// ShardingKey 进同一队列，回滚事件永远排在它对应的预留事件之后。
type LedgerEvent struct {
	Kind           string    `json:"kind"` // reserve|reversal
	ReservationID  string    `json:"reservation_id"`
	ReversalID     string    `json:"reversal_id,omitempty"`
	AccountID      string    `json:"account_id"`
	PeriodKey      string    `json:"period_key"`
	RequestedUnits int64     `json:"requested_units"`
	FromQuota      int64     `json:"from_quota"`
	FromWallet     int64     `json:"from_wallet"`
	OverageUnits   int64     `json:"overage_units"`
	ReserveTime    time.Time `json:"reserve_time"`
}

// OverageChargeEvent 发给下游计费系统的超量计费事件
// 计费失败属于账务系统问题，不会回滚已送达的消息。
type OverageChargeEvent struct {
	AccountID        string    `json:"account_id"`
	ReservationID    string    `json:"reservation_id"`
	OverageUnits     int64     `json:"overage_units"`
	AmountMinorUnits int64     `json:"amount_minor_units"`
	ChargeTime       time.Time `json:"charge_time"`
}

// OverageChargePublisher 超量计费事件发布接口（定义在 biz 层）
type OverageChargePublisher interface {
	PublishOverageCharge(ctx context.Context, event *OverageChargeEvent) error
}
