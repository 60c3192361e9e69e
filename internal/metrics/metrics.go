package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SmsMetrics 短信服务指标
type SmsMetrics struct {
	// 预留相关指标
	ReserveTotal    *prometheus.CounterVec   // 预留总数（按结果）
	ReserveDuration prometheus.Histogram     // 预留耗时
	ReserveUnits    *prometheus.CounterVec   // 预留单元数（按来源 quota/wallet/overage）
	RollbackTotal   prometheus.Counter       // 回滚总数

	// 发送相关指标
	SendBatchTotal    *prometheus.CounterVec // 批量发送请求总数（按结果）
	SendBatchDuration prometheus.Histogram   // 批量发送耗时
	DispatchTotal     *prometheus.CounterVec // 单条下发总数（按运营商结果）
	SegmentsTotal     *prometheus.CounterVec // 发送分段总数（按编码）

	// 限流相关指标
	RateLimitTotal *prometheus.CounterVec // 限流检查总数（按结果）

	// 钱包相关指标
	WalletCreditTotal  *prometheus.CounterVec // 钱包充值总数（按来源 bonus/pack/affiliate）
	WalletCreditUnits  *prometheus.CounterVec // 钱包充值单元数（按来源）
	WalletLowAlert     prometheus.Gauge       // 钱包余额不足告警

	// 配额相关指标
	QuotaLowAlert prometheus.Gauge // 配额即将用尽告警（剩余配额 < 阈值）

	// 超量计费指标
	OverageChargeTotal  prometheus.Counter // 超量计费事件总数
	OverageChargeAmount prometheus.Counter // 超量计费金额（货币最小单位）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewSmsMetrics 创建短信服务指标
func NewSmsMetrics() *SmsMetrics {
	return &SmsMetrics{
		ReserveTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_reserve_total",
				Help: "Total number of ledger reservations",
			},
			[]string{"result"}, // result: granted/partial/denied/error
		),
		ReserveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sms_reserve_duration_seconds",
				Help:    "Duration of ledger reservation operations",
				Buckets: prometheus.DefBuckets,
			},
		),
		ReserveUnits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_reserve_units_total",
				Help: "Total units reserved by funding source",
			},
			[]string{"source"}, // source: quota/wallet/overage
		),
		RollbackTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sms_rollback_total",
				Help: "Total number of reservation rollbacks",
			},
		),

		SendBatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_send_batch_total",
				Help: "Total number of batch send requests",
			},
			[]string{"result"}, // result: success/failed
		),
		SendBatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sms_send_batch_duration_seconds",
				Help:    "Duration of batch send requests",
				Buckets: prometheus.DefBuckets,
			},
		),
		DispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_dispatch_total",
				Help: "Total number of messages dispatched to the transport provider",
			},
			[]string{"outcome"}, // outcome: sent/rejected/timeout
		),
		SegmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_segments_total",
				Help: "Total message segments sent",
			},
			[]string{"encoding"}, // encoding: gsm7/ucs2
		),

		RateLimitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_rate_limit_total",
				Help: "Total number of daily rate limit checks",
			},
			[]string{"result"}, // result: allowed/denied
		),

		WalletCreditTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_wallet_credit_total",
				Help: "Total number of wallet credit operations",
			},
			[]string{"source"}, // source: bonus/pack/affiliate
		),
		WalletCreditUnits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_wallet_credit_units_total",
				Help: "Total units credited to wallets",
			},
			[]string{"source"},
		),
		WalletLowAlert: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sms_wallet_low_alert",
				Help: "Set when an account wallet balance is below threshold",
			},
		),

		QuotaLowAlert: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sms_quota_low_alert",
				Help: "Set when an account monthly quota is nearly exhausted",
			},
		),

		OverageChargeTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sms_overage_charge_total",
				Help: "Total number of overage charge events emitted",
			},
		),
		OverageChargeAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sms_overage_charge_amount_total",
				Help: "Total overage amount emitted, in minor currency units",
			},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_lock_acquire_total",
				Help: "Total number of reservation lock acquisitions",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sms_lock_acquire_duration_seconds",
				Help:    "Duration of reservation lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *SmsMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewSmsMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *SmsMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
