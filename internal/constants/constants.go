package constants

// 时间格式常量
const (
	// TimeFormatPeriod 账期格式 (YYYY-MM)
	TimeFormatPeriod = "2006-01"
	// TimeFormatDay 日期格式 (YYYY-MM-DD)
	TimeFormatDay = "2006-01-02"
)

// Redis Key 前缀常量
const (
	// RedisKeyWallet 钱包余额缓存 key 前缀
	RedisKeyWallet = "wallet:"
	// RedisKeyQuota 配额缓存 key 前缀
	RedisKeyQuota = "quota:"
	// RedisKeyReserveLock 预留扣减锁 key 前缀
	RedisKeyReserveLock = "reserve:lock:"
	// RedisKeyDailySent 每日发送量计数 key 前缀
	RedisKeyDailySent = "daily:sent:"
)

// 出账来源常量（一次预留可以拆分为多个来源）
const (
	// LedgerSourceQuota 月度免费配额
	LedgerSourceQuota = "quota"
	// LedgerSourceWallet 钱包预付余额
	LedgerSourceWallet = "wallet"
	// LedgerSourceOverage 超量计费
	LedgerSourceOverage = "overage"
	// LedgerSourceReversal 预留回滚
	LedgerSourceReversal = "reversal"
	// LedgerSourceBonus 开户赠送
	LedgerSourceBonus = "bonus"
)

// 消息编码常量
const (
	// EncodingGSM7 GSM 7-bit 编码（单段 160 字符）
	EncodingGSM7 = "gsm7"
	// EncodingUCS2 UCS-2 编码（单段 70 字符）
	EncodingUCS2 = "ucs2"
)

// 短信类型常量
const (
	// SmsTypeInvitation 邀请
	SmsTypeInvitation = "invitation"
	// SmsTypeNotification 通知
	SmsTypeNotification = "notification"
	// SmsTypePromotion 推广
	SmsTypePromotion = "promotion"
)

// 发送状态常量
const (
	// SendStatusPending 待发送/待确认
	SendStatusPending = "pending"
	// SendStatusSent 已提交给运营商
	SendStatusSent = "sent"
	// SendStatusDelivered 已送达（终态）
	SendStatusDelivered = "delivered"
	// SendStatusFailed 发送失败（终态）
	SendStatusFailed = "failed"
)

// 订单状态常量
const (
	// OrderStatusPending 待处理
	OrderStatusPending = "pending"
	// OrderStatusSuccess 成功
	OrderStatusSuccess = "success"
	// OrderStatusFailed 失败
	OrderStatusFailed = "failed"
)

// 预留结果常量（用于指标）
const (
	// ReserveResultGranted 完全满足
	ReserveResultGranted = "granted"
	// ReserveResultPartial 部分满足
	ReserveResultPartial = "partial"
	// ReserveResultDenied 拒绝
	ReserveResultDenied = "denied"
	// ReserveResultError 错误
	ReserveResultError = "error"
)

// 限流检查结果常量
const (
	// RateLimitResultAllowed 允许
	RateLimitResultAllowed = "allowed"
	// RateLimitResultDenied 拒绝
	RateLimitResultDenied = "denied"
)

// 订单ID前缀常量
const (
	// OrderIDPrefixUnitPack 短信包购买订单ID前缀
	OrderIDPrefixUnitPack = "pack_"
)

// 平台发送策略常量
const (
	// MaxSegmentsPerMessage 单条消息最大分段数（平台策略，先于配额检查执行）
	MaxSegmentsPerMessage = 10
	// DefaultDailyLimit 默认每日发送量上限（单位：计费单元）
	DefaultDailyLimit = 500
)

// MQ Topic 常量
const (
	// TopicLedgerEvents 账本落库事件 topic
	TopicLedgerEvents = "sms_ledger_events"
	// TopicOverageCharges 超量计费事件 topic（下游计费系统消费）
	TopicOverageCharges = "sms_overage_charges"
)

// 账本事件类型常量
const (
	// LedgerEventKindReserve 预留事件
	LedgerEventKindReserve = "reserve"
	// LedgerEventKindReversal 回滚事件
	LedgerEventKindReversal = "reversal"
)
