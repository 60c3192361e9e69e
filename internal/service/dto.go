package service

// 面向 HTTP JSON 接口的请求/响应对象

// SendBatchRequest 批量发送请求
type SendBatchRequest struct {
	AccountID  string            `json:"account_id"`
	Recipients []string          `json:"recipients"`
	Text       string            `json:"text"`
	Vars       map[string]string `json:"vars,omitempty"`
	Type       string            `json:"type"`
}

// RecipientResult 单个接收人的发送结果
type RecipientResult struct {
	Recipient   string `json:"recipient"`
	Phone       string `json:"phone,omitempty"`
	AttemptID   string `json:"attempt_id,omitempty"`
	Status      string `json:"status"`
	CostUnits   int64  `json:"cost_units"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// SendBatchReply 批量发送响应
type SendBatchReply struct {
	ReservationID string             `json:"reservation_id"`
	SentCount     int64              `json:"sent_count"`
	FailedCount   int64              `json:"failed_count"`
	PendingCount  int64              `json:"pending_count"`
	Segments      int64              `json:"segments"`
	Encoding      string             `json:"encoding"`
	Recipients    []*RecipientResult `json:"recipients"`
	Quota         *QuotaReply        `json:"quota,omitempty"`
}

// QuotaReply 额度快照响应
type QuotaReply struct {
	AccountID      string `json:"account_id"`
	FreeQuota      int64  `json:"free_quota"`
	FreeUsed       int64  `json:"free_used"`
	FreeRemaining  int64  `json:"free_remaining"`
	PaidBalance    int64  `json:"paid_balance"`
	TotalAvailable int64  `json:"total_available"`
}

// ListAttemptsRequest 发送记录查询请求
type ListAttemptsRequest struct {
	AccountID string `json:"account_id"`
	From      string `json:"from,omitempty"` // 2025-08-01
	To        string `json:"to,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

// AttemptItem 发送记录项
type AttemptItem struct {
	ID             string `json:"id"`
	RecipientPhone string `json:"recipient_phone"`
	MessageText    string `json:"message_text"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	CostUnits      int64  `json:"cost_units"`
	Segments       int64  `json:"segments"`
	Encoding       string `json:"encoding"`
	Retries        int    `json:"retries"`
	ErrorDetail    string `json:"error_detail,omitempty"`
	CreatedAt      string `json:"created_at"`
	SentAt         string `json:"sent_at,omitempty"`
	DeliveredAt    string `json:"delivered_at,omitempty"`
}

// ListAttemptsReply 发送记录查询响应
type ListAttemptsReply struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Attempts []*AttemptItem `json:"attempts"`
}

// DeliveryCallbackRequest 运营商送达回执
type DeliveryCallbackRequest struct {
	ProviderMessageID string `json:"provider_message_id"`
	Outcome           string `json:"outcome"` // delivered|failed
	ErrorDetail       string `json:"error_detail,omitempty"`
}

// DeliveryCallbackReply 送达回执响应
type DeliveryCallbackReply struct {
	AttemptID string `json:"attempt_id"`
	Status    string `json:"status"`
}

// StatsRequest 统计查询请求
type StatsRequest struct {
	AccountID string `json:"account_id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Type      string `json:"type,omitempty"`
}

// StatsSummary 快速汇总
type StatsSummary struct {
	Period        string `json:"period"`
	TotalMessages int64  `json:"total_messages"`
	SentMessages  int64  `json:"sent_messages"`
	FailedCount   int64  `json:"failed_count"`
	CostUnits     int64  `json:"cost_units"`
}

// StatsReply 统计响应
type StatsReply struct {
	AccountID       string           `json:"account_id"`
	TotalAttempts   int64            `json:"total_attempts"`
	SentCount       int64            `json:"sent_count"`
	DeliveredCount  int64            `json:"delivered_count"`
	FailedCount     int64            `json:"failed_count"`
	PendingCount    int64            `json:"pending_count"`
	SuccessRate     float64          `json:"success_rate"`
	TotalCostUnits  int64            `json:"total_cost_units"`
	TotalCostMinor  int64            `json:"total_cost_minor_units"`
	TotalSegments   int64            `json:"total_segments"`
	CountByType     map[string]int64 `json:"count_by_type"`
	CostUnitsByType map[string]int64 `json:"cost_units_by_type"`
	CountByDay      map[string]int64 `json:"count_by_day"`
	Today           *StatsSummary    `json:"today,omitempty"`
	Month           *StatsSummary    `json:"month,omitempty"`
}

// PurchasePackRequest 短信包购买请求
type PurchasePackRequest struct {
	AccountID string `json:"account_id"`
	Units     int64  `json:"units"`
}

// PurchasePackReply 短信包购买响应
type PurchasePackReply struct {
	OrderID string `json:"order_id"`
}

// PackCallbackRequest 短信包支付回调
type PackCallbackRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

// PackCallbackReply 短信包支付回调响应
type PackCallbackReply struct {
	Success bool `json:"success"`
}

// OpeningBonusRequest 订阅开通回调（发放开户赠送）
type OpeningBonusRequest struct {
	AccountID string `json:"account_id"`
}

// OpeningBonusReply 开户赠送发放响应
type OpeningBonusReply struct {
	UnitsGranted int64 `json:"units_granted"`
	BalanceUnits int64 `json:"balance_units"`
}

// AffiliateCreditRequest 推荐返利兑换请求
type AffiliateCreditRequest struct {
	AccountID        string `json:"account_id"`
	CreditMinorUnits int64  `json:"credit_minor_units"`
	ReferenceID      string `json:"reference_id"`
}

// AffiliateCreditReply 推荐返利兑换响应
type AffiliateCreditReply struct {
	UnitsCredited int64 `json:"units_credited"`
	BalanceUnits  int64 `json:"balance_units"`
}
