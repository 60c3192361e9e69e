package biz

import "context"

// 运营商下发结果
const (
	// TransportOutcomeSent 运营商已受理
	TransportOutcomeSent = "sent"
	// TransportOutcomeRejected 运营商拒绝（号码无效、内容违规等）
	TransportOutcomeRejected = "rejected"
)

// TransportClient 短信运营商客户端接口
// 下发调用耗时不可控，绝不允许在账本锁/事务内调用。
type TransportClient interface {
	Send(ctx context.Context, req *TransportSendRequest) (*TransportSendReply, error)
}

// TransportSendRequest 下发请求
type TransportSendRequest struct {
	Phone string // E.164
	Text  string
	Type  string
}

// TransportSendReply 下发响应
// 异步送达回执稍后以 webhook 形式回调，携带 ProviderMessageID。
type TransportSendReply struct {
	ProviderMessageID string
	Outcome           string // sent|rejected
	ErrorDetail       string
}
