package biz

import (
	"context"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// SendAttempt 发送记录领域对象
// pending 在预留时创建；运营商回执后迁移到 sent/failed；delivered/failed 为终态。
type SendAttempt struct {
	ID                string
	AccountID         string
	ReservationID     string
	RecipientPhone    string // E.164
	MessageText       string
	Type              string // invitation|notification|promotion
	Status            string // pending|sent|delivered|failed
	CostUnits         int64
	Segments          int64
	Encoding          string
	Retries           int
	ProviderMessageID string
	ErrorDetail       string
	CreatedAt         time.Time
	SentAt            *time.Time
	DeliveredAt       *time.Time
}

// IsTerminal 是否处于终态
func (a *SendAttempt) IsTerminal() bool {
	return a.Status == constants.SendStatusDelivered || a.Status == constants.SendStatusFailed
}

// AttemptQuery 发送记录查询条件
type AttemptQuery struct {
	AccountID string
	From      time.Time
	To        time.Time
	Page      int
	PageSize  int
}

// SendAttemptRepo 发送记录数据层接口（定义在 biz 层）
type SendAttemptRepo interface {
	CreateSendAttempts(ctx context.Context, attempts []*SendAttempt) error
	// MarkSent 将 pending 记录标记为 sent 并挂上运营商消息ID
	MarkSent(ctx context.Context, attemptID, providerMessageID string, sentAt time.Time) error
	// MarkFailed 将记录标记为 failed（终态）
	MarkFailed(ctx context.Context, attemptID, errorDetail string) error
	// ResolveDelivery 按运营商消息ID落地异步送达回执；终态不回退
	ResolveDelivery(ctx context.Context, providerMessageID, status, errorDetail string, at time.Time) (*SendAttempt, error)
	ListSendAttempts(ctx context.Context, q *AttemptQuery) ([]*SendAttempt, int64, error)
	IncrRetries(ctx context.Context, attemptID string) error
}

// SendAttemptUseCase 发送记录业务逻辑
type SendAttemptUseCase struct {
	repo SendAttemptRepo
	log  *log.Helper
}

// NewSendAttemptUseCase 创建发送记录 UseCase
func NewSendAttemptUseCase(repo SendAttemptRepo, logger log.Logger) *SendAttemptUseCase {
	return &SendAttemptUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// List 分页查询发送记录
func (uc *SendAttemptUseCase) List(ctx context.Context, q *AttemptQuery) ([]*SendAttempt, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	return uc.repo.ListSendAttempts(ctx, q)
}

// ResolveDelivery 落地运营商异步送达回执
// outcome 只接受 delivered/failed；幂等，终态记录不回退。
func (uc *SendAttemptUseCase) ResolveDelivery(ctx context.Context, providerMessageID, outcome, errorDetail string) (*SendAttempt, error) {
	status := constants.SendStatusFailed
	if outcome == constants.SendStatusDelivered {
		status = constants.SendStatusDelivered
	}
	attempt, err := uc.repo.ResolveDelivery(ctx, providerMessageID, status, errorDetail, time.Now())
	if err != nil {
		uc.log.Errorf("ResolveDelivery failed: provider_message_id=%s, err=%v", providerMessageID, err)
		return nil, err
	}
	if attempt == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeAttemptNotFound)
	}
	return attempt, nil
}
