package biz

import (
	"context"
	"errors"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"
	"sms-service/internal/metrics"
	"sms-service/internal/sms"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// SendBatchRequest 批量发送请求
type SendBatchRequest struct {
	AccountID  string
	Recipients []string          // 原始输入号码，逐个规范化
	Text       string            // 消息文本或模板
	Vars       map[string]string // 模板变量，整批共享
	Type       string            // invitation|notification|promotion
}

// RecipientResult 单个接收人的发送结果
type RecipientResult struct {
	Recipient   string // 原始输入
	Phone       string // 规范化后的 E.164，规范化失败时为空
	AttemptID   string
	Status      string // pending|sent|failed
	CostUnits   int64
	ErrorDetail string
}

// SendBatchResult 批量发送结果
type SendBatchResult struct {
	ReservationID string
	SentCount     int64
	FailedCount   int64
	PendingCount  int64
	Segments      int64
	Encoding      string
	PerRecipient  []*RecipientResult
	Snapshot      *QuotaSnapshot
}

// SendUseCase 批量发送编排逻辑
// 扣减顺序固定：限流 -> 预留 -> 落库 pending -> 运营商下发 -> 状态迁移。
// 运营商调用绝不在账本锁/事务内执行。
type SendUseCase struct {
	conf       *SmsConfig
	ledger     *LedgerUseCase
	rateLimit  *RateLimitUseCase
	attempts   SendAttemptRepo
	transport  TransportClient
	overagePub OverageChargePublisher
	log        *log.Helper
	metrics    *metrics.SmsMetrics
}

// NewSendUseCase 创建发送 UseCase
func NewSendUseCase(
	conf *SmsConfig,
	ledger *LedgerUseCase,
	rateLimit *RateLimitUseCase,
	attempts SendAttemptRepo,
	transport TransportClient,
	overagePub OverageChargePublisher,
	logger log.Logger,
) *SendUseCase {
	return &SendUseCase{
		conf:       conf,
		ledger:     ledger,
		rateLimit:  rateLimit,
		attempts:   attempts,
		transport:  transport,
		overagePub: overagePub,
		log:        log.NewHelper(logger),
		metrics:    metrics.GetMetrics(),
	}
}

func validSmsType(smsType string) bool {
	switch smsType {
	case constants.SmsTypeInvitation, constants.SmsTypeNotification, constants.SmsTypePromotion:
		return true
	}
	return false
}

// SendBatch 批量发送入口
// 准备阶段失败整批中止；单个号码规范化失败只跳过该接收人；
// 预留部分满足时未覆盖的接收人直接标记失败，不产生任何扣减。
func (uc *SendUseCase) SendBatch(ctx context.Context, req *SendBatchRequest) (*SendBatchResult, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.SendBatchDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	result, err := uc.sendBatch(ctx, req)
	if uc.metrics != nil {
		batchResult := "success"
		if err != nil {
			batchResult = "failed"
		}
		uc.metrics.SendBatchTotal.WithLabelValues(batchResult).Inc()
	}
	return result, err
}

func (uc *SendUseCase) sendBatch(ctx context.Context, req *SendBatchRequest) (*SendBatchResult, error) {
	// 1. 准备阶段：类型、模板、分段。任何失败在触达账本前中止。
	if !validSmsType(req.Type) {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeInvalidSmsType)
	}
	if missing := sms.MissingVariables(req.Text, req.Vars); len(missing) > 0 {
		uc.log.Warnf("SendBatch missing template variables: account=%s, missing=%v", req.AccountID, missing)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeMissingTemplateVariables)
	}
	rendered := sms.RenderTemplate(req.Text, req.Vars)

	prepared, err := sms.PrepareMessage(rendered)
	if err != nil {
		switch {
		case errors.Is(err, sms.ErrEmptyMessage):
			return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeEmptyMessage)
		case errors.Is(err, sms.ErrMessageTooLong):
			return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeMessageTooLong)
		}
		return nil, err
	}

	// 2. 逐个规范化号码：失败的接收人记入结果，整批继续。
	result := &SendBatchResult{
		Segments:     prepared.Segments,
		Encoding:     prepared.Encoding,
		PerRecipient: make([]*RecipientResult, 0, len(req.Recipients)),
	}
	validResults := make([]*RecipientResult, 0, len(req.Recipients))
	for _, raw := range req.Recipients {
		rr := &RecipientResult{Recipient: raw}
		phone, err := sms.NormalizePhone(raw)
		if err != nil {
			rr.Status = constants.SendStatusFailed
			rr.ErrorDetail = "invalid phone number"
			result.FailedCount++
		} else {
			rr.Phone = phone
			validResults = append(validResults, rr)
		}
		result.PerRecipient = append(result.PerRecipient, rr)
	}
	if len(validResults) == 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeNoValidRecipients)
	}

	// 3. 每日限流：全部有效接收人的单元数一次性检查，不足即整批中止。
	requestedUnits := int64(len(validResults)) * prepared.Segments
	decision, err := uc.rateLimit.Check(ctx, req.AccountID, requestedUnits)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		uc.log.Warnf("SendBatch daily limit exceeded: account=%s, requested=%d, remaining=%d",
			req.AccountID, requestedUnits, decision.Remaining)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeDailyRateLimitExceeded)
	}

	// 4. 账本预留：单事务扣减，部分满足时授予量为整消息数。
	reservationID := uuid.NewString()
	reservation, err := uc.ledger.Reserve(ctx, req.AccountID, reservationID, requestedUnits, prepared.Segments)
	if err != nil {
		return nil, err
	}
	result.ReservationID = reservationID

	fundings := AllocateMessages(reservation.ReservationSplit, prepared.Segments)
	grantedCount := len(fundings)
	for i, rr := range validResults {
		if i >= grantedCount {
			// 预留未覆盖的接收人：未扣减任何单元，直接失败。
			rr.Status = constants.SendStatusFailed
			rr.ErrorDetail = "insufficient funds"
			result.FailedCount++
		}
	}
	granted := validResults[:grantedCount]
	if grantedCount == 0 {
		return result, nil
	}

	// 5. 落库 pending 记录后再下发，保证每个扣减都有可追溯的归属。
	now := time.Now()
	attemptsToCreate := make([]*SendAttempt, 0, grantedCount)
	for _, rr := range granted {
		rr.AttemptID = uuid.NewString()
		rr.Status = constants.SendStatusPending
		rr.CostUnits = prepared.Segments
		attemptsToCreate = append(attemptsToCreate, &SendAttempt{
			ID:             rr.AttemptID,
			AccountID:      req.AccountID,
			ReservationID:  reservationID,
			RecipientPhone: rr.Phone,
			MessageText:    rendered,
			Type:           req.Type,
			Status:         constants.SendStatusPending,
			CostUnits:      prepared.Segments,
			Segments:       prepared.Segments,
			Encoding:       prepared.Encoding,
			CreatedAt:      now,
		})
	}
	if err := uc.attempts.CreateSendAttempts(ctx, attemptsToCreate); err != nil {
		// 落库失败：归还整笔预留，整批中止。
		if rbErr := uc.ledger.Rollback(ctx, req.AccountID, reservation.PeriodKey, reservationID,
			reservation.FromQuota, reservation.FromWallet); rbErr != nil {
			uc.log.Errorf("Rollback after attempt create failure failed: reservation=%s, err=%v", reservationID, rbErr)
		}
		return nil, err
	}

	// 6. 运营商逐条下发（已在锁外）。
	var sentUnits, sentOverageUnits int64
	for i, rr := range granted {
		reply, err := uc.transport.Send(ctx, &TransportSendRequest{
			Phone: rr.Phone,
			Text:  rendered,
			Type:  req.Type,
		})
		if err != nil {
			// 超时或不可达：状态保持 pending，等待回执或人工重试。
			uc.log.Warnf("Transport send failed: attempt=%s, phone=%s, err=%v", rr.AttemptID, rr.Phone, err)
			if uc.metrics != nil {
				uc.metrics.DispatchTotal.WithLabelValues("timeout").Inc()
			}
			if retryErr := uc.attempts.IncrRetries(ctx, rr.AttemptID); retryErr != nil {
				uc.log.Errorf("IncrRetries failed: attempt=%s, err=%v", rr.AttemptID, retryErr)
			}
			result.PendingCount++
			continue
		}

		if reply.Outcome == TransportOutcomeSent {
			if markErr := uc.attempts.MarkSent(ctx, rr.AttemptID, reply.ProviderMessageID, time.Now()); markErr != nil {
				uc.log.Errorf("MarkSent failed: attempt=%s, err=%v", rr.AttemptID, markErr)
			}
			rr.Status = constants.SendStatusSent
			result.SentCount++
			sentUnits += prepared.Segments
			sentOverageUnits += fundings[i].OverageUnits
			if uc.metrics != nil {
				uc.metrics.DispatchTotal.WithLabelValues(constants.SendStatusSent).Inc()
				uc.metrics.SegmentsTotal.WithLabelValues(prepared.Encoding).Add(float64(prepared.Segments))
			}
			continue
		}

		// 运营商拒绝：标记失败并按本条消息的资金来源逐项归还。
		if markErr := uc.attempts.MarkFailed(ctx, rr.AttemptID, reply.ErrorDetail); markErr != nil {
			uc.log.Errorf("MarkFailed failed: attempt=%s, err=%v", rr.AttemptID, markErr)
		}
		rr.Status = constants.SendStatusFailed
		rr.ErrorDetail = reply.ErrorDetail
		result.FailedCount++
		if uc.metrics != nil {
			uc.metrics.DispatchTotal.WithLabelValues(TransportOutcomeRejected).Inc()
		}
		if rbErr := uc.ledger.Rollback(ctx, req.AccountID, reservation.PeriodKey, rr.AttemptID,
			fundings[i].FromQuota, fundings[i].FromWallet); rbErr != nil {
			uc.log.Errorf("Per-recipient rollback failed: attempt=%s, err=%v", rr.AttemptID, rbErr)
		}
	}

	// 7. 只把实际提交给运营商的单元计入每日发送量。
	if err := uc.rateLimit.Record(ctx, req.AccountID, sentUnits); err != nil {
		uc.log.Errorf("Record daily units failed: account=%s, units=%d, err=%v", req.AccountID, sentUnits, err)
	}

	// 8. 实际下发的超量单元发给账务系统计费。
	if sentOverageUnits > 0 {
		uc.publishOverageCharge(ctx, req.AccountID, reservationID, sentOverageUnits)
	}

	if snapshot, err := uc.ledger.Snapshot(ctx, req.AccountID); err != nil {
		uc.log.Warnf("Snapshot after send failed: account=%s, err=%v", req.AccountID, err)
	} else {
		result.Snapshot = snapshot
	}
	return result, nil
}

// publishOverageCharge 发布超量计费事件
// 计费失败只记日志，不影响已下发的消息。
func (uc *SendUseCase) publishOverageCharge(ctx context.Context, accountID, reservationID string, overageUnits int64) {
	plan := uc.conf.PlanFor(accountID)
	if plan == nil || uc.overagePub == nil {
		return
	}
	amount := overageUnits * plan.OverageUnitPriceMinorUnits
	event := &OverageChargeEvent{
		AccountID:        accountID,
		ReservationID:    reservationID,
		OverageUnits:     overageUnits,
		AmountMinorUnits: amount,
		ChargeTime:       time.Now(),
	}
	if err := uc.overagePub.PublishOverageCharge(ctx, event); err != nil {
		uc.log.Errorf("PublishOverageCharge failed: account=%s, reservation=%s, err=%v", accountID, reservationID, err)
		return
	}
	if uc.metrics != nil {
		uc.metrics.OverageChargeTotal.Inc()
		uc.metrics.OverageChargeAmount.Add(float64(amount))
	}
}
