package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewSmsService)

const timeFormatFull = "2006-01-02 15:04:05"

// SmsService 短信服务对外接口
type SmsService struct {
	send     *biz.SendUseCase
	ledger   *biz.LedgerUseCase
	attempts *biz.SendAttemptUseCase
	stats    *biz.StatsUseCase
	wallet   *biz.WalletUseCase
	packs    *biz.UnitPackOrderUseCase
	conf     *biz.SmsConfig
	log      *log.Helper
}

// NewSmsService 创建 SmsService
func NewSmsService(
	send *biz.SendUseCase,
	ledger *biz.LedgerUseCase,
	attempts *biz.SendAttemptUseCase,
	stats *biz.StatsUseCase,
	wallet *biz.WalletUseCase,
	packs *biz.UnitPackOrderUseCase,
	conf *biz.SmsConfig,
	logger log.Logger,
) *SmsService {
	return &SmsService{
		send:     send,
		ledger:   ledger,
		attempts: attempts,
		stats:    stats,
		wallet:   wallet,
		packs:    packs,
		conf:     conf,
		log:      log.NewHelper(logger),
	}
}

// SendBatch 批量发送
func (s *SmsService) SendBatch(ctx context.Context, req *SendBatchRequest) (*SendBatchReply, error) {
	result, err := s.send.SendBatch(ctx, &biz.SendBatchRequest{
		AccountID:  req.AccountID,
		Recipients: req.Recipients,
		Text:       req.Text,
		Vars:       req.Vars,
		Type:       req.Type,
	})
	if err != nil {
		s.log.Errorf("SendBatch failed: account=%s, err=%v", req.AccountID, err)
		return nil, err
	}

	reply := &SendBatchReply{
		ReservationID: result.ReservationID,
		SentCount:     result.SentCount,
		FailedCount:   result.FailedCount,
		PendingCount:  result.PendingCount,
		Segments:      result.Segments,
		Encoding:      result.Encoding,
		Recipients:    make([]*RecipientResult, 0, len(result.PerRecipient)),
	}
	for _, rr := range result.PerRecipient {
		reply.Recipients = append(reply.Recipients, &RecipientResult{
			Recipient:   rr.Recipient,
			Phone:       rr.Phone,
			AttemptID:   rr.AttemptID,
			Status:      rr.Status,
			CostUnits:   rr.CostUnits,
			ErrorDetail: rr.ErrorDetail,
		})
	}
	if result.Snapshot != nil {
		reply.Quota = toQuotaReply(req.AccountID, result.Snapshot)
	}
	return reply, nil
}

func toQuotaReply(accountID string, snapshot *biz.QuotaSnapshot) *QuotaReply {
	return &QuotaReply{
		AccountID:      accountID,
		FreeQuota:      snapshot.FreeQuota,
		FreeUsed:       snapshot.FreeUsed,
		FreeRemaining:  snapshot.FreeRemaining,
		PaidBalance:    snapshot.PaidBalance,
		TotalAvailable: snapshot.TotalAvailable,
	}
}

// GetQuota 获取账户额度快照（只读）
func (s *SmsService) GetQuota(ctx context.Context, accountID string) (*QuotaReply, error) {
	snapshot, err := s.ledger.Snapshot(ctx, accountID)
	if err != nil {
		s.log.Errorf("GetQuota failed: account=%s, err=%v", accountID, err)
		return nil, err
	}
	return toQuotaReply(accountID, snapshot), nil
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	var fromTime, toTime time.Time
	var err error
	if from != "" {
		fromTime, err = time.Parse(constants.TimeFormatDay, from)
		if err != nil {
			return fromTime, toTime, err
		}
	}
	if to != "" {
		toTime, err = time.Parse(constants.TimeFormatDay, to)
		if err != nil {
			return fromTime, toTime, err
		}
		// 截止日期含当天
		toTime = toTime.AddDate(0, 0, 1)
	}
	return fromTime, toTime, nil
}

func toAttemptItem(a *biz.SendAttempt) *AttemptItem {
	item := &AttemptItem{
		ID:             a.ID,
		RecipientPhone: a.RecipientPhone,
		MessageText:    a.MessageText,
		Type:           a.Type,
		Status:         a.Status,
		CostUnits:      a.CostUnits,
		Segments:       a.Segments,
		Encoding:       a.Encoding,
		Retries:        a.Retries,
		ErrorDetail:    a.ErrorDetail,
		CreatedAt:      a.CreatedAt.Format(timeFormatFull),
	}
	if a.SentAt != nil {
		item.SentAt = a.SentAt.Format(timeFormatFull)
	}
	if a.DeliveredAt != nil {
		item.DeliveredAt = a.DeliveredAt.Format(timeFormatFull)
	}
	return item
}

// ListAttempts 分页查询发送记录
func (s *SmsService) ListAttempts(ctx context.Context, req *ListAttemptsRequest) (*ListAttemptsReply, error) {
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	query := &biz.AttemptQuery{
		AccountID: req.AccountID,
		From:      from,
		To:        to,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	attempts, total, err := s.attempts.List(ctx, query)
	if err != nil {
		s.log.Errorf("ListAttempts failed: account=%s, err=%v", req.AccountID, err)
		return nil, err
	}

	reply := &ListAttemptsReply{
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
		Attempts: make([]*AttemptItem, 0, len(attempts)),
	}
	for _, a := range attempts {
		reply.Attempts = append(reply.Attempts, toAttemptItem(a))
	}
	return reply, nil
}

// ExportAttemptsCSV 导出发送记录为 CSV
// encoding/csv 负责引号转义，消息内容中的逗号、引号、换行都安全。
func (s *SmsService) ExportAttemptsCSV(ctx context.Context, req *ListAttemptsRequest) ([]byte, error) {
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	attempts, err := s.stats.ListForExport(ctx, &biz.StatsQuery{
		AccountID: req.AccountID,
		Begin:     from,
		End:       to,
	})
	if err != nil {
		s.log.Errorf("ExportAttemptsCSV failed: account=%s, err=%v", req.AccountID, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeExportFailed)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"date", "phone", "message", "type", "status", "cost_units", "retries", "delivered_at", "error"}
	if err := w.Write(header); err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeExportFailed)
	}

	for _, a := range attempts {
		deliveredAt := ""
		if a.DeliveredAt != nil {
			deliveredAt = a.DeliveredAt.Format(timeFormatFull)
		}
		record := []string{
			a.CreatedAt.Format(timeFormatFull),
			a.RecipientPhone,
			a.MessageText,
			a.Type,
			a.Status,
			strconv.FormatInt(a.CostUnits, 10),
			strconv.Itoa(a.Retries),
			deliveredAt,
			a.ErrorDetail,
		}
		if err := w.Write(record); err != nil {
			return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeExportFailed)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeExportFailed)
	}
	return buf.Bytes(), nil
}

// DeliveryCallback 运营商送达回执
func (s *SmsService) DeliveryCallback(ctx context.Context, req *DeliveryCallbackRequest) (*DeliveryCallbackReply, error) {
	attempt, err := s.attempts.ResolveDelivery(ctx, req.ProviderMessageID, req.Outcome, req.ErrorDetail)
	if err != nil {
		return nil, err
	}
	return &DeliveryCallbackReply{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
	}, nil
}

// GetStats 获取账户发送统计
func (s *SmsService) GetStats(ctx context.Context, req *StatsRequest) (*StatsReply, error) {
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, pkgErrors.ErrCodeInvalidArgument)
	}

	stats, err := s.stats.GetUsageStats(ctx, &biz.StatsQuery{
		AccountID: req.AccountID,
		Begin:     from,
		End:       to,
		Type:      req.Type,
	})
	if err != nil {
		return nil, err
	}

	reply := &StatsReply{
		AccountID:       req.AccountID,
		TotalAttempts:   stats.TotalAttempts,
		SentCount:       stats.SentCount,
		DeliveredCount:  stats.DeliveredCount,
		FailedCount:     stats.FailedCount,
		PendingCount:    stats.PendingCount,
		SuccessRate:     stats.SuccessRate,
		TotalCostUnits:  stats.TotalCostUnits,
		TotalCostMinor:  stats.TotalCostUnits * s.conf.UnitPriceMinorUnits,
		TotalSegments:   stats.TotalSegments,
		CountByType:     stats.CountByType,
		CostUnitsByType: stats.CostUnitsByType,
		CountByDay:      stats.CountByDay,
	}

	// 快速汇总失败不影响主统计
	if today, err := s.stats.GetStatsToday(ctx, req.AccountID); err == nil {
		reply.Today = toStatsSummary(today)
	}
	if month, err := s.stats.GetStatsMonth(ctx, req.AccountID); err == nil {
		reply.Month = toStatsSummary(month)
	}
	return reply, nil
}

func toStatsSummary(q *biz.QuickSummary) *StatsSummary {
	return &StatsSummary{
		Period:        q.Period,
		TotalMessages: q.TotalMessages,
		SentMessages:  q.SentMessages,
		FailedCount:   q.FailedCount,
		CostUnits:     q.CostUnits,
	}
}

// PurchasePack 创建短信包购买订单
func (s *SmsService) PurchasePack(ctx context.Context, req *PurchasePackRequest) (*PurchasePackReply, error) {
	orderID, err := s.packs.CreatePurchase(ctx, req.AccountID, req.Units)
	if err != nil {
		return nil, err
	}
	return &PurchasePackReply{OrderID: orderID}, nil
}

// PackCallback 短信包支付回调（幂等）
func (s *SmsService) PackCallback(ctx context.Context, req *PackCallbackRequest) (*PackCallbackReply, error) {
	if err := s.packs.PaymentCallback(ctx, req.OrderID, req.PaymentID); err != nil {
		return nil, err
	}
	return &PackCallbackReply{Success: true}, nil
}

// GrantOpeningBonus 订阅开通回调：发放一次性开户赠送单元（幂等）
func (s *SmsService) GrantOpeningBonus(ctx context.Context, req *OpeningBonusRequest) (*OpeningBonusReply, error) {
	units, err := s.wallet.GrantOpeningBonus(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.GetWallet(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	return &OpeningBonusReply{
		UnitsGranted: units,
		BalanceUnits: wallet.BalanceUnits,
	}, nil
}

// CreditAffiliate 推荐返利兑换为钱包单元
func (s *SmsService) CreditAffiliate(ctx context.Context, req *AffiliateCreditRequest) (*AffiliateCreditReply, error) {
	units, err := s.wallet.CreditAffiliate(ctx, req.AccountID, req.CreditMinorUnits, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.GetWallet(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	return &AffiliateCreditReply{
		UnitsCredited: units,
		BalanceUnits:  wallet.BalanceUnits,
	}, nil
}
