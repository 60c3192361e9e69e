package biz

import (
	"context"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"
	"sms-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// ReservationSplit 一次预留在三个资金来源之间的拆分结果
// 不变式：FromQuota + FromWallet + OverageUnits == GrantedUnits <= RequestedUnits
type ReservationSplit struct {
	RequestedUnits          int64
	GrantedUnits            int64
	FromQuota               int64
	FromWallet              int64
	OverageUnits            int64
	OverageChargeMinorUnits int64
}

// Reservation 已提交的预留
type Reservation struct {
	ID        string
	AccountID string
	PeriodKey string
	ReservationSplit
}

// QuotaSnapshot 账户当前额度快照（只读）
type QuotaSnapshot struct {
	FreeQuota      int64 // 套餐月度配额
	FreeUsed       int64 // 本账期已用配额
	FreeRemaining  int64 // 剩余免费配额
	PaidBalance    int64 // 钱包余额
	TotalAvailable int64 // FreeRemaining + PaidBalance
}

// SplitReservation 计算预留拆分（纯函数，与数据层事务内的扣减逻辑保持同一套算法）
// 扣减顺序固定：配额 -> 钱包 -> 超量。
// 套餐未开启超量时部分满足：授予量向下取整到 unitSize 的整数倍，保证不把一条消息拆到两个来源之外。
func SplitReservation(requested, quotaAvailable, walletBalance, unitSize int64, plan *Plan) ReservationSplit {
	if quotaAvailable < 0 {
		quotaAvailable = 0
	}
	if walletBalance < 0 {
		walletBalance = 0
	}
	if unitSize <= 0 {
		unitSize = 1
	}

	split := ReservationSplit{RequestedUnits: requested}
	if requested <= 0 {
		return split
	}

	fromQuota := requested
	if quotaAvailable < fromQuota {
		fromQuota = quotaAvailable
	}
	remaining := requested - fromQuota

	fromWallet := remaining
	if walletBalance < fromWallet {
		fromWallet = walletBalance
	}
	remaining -= fromWallet

	if remaining > 0 && plan != nil && plan.OverageEnabled {
		split.FromQuota = fromQuota
		split.FromWallet = fromWallet
		split.OverageUnits = remaining
		split.OverageChargeMinorUnits = remaining * plan.OverageUnitPriceMinorUnits
		split.GrantedUnits = requested
		return split
	}

	// 超量不可用：只授予配额+钱包能覆盖的整消息数
	granted := (fromQuota + fromWallet) / unitSize * unitSize
	fromQuota = granted
	if quotaAvailable < fromQuota {
		fromQuota = quotaAvailable
	}
	split.FromQuota = fromQuota
	split.FromWallet = granted - fromQuota
	split.GrantedUnits = granted
	return split
}

// MessageFunding 单条消息的资金来源拆分
type MessageFunding struct {
	FromQuota    int64
	FromWallet   int64
	OverageUnits int64
}

// AllocateMessages 将预留拆分摊派到每条消息（每条 unitSize 个单元）
// 摊派顺序与扣减顺序一致：先吃配额，再吃钱包，最后超量；
// 单条消息失败回滚时按这里记下的来源逐项归还。
func AllocateMessages(split ReservationSplit, unitSize int64) []MessageFunding {
	if unitSize <= 0 || split.GrantedUnits <= 0 {
		return nil
	}
	count := split.GrantedUnits / unitSize
	fundings := make([]MessageFunding, 0, count)

	quotaLeft := split.FromQuota
	walletLeft := split.FromWallet
	for i := int64(0); i < count; i++ {
		var f MessageFunding
		need := unitSize
		if quotaLeft > 0 {
			f.FromQuota = min64(need, quotaLeft)
			quotaLeft -= f.FromQuota
			need -= f.FromQuota
		}
		if need > 0 && walletLeft > 0 {
			f.FromWallet = min64(need, walletLeft)
			walletLeft -= f.FromWallet
			need -= f.FromWallet
		}
		f.OverageUnits = need
		fundings = append(fundings, f)
	}
	return fundings
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// LedgerRepo 账本数据层接口（定义在 biz 层）
// Reserve 与 Rollback 都必须是账户维度的单事务操作
type LedgerRepo interface {
	// Reserve 原子提交一次预留：配额自增、钱包自减、写入流水
	Reserve(ctx context.Context, accountID, periodKey, reservationID string, requestedUnits, unitSize int64, plan *Plan) (*ReservationSplit, error)
	// Rollback 归还一次预留中的部分或全部单元；同一 reversalID 重复调用不会重复入账
	Rollback(ctx context.Context, accountID, periodKey, reversalID string, fromQuota, fromWallet int64) error
	// QuotaState 读取账户当前额度快照，不修改任何状态
	QuotaState(ctx context.Context, accountID, periodKey string, plan *Plan) (*QuotaSnapshot, error)
	// BatchApplyLedgerEvents 批量落库快速路径的预留事件（MQ Consumer 调用）
	BatchApplyLedgerEvents(ctx context.Context, events []*LedgerEvent) error
}

// LedgerUseCase 配额账本业务逻辑
type LedgerUseCase struct {
	repo    LedgerRepo
	conf    *SmsConfig
	log     *log.Helper
	metrics *metrics.SmsMetrics
}

// NewLedgerUseCase 创建账本 UseCase
func NewLedgerUseCase(repo LedgerRepo, conf *SmsConfig, logger log.Logger) *LedgerUseCase {
	return &LedgerUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// CurrentPeriodKey 当前账期 (YYYY-MM)
func CurrentPeriodKey() string {
	return time.Now().Format(constants.TimeFormatPeriod)
}

// Reserve 为一次批量发送预留 requestedUnits 个计费单元
// unitSize 为单条消息的单元数（分段数），部分满足时授予量总是整消息数。
// 配额、钱包均不足且套餐未开启超量时：授予量为 0 则整批拒绝，否则部分满足。
func (uc *LedgerUseCase) Reserve(ctx context.Context, accountID, reservationID string, requestedUnits, unitSize int64) (*Reservation, error) {
	startTime := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.ReserveDuration.Observe(time.Since(startTime).Seconds())
		}
	}()

	plan := uc.conf.PlanFor(accountID)
	if plan == nil {
		if uc.metrics != nil {
			uc.metrics.ReserveTotal.WithLabelValues(constants.ReserveResultError).Inc()
		}
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeUnknownPlan)
	}

	periodKey := CurrentPeriodKey()
	split, err := uc.repo.Reserve(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ReserveTotal.WithLabelValues(constants.ReserveResultError).Inc()
		}
		return nil, err
	}

	if split.GrantedUnits == 0 && requestedUnits > 0 {
		if uc.metrics != nil {
			uc.metrics.ReserveTotal.WithLabelValues(constants.ReserveResultDenied).Inc()
		}
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeInsufficientFunds)
	}

	if uc.metrics != nil {
		result := constants.ReserveResultGranted
		if split.GrantedUnits < requestedUnits {
			result = constants.ReserveResultPartial
		}
		uc.metrics.ReserveTotal.WithLabelValues(result).Inc()
		uc.metrics.ReserveUnits.WithLabelValues(constants.LedgerSourceQuota).Add(float64(split.FromQuota))
		uc.metrics.ReserveUnits.WithLabelValues(constants.LedgerSourceWallet).Add(float64(split.FromWallet))
		uc.metrics.ReserveUnits.WithLabelValues(constants.LedgerSourceOverage).Add(float64(split.OverageUnits))
	}

	return &Reservation{
		ID:               reservationID,
		AccountID:        accountID,
		PeriodKey:        periodKey,
		ReservationSplit: *split,
	}, nil
}

// Rollback 归还预留单元（下游发送在产生任何成本前失败时调用）
// reversalID 通常为 "attemptID" 或 "reservationID"，幂等：重复回滚不会重复入账。
func (uc *LedgerUseCase) Rollback(ctx context.Context, accountID, periodKey, reversalID string, fromQuota, fromWallet int64) error {
	if fromQuota <= 0 && fromWallet <= 0 {
		return nil
	}
	if err := uc.repo.Rollback(ctx, accountID, periodKey, reversalID, fromQuota, fromWallet); err != nil {
		return err
	}
	if uc.metrics != nil {
		uc.metrics.RollbackTotal.Inc()
	}
	return nil
}

// Snapshot 读取账户当前额度快照
func (uc *LedgerUseCase) Snapshot(ctx context.Context, accountID string) (*QuotaSnapshot, error) {
	plan := uc.conf.PlanFor(accountID)
	if plan == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeUnknownPlan)
	}
	snapshot, err := uc.repo.QuotaState(ctx, accountID, CurrentPeriodKey(), plan)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil && plan.MonthlyQuota > 0 {
		remainingPercent := float64(snapshot.FreeRemaining) / float64(plan.MonthlyQuota) * 100
		if remainingPercent < uc.conf.QuotaLowPercentThreshold {
			uc.metrics.QuotaLowAlert.Set(1)
		} else {
			uc.metrics.QuotaLowAlert.Set(0)
		}
		if snapshot.PaidBalance < uc.conf.WalletLowThreshold {
			uc.metrics.WalletLowAlert.Set(1)
		} else {
			uc.metrics.WalletLowAlert.Set(0)
		}
	}
	return snapshot, nil
}
