package biz

import (
	"context"
	"fmt"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"
	"sms-service/internal/metrics"
	"sms-service/internal/sms"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Wallet 钱包领域对象（每账户一行，跨账期持有，余额永不为负）
type Wallet struct {
	AccountID    string
	BalanceUnits int64
	UpdatedAt    time.Time
}

// WalletRepo 钱包数据层接口（定义在 biz 层）
type WalletRepo interface {
	GetWallet(ctx context.Context, accountID string) (*Wallet, error)
	// CreditUnits 无条件为钱包增加单元；entryID 作为幂等键，重复入账被唯一索引挡下并视为成功
	CreditUnits(ctx context.Context, accountID string, units int64, source, entryID string) error
}

// WalletUseCase 钱包业务逻辑
type WalletUseCase struct {
	repo    WalletRepo
	conf    *SmsConfig
	log     *log.Helper
	metrics *metrics.SmsMetrics
}

// NewWalletUseCase 创建钱包 UseCase
func NewWalletUseCase(repo WalletRepo, conf *SmsConfig, logger log.Logger) *WalletUseCase {
	return &WalletUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// GetWallet 获取钱包，不存在时返回余额为 0 的对象
func (uc *WalletUseCase) GetWallet(ctx context.Context, accountID string) (*Wallet, error) {
	wallet, err := uc.repo.GetWallet(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		wallet = &Wallet{AccountID: accountID, BalanceUnits: 0}
	}
	return wallet, nil
}

// GrantOpeningBonus 订阅开通时发放一次性开户赠送单元
// 幂等：每个账户的赠送流水 ID 固定，重复触发不会重复入账。
func (uc *WalletUseCase) GrantOpeningBonus(ctx context.Context, accountID string) (int64, error) {
	plan := uc.conf.PlanFor(accountID)
	if plan == nil {
		return 0, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeUnknownPlan)
	}
	if plan.OpeningBonusUnits <= 0 {
		return 0, nil
	}

	entryID := fmt.Sprintf("bonus_%s", accountID)
	if err := uc.repo.CreditUnits(ctx, accountID, plan.OpeningBonusUnits, constants.LedgerSourceBonus, entryID); err != nil {
		return 0, err
	}
	if uc.metrics != nil {
		uc.metrics.WalletCreditTotal.WithLabelValues(constants.LedgerSourceBonus).Inc()
		uc.metrics.WalletCreditUnits.WithLabelValues(constants.LedgerSourceBonus).Add(float64(plan.OpeningBonusUnits))
	}
	uc.log.Infof("Opening bonus granted: account=%s, units=%d", accountID, plan.OpeningBonusUnits)
	return plan.OpeningBonusUnits, nil
}

// CreditAffiliate 将推荐返利金额兑换为钱包单元并入账
// 兑换单价来自配置；兑换结果为 0 时不入账，直接返回 0。
func (uc *WalletUseCase) CreditAffiliate(ctx context.Context, accountID string, creditMinorUnits int64, referenceID string) (int64, error) {
	units := sms.ConvertAffiliateCredit(creditMinorUnits, uc.conf.AffiliateUnitPriceMinorUnits)
	if units == 0 {
		return 0, nil
	}

	entryID := fmt.Sprintf("affiliate_%s", referenceID)
	if err := uc.repo.CreditUnits(ctx, accountID, units, "affiliate", entryID); err != nil {
		return 0, err
	}
	if uc.metrics != nil {
		uc.metrics.WalletCreditTotal.WithLabelValues("affiliate").Inc()
		uc.metrics.WalletCreditUnits.WithLabelValues("affiliate").Add(float64(units))
	}
	uc.log.Infof("Affiliate credit converted: account=%s, credit=%d, units=%d", accountID, creditMinorUnits, units)
	return units, nil
}
