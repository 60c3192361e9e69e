package biz

import (
	"context"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// UsagePeriod 账期配额领域对象（每账户每账期一行）
type UsagePeriod struct {
	AccountID string
	PeriodKey string // 2025-08
	QuotaUsed int64
}

// UsagePeriodRepo 账期配额数据层接口（定义在 biz 层）
type UsagePeriodRepo interface {
	GetUsagePeriod(ctx context.Context, accountID, periodKey string) (*UsagePeriod, error)
	CreateUsagePeriod(ctx context.Context, period *UsagePeriod) error
	// ListAccountIDs 返回所有已知账户（用于账期重置）
	ListAccountIDs(ctx context.Context) ([]string, error)
}

// UsagePeriodUseCase 账期配额业务逻辑
type UsagePeriodUseCase struct {
	repo UsagePeriodRepo
	conf *SmsConfig
	log  *log.Helper
}

// NewUsagePeriodUseCase 创建账期配额 UseCase
func NewUsagePeriodUseCase(repo UsagePeriodRepo, conf *SmsConfig, logger log.Logger) *UsagePeriodUseCase {
	return &UsagePeriodUseCase{
		repo: repo,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// GetOrCreate 获取账期记录，不存在则以 QuotaUsed=0 惰性创建
func (uc *UsagePeriodUseCase) GetOrCreate(ctx context.Context, accountID, periodKey string) (*UsagePeriod, error) {
	period, err := uc.repo.GetUsagePeriod(ctx, accountID, periodKey)
	if err != nil {
		return nil, err
	}
	if period != nil {
		return period, nil
	}

	period = &UsagePeriod{
		AccountID: accountID,
		PeriodKey: periodKey,
		QuotaUsed: 0,
	}
	if err := uc.repo.CreateUsagePeriod(ctx, period); err != nil {
		// 创建失败可能是并发导致的重复创建，重新获取一次
		period, err = uc.repo.GetUsagePeriod(ctx, accountID, periodKey)
		if err != nil {
			return nil, err
		}
		if period == nil {
			uc.log.Warnf("Failed to create/get usage period for account=%s, period=%s", accountID, periodKey)
			return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeUsagePeriodCreateFailed)
		}
	}
	return period, nil
}

// ResetPeriods 账期重置（每月1日由外部调度器触发）
// 为所有已知账户创建下个账期的配额记录（QuotaUsed=0）。
// 只重置配额，绝不触碰钱包余额：配额按月清零、钱包跨账期持有是核心业务不变式。
func (uc *UsagePeriodUseCase) ResetPeriods(ctx context.Context) (int, []string, error) {
	nextPeriod := time.Now().AddDate(0, 1, 0).Format(constants.TimeFormatPeriod)

	accountIDs, err := uc.repo.ListAccountIDs(ctx)
	if err != nil {
		return 0, nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeGetAllAccountIDsFailed)
	}

	if len(accountIDs) == 0 {
		uc.log.Info("No accounts found, skip reset")
		return 0, []string{}, nil
	}

	successCount := 0
	successAccountIDs := []string{}

	for _, accountID := range accountIDs {
		existing, err := uc.repo.GetUsagePeriod(ctx, accountID, nextPeriod)
		if err != nil {
			uc.log.Warnf("GetUsagePeriod failed for account=%s, period=%s: %v", accountID, nextPeriod, err)
			continue
		}
		if existing != nil {
			continue
		}

		period := &UsagePeriod{
			AccountID: accountID,
			PeriodKey: nextPeriod,
			QuotaUsed: 0,
		}
		if err := uc.repo.CreateUsagePeriod(ctx, period); err != nil {
			uc.log.Warnf("CreateUsagePeriod failed for account=%s, period=%s: %v", accountID, nextPeriod, err)
			continue
		}

		successCount++
		successAccountIDs = append(successAccountIDs, accountID)
	}

	uc.log.Infof("Usage period reset completed: nextPeriod=%s, totalAccounts=%d, successAccounts=%d",
		nextPeriod, len(accountIDs), successCount)

	return successCount, successAccountIDs, nil
}
