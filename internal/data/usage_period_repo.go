package data

import (
	"context"
	"errors"

	"sms-service/internal/biz"
	"sms-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// usagePeriodRepo 账期配额数据访问
type usagePeriodRepo struct {
	data *Data
	log  *log.Helper
}

// NewUsagePeriodRepo 创建账期配额 repo
func NewUsagePeriodRepo(data *Data, logger log.Logger) biz.UsagePeriodRepo {
	return &usagePeriodRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetUsagePeriod 获取账期记录，不存在返回 nil
func (r *usagePeriodRepo) GetUsagePeriod(ctx context.Context, accountID, periodKey string) (*biz.UsagePeriod, error) {
	var m model.UsagePeriod
	if err := r.data.db.WithContext(ctx).
		Where("account_id = ? AND period_key = ?", accountID, periodKey).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &biz.UsagePeriod{
		AccountID: m.AccountID,
		PeriodKey: m.PeriodKey,
		QuotaUsed: m.QuotaUsed,
	}, nil
}

// CreateUsagePeriod 创建账期记录
func (r *usagePeriodRepo) CreateUsagePeriod(ctx context.Context, period *biz.UsagePeriod) error {
	m := model.UsagePeriod{
		UsagePeriodID: uuid.New().String(),
		AccountID:     period.AccountID,
		PeriodKey:     period.PeriodKey,
		QuotaUsed:     period.QuotaUsed,
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}

// ListAccountIDs 获取所有已知账户ID（用于账期重置）
// 从账期表和钱包表取并集，保证只有钱包没有账期记录的账户也被覆盖。
func (r *usagePeriodRepo) ListAccountIDs(ctx context.Context) ([]string, error) {
	accountIDMap := make(map[string]bool)

	var periodAccountIDs []string
	if err := r.data.db.WithContext(ctx).
		Model(&model.UsagePeriod{}).
		Distinct("account_id").
		Pluck("account_id", &periodAccountIDs).Error; err != nil {
		return nil, err
	}
	for _, accountID := range periodAccountIDs {
		accountIDMap[accountID] = true
	}

	var walletAccountIDs []string
	if err := r.data.db.WithContext(ctx).
		Model(&model.WalletBalance{}).
		Distinct("account_id").
		Pluck("account_id", &walletAccountIDs).Error; err != nil {
		return nil, err
	}
	for _, accountID := range walletAccountIDs {
		accountIDMap[accountID] = true
	}

	accountIDs := make([]string, 0, len(accountIDMap))
	for accountID := range accountIDMap {
		accountIDs = append(accountIDs, accountID)
	}
	return accountIDs, nil
}
