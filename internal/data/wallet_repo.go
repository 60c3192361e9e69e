package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/constants"
	"sms-service/internal/data/model"
	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// walletRepo 钱包数据访问
type walletRepo struct {
	data *Data
	log  *log.Helper
}

// NewWalletRepo 创建钱包 repo
func NewWalletRepo(data *Data, logger log.Logger) biz.WalletRepo {
	return &walletRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetWallet 获取钱包余额，优先读缓存
func (r *walletRepo) GetWallet(ctx context.Context, accountID string) (*biz.Wallet, error) {
	// 先尝试从 Redis 获取
	walletKey := walletCacheKey(accountID)
	balanceStr, err := r.data.rdb.Get(ctx, walletKey).Result()
	if err == nil {
		var balance int64
		if _, err := fmt.Sscanf(balanceStr, "%d", &balance); err == nil {
			return &biz.Wallet{
				AccountID:    accountID,
				BalanceUnits: balance,
			}, nil
		}
	}

	// 缓存未命中，从数据库查询
	var m model.WalletBalance
	if err := r.data.db.WithContext(ctx).Where("account_id = ?", accountID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := &biz.Wallet{
		AccountID:    m.AccountID,
		BalanceUnits: m.BalanceUnits,
		UpdatedAt:    m.UpdatedAt,
	}

	// 回填缓存（独立短超时 context，不阻塞主流程）
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.data.rdb.Set(cacheCtx, walletKey, m.BalanceUnits, cacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update wallet cache in GetWallet: %v", err)
	}

	return result, nil
}

// CreditUnits 无条件为钱包增加单元
// entryID 作为幂等键：同一 entryID 的入账流水被唯一索引挡下，重复调用视为成功。
func (r *walletRepo) CreditUnits(ctx context.Context, accountID string, units int64, source, entryID string) error {
	var newBalance int64
	alreadyProcessed := false

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := model.LedgerEntry{
			LedgerEntryID: uuid.New().String(),
			EntryKey:      entryID,
			Source:        source,
			AccountID:     accountID,
			PeriodKey:     time.Now().Format(constants.TimeFormatPeriod),
			Units:         units,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			alreadyProcessed = true
			return nil
		}

		var wallet model.WalletBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", accountID).
			First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = model.WalletBalance{
				WalletBalanceID: uuid.New().String(),
				AccountID:       accountID,
				BalanceUnits:    units,
			}
			if err := tx.Create(&wallet).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeWalletCreateFailed)
			}
			newBalance = units
			return nil
		} else if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, pkgErrors.ErrCodeDatabaseError)
		}

		if err := tx.Model(&wallet).Update("balance_units", gorm.Expr("balance_units + ?", units)).Error; err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeWalletUpdateFailed)
		}
		newBalance = wallet.BalanceUnits + units
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyProcessed {
		r.log.Infof("Wallet credit already processed: entry_id=%s", entryID)
		return nil
	}

	// 事务提交成功后更新缓存
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.data.rdb.Set(cacheCtx, walletCacheKey(accountID), newBalance, cacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update wallet cache in CreditUnits: %v", err)
	}
	return nil
}
