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

// unitPackOrderRepo 短信包订单数据访问
type unitPackOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewUnitPackOrderRepo 创建短信包订单 repo
func NewUnitPackOrderRepo(data *Data, logger log.Logger) biz.UnitPackOrderRepo {
	return &unitPackOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateUnitPackOrder 创建短信包订单记录
func (r *unitPackOrderRepo) CreateUnitPackOrder(ctx context.Context, orderID, accountID string, units int64) error {
	order := model.UnitPackOrder{
		OrderID:   orderID,
		AccountID: accountID,
		Units:     units,
		Status:    model.PackOrderStatusPending,
	}
	return r.data.db.WithContext(ctx).Create(&order).Error
}

func toPackOrderBiz(m *model.UnitPackOrder) *biz.UnitPackOrder {
	paymentID := ""
	if m.PaymentID != nil {
		paymentID = *m.PaymentID
	}
	return &biz.UnitPackOrder{
		OrderID:   m.OrderID,
		AccountID: m.AccountID,
		Units:     m.Units,
		PaymentID: paymentID,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// GetUnitPackOrderByID 通过订单ID查询
func (r *unitPackOrderRepo) GetUnitPackOrderByID(ctx context.Context, orderID string) (*biz.UnitPackOrder, error) {
	var m model.UnitPackOrder
	if err := r.data.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPackOrderBiz(&m), nil
}

// GetUnitPackOrderByPaymentID 通过外部支付流水号查询
func (r *unitPackOrderRepo) GetUnitPackOrderByPaymentID(ctx context.Context, paymentID string) (*biz.UnitPackOrder, error) {
	var m model.UnitPackOrder
	if err := r.data.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toPackOrderBiz(&m), nil
}

// CreditWithIdempotency 标记订单成功并入账钱包（单事务）
// 幂等：订单已是 success 状态时直接返回成功，不重复入账。
func (r *unitPackOrderRepo) CreditWithIdempotency(ctx context.Context, orderID, paymentID string, units int64) error {
	var accountID string
	var newBalance int64
	alreadyProcessed := false

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定订单记录
		var order model.UnitPackOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&order).Error; err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodePackOrderNotFound)
		}
		accountID = order.AccountID

		// 2. 检查订单状态（幂等性）
		if order.Status == model.PackOrderStatusSuccess {
			alreadyProcessed = true
			return nil
		}

		// 3. 更新订单状态和支付流水号
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"payment_id": paymentID,
			"status":     model.PackOrderStatusSuccess,
		}).Error; err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodePackOrderUpdateFailed)
		}

		// 4. 写入账流水并执行入账
		entry := model.LedgerEntry{
			LedgerEntryID: uuid.New().String(),
			EntryKey:      fmt.Sprintf("pack_credit_%s", orderID),
			Source:        constants.LedgerSourceWallet,
			AccountID:     order.AccountID,
			PeriodKey:     time.Now().Format(constants.TimeFormatPeriod),
			Units:         units,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return err
		}

		var wallet model.WalletBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", order.AccountID).
			First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = model.WalletBalance{
				WalletBalanceID: uuid.New().String(),
				AccountID:       order.AccountID,
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
		r.log.Infof("Pack credit already processed: order_id=%s", orderID)
		return nil
	}

	// 事务提交成功后更新缓存
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.data.rdb.Set(cacheCtx, walletCacheKey(accountID), newBalance, cacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update wallet cache in CreditWithIdempotency: %v", err)
	}

	r.log.Infof("Pack credit applied: order_id=%s, account=%s, units=%d", orderID, accountID, units)
	return nil
}
