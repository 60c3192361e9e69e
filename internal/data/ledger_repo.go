package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/constants"
	"sms-service/internal/data/model"
	smsErrors "sms-service/internal/errors"
	"sms-service/internal/metrics"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reserveScript 与 biz.SplitReservation 保持同一套拆分算法
// 返回 {code, fromQuota, fromWallet, overage}
// code: 1 成功；-1 配额缓存缺失；-2 钱包缓存缺失
const reserveScript = `
local quotaKey = KEYS[1]
local walletKey = KEYS[2]
local requested = tonumber(ARGV[1])
local unitSize = tonumber(ARGV[2])
local overageEnabled = tonumber(ARGV[3])

local quota = redis.call('GET', quotaKey)
if not quota then
    return {-1, 0, 0, 0}
end
quota = tonumber(quota)
if quota < 0 then quota = 0 end

local wallet = redis.call('GET', walletKey)
if not wallet then
    return {-2, 0, 0, 0}
end
wallet = tonumber(wallet)
if wallet < 0 then wallet = 0 end

local fromQuota = requested
if quota < fromQuota then fromQuota = quota end
local remaining = requested - fromQuota

local fromWallet = remaining
if wallet < fromWallet then fromWallet = wallet end
remaining = remaining - fromWallet

local overage = 0
if remaining > 0 then
    if overageEnabled == 1 then
        overage = remaining
    else
        local granted = fromQuota + fromWallet
        granted = granted - (granted % unitSize)
        fromQuota = granted
        if quota < fromQuota then fromQuota = quota end
        fromWallet = granted - fromQuota
    end
end

if fromQuota > 0 then redis.call('DECRBY', quotaKey, fromQuota) end
if fromWallet > 0 then redis.call('DECRBY', walletKey, fromWallet) end
return {1, fromQuota, fromWallet, overage}
`

const cacheTTL = 5 * time.Minute

type ledgerRepo struct {
	data    *Data
	sync    *redsync.Redsync
	log     *log.Helper
	metrics *metrics.SmsMetrics
}

// NewLedgerRepo 创建账本 repo
func NewLedgerRepo(data *Data, sync *redsync.Redsync, logger log.Logger) biz.LedgerRepo {
	return &ledgerRepo{
		data:    data,
		sync:    sync,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

func quotaCacheKey(accountID, periodKey string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisKeyQuota, accountID, periodKey)
}

func walletCacheKey(accountID string) string {
	return fmt.Sprintf("%s%s", constants.RedisKeyWallet, accountID)
}

// Reserve 原子预留
// 优化版：Redis Lua 扣减 + RocketMQ 异步落库
// 降级版：MQ 未启用或快速路径失败时走 DB 事务
func (r *ledgerRepo) Reserve(ctx context.Context, accountID, periodKey, reservationID string, requestedUnits, unitSize int64, plan *biz.Plan) (*biz.ReservationSplit, error) {
	if r.data.mq == nil {
		return r.reserveDB(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
	}

	quotaKey := quotaCacheKey(accountID, periodKey)
	walletKey := walletCacheKey(accountID)
	overageFlag := 0
	if plan.OverageEnabled {
		overageFlag = 1
	}

	// 缓存缺失时加载一次后重试
	for i := 0; i < 2; i++ {
		res, err := r.data.rdb.Eval(ctx, reserveScript, []string{quotaKey, walletKey}, requestedUnits, unitSize, overageFlag).Result()
		if err != nil {
			r.log.Errorf("Reserve lua script failed: %v", err)
			return r.reserveDB(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
		}

		vals, ok := res.([]interface{})
		if !ok || len(vals) != 4 {
			r.log.Errorf("Reserve lua script returned invalid result: %v", res)
			return r.reserveDB(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
		}

		code := vals[0].(int64)
		if code == 1 {
			split := &biz.ReservationSplit{
				RequestedUnits: requestedUnits,
				FromQuota:      vals[1].(int64),
				FromWallet:     vals[2].(int64),
				OverageUnits:   vals[3].(int64),
			}
			split.GrantedUnits = split.FromQuota + split.FromWallet + split.OverageUnits
			if split.OverageUnits > 0 {
				split.OverageChargeMinorUnits = split.OverageUnits * plan.OverageUnitPriceMinorUnits
			}
			if split.GrantedUnits == 0 {
				return split, nil
			}

			event := &biz.LedgerEvent{
				Kind:           constants.LedgerEventKindReserve,
				ReservationID:  reservationID,
				AccountID:      accountID,
				PeriodKey:      periodKey,
				RequestedUnits: requestedUnits,
				FromQuota:      split.FromQuota,
				FromWallet:     split.FromWallet,
				OverageUnits:   split.OverageUnits,
				ReserveTime:    time.Now(),
			}
			msgBytes, _ := json.Marshal(event)
			msg := primitive.NewMessage(constants.TopicLedgerEvents, msgBytes).
				WithShardingKey(accountID)

			if _, err := r.data.mq.SendSync(ctx, msg); err != nil {
				r.log.Errorf("Send ledger event to RocketMQ failed: %v", err)
				// 降级回 DB 事务，事务提交后会重写缓存，抹平快速路径多扣的部分
				return r.reserveDB(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
			}
			return split, nil
		}

		// 缓存缺失，加载数据后重试
		if code == -1 || code == -2 {
			if i == 0 {
				r.loadCache(ctx, accountID, periodKey, plan)
				continue
			}
		}
		break
	}

	return r.reserveDB(ctx, accountID, periodKey, reservationID, requestedUnits, unitSize, plan)
}

// reserveDB DB 事务预留（降级路径）
// 分布式锁按账户粒度，串行化同一账户的并发预留防止超扣。
func (r *ledgerRepo) reserveDB(ctx context.Context, accountID, periodKey, reservationID string, requestedUnits, unitSize int64, plan *biz.Plan) (*biz.ReservationSplit, error) {
	lockKey := fmt.Sprintf("%s%s", constants.RedisKeyReserveLock, accountID)
	if r.sync != nil {
		lockStartTime := time.Now()
		mutex := r.sync.NewMutex(lockKey, redsync.WithExpiry(5*time.Second))
		if err := mutex.Lock(); err != nil {
			r.log.Errorf("Failed to acquire reserve lock: account=%s, error=%v", accountID, err)
			if r.metrics != nil {
				r.metrics.LockAcquireTotal.WithLabelValues(constants.OrderStatusFailed).Inc()
				r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
			}
			return nil, pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeReserveLockFailed)
		}
		if r.metrics != nil {
			r.metrics.LockAcquireTotal.WithLabelValues(constants.OrderStatusSuccess).Inc()
			r.metrics.LockAcquireDuration.Observe(time.Since(lockStartTime).Seconds())
		}
		defer func() {
			if ok, err := mutex.Unlock(); !ok || err != nil {
				r.log.Warnf("Failed to unlock reserve lock: account=%s, error=%v", accountID, err)
			}
		}()
	}

	var split biz.ReservationSplit
	var quotaRemaining, newBalance int64

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定账期记录（不存在则创建）
		var period model.UsagePeriod
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ? AND period_key = ?", accountID, periodKey).
			First(&period).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			period = model.UsagePeriod{
				UsagePeriodID: uuid.New().String(),
				AccountID:     accountID,
				PeriodKey:     periodKey,
				QuotaUsed:     0,
			}
			if err := tx.Create(&period).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeUsagePeriodCreateFailed)
			}
		} else if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, pkgErrors.ErrCodeDatabaseError)
		}

		// 2. 锁定钱包记录（不存在则创建，余额 0）
		var wallet model.WalletBalance
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("account_id = ?", accountID).
			First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = model.WalletBalance{
				WalletBalanceID: uuid.New().String(),
				AccountID:       accountID,
				BalanceUnits:    0,
			}
			if err := tx.Create(&wallet).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeWalletCreateFailed)
			}
		} else if err != nil {
			return pkgErrors.WrapErrorWithLang(ctx, err, pkgErrors.ErrCodeDatabaseError)
		}

		// 3. 计算拆分并应用
		quotaAvailable := plan.MonthlyQuota - period.QuotaUsed
		split = biz.SplitReservation(requestedUnits, quotaAvailable, wallet.BalanceUnits, unitSize, plan)
		if split.GrantedUnits == 0 {
			quotaRemaining = quotaAvailable
			newBalance = wallet.BalanceUnits
			return nil
		}

		if split.FromQuota > 0 {
			if err := tx.Model(&period).Update("quota_used", gorm.Expr("quota_used + ?", split.FromQuota)).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeUsagePeriodUpdateFailed)
			}
		}
		if split.FromWallet > 0 {
			if err := tx.Model(&wallet).Update("balance_units", gorm.Expr("balance_units - ?", split.FromWallet)).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeWalletUpdateFailed)
			}
		}

		// 4. 写入流水（每个来源一条，EntryKey 均为预留ID）
		if err := createReservationEntries(tx, accountID, periodKey, reservationID, &split); err != nil {
			return err
		}

		quotaRemaining = quotaAvailable - split.FromQuota
		newBalance = wallet.BalanceUnits - split.FromWallet
		return nil
	})

	// 事务提交成功后重写缓存，供快速路径使用
	if err == nil {
		r.setCaches(accountID, periodKey, quotaRemaining, newBalance)
	}

	if err != nil {
		return nil, err
	}
	return &split, nil
}

// createReservationEntries 为一次预留的每个资金来源写一条流水
func createReservationEntries(tx *gorm.DB, accountID, periodKey, reservationID string, split *biz.ReservationSplit) error {
	type sourceUnits struct {
		source string
		units  int64
	}
	for _, su := range []sourceUnits{
		{constants.LedgerSourceQuota, split.FromQuota},
		{constants.LedgerSourceWallet, split.FromWallet},
		{constants.LedgerSourceOverage, split.OverageUnits},
	} {
		if su.units <= 0 {
			continue
		}
		entry := model.LedgerEntry{
			LedgerEntryID: uuid.New().String(),
			EntryKey:      reservationID,
			Source:        su.source,
			AccountID:     accountID,
			PeriodKey:     periodKey,
			Units:         su.units,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// restoreScript 把回滚的单元加回缓存计数器
// 只在键存在时累加，缺失的键留给 loadCache 从 DB 重建，避免把增量写成绝对值
const restoreScript = `
if redis.call('EXISTS', KEYS[1]) == 1 then redis.call('INCRBY', KEYS[1], ARGV[1]) end
if redis.call('EXISTS', KEYS[2]) == 1 then redis.call('INCRBY', KEYS[2], ARGV[2]) end
return 1
`

// Rollback 归还预留单元
// 快速路径的预留事件经 MQ 异步落库，对应的回滚必须走同一个 topic
// （同账户 ShardingKey 保序），否则回滚落库可能先于预留落库，
// GREATEST 子句空转后预留事件再把 quota_used 永久多记。
// MQ 不可用时降级到 DB 事务路径。
// 幂等：reversalID 的 reversal 流水有唯一索引，重复回滚在插入流水时被挡下。
func (r *ledgerRepo) Rollback(ctx context.Context, accountID, periodKey, reversalID string, fromQuota, fromWallet int64) error {
	if r.data.mq != nil {
		event := &biz.LedgerEvent{
			Kind:        constants.LedgerEventKindReversal,
			ReversalID:  reversalID,
			AccountID:   accountID,
			PeriodKey:   periodKey,
			FromQuota:   fromQuota,
			FromWallet:  fromWallet,
			ReserveTime: time.Now(),
		}
		msgBytes, _ := json.Marshal(event)
		msg := primitive.NewMessage(constants.TopicLedgerEvents, msgBytes).
			WithShardingKey(accountID)

		_, err := r.data.mq.SendSync(ctx, msg)
		if err == nil {
			// 快速路径在 Lua 里扣过缓存，这里按增量还回去
			cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
			defer cacheCancel()
			if err := r.data.rdb.Eval(cacheCtx, restoreScript,
				[]string{quotaCacheKey(accountID, periodKey), walletCacheKey(accountID)},
				fromQuota, fromWallet).Err(); err != nil {
				r.log.Warnf("restore caches after rollback failed: %v", err)
				r.invalidateCaches(accountID, periodKey)
			}
			return nil
		}
		r.log.Errorf("Send reversal event to RocketMQ failed: %v", err)
	}
	return r.rollbackDB(ctx, accountID, periodKey, reversalID, fromQuota, fromWallet)
}

// rollbackDB 同步回滚（MQ 未启用或发送失败时的降级路径）
func (r *ledgerRepo) rollbackDB(ctx context.Context, accountID, periodKey, reversalID string, fromQuota, fromWallet int64) error {
	alreadyProcessed := false

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := model.LedgerEntry{
			LedgerEntryID: uuid.New().String(),
			EntryKey:      reversalID,
			Source:        constants.LedgerSourceReversal,
			AccountID:     accountID,
			PeriodKey:     periodKey,
			Units:         fromQuota + fromWallet,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			alreadyProcessed = true
			return nil
		}

		if fromQuota > 0 {
			if err := tx.Model(&model.UsagePeriod{}).
				Where("account_id = ? AND period_key = ?", accountID, periodKey).
				Update("quota_used", gorm.Expr("GREATEST(quota_used - ?, 0)", fromQuota)).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeUsagePeriodUpdateFailed)
			}
		}
		if fromWallet > 0 {
			if err := tx.Model(&model.WalletBalance{}).
				Where("account_id = ?", accountID).
				Update("balance_units", gorm.Expr("balance_units + ?", fromWallet)).Error; err != nil {
				return pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeWalletUpdateFailed)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyProcessed {
		r.log.Infof("Rollback already processed: reversal_id=%s", reversalID)
		return nil
	}

	// 回滚后缓存失效，下次快速路径从 DB 重新加载
	r.invalidateCaches(accountID, periodKey)
	return nil
}

// QuotaState 只读快照
func (r *ledgerRepo) QuotaState(ctx context.Context, accountID, periodKey string, plan *biz.Plan) (*biz.QuotaSnapshot, error) {
	var period model.UsagePeriod
	quotaUsed := int64(0)
	err := r.data.db.WithContext(ctx).
		Where("account_id = ? AND period_key = ?", accountID, periodKey).
		First(&period).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, pkgErrors.ErrCodeDatabaseError)
	}
	if err == nil {
		quotaUsed = period.QuotaUsed
	}

	var wallet model.WalletBalance
	balance := int64(0)
	err = r.data.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&wallet).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, pkgErrors.ErrCodeDatabaseError)
	}
	if err == nil {
		balance = wallet.BalanceUnits
	}

	remaining := plan.MonthlyQuota - quotaUsed
	if remaining < 0 {
		remaining = 0
	}

	return &biz.QuotaSnapshot{
		FreeQuota:      plan.MonthlyQuota,
		FreeUsed:       quotaUsed,
		FreeRemaining:  remaining,
		PaidBalance:    balance,
		TotalAvailable: remaining + balance,
	}, nil
}

// BatchApplyLedgerEvents 批量落库快速路径的账本事件（Consumer 调用）
// 流水先写、余额后动：每个来源的增减只在对应流水被本次插入时执行，
// MQ 重投不会重复记账。
func (r *ledgerRepo) BatchApplyLedgerEvents(ctx context.Context, events []*biz.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	return r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, event := range events {
			if event.Kind == constants.LedgerEventKindReversal {
				if err := applyReversalEvent(tx, event); err != nil {
					return err
				}
				continue
			}
			if err := applyReserveEvent(tx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyReserveEvent 落库一条预留事件
func applyReserveEvent(tx *gorm.DB, event *biz.LedgerEvent) error {
	type sourceUnits struct {
		source string
		units  int64
	}
	for _, su := range []sourceUnits{
		{constants.LedgerSourceQuota, event.FromQuota},
		{constants.LedgerSourceWallet, event.FromWallet},
		{constants.LedgerSourceOverage, event.OverageUnits},
	} {
		if su.units <= 0 {
			continue
		}
		entry := model.LedgerEntry{
			LedgerEntryID: uuid.New().String(),
			EntryKey:      event.ReservationID,
			Source:        su.source,
			AccountID:     event.AccountID,
			PeriodKey:     event.PeriodKey,
			Units:         su.units,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		switch su.source {
		case constants.LedgerSourceQuota:
			update := tx.Model(&model.UsagePeriod{}).
				Where("account_id = ? AND period_key = ?", event.AccountID, event.PeriodKey).
				Update("quota_used", gorm.Expr("quota_used + ?", su.units))
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				period := model.UsagePeriod{
					UsagePeriodID: uuid.New().String(),
					AccountID:     event.AccountID,
					PeriodKey:     event.PeriodKey,
					QuotaUsed:     su.units,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&period).Error; err != nil {
					return err
				}
			}
		case constants.LedgerSourceWallet:
			if err := tx.Model(&model.WalletBalance{}).
				Where("account_id = ?", event.AccountID).
				Update("balance_units", gorm.Expr("balance_units - ?", su.units)).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// applyReversalEvent 落库一条回滚事件，归还配额与钱包
// 同账户保序消费，此时对应的预留事件必定已经落库。
func applyReversalEvent(tx *gorm.DB, event *biz.LedgerEvent) error {
	entry := model.LedgerEntry{
		LedgerEntryID: uuid.New().String(),
		EntryKey:      event.ReversalID,
		Source:        constants.LedgerSourceReversal,
		AccountID:     event.AccountID,
		PeriodKey:     event.PeriodKey,
		Units:         event.FromQuota + event.FromWallet,
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 已由降级路径或此前的投递处理过
		return nil
	}

	if event.FromQuota > 0 {
		if err := tx.Model(&model.UsagePeriod{}).
			Where("account_id = ? AND period_key = ?", event.AccountID, event.PeriodKey).
			Update("quota_used", gorm.Expr("GREATEST(quota_used - ?, 0)", event.FromQuota)).Error; err != nil {
			return err
		}
	}
	if event.FromWallet > 0 {
		if err := tx.Model(&model.WalletBalance{}).
			Where("account_id = ?", event.AccountID).
			Update("balance_units", gorm.Expr("balance_units + ?", event.FromWallet)).Error; err != nil {
			return err
		}
	}
	return nil
}

// loadCache 从 DB 加载配额与钱包到缓存（同步）
func (r *ledgerRepo) loadCache(ctx context.Context, accountID, periodKey string, plan *biz.Plan) {
	snapshot, err := r.QuotaState(ctx, accountID, periodKey, plan)
	if err != nil {
		r.log.Warnf("loadCache failed: account=%s, err=%v", accountID, err)
		return
	}
	r.setCaches(accountID, periodKey, snapshot.FreeRemaining, snapshot.PaidBalance)
}

// setCaches 写入配额与钱包缓存（独立短超时 context，不阻塞主流程）
func (r *ledgerRepo) setCaches(accountID, periodKey string, quotaRemaining, balance int64) {
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()

	if err := r.data.rdb.Set(cacheCtx, quotaCacheKey(accountID, periodKey), quotaRemaining, cacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update quota cache: %v", err)
	}
	if err := r.data.rdb.Set(cacheCtx, walletCacheKey(accountID), balance, cacheTTL).Err(); err != nil {
		r.log.Warnf("failed to update wallet cache: %v", err)
	}
}

// invalidateCaches 删除配额与钱包缓存
func (r *ledgerRepo) invalidateCaches(accountID, periodKey string) {
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()

	if err := r.data.rdb.Del(cacheCtx, quotaCacheKey(accountID, periodKey), walletCacheKey(accountID)).Err(); err != nil {
		r.log.Warnf("failed to invalidate ledger caches: %v", err)
	}
}
