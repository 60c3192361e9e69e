package biz

import (
	"context"
	"time"

	"sms-service/internal/constants"
	"sms-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// RateLimitDecision 每日限流检查结果
type RateLimitDecision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time // 下一个本地零点
}

// RateLimitRepo 每日发送量计数数据层接口（定义在 biz 层）
type RateLimitRepo interface {
	// UnitsSentToday 读取账户当日已发送的计费单元数
	UnitsSentToday(ctx context.Context, accountID, day string) (int64, error)
	// AddUnitsSentToday 累加当日发送量；计数器在 expireAt 时刻过期
	AddUnitsSentToday(ctx context.Context, accountID, day string, units int64, expireAt time.Time) error
}

// RateLimitUseCase 每日限流业务逻辑
// 独立于配额/钱包的防滥用上限，在触达账本之前检查。
type RateLimitUseCase struct {
	repo    RateLimitRepo
	conf    *SmsConfig
	log     *log.Helper
	metrics *metrics.SmsMetrics
}

// NewRateLimitUseCase 创建限流 UseCase
func NewRateLimitUseCase(repo RateLimitRepo, conf *SmsConfig, logger log.Logger) *RateLimitUseCase {
	return &RateLimitUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// nextMidnight 下一个本地零点
func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// Check 检查账户当日还能否发送 units 个计费单元
// remaining = max(0, dailyLimit - sentToday)；即使配额/钱包足够，超出日上限也拒绝。
func (uc *RateLimitUseCase) Check(ctx context.Context, accountID string, units int64) (*RateLimitDecision, error) {
	now := time.Now()
	day := now.Format(constants.TimeFormatDay)

	sentToday, err := uc.repo.UnitsSentToday(ctx, accountID, day)
	if err != nil {
		return nil, err
	}

	remaining := uc.conf.DailyLimit - sentToday
	if remaining < 0 {
		remaining = 0
	}

	decision := &RateLimitDecision{
		Allowed:   units > 0 && remaining >= units,
		Remaining: remaining,
		ResetAt:   nextMidnight(now),
	}

	if uc.metrics != nil {
		result := constants.RateLimitResultAllowed
		if !decision.Allowed {
			result = constants.RateLimitResultDenied
		}
		uc.metrics.RateLimitTotal.WithLabelValues(result).Inc()
	}
	return decision, nil
}

// Record 记录已成功提交给运营商的单元数（只计已提交量，预留后被回滚的不算）
func (uc *RateLimitUseCase) Record(ctx context.Context, accountID string, units int64) error {
	if units <= 0 {
		return nil
	}
	now := time.Now()
	return uc.repo.AddUnitsSentToday(ctx, accountID, now.Format(constants.TimeFormatDay), units, nextMidnight(now))
}
