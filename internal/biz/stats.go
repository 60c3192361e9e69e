package biz

import (
	"context"
	"time"

	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// StatsQuery 统计查询条件
type StatsQuery struct {
	AccountID string
	Begin     time.Time
	End       time.Time
	Type      string // 为空时不过滤
}

// QuickSummary 单账户的快速汇总（SQL 聚合，不拉明细）
type QuickSummary struct {
	TotalMessages int64
	SentMessages  int64 // sent + delivered
	FailedCount   int64
	CostUnits     int64 // 仅统计 sent/delivered
	Period        string
}

// StatsRepo 统计数据层接口（定义在 biz 层）
type StatsRepo interface {
	// ListAttemptsForStats 按条件拉取用于聚合的发送记录
	ListAttemptsForStats(ctx context.Context, query *StatsQuery) ([]*SendAttempt, error)
	// GetStatsToday 今日快速汇总
	GetStatsToday(ctx context.Context, accountID string) (*QuickSummary, error)
	// GetStatsMonth 本月快速汇总
	GetStatsMonth(ctx context.Context, accountID string) (*QuickSummary, error)
}

// StatsUseCase 统计业务逻辑
type StatsUseCase struct {
	repo StatsRepo
	log  *log.Helper
}

// NewStatsUseCase 创建统计 UseCase
func NewStatsUseCase(repo StatsRepo, logger log.Logger) *StatsUseCase {
	return &StatsUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// GetUsageStats 获取账户的发送统计
func (uc *StatsUseCase) GetUsageStats(ctx context.Context, query *StatsQuery) (*UsageStats, error) {
	attempts, err := uc.repo.ListAttemptsForStats(ctx, query)
	if err != nil {
		uc.log.Errorf("ListAttemptsForStats failed: account=%s, err=%v", query.AccountID, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeGetStatsFailed)
	}
	return AggregateAttempts(attempts), nil
}

// ListForExport 拉取用于导出的发送记录明细（按创建时间升序）
func (uc *StatsUseCase) ListForExport(ctx context.Context, query *StatsQuery) ([]*SendAttempt, error) {
	attempts, err := uc.repo.ListAttemptsForStats(ctx, query)
	if err != nil {
		uc.log.Errorf("ListForExport failed: account=%s, err=%v", query.AccountID, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeExportFailed)
	}
	return attempts, nil
}

// GetStatsToday 获取账户今日快速汇总
func (uc *StatsUseCase) GetStatsToday(ctx context.Context, accountID string) (*QuickSummary, error) {
	summary, err := uc.repo.GetStatsToday(ctx, accountID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeGetStatsFailed)
	}
	return summary, nil
}

// GetStatsMonth 获取账户本月快速汇总
func (uc *StatsUseCase) GetStatsMonth(ctx context.Context, accountID string) (*QuickSummary, error) {
	summary, err := uc.repo.GetStatsMonth(ctx, accountID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodeGetStatsFailed)
	}
	return summary, nil
}
