package data

import (
	"context"
	"fmt"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
)

// statsRepo 统计数据访问
type statsRepo struct {
	data *Data
	log  *log.Helper
}

// NewStatsRepo 创建统计 repo
func NewStatsRepo(data *Data, logger log.Logger) biz.StatsRepo {
	return &statsRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListAttemptsForStats 按条件拉取用于聚合的发送记录
func (r *statsRepo) ListAttemptsForStats(ctx context.Context, query *biz.StatsQuery) ([]*biz.SendAttempt, error) {
	db := r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).
		Where("account_id = ?", query.AccountID)
	if !query.Begin.IsZero() {
		db = db.Where("created_at >= ?", query.Begin)
	}
	if !query.End.IsZero() {
		db = db.Where("created_at < ?", query.End)
	}
	if query.Type != "" {
		db = db.Where("type = ?", query.Type)
	}

	var models []model.SendAttempt
	if err := db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	attempts := make([]*biz.SendAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, toAttemptBiz(&models[i]))
	}
	return attempts, nil
}

// GetStatsToday 今日快速汇总
func (r *statsRepo) GetStatsToday(ctx context.Context, accountID string) (*biz.QuickSummary, error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return r.summarize(ctx, accountID, todayStart, todayStart.Add(24*time.Hour), "today")
}

// GetStatsMonth 本月快速汇总
func (r *statsRepo) GetStatsMonth(ctx context.Context, accountID string) (*biz.QuickSummary, error) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return r.summarize(ctx, accountID, monthStart, monthStart.AddDate(0, 1, 0), "month")
}

// summarize SQL 聚合，成功口径与内存聚合保持一致（sent/delivered 计成功与成本）
func (r *statsRepo) summarize(ctx context.Context, accountID string, begin, end time.Time, period string) (*biz.QuickSummary, error) {
	var result struct {
		TotalMessages int64
		SentMessages  int64
		FailedCount   int64
		CostUnits     int64
	}

	if err := r.data.db.WithContext(ctx).Model(&model.SendAttempt{}).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, begin, end).
		Select(
			"COUNT(*) as total_messages",
			"SUM(CASE WHEN status IN ('sent','delivered') THEN 1 ELSE 0 END) as sent_messages",
			"SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count",
			"SUM(CASE WHEN status IN ('sent','delivered') THEN cost_units ELSE 0 END) as cost_units",
		).Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("get stats %s failed: %w", period, err)
	}

	return &biz.QuickSummary{
		TotalMessages: result.TotalMessages,
		SentMessages:  result.SentMessages,
		FailedCount:   result.FailedCount,
		CostUnits:     result.CostUnits,
		Period:        period,
	}, nil
}
