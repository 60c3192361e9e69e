package biz

import (
	"sms-service/internal/constants"
)

// UsageStats 发送统计汇总
type UsageStats struct {
	TotalAttempts    int64
	SentCount        int64
	DeliveredCount   int64
	FailedCount      int64
	PendingCount     int64
	SuccessRate      float64 // (sent + delivered) / total * 100
	TotalCostUnits   int64   // 仅统计终态成功（sent/delivered）的消息
	TotalSegments    int64
	CountByType      map[string]int64
	CostUnitsByType  map[string]int64
	CountByDay       map[string]int64 // key 为 YYYY-MM-DD
}

// AggregateAttempts 对发送记录做纯内存聚合
// 成功率分母为全部记录；成本只累计 sent/delivered 两种成功终态。
// 空输入返回全零统计（成功率为 0 而不是 NaN）。
func AggregateAttempts(attempts []*SendAttempt) *UsageStats {
	stats := &UsageStats{
		CountByType:     make(map[string]int64),
		CostUnitsByType: make(map[string]int64),
		CountByDay:      make(map[string]int64),
	}

	for _, attempt := range attempts {
		stats.TotalAttempts++
		stats.TotalSegments += attempt.Segments
		stats.CountByType[attempt.Type]++
		stats.CountByDay[attempt.CreatedAt.Format(constants.TimeFormatDay)]++

		switch attempt.Status {
		case constants.SendStatusSent:
			stats.SentCount++
		case constants.SendStatusDelivered:
			stats.DeliveredCount++
		case constants.SendStatusFailed:
			stats.FailedCount++
		default:
			stats.PendingCount++
		}

		if attempt.Status == constants.SendStatusSent || attempt.Status == constants.SendStatusDelivered {
			stats.TotalCostUnits += attempt.CostUnits
			stats.CostUnitsByType[attempt.Type] += attempt.CostUnits
		}
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.SentCount+stats.DeliveredCount) / float64(stats.TotalAttempts) * 100
	}
	return stats
}
