package biz

import (
	"testing"
	"time"

	"sms-service/internal/constants"

	"github.com/stretchr/testify/assert"
)

func attempt(status, smsType string, cost int64, createdAt time.Time) *SendAttempt {
	return &SendAttempt{
		Status:    status,
		Type:      smsType,
		CostUnits: cost,
		Segments:  cost,
		CreatedAt: createdAt,
	}
}

func TestAggregateAttempts_Empty(t *testing.T) {
	stats := AggregateAttempts(nil)
	assert.Equal(t, int64(0), stats.TotalAttempts)
	assert.Equal(t, float64(0), stats.SuccessRate)
	assert.Empty(t, stats.CountByType)
	assert.Empty(t, stats.CountByDay)
}

func TestAggregateAttempts_SuccessRateAndCost(t *testing.T) {
	day := time.Date(2025, 8, 15, 10, 0, 0, 0, time.UTC)
	attempts := []*SendAttempt{
		attempt(constants.SendStatusSent, constants.SmsTypeInvitation, 2, day),
		attempt(constants.SendStatusDelivered, constants.SmsTypeInvitation, 1, day),
		attempt(constants.SendStatusFailed, constants.SmsTypeNotification, 3, day),
		attempt(constants.SendStatusPending, constants.SmsTypePromotion, 1, day),
	}

	stats := AggregateAttempts(attempts)
	assert.Equal(t, int64(4), stats.TotalAttempts)
	assert.Equal(t, int64(1), stats.SentCount)
	assert.Equal(t, int64(1), stats.DeliveredCount)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(1), stats.PendingCount)
	assert.Equal(t, float64(50), stats.SuccessRate)

	// 成本只统计 sent/delivered
	assert.Equal(t, int64(3), stats.TotalCostUnits)
	assert.Equal(t, int64(3), stats.CostUnitsByType[constants.SmsTypeInvitation])
	assert.Equal(t, int64(0), stats.CostUnitsByType[constants.SmsTypeNotification])
}

func TestAggregateAttempts_GroupByDay(t *testing.T) {
	day1 := time.Date(2025, 8, 15, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2025, 8, 16, 0, 1, 0, 0, time.UTC)
	attempts := []*SendAttempt{
		attempt(constants.SendStatusSent, constants.SmsTypeInvitation, 1, day1),
		attempt(constants.SendStatusSent, constants.SmsTypeInvitation, 1, day1),
		attempt(constants.SendStatusSent, constants.SmsTypeInvitation, 1, day2),
	}

	stats := AggregateAttempts(attempts)
	assert.Equal(t, int64(2), stats.CountByDay["2025-08-15"])
	assert.Equal(t, int64(1), stats.CountByDay["2025-08-16"])
	assert.Equal(t, int64(3), stats.CountByType[constants.SmsTypeInvitation])
}
