package biz

import (
	"context"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRateLimitRepo struct {
	counts map[string]int64
}

func (m *memRateLimitRepo) UnitsSentToday(_ context.Context, accountID, day string) (int64, error) {
	return m.counts[accountID+"|"+day], nil
}

func (m *memRateLimitRepo) AddUnitsSentToday(_ context.Context, accountID, day string, units int64, _ time.Time) error {
	m.counts[accountID+"|"+day] += units
	return nil
}

func newRateLimitUseCase(limit int64) (*RateLimitUseCase, *memRateLimitRepo) {
	repo := &memRateLimitRepo{counts: make(map[string]int64)}
	conf := testConfig()
	conf.DailyLimit = limit
	return NewRateLimitUseCase(repo, conf, log.DefaultLogger), repo
}

func TestRateLimit_RemainingMath(t *testing.T) {
	uc, repo := newRateLimitUseCase(500)
	day := time.Now().Format("2006-01-02")
	repo.counts["acc1|"+day] = 480

	decision, err := uc.Check(context.Background(), "acc1", 20)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(20), decision.Remaining)

	decision, err = uc.Check(context.Background(), "acc1", 21)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestRateLimit_OverLimitClampsToZero(t *testing.T) {
	uc, repo := newRateLimitUseCase(500)
	day := time.Now().Format("2006-01-02")
	repo.counts["acc1|"+day] = 600

	decision, err := uc.Check(context.Background(), "acc1", 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.Remaining)
}

func TestRateLimit_ZeroUnitsDenied(t *testing.T) {
	uc, _ := newRateLimitUseCase(500)
	decision, err := uc.Check(context.Background(), "acc1", 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestRateLimit_ResetAtNextLocalMidnight(t *testing.T) {
	uc, _ := newRateLimitUseCase(500)
	decision, err := uc.Check(context.Background(), "acc1", 1)
	require.NoError(t, err)

	now := time.Now()
	wantReset := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	assert.Equal(t, wantReset, decision.ResetAt)
	assert.True(t, decision.ResetAt.After(now))
}

func TestRateLimit_RecordOnlyPositive(t *testing.T) {
	uc, repo := newRateLimitUseCase(500)
	require.NoError(t, uc.Record(context.Background(), "acc1", 0))
	require.NoError(t, uc.Record(context.Background(), "acc1", 30))

	day := time.Now().Format("2006-01-02")
	assert.Equal(t, int64(30), repo.counts["acc1|"+day])
}
