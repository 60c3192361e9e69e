package biz

import (
	"context"
	"testing"

	"sms-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLedgerRepo 内存账本，实现与数据层相同的幂等与扣减语义
type memLedgerRepo struct {
	quotaUsed map[string]int64 // accountID|periodKey -> 已用配额
	wallet    map[string]int64 // accountID -> 钱包余额
	reversals map[string]bool  // 已处理的回滚流水
	applied   map[string]bool  // 已落库的预留事件
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{
		quotaUsed: make(map[string]int64),
		wallet:    make(map[string]int64),
		reversals: make(map[string]bool),
		applied:   make(map[string]bool),
	}
}

func (m *memLedgerRepo) key(accountID, periodKey string) string {
	return accountID + "|" + periodKey
}

func (m *memLedgerRepo) Reserve(_ context.Context, accountID, periodKey, _ string, requestedUnits, unitSize int64, plan *Plan) (*ReservationSplit, error) {
	quotaAvailable := plan.MonthlyQuota - m.quotaUsed[m.key(accountID, periodKey)]
	split := SplitReservation(requestedUnits, quotaAvailable, m.wallet[accountID], unitSize, plan)
	m.quotaUsed[m.key(accountID, periodKey)] += split.FromQuota
	m.wallet[accountID] -= split.FromWallet
	return &split, nil
}

func (m *memLedgerRepo) Rollback(_ context.Context, accountID, periodKey, reversalID string, fromQuota, fromWallet int64) error {
	if m.reversals[reversalID] {
		return nil
	}
	m.reversals[reversalID] = true
	m.quotaUsed[m.key(accountID, periodKey)] -= fromQuota
	m.wallet[accountID] += fromWallet
	return nil
}

func (m *memLedgerRepo) BatchApplyLedgerEvents(_ context.Context, events []*LedgerEvent) error {
	for _, e := range events {
		if e.Kind == constants.LedgerEventKindReversal {
			if m.reversals[e.ReversalID] {
				continue
			}
			m.reversals[e.ReversalID] = true
			used := m.quotaUsed[m.key(e.AccountID, e.PeriodKey)] - e.FromQuota
			if used < 0 {
				used = 0
			}
			m.quotaUsed[m.key(e.AccountID, e.PeriodKey)] = used
			m.wallet[e.AccountID] += e.FromWallet
			continue
		}
		if m.applied[e.ReservationID] {
			continue
		}
		m.applied[e.ReservationID] = true
		m.quotaUsed[m.key(e.AccountID, e.PeriodKey)] += e.FromQuota
		m.wallet[e.AccountID] -= e.FromWallet
	}
	return nil
}

func (m *memLedgerRepo) QuotaState(_ context.Context, accountID, periodKey string, plan *Plan) (*QuotaSnapshot, error) {
	used := m.quotaUsed[m.key(accountID, periodKey)]
	remaining := plan.MonthlyQuota - used
	if remaining < 0 {
		remaining = 0
	}
	return &QuotaSnapshot{
		FreeQuota:      plan.MonthlyQuota,
		FreeUsed:       used,
		FreeRemaining:  remaining,
		PaidBalance:    m.wallet[accountID],
		TotalAvailable: remaining + m.wallet[accountID],
	}, nil
}

func testConfig() *SmsConfig {
	return &SmsConfig{
		Plans: map[string]*Plan{
			"starter": {ID: "starter", MonthlyQuota: 50, OpeningBonusUnits: 10},
		},
		AccountPlans:             map[string]string{},
		DefaultPlanID:            "starter",
		DailyLimit:               500,
		QuotaLowPercentThreshold: 20.0,
		WalletLowThreshold:       20,
	}
}

func TestLedgerUseCase_ReserveAndSnapshot(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.wallet["acc1"] = 30
	uc := NewLedgerUseCase(repo, testConfig(), log.DefaultLogger)

	reservation, err := uc.Reserve(context.Background(), "acc1", "res1", 60, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60), reservation.GrantedUnits)
	assert.Equal(t, int64(50), reservation.FromQuota)
	assert.Equal(t, int64(10), reservation.FromWallet)

	snapshot, err := uc.Snapshot(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.FreeRemaining)
	assert.Equal(t, int64(20), snapshot.PaidBalance)
	assert.Equal(t, int64(20), snapshot.TotalAvailable)
}

func TestLedgerUseCase_ReserveDenied(t *testing.T) {
	repo := newMemLedgerRepo()
	uc := NewLedgerUseCase(repo, testConfig(), log.DefaultLogger)

	_, err := uc.Reserve(context.Background(), "acc1", "res1", 60, 1)
	require.NoError(t, err) // 配额 50 可部分满足

	_, err = uc.Reserve(context.Background(), "acc1", "res2", 10, 1)
	assert.Error(t, err) // 配额用尽、钱包为空，整批拒绝
}

func TestLedgerUseCase_RollbackIdempotent(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.wallet["acc1"] = 100
	uc := NewLedgerUseCase(repo, testConfig(), log.DefaultLogger)

	reservation, err := uc.Reserve(context.Background(), "acc1", "res1", 60, 1)
	require.NoError(t, err)
	periodKey := reservation.PeriodKey

	// 同一 reversalID 回滚两次，只入账一次
	require.NoError(t, uc.Rollback(context.Background(), "acc1", periodKey, "rev1", 10, 5))
	require.NoError(t, uc.Rollback(context.Background(), "acc1", periodKey, "rev1", 10, 5))

	assert.Equal(t, int64(40), repo.quotaUsed[repo.key("acc1", periodKey)])
	assert.Equal(t, int64(95), repo.wallet["acc1"])
}

func TestLedgerUseCase_RollbackZeroUnitsNoop(t *testing.T) {
	repo := newMemLedgerRepo()
	uc := NewLedgerUseCase(repo, testConfig(), log.DefaultLogger)
	require.NoError(t, uc.Rollback(context.Background(), "acc1", "2025-08", "rev1", 0, 0))
	assert.False(t, repo.reversals["rev1"])
}

func TestLedgerEvents_ReversalAppliesAfterReserve(t *testing.T) {
	repo := newMemLedgerRepo()
	repo.wallet["acc1"] = 10

	// 新账户在事件落库前没有账期行；回滚事件与预留事件同队列保序，
	// 按序落库后净效果必须归零
	events := []*LedgerEvent{
		{
			Kind:          constants.LedgerEventKindReserve,
			ReservationID: "res1",
			AccountID:     "acc1",
			PeriodKey:     "2026-08",
			FromQuota:     5,
			FromWallet:    3,
		},
		{
			Kind:       constants.LedgerEventKindReversal,
			ReversalID: "att1",
			AccountID:  "acc1",
			PeriodKey:  "2026-08",
			FromQuota:  5,
			FromWallet: 3,
		},
	}
	require.NoError(t, repo.BatchApplyLedgerEvents(context.Background(), events))
	assert.Equal(t, int64(0), repo.quotaUsed[repo.key("acc1", "2026-08")])
	assert.Equal(t, int64(10), repo.wallet["acc1"])

	// MQ 重投不重复记账
	require.NoError(t, repo.BatchApplyLedgerEvents(context.Background(), events))
	assert.Equal(t, int64(0), repo.quotaUsed[repo.key("acc1", "2026-08")])
	assert.Equal(t, int64(10), repo.wallet["acc1"])
}

func TestLedgerUseCase_UnknownPlan(t *testing.T) {
	conf := testConfig()
	conf.DefaultPlanID = "nope"
	uc := NewLedgerUseCase(newMemLedgerRepo(), conf, log.DefaultLogger)
	_, err := uc.Reserve(context.Background(), "acc1", "res1", 10, 1)
	assert.Error(t, err)
}

// memUsagePeriodRepo 内存账期仓库
type memUsagePeriodRepo struct {
	periods  map[string]*UsagePeriod
	accounts []string
}

func (m *memUsagePeriodRepo) GetUsagePeriod(_ context.Context, accountID, periodKey string) (*UsagePeriod, error) {
	return m.periods[accountID+"|"+periodKey], nil
}

func (m *memUsagePeriodRepo) CreateUsagePeriod(_ context.Context, period *UsagePeriod) error {
	m.periods[period.AccountID+"|"+period.PeriodKey] = period
	return nil
}

func (m *memUsagePeriodRepo) ListAccountIDs(_ context.Context) ([]string, error) {
	return m.accounts, nil
}

func TestUsagePeriodUseCase_ResetDoesNotTouchWallet(t *testing.T) {
	periodRepo := &memUsagePeriodRepo{
		periods:  make(map[string]*UsagePeriod),
		accounts: []string{"acc1", "acc2"},
	}
	ledgerRepo := newMemLedgerRepo()
	ledgerRepo.wallet["acc1"] = 77

	uc := NewUsagePeriodUseCase(periodRepo, testConfig(), log.DefaultLogger)
	count, accountIDs, err := uc.ResetPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"acc1", "acc2"}, accountIDs)

	// 下个账期配额清零，钱包余额原样保留
	for _, period := range periodRepo.periods {
		assert.Equal(t, int64(0), period.QuotaUsed)
	}
	assert.Equal(t, int64(77), ledgerRepo.wallet["acc1"])
}

func TestUsagePeriodUseCase_ResetSkipsExisting(t *testing.T) {
	periodRepo := &memUsagePeriodRepo{
		periods:  make(map[string]*UsagePeriod),
		accounts: []string{"acc1"},
	}
	uc := NewUsagePeriodUseCase(periodRepo, testConfig(), log.DefaultLogger)

	count, _, err := uc.ResetPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, _, err = uc.ResetPeriods(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
