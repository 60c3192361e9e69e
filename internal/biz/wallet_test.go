package biz

import (
	"context"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWalletRepo struct {
	balances map[string]int64
	entries  map[string]bool // 幂等键
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{balances: make(map[string]int64), entries: make(map[string]bool)}
}

func (m *memWalletRepo) GetWallet(_ context.Context, accountID string) (*Wallet, error) {
	if _, ok := m.balances[accountID]; !ok {
		return nil, nil
	}
	return &Wallet{AccountID: accountID, BalanceUnits: m.balances[accountID]}, nil
}

func (m *memWalletRepo) CreditUnits(_ context.Context, accountID string, units int64, _, entryID string) error {
	if m.entries[entryID] {
		return nil
	}
	m.entries[entryID] = true
	m.balances[accountID] += units
	return nil
}

func TestWallet_GetMissingReturnsZero(t *testing.T) {
	uc := NewWalletUseCase(newMemWalletRepo(), testConfig(), log.DefaultLogger)
	wallet, err := uc.GetWallet(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalanceUnits)
}

func TestWallet_OpeningBonusIdempotent(t *testing.T) {
	repo := newMemWalletRepo()
	uc := NewWalletUseCase(repo, testConfig(), log.DefaultLogger)

	units, err := uc.GrantOpeningBonus(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), units)

	// 重复触发不重复入账
	_, err = uc.GrantOpeningBonus(context.Background(), "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), repo.balances["acc1"])
}

func TestWallet_CreditAffiliateConversion(t *testing.T) {
	repo := newMemWalletRepo()
	conf := testConfig()
	conf.AffiliateUnitPriceMinorUnits = 7
	uc := NewWalletUseCase(repo, conf, log.DefaultLogger)

	// 800 / 7 = 114，余数沉淀不入账
	units, err := uc.CreditAffiliate(context.Background(), "acc1", 800, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, int64(114), units)
	assert.Equal(t, int64(114), repo.balances["acc1"])

	// 同一 referenceID 重复回调不重复入账
	_, err = uc.CreditAffiliate(context.Background(), "acc1", 800, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, int64(114), repo.balances["acc1"])
}

func TestWallet_CreditAffiliateZeroNoop(t *testing.T) {
	repo := newMemWalletRepo()
	uc := NewWalletUseCase(repo, testConfig(), log.DefaultLogger)

	units, err := uc.CreditAffiliate(context.Background(), "acc1", 3, "sub_2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), units)
	assert.Empty(t, repo.entries)
}
