package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStatsRepo struct {
	attempts []*biz.SendAttempt
}

func (r *memStatsRepo) ListAttemptsForStats(_ context.Context, query *biz.StatsQuery) ([]*biz.SendAttempt, error) {
	var out []*biz.SendAttempt
	for _, a := range r.attempts {
		if a.AccountID != query.AccountID {
			continue
		}
		if !query.Begin.IsZero() && a.CreatedAt.Before(query.Begin) {
			continue
		}
		if !query.End.IsZero() && !a.CreatedAt.Before(query.End) {
			continue
		}
		if query.Type != "" && a.Type != query.Type {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memStatsRepo) GetStatsToday(_ context.Context, _ string) (*biz.QuickSummary, error) {
	return &biz.QuickSummary{Period: "today"}, nil
}

func (r *memStatsRepo) GetStatsMonth(_ context.Context, _ string) (*biz.QuickSummary, error) {
	return &biz.QuickSummary{Period: "month"}, nil
}

func newStatsService(repo *memStatsRepo) *SmsService {
	logger := log.DefaultLogger
	return &SmsService{
		stats: biz.NewStatsUseCase(repo, logger),
		conf:  biz.NewSmsConfig(&conf.Bootstrap{}),
		log:   log.NewHelper(logger),
	}
}

func TestExportAttemptsCSV_QuotesAndNewlines(t *testing.T) {
	createdAt := time.Date(2026, 3, 5, 10, 30, 0, 0, time.Local)
	deliveredAt := createdAt.Add(2 * time.Second)
	repo := &memStatsRepo{attempts: []*biz.SendAttempt{
		{
			ID:             "att_1",
			AccountID:      "acc_1",
			RecipientPhone: "+15551230001",
			MessageText:    "Hi \"Ana\", order 12,5 kg\nready",
			Type:           "promotion",
			Status:         "delivered",
			CostUnits:      2,
			Retries:        1,
			CreatedAt:      createdAt,
			DeliveredAt:    &deliveredAt,
		},
		{
			ID:             "att_2",
			AccountID:      "acc_1",
			RecipientPhone: "+15551230002",
			MessageText:    "plain",
			Type:           "notification",
			Status:         "failed",
			CostUnits:      1,
			CreatedAt:      createdAt,
			ErrorDetail:    "rejected: blacklisted",
		},
	}}

	svc := newStatsService(repo)
	data, err := svc.ExportAttemptsCSV(context.Background(), &ListAttemptsRequest{AccountID: "acc_1"})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"date", "phone", "message", "type", "status", "cost_units", "retries", "delivered_at", "error"}, records[0])
	// 引号、逗号、换行经过 CSV 转义后原样还原
	assert.Equal(t, "Hi \"Ana\", order 12,5 kg\nready", records[1][2])
	assert.Equal(t, "2", records[1][5])
	assert.Equal(t, deliveredAt.Format(timeFormatFull), records[1][7])
	assert.Equal(t, "", records[2][7])
	assert.Equal(t, "rejected: blacklisted", records[2][8])
}

func TestExportAttemptsCSV_EmptyResult(t *testing.T) {
	svc := newStatsService(&memStatsRepo{})
	data, err := svc.ExportAttemptsCSV(context.Background(), &ListAttemptsRequest{AccountID: "acc_none"})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

type memWalletStore struct {
	balances map[string]int64
	entries  map[string]bool
}

func (m *memWalletStore) GetWallet(_ context.Context, accountID string) (*biz.Wallet, error) {
	balance, ok := m.balances[accountID]
	if !ok {
		return nil, nil
	}
	return &biz.Wallet{AccountID: accountID, BalanceUnits: balance}, nil
}

func (m *memWalletStore) CreditUnits(_ context.Context, accountID string, units int64, _, entryID string) error {
	if m.entries[entryID] {
		return nil
	}
	m.entries[entryID] = true
	m.balances[accountID] += units
	return nil
}

func TestGrantOpeningBonus_Idempotent(t *testing.T) {
	store := &memWalletStore{balances: map[string]int64{}, entries: map[string]bool{}}
	cfg := biz.NewSmsConfig(&conf.Bootstrap{Sms: &conf.Sms{
		DefaultPlan: "starter",
		Plans: map[string]*conf.Plan{
			"starter": {MonthlyQuota: 50, OpeningBonusUnits: 10},
		},
	}})
	svc := &SmsService{
		wallet: biz.NewWalletUseCase(store, cfg, log.DefaultLogger),
		conf:   cfg,
		log:    log.NewHelper(log.DefaultLogger),
	}

	reply, err := svc.GrantOpeningBonus(context.Background(), &OpeningBonusRequest{AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), reply.UnitsGranted)
	assert.Equal(t, int64(10), reply.BalanceUnits)

	// 订阅开通回调重放，不重复入账
	reply, err = svc.GrantOpeningBonus(context.Background(), &OpeningBonusRequest{AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), reply.BalanceUnits)
}

func TestExportAttemptsCSV_BadDate(t *testing.T) {
	svc := newStatsService(&memStatsRepo{})
	_, err := svc.ExportAttemptsCSV(context.Background(), &ListAttemptsRequest{AccountID: "acc_1", From: "05-03-2026"})
	assert.Error(t, err)
}
