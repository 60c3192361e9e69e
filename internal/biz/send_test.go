package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"sms-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSendAttemptRepo struct {
	attempts map[string]*SendAttempt
}

func newMemSendAttemptRepo() *memSendAttemptRepo {
	return &memSendAttemptRepo{attempts: make(map[string]*SendAttempt)}
}

func (m *memSendAttemptRepo) CreateSendAttempts(_ context.Context, attempts []*SendAttempt) error {
	for _, a := range attempts {
		m.attempts[a.ID] = a
	}
	return nil
}

func (m *memSendAttemptRepo) MarkSent(_ context.Context, attemptID, providerMessageID string, sentAt time.Time) error {
	a := m.attempts[attemptID]
	a.Status = constants.SendStatusSent
	a.ProviderMessageID = providerMessageID
	a.SentAt = &sentAt
	return nil
}

func (m *memSendAttemptRepo) MarkFailed(_ context.Context, attemptID, errorDetail string) error {
	a := m.attempts[attemptID]
	a.Status = constants.SendStatusFailed
	a.ErrorDetail = errorDetail
	return nil
}

func (m *memSendAttemptRepo) ResolveDelivery(_ context.Context, providerMessageID, status, errorDetail string, at time.Time) (*SendAttempt, error) {
	for _, a := range m.attempts {
		if a.ProviderMessageID != providerMessageID {
			continue
		}
		if a.IsTerminal() {
			return a, nil
		}
		a.Status = status
		a.ErrorDetail = errorDetail
		if status == constants.SendStatusDelivered {
			a.DeliveredAt = &at
		}
		return a, nil
	}
	return nil, nil
}

func (m *memSendAttemptRepo) ListSendAttempts(_ context.Context, _ *AttemptQuery) ([]*SendAttempt, int64, error) {
	out := make([]*SendAttempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (m *memSendAttemptRepo) IncrRetries(_ context.Context, attemptID string) error {
	m.attempts[attemptID].Retries++
	return nil
}

// fakeTransport 按号码返回预设结果，默认受理
type fakeTransport struct {
	rejected map[string]string // phone -> error detail
	timeout  map[string]bool
	calls    []string
}

func (f *fakeTransport) Send(_ context.Context, req *TransportSendRequest) (*TransportSendReply, error) {
	f.calls = append(f.calls, req.Phone)
	if f.timeout[req.Phone] {
		return nil, errors.New("transport timeout")
	}
	if detail, ok := f.rejected[req.Phone]; ok {
		return &TransportSendReply{Outcome: TransportOutcomeRejected, ErrorDetail: detail}, nil
	}
	return &TransportSendReply{Outcome: TransportOutcomeSent, ProviderMessageID: "pm_" + req.Phone}, nil
}

type fakeOveragePublisher struct {
	events []*OverageChargeEvent
}

func (f *fakeOveragePublisher) PublishOverageCharge(_ context.Context, event *OverageChargeEvent) error {
	f.events = append(f.events, event)
	return nil
}

type sendFixture struct {
	uc         *SendUseCase
	ledgerRepo *memLedgerRepo
	attempts   *memSendAttemptRepo
	transport  *fakeTransport
	rateRepo   *memRateLimitRepo
	overagePub *fakeOveragePublisher
	conf       *SmsConfig
}

func newSendFixture(conf *SmsConfig) *sendFixture {
	f := &sendFixture{
		ledgerRepo: newMemLedgerRepo(),
		attempts:   newMemSendAttemptRepo(),
		transport:  &fakeTransport{rejected: map[string]string{}, timeout: map[string]bool{}},
		rateRepo:   &memRateLimitRepo{counts: make(map[string]int64)},
		overagePub: &fakeOveragePublisher{},
		conf:       conf,
	}
	logger := log.DefaultLogger
	ledger := NewLedgerUseCase(f.ledgerRepo, conf, logger)
	rateLimit := NewRateLimitUseCase(f.rateRepo, conf, logger)
	f.uc = NewSendUseCase(conf, ledger, rateLimit, f.attempts, f.transport, f.overagePub, logger)
	return f
}

func TestSendBatch_AllSent(t *testing.T) {
	f := newSendFixture(testConfig())
	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678", "0698765432"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.SentCount)
	assert.Equal(t, int64(0), result.FailedCount)
	assert.Equal(t, int64(1), result.Segments)
	assert.Equal(t, constants.EncodingGSM7, result.Encoding)
	assert.Len(t, f.transport.calls, 2)

	// 配额扣减 2 单元，当日发送量记 2
	periodKey := CurrentPeriodKey()
	assert.Equal(t, int64(2), f.ledgerRepo.quotaUsed[f.ledgerRepo.key("acc1", periodKey)])
	day := time.Now().Format(constants.TimeFormatDay)
	assert.Equal(t, int64(2), f.rateRepo.counts["acc1|"+day])

	require.NotNil(t, result.Snapshot)
	assert.Equal(t, int64(48), result.Snapshot.FreeRemaining)
}

func TestSendBatch_InvalidPhoneSkipped(t *testing.T) {
	f := newSendFixture(testConfig())
	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678", "garbage"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SentCount)
	assert.Equal(t, int64(1), result.FailedCount)
	assert.Len(t, f.transport.calls, 1)

	// 无效号码从未触达账本
	periodKey := CurrentPeriodKey()
	assert.Equal(t, int64(1), f.ledgerRepo.quotaUsed[f.ledgerRepo.key("acc1", periodKey)])
}

func TestSendBatch_AllPhonesInvalid(t *testing.T) {
	f := newSendFixture(testConfig())
	_, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"garbage", "123"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	assert.Error(t, err)
}

func TestSendBatch_RejectedRecipientRolledBack(t *testing.T) {
	f := newSendFixture(testConfig())
	f.transport.rejected["+33698765432"] = "blocked destination"

	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678", "0698765432"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SentCount)
	assert.Equal(t, int64(1), result.FailedCount)

	// 被拒的那条按来源归还：净扣减 1 单元
	periodKey := CurrentPeriodKey()
	assert.Equal(t, int64(1), f.ledgerRepo.quotaUsed[f.ledgerRepo.key("acc1", periodKey)])
	// 当日发送量不含被拒的
	day := time.Now().Format(constants.TimeFormatDay)
	assert.Equal(t, int64(1), f.rateRepo.counts["acc1|"+day])
}

func TestSendBatch_TimeoutStaysPending(t *testing.T) {
	f := newSendFixture(testConfig())
	f.transport.timeout["+33612345678"] = true

	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PendingCount)
	assert.Equal(t, int64(0), result.SentCount)

	// 预留保持扣减状态，等待回执再决定归还
	periodKey := CurrentPeriodKey()
	assert.Equal(t, int64(1), f.ledgerRepo.quotaUsed[f.ledgerRepo.key("acc1", periodKey)])
	for _, a := range f.attempts.attempts {
		assert.Equal(t, constants.SendStatusPending, a.Status)
		assert.Equal(t, 1, a.Retries)
	}
}

func TestSendBatch_PartialFulfillment(t *testing.T) {
	conf := testConfig()
	conf.Plans["starter"].MonthlyQuota = 3
	f := newSendFixture(conf)

	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345671", "0612345672", "0612345673", "0612345674", "0612345675"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.SentCount)
	assert.Equal(t, int64(2), result.FailedCount)
	assert.Len(t, f.transport.calls, 3)

	failedDetails := 0
	for _, rr := range result.PerRecipient {
		if rr.ErrorDetail == "insufficient funds" {
			failedDetails++
			assert.Empty(t, rr.AttemptID)
		}
	}
	assert.Equal(t, 2, failedDetails)
}

func TestSendBatch_DailyLimitAborts(t *testing.T) {
	conf := testConfig()
	conf.DailyLimit = 1
	f := newSendFixture(conf)

	_, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345671", "0612345672"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	assert.Error(t, err)
	// 整批中止：账本从未被触达
	assert.Empty(t, f.attempts.attempts)
	periodKey := CurrentPeriodKey()
	assert.Equal(t, int64(0), f.ledgerRepo.quotaUsed[f.ledgerRepo.key("acc1", periodKey)])
}

func TestSendBatch_InvalidTypeAborts(t *testing.T) {
	f := newSendFixture(testConfig())
	_, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678"},
		Text:       "hello",
		Type:       "newsletter",
	})
	assert.Error(t, err)
}

func TestSendBatch_MissingTemplateVarAborts(t *testing.T) {
	f := newSendFixture(testConfig())
	_, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345678"},
		Text:       "Hi {{name}}, your code is {{code}}",
		Vars:       map[string]string{"name": "Ana"},
		Type:       constants.SmsTypeNotification,
	})
	assert.Error(t, err)
}

func TestSendBatch_OverageChargePublished(t *testing.T) {
	conf := testConfig()
	conf.Plans["starter"].MonthlyQuota = 1
	conf.Plans["starter"].OverageEnabled = true
	conf.Plans["starter"].OverageUnitPriceMinorUnits = 9
	f := newSendFixture(conf)

	result, err := f.uc.SendBatch(context.Background(), &SendBatchRequest{
		AccountID:  "acc1",
		Recipients: []string{"0612345671", "0612345672", "0612345673"},
		Text:       "hello",
		Type:       constants.SmsTypeNotification,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.SentCount)

	// 2 单元走超量，按单价 9 计费
	require.Len(t, f.overagePub.events, 1)
	event := f.overagePub.events[0]
	assert.Equal(t, int64(2), event.OverageUnits)
	assert.Equal(t, int64(18), event.AmountMinorUnits)
}

func TestResolveDelivery_TerminalDoesNotRegress(t *testing.T) {
	repo := newMemSendAttemptRepo()
	now := time.Now()
	repo.attempts["a1"] = &SendAttempt{
		ID:                "a1",
		Status:            constants.SendStatusDelivered,
		ProviderMessageID: "pm1",
		DeliveredAt:       &now,
	}
	uc := NewSendAttemptUseCase(repo, log.DefaultLogger)

	attempt, err := uc.ResolveDelivery(context.Background(), "pm1", constants.SendStatusFailed, "late failure")
	require.NoError(t, err)
	assert.Equal(t, constants.SendStatusDelivered, attempt.Status)
}

func TestResolveDelivery_UnknownMessageID(t *testing.T) {
	uc := NewSendAttemptUseCase(newMemSendAttemptRepo(), log.DefaultLogger)
	_, err := uc.ResolveDelivery(context.Background(), "missing", constants.SendStatusDelivered, "")
	assert.Error(t, err)
}
