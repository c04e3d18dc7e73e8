package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/walletservice"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type walletStub struct {
	entries []*walletservice.LedgerEntry
	err     error
}

func (w *walletStub) AppendEntry(_ context.Context, entry *walletservice.LedgerEntry) (*walletservice.LedgerReceipt, error) {
	w.entries = append(w.entries, entry)
	if w.err != nil {
		return nil, w.err
	}
	return &walletservice.LedgerReceipt{EntryID: "entry-1", Status: "accepted"}, nil
}

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRules(t *testing.T) []domain.PolicyRule {
	t.Helper()

	rules, err := BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{
			Name:                 "late_client_cancellation",
			EventType:            "client_cancellation",
			MaxHoursBeforeWindow: 24,
			PenaltyPercent:       "30",
			CompensationPercent:  "25",
			RetainedPercent:      "5",
		},
		{
			Name:                 "very_late_client_cancellation",
			EventType:            "client_cancellation",
			MaxHoursBeforeWindow: 2,
			PenaltyPercent:       "50",
			CompensationPercent:  "42.5",
			RetainedPercent:      "7.5",
		},
		{
			Name:                 "client_no_show",
			EventType:            "client_no_show",
			MaxHoursBeforeWindow: 0,
			PenaltyPercent:       "100",
			CompensationPercent:  "80",
			RetainedPercent:      "20",
		},
	}})
	require.NoError(t, err)
	return rules
}

func TestBuildRules_SortsByThresholdAscending(t *testing.T) {
	rules := testRules(t)

	require.Len(t, rules, 3)
	assert.Equal(t, "client_no_show", rules[0].Name)
	assert.Equal(t, "very_late_client_cancellation", rules[1].Name)
	assert.Equal(t, "late_client_cancellation", rules[2].Name)
}

func TestBuildRules_RejectsUnknownEventType(t *testing.T) {
	_, err := BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{Name: "bad", EventType: "meteor_strike", PenaltyPercent: "10", CompensationPercent: "0", RetainedPercent: "0"},
	}})

	require.ErrorIs(t, err, ErrInvalidRuleConfig)
}

func TestBuildRules_RejectsMalformedPercent(t *testing.T) {
	_, err := BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{Name: "bad", EventType: "client_no_show", PenaltyPercent: "ten", CompensationPercent: "0", RetainedPercent: "0"},
	}})
	require.ErrorIs(t, err, ErrInvalidRuleConfig)

	_, err = BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{Name: "bad", EventType: "client_no_show", PenaltyPercent: "-5", CompensationPercent: "0", RetainedPercent: "0"},
	}})
	require.ErrorIs(t, err, ErrInvalidRuleConfig)
}

func TestBuildRules_RejectsNegativeThreshold(t *testing.T) {
	_, err := BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{Name: "bad", EventType: "client_no_show", MaxHoursBeforeWindow: -1, PenaltyPercent: "10", CompensationPercent: "0", RetainedPercent: "0"},
	}})

	require.ErrorIs(t, err, ErrInvalidRuleConfig)
}

func TestSelectRule_PicksTightestMatchingThreshold(t *testing.T) {
	svc := NewService(testRules(t), &walletStub{}, nopLogger{})

	// За час до окна действует правило с порогом 2 часа, не 24
	rule := svc.SelectRule(domain.EventClientCancellation, 1)
	require.NotNil(t, rule)
	assert.Equal(t, "very_late_client_cancellation", rule.Name)

	rule = svc.SelectRule(domain.EventClientCancellation, 10)
	require.NotNil(t, rule)
	assert.Equal(t, "late_client_cancellation", rule.Name)

	assert.Nil(t, svc.SelectRule(domain.EventClientCancellation, 30))
	assert.Nil(t, svc.SelectRule(domain.EventProviderCancellation, 1))
}

func TestCompute_BreakdownReconciles(t *testing.T) {
	svc := NewService(nil, &walletStub{}, nopLogger{})
	rule := &domain.PolicyRule{
		Name:                "late_client_cancellation",
		EventType:           domain.EventClientCancellation,
		PenaltyPercent:      pct("30"),
		CompensationPercent: pct("25"),
		RetainedPercent:     pct("5"),
	}

	breakdown, err := svc.Compute(rule, pct("100.01"), string(domain.RoleProvider))
	require.NoError(t, err)

	assert.True(t, breakdown.PenaltyAmount.Equal(pct("30.00")), "penalty = %s", breakdown.PenaltyAmount)
	assert.True(t, breakdown.CompensationAmount.Equal(pct("25.00")), "compensation = %s", breakdown.CompensationAmount)
	assert.True(t, breakdown.RetainedAmount.Equal(pct("5.00")), "retained = %s", breakdown.RetainedAmount)
	assert.True(t, breakdown.RemainingAmount.Equal(pct("70.01")), "remaining = %s", breakdown.RemainingAmount)
	assert.True(t, breakdown.Reconciles())
}

func TestCompute_RejectsOverdrawnRule(t *testing.T) {
	svc := NewService(nil, &walletStub{}, nopLogger{})
	rule := &domain.PolicyRule{
		Name:                "overdrawn",
		EventType:           domain.EventProviderNoShow,
		PenaltyPercent:      pct("0"),
		CompensationPercent: pct("100"),
		RetainedPercent:     pct("0"),
	}

	_, err := svc.Compute(rule, pct("500"), string(domain.RoleClient))
	require.ErrorIs(t, err, ErrRuleNotReconcilable)
}

func testAppointment(windowStart time.Time) *domain.Appointment {
	return &domain.Appointment{
		ID:               42,
		ServiceRequestID: 7,
		ClientID:         100,
		ProviderID:       200,
		WindowStartUTC:   windowStart,
		WindowEndUTC:     windowStart.Add(time.Hour),
	}
}

func TestApply_NoMatchingRuleReturnsNil(t *testing.T) {
	wallet := &walletStub{}
	svc := NewService(testRules(t), wallet, nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	metadata := svc.Apply(context.Background(), ApplyInput{
		Appointment:  testAppointment(now.Add(72 * time.Hour)),
		EventType:    domain.EventClientCancellation,
		ServiceValue: pct("1000"),
		Currency:     "RUB",
		Now:          now,
	})

	assert.Nil(t, metadata)
	assert.Empty(t, wallet.entries)
}

func TestApply_PostsLedgerEntry(t *testing.T) {
	wallet := &walletStub{}
	svc := NewService(testRules(t), wallet, nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	metadata := svc.Apply(context.Background(), ApplyInput{
		Appointment:  testAppointment(now.Add(time.Hour)),
		EventType:    domain.EventClientCancellation,
		ServiceValue: pct("1000"),
		Currency:     "RUB",
		Now:          now,
	})

	require.NotNil(t, metadata)
	assert.Equal(t, domain.MetadataFinancialPolicyApplied, metadata.Type)
	require.NotNil(t, metadata.PolicyApplied)
	assert.True(t, metadata.PolicyApplied.LedgerRequested)
	assert.Equal(t, "ok", metadata.PolicyApplied.LedgerResult)
	assert.Equal(t, "very_late_client_cancellation", metadata.PolicyApplied.Breakdown.RuleName)

	require.Len(t, wallet.entries, 1)
	entry := wallet.entries[0]
	assert.Equal(t, int64(42), entry.ServiceAppointmentID)
	assert.True(t, entry.ClientCharge.Equal(pct("500.00")))
	assert.True(t, entry.ProviderCompensation.Equal(pct("425.00")))
	assert.True(t, entry.PlatformFee.Equal(pct("75.00")))
	assert.NotEmpty(t, entry.IdempotencyKey)
}

func TestApply_NoShowAfterWindowStartUsesZeroMargin(t *testing.T) {
	wallet := &walletStub{}
	svc := NewService(testRules(t), wallet, nopLogger{})

	// Неявка фиксируется после начала окна; отрицательный запас
	// часов схлопывается в ноль и матчится правилом с порогом 0
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	metadata := svc.Apply(context.Background(), ApplyInput{
		Appointment:  testAppointment(now.Add(-30 * time.Minute)),
		EventType:    domain.EventClientNoShow,
		ServiceValue: pct("200"),
		Currency:     "RUB",
		Now:          now,
	})

	require.NotNil(t, metadata)
	require.NotNil(t, metadata.PolicyApplied)
	assert.Equal(t, "client_no_show", metadata.PolicyApplied.Breakdown.RuleName)
	assert.True(t, metadata.PolicyApplied.Breakdown.PenaltyAmount.Equal(pct("200.00")))
}

func TestApply_ZeroPenaltySkipsLedger(t *testing.T) {
	rules, err := BuildRules(config.PolicyConfig{Rules: []config.PolicyRuleConfig{
		{
			Name:                 "free_cancellation",
			EventType:            "client_cancellation",
			MaxHoursBeforeWindow: 24,
			PenaltyPercent:       "0",
			CompensationPercent:  "0",
			RetainedPercent:      "0",
		},
	}})
	require.NoError(t, err)

	wallet := &walletStub{}
	svc := NewService(rules, wallet, nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	metadata := svc.Apply(context.Background(), ApplyInput{
		Appointment:  testAppointment(now.Add(3 * time.Hour)),
		EventType:    domain.EventClientCancellation,
		ServiceValue: pct("1000"),
		Currency:     "RUB",
		Now:          now,
	})

	require.NotNil(t, metadata)
	require.NotNil(t, metadata.PolicyApplied)
	assert.False(t, metadata.PolicyApplied.LedgerRequested)
	assert.Empty(t, wallet.entries)
}

func TestApply_WalletFailureDoesNotFailTransition(t *testing.T) {
	wallet := &walletStub{err: errors.New("wallet unavailable")}
	svc := NewService(testRules(t), wallet, nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	metadata := svc.Apply(context.Background(), ApplyInput{
		Appointment:  testAppointment(now.Add(time.Hour)),
		EventType:    domain.EventClientCancellation,
		ServiceValue: pct("1000"),
		Currency:     "RUB",
		Now:          now,
	})

	require.NotNil(t, metadata)
	assert.Equal(t, domain.MetadataFinancialPolicyApplied, metadata.Type)
	require.NotNil(t, metadata.PolicyApplied)
	assert.True(t, metadata.PolicyApplied.LedgerRequested)
	assert.Contains(t, metadata.PolicyApplied.LedgerResult, "wallet unavailable")
}
