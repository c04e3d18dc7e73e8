package resolve_noshow_queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepoErrors "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

type txManagerFake struct{}

func (txManagerFake) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (txManagerFake) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (txManagerFake) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type queueSvcFake struct {
	item *domain.NoShowQueueItem
}

func (f *queueSvcFake) GetQueueItem(_ context.Context, id int64) (*domain.NoShowQueueItem, error) {
	if f.item == nil || f.item.ID != id {
		return nil, noshow.ErrItemNotFound
	}
	clone := *f.item
	return &clone, nil
}

func (f *queueSvcFake) Resolve(_ context.Context, itemID int64, note string, now time.Time) (*domain.NoShowQueueItem, error) {
	if f.item == nil || f.item.ID != itemID {
		return nil, noshow.ErrItemNotFound
	}
	if !f.item.IsOpen() {
		return nil, noshow.ErrItemResolved
	}
	f.item.Status = domain.QueueItemResolved
	f.item.ResolutionNote = &note
	f.item.ResolvedAtUTC = &now
	clone := *f.item
	return &clone, nil
}

type apptRepoFake struct {
	appt    *domain.Appointment
	history []*domain.AppointmentHistory
}

func (f *apptRepoFake) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	if f.appt == nil || f.appt.ID != id {
		return nil, apptRepoErrors.ErrAppointmentNotFound
	}
	clone := *f.appt
	return &clone, nil
}

func (f *apptRepoFake) Cancel(_ context.Context, _ int64, status domain.AppointmentStatus, reason string) error {
	f.appt.Status = status
	f.appt.CancellationReason = &reason
	return nil
}

func (f *apptRepoFake) AppendHistory(_ context.Context, h *domain.AppointmentHistory) error {
	f.history = append(f.history, h)
	return nil
}

type requestClientStub struct {
	proposal *requestservice.Proposal
	err      error
}

func (s *requestClientStub) GetAcceptedProposal(_ context.Context, _ int64) (*requestservice.Proposal, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.proposal, nil
}

type policySvcStub struct {
	applied  []policy.ApplyInput
	metadata *domain.HistoryMetadata
}

func (s *policySvcStub) Apply(_ context.Context, in policy.ApplyInput) *domain.HistoryMetadata {
	s.applied = append(s.applied, in)
	return s.metadata
}

type notifierStub struct {
	sent []int64
}

func (s *notifierStub) Notify(_ context.Context, recipientID int64, _, _, _ string) error {
	s.sent = append(s.sent, recipientID)
	return nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func openQueueItem() *domain.NoShowQueueItem {
	return &domain.NoShowQueueItem{
		ID:                   5,
		ServiceAppointmentID: 42,
		RiskLevel:            domain.RiskHigh,
		Score:                75,
		Status:               domain.QueueItemOpen,
	}
}

func confirmedAppointment() *domain.Appointment {
	return &domain.Appointment{
		ID:               42,
		ServiceRequestID: 7,
		ClientID:         100,
		ProviderID:       200,
		WindowStartUTC:   testNow.Add(-time.Hour),
		WindowEndUTC:     testNow.Add(time.Hour),
		Status:           domain.StatusConfirmed,
	}
}

type fixture struct {
	queue         *queueSvcFake
	repo          *apptRepoFake
	requestClient *requestClientStub
	policySvc     *policySvcStub
	notifier      *notifierStub
	uc            *UseCase
}

func newFixture() *fixture {
	f := &fixture{
		queue: &queueSvcFake{item: openQueueItem()},
		repo:  &apptRepoFake{appt: confirmedAppointment()},
		requestClient: &requestClientStub{proposal: &requestservice.Proposal{
			AgreedValue: decimal.NewFromInt(1000),
			Currency:    "RUB",
		}},
		policySvc: &policySvcStub{metadata: &domain.HistoryMetadata{
			Type: domain.MetadataFinancialPolicyApplied,
			PolicyApplied: &domain.PolicyAppliedMetadata{
				EventType:    domain.EventClientNoShow,
				LedgerResult: "ok",
			},
		}},
		notifier: &notifierStub{},
	}
	f.uc = NewUseCase(f.queue, f.repo, f.requestClient, f.policySvc, f.notifier, txManagerFake{}, nopLogger{})
	f.uc.timeProvider = &fixedTimeProvider{now: testNow}
	return f
}

func operatorRequest(outcome Outcome, note string) *Request {
	return &Request{
		QueueItemID: 5,
		ActorUserID: 500,
		ActorRole:   domain.RoleOperator,
		Outcome:     outcome,
		Note:        note,
	}
}

func TestExecute_NoActionOnlyClosesItem(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeNoAction, "клиент вышел на связь"))
	require.NoError(t, err)

	assert.Equal(t, domain.QueueItemResolved, resp.Item.Status)
	require.NotNil(t, resp.Item.ResolutionNote)
	assert.Equal(t, "клиент вышел на связь", *resp.Item.ResolutionNote)

	// Визит не тронут, политика и уведомления не запускались
	assert.Equal(t, domain.StatusConfirmed, f.repo.appt.Status)
	assert.Empty(t, f.repo.history)
	assert.Empty(t, f.policySvc.applied)
	assert.Empty(t, f.notifier.sent)
}

func TestExecute_ClientNoShowCancelsAndAppliesPolicy(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeClientNoShow, "не дозвонились"))
	require.NoError(t, err)

	assert.Equal(t, domain.QueueItemResolved, resp.Item.Status)
	assert.Equal(t, domain.StatusCancelledByClient, resp.Appointment.Status)
	require.NotNil(t, f.repo.appt.CancellationReason)
	assert.Equal(t, "no-show triage: client_no_show (не дозвонились)", *f.repo.appt.CancellationReason)

	// Две строки аудита: переход отмены и применение политики
	require.Len(t, f.repo.history, 2)
	assert.Equal(t, domain.StatusCancelledByClient, f.repo.history[0].NewStatus)
	assert.True(t, f.repo.history[0].OccurredAtUTC.Equal(testNow))
	assert.True(t, f.repo.history[1].OccurredAtUTC.Equal(testNow))
	require.NotNil(t, f.repo.history[1].Metadata)
	assert.Equal(t, domain.MetadataFinancialPolicyApplied, f.repo.history[1].Metadata.Type)

	require.Len(t, f.policySvc.applied, 1)
	assert.Equal(t, domain.EventClientNoShow, f.policySvc.applied[0].EventType)
	assert.True(t, f.policySvc.applied[0].ServiceValue.Equal(decimal.NewFromInt(1000)))

	// Уведомляются обе стороны
	assert.ElementsMatch(t, []int64{100, 200}, f.notifier.sent)
}

func TestExecute_ProviderNoShowCancelsByProvider(t *testing.T) {
	f := newFixture()

	resp, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeProviderNoShow, ""))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCancelledByProvider, resp.Appointment.Status)
	require.NotNil(t, f.repo.appt.CancellationReason)
	assert.Equal(t, "no-show triage: provider_no_show", *f.repo.appt.CancellationReason)

	require.Len(t, f.policySvc.applied, 1)
	assert.Equal(t, domain.EventProviderNoShow, f.policySvc.applied[0].EventType)
}

func TestExecute_ProposalFailureRecordedInHistory(t *testing.T) {
	f := newFixture()
	f.requestClient.err = errors.New("request service unavailable")

	_, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeClientNoShow, ""))
	require.NoError(t, err)

	// Отмена коммитится; сбой получения стоимости фиксируется в аудите
	assert.Equal(t, domain.StatusCancelledByClient, f.repo.appt.Status)
	assert.Empty(t, f.policySvc.applied)

	require.Len(t, f.repo.history, 2)
	metadata := f.repo.history[1].Metadata
	require.NotNil(t, metadata)
	assert.Equal(t, domain.MetadataFinancialPolicyFailed, metadata.Type)
	require.NotNil(t, metadata.PolicyFailed)
	assert.Contains(t, metadata.PolicyFailed.Message, "agreed service value unavailable")
}

func TestExecute_TerminalAppointmentRejected(t *testing.T) {
	f := newFixture()
	f.repo.appt.Status = domain.StatusCompleted

	_, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeClientNoShow, ""))
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestExecute_ResolvedItemRejected(t *testing.T) {
	f := newFixture()
	f.queue.item.Status = domain.QueueItemResolved

	_, err := f.uc.Execute(context.Background(), operatorRequest(OutcomeNoAction, ""))
	require.ErrorIs(t, err, ErrItemResolved)
}

func TestExecute_UnknownItem(t *testing.T) {
	f := newFixture()
	req := operatorRequest(OutcomeNoAction, "")
	req.QueueItemID = 999

	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestExecute_RoleAndInputValidation(t *testing.T) {
	f := newFixture()

	req := operatorRequest(OutcomeNoAction, "")
	req.ActorRole = domain.RoleClient
	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrAccessDenied)

	req = operatorRequest("maybe_no_show", "")
	_, err = f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = operatorRequest(OutcomeNoAction, "")
	req.QueueItemID = 0
	_, err = f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)
}
