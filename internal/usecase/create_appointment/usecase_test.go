package create_appointment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepoErrors "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
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

type apptRepoFake struct {
	nextID   int64
	active   *domain.Appointment
	blocking []*domain.Appointment
	created  []*domain.Appointment
	history  []*domain.AppointmentHistory
}

func (f *apptRepoFake) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	f.nextID++
	clone := *a
	clone.ID = f.nextID
	f.created = append(f.created, &clone)
	return &clone, nil
}

func (f *apptRepoFake) GetActiveByRequestAndProvider(_ context.Context, requestID, providerID int64) (*domain.Appointment, error) {
	if f.active == nil || f.active.ServiceRequestID != requestID || f.active.ProviderID != providerID {
		return nil, apptRepoErrors.ErrAppointmentNotFound
	}
	clone := *f.active
	return &clone, nil
}

func (f *apptRepoFake) ListBlockingByProviderWindow(_ context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error) {
	window := domain.TimeWindow{Start: windowStart, End: windowEnd}
	out := make([]*domain.Appointment, 0)
	for _, appt := range f.blocking {
		if appt.ProviderID != providerID || !appt.IsBlockingCalendar() {
			continue
		}
		if window.Overlaps(domain.TimeWindow{Start: appt.WindowStartUTC, End: appt.WindowEndUTC}) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *apptRepoFake) AppendHistory(_ context.Context, h *domain.AppointmentHistory) error {
	f.history = append(f.history, h)
	return nil
}

type availabilityRepoStub struct {
	rules      []*domain.ProviderAvailabilityRule
	exceptions []*domain.ProviderAvailabilityException
}

func (s *availabilityRepoStub) ListRulesByProvider(_ context.Context, _ int64) ([]*domain.ProviderAvailabilityRule, error) {
	return s.rules, nil
}

func (s *availabilityRepoStub) ListExceptionsByProviderWindow(_ context.Context, _ int64, _, _ time.Time) ([]*domain.ProviderAvailabilityException, error) {
	return s.exceptions, nil
}

type requestClientStub struct {
	request     *requestservice.ServiceRequest
	requestErr  error
	proposal    *requestservice.Proposal
	proposalErr error
}

func (s *requestClientStub) GetServiceRequest(_ context.Context, _ int64) (*requestservice.ServiceRequest, error) {
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return s.request, nil
}

func (s *requestClientStub) GetAcceptedProposal(_ context.Context, _ int64) (*requestservice.Proposal, error) {
	if s.proposalErr != nil {
		return nil, s.proposalErr
	}
	return s.proposal, nil
}

type noshowStub struct {
	recalculated []int64
}

func (s *noshowStub) Recalculate(_ context.Context, appt *domain.Appointment, _ time.Time) (*noshow.RiskResult, error) {
	s.recalculated = append(s.recalculated, appt.ID)
	return &noshow.RiskResult{Level: domain.RiskLow}, nil
}

type notifierStub struct {
	sent []int64
}

func (s *notifierStub) Notify(_ context.Context, recipientID int64, _, _, _ string) error {
	s.sent = append(s.sent, recipientID)
	return nil
}

// Вторник 2026-03-10, провайдер открыт по вторникам 09:00-18:00
var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func tuesdayRule() *domain.ProviderAvailabilityRule {
	return &domain.ProviderAvailabilityRule{
		ID:         1,
		ProviderID: 200,
		DayOfWeek:  time.Tuesday,
		StartTime:  "09:00",
		EndTime:    "18:00",
	}
}

type fixture struct {
	repo         *apptRepoFake
	availability *availabilityRepoStub
	client       *requestClientStub
	noshowSvc    *noshowStub
	notifier     *notifierStub
	uc           *UseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo:         &apptRepoFake{},
		availability: &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{tuesdayRule()}},
		client: &requestClientStub{
			request:  &requestservice.ServiceRequest{ID: 7, ClientID: 100, Status: "in_progress"},
			proposal: &requestservice.Proposal{ID: 11, RequestID: 7, ProviderID: 200, Status: "accepted"},
		},
		noshowSvc: &noshowStub{},
		notifier:  &notifierStub{},
	}
	f.uc = NewUseCase(f.repo, f.availability, f.client, f.noshowSvc, f.notifier, txManagerFake{}, 24, nopLogger{})
	f.uc.timeProvider = &fixedTimeProvider{now: testNow}
	return f
}

func validRequest() *Request {
	return &Request{
		ServiceRequestID: 7,
		ProviderID:       200,
		ClientID:         100,
		WindowStartUTC:   testNow.Add(2 * time.Hour), // 10:00
		WindowEndUTC:     testNow.Add(3 * time.Hour), // 11:00
	}
}

func TestExecute_CreatesPendingAppointment(t *testing.T) {
	f := newFixture()

	appt, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingProviderConfirmation, appt.Status)
	assert.Equal(t, int64(7), appt.ServiceRequestID)
	assert.Equal(t, int64(100), appt.ClientID)
	assert.Equal(t, int64(200), appt.ProviderID)

	// Дедлайн подтверждения: now + SLA
	require.NotNil(t, appt.ExpiresAtUTC)
	assert.Equal(t, testNow.Add(24*time.Hour), *appt.ExpiresAtUTC)

	// Первая запись журнала от имени клиента, без предыдущего статуса
	require.Len(t, f.repo.history, 1)
	assert.Equal(t, domain.StatusPendingProviderConfirmation, f.repo.history[0].NewStatus)
	assert.Nil(t, f.repo.history[0].PreviousStatus)
	assert.Equal(t, domain.RoleClient, f.repo.history[0].ActorRole)
	assert.True(t, f.repo.history[0].OccurredAtUTC.Equal(testNow))

	// Провайдер уведомлен
	assert.Equal(t, []int64{200}, f.notifier.sent)

	// Риск no-show оценен сразу при создании
	assert.Equal(t, []int64{appt.ID}, f.noshowSvc.recalculated)
}

func TestExecute_RequestNotOwnedByClient(t *testing.T) {
	f := newFixture()
	f.client.request.ClientID = 999

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrAccessDenied)
	assert.Empty(t, f.repo.created)
}

func TestExecute_RequestNotFound(t *testing.T) {
	f := newFixture()
	f.client.requestErr = requestservice.ErrRequestNotFound

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestExecute_ProposalBelongsToOtherProvider(t *testing.T) {
	f := newFixture()
	f.client.proposal.ProviderID = 999

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestExecute_NoAcceptedProposal(t *testing.T) {
	f := newFixture()
	f.client.proposalErr = requestservice.ErrProposalNotFound

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestExecute_ActiveAppointmentAlreadyExists(t *testing.T) {
	f := newFixture()
	f.repo.active = &domain.Appointment{
		ID:               1,
		ServiceRequestID: 7,
		ProviderID:       200,
		Status:           domain.StatusConfirmed,
	}

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrAppointmentAlreadyExists)
}

func TestExecute_TerminalAppointmentDoesNotBlockNew(t *testing.T) {
	f := newFixture()
	// Отмененный визит по той же паре не мешает: репозиторий его не вернет
	f.repo.active = nil

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestExecute_WindowOutsideSchedule(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.WindowStartUTC = testNow.Add(11 * time.Hour) // 19:00, после конца правила
	req.WindowEndUTC = testNow.Add(12 * time.Hour)

	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_WindowPartiallyOutsideSchedule(t *testing.T) {
	f := newFixture()
	req := validRequest()
	req.WindowStartUTC = testNow.Add(30 * time.Minute) // 08:30, раньше открытия
	req.WindowEndUTC = testNow.Add(2 * time.Hour)

	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_BlockExceptionClosesWindow(t *testing.T) {
	f := newFixture()
	f.availability.exceptions = []*domain.ProviderAvailabilityException{{
		ID:             1,
		ProviderID:     200,
		Kind:           domain.ExceptionBlock,
		WindowStartUTC: testNow.Add(time.Hour),
		WindowEndUTC:   testNow.Add(4 * time.Hour),
	}}

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_OpenExceptionOverridesMissingRule(t *testing.T) {
	f := newFixture()
	f.availability.rules = nil
	f.availability.exceptions = []*domain.ProviderAvailabilityException{{
		ID:             1,
		ProviderID:     200,
		Kind:           domain.ExceptionOpen,
		WindowStartUTC: testNow.Add(time.Hour),
		WindowEndUTC:   testNow.Add(4 * time.Hour),
	}}

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestExecute_CalendarConflict(t *testing.T) {
	f := newFixture()
	f.repo.blocking = []*domain.Appointment{{
		ID:             9,
		ProviderID:     200,
		Status:         domain.StatusConfirmed,
		WindowStartUTC: testNow.Add(90 * time.Minute), // 09:30-10:30, пересекается
		WindowEndUTC:   testNow.Add(150 * time.Minute),
	}}

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestExecute_AdjacentAppointmentDoesNotConflict(t *testing.T) {
	f := newFixture()
	f.repo.blocking = []*domain.Appointment{{
		ID:             9,
		ProviderID:     200,
		Status:         domain.StatusConfirmed,
		WindowStartUTC: testNow.Add(time.Hour), // 09:00-10:00, смежное окно
		WindowEndUTC:   testNow.Add(2 * time.Hour),
	}}

	_, err := f.uc.Execute(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestExecute_Validation(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.ClientID = 0
	_, err := f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidInput)

	req = validRequest()
	req.WindowEndUTC = req.WindowStartUTC
	_, err = f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	req = validRequest()
	req.WindowStartUTC = testNow.Add(-time.Hour)
	req.WindowEndUTC = testNow
	_, err = f.uc.Execute(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidTimeRange)
}
