package respond_reschedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepoErrors "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
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
	appt     *domain.Appointment
	blocking []*domain.Appointment
	history  []*domain.AppointmentHistory
}

func (f *apptRepoFake) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	if f.appt == nil || f.appt.ID != id {
		return nil, apptRepoErrors.ErrAppointmentNotFound
	}
	clone := *f.appt
	return &clone, nil
}

func (f *apptRepoFake) ListBlockingByProviderWindow(_ context.Context, _ int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error) {
	window := domain.TimeWindow{Start: windowStart, End: windowEnd}
	out := make([]*domain.Appointment, 0)
	for _, appt := range f.blocking {
		if appt.IsBlockingCalendar() && appt.Window().Overlaps(window) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *apptRepoFake) CommitReschedule(_ context.Context, _ int64, newStart, newEnd time.Time) error {
	f.appt.Status = domain.StatusRescheduleConfirmed
	f.appt.WindowStartUTC = newStart
	f.appt.WindowEndUTC = newEnd
	f.appt.ProposedWindowStartUTC = nil
	f.appt.ProposedWindowEndUTC = nil
	f.appt.RescheduleRequestedByRole = nil
	f.appt.RescheduleRequestReason = nil
	return nil
}

func (f *apptRepoFake) ClearRescheduleProposal(_ context.Context, _ int64, restoredStatus domain.AppointmentStatus) error {
	f.appt.Status = restoredStatus
	f.appt.ProposedWindowStartUTC = nil
	f.appt.ProposedWindowEndUTC = nil
	f.appt.RescheduleRequestedByRole = nil
	f.appt.RescheduleRequestReason = nil
	return nil
}

func (f *apptRepoFake) AppendHistory(_ context.Context, h *domain.AppointmentHistory) error {
	f.history = append(f.history, h)
	return nil
}

func (f *apptRepoFake) GetLastTransitionInto(_ context.Context, appointmentID int64, status domain.AppointmentStatus) (*domain.AppointmentHistory, error) {
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].AppointmentID == appointmentID && f.history[i].NewStatus == status {
			return f.history[i], nil
		}
	}
	return nil, apptRepoErrors.ErrAppointmentNotFound
}

type noshowStub struct {
	recalculated int
}

func (s *noshowStub) Recalculate(_ context.Context, _ *domain.Appointment, _ time.Time) (*noshow.RiskResult, error) {
	s.recalculated++
	return &noshow.RiskResult{Level: domain.RiskLow}, nil
}

type notifierStub struct {
	sent []int64
}

func (s *notifierStub) Notify(_ context.Context, recipientID int64, _, _, _ string) error {
	s.sent = append(s.sent, recipientID)
	return nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// negotiatingAppointment визит в переговорах: клиент предложил новое окно
func negotiatingAppointment() *domain.Appointment {
	requestedBy := domain.RoleClient
	proposedStart := testNow.Add(72 * time.Hour)
	proposedEnd := proposedStart.Add(time.Hour)
	return &domain.Appointment{
		ID:                        42,
		ServiceRequestID:          7,
		ClientID:                  100,
		ProviderID:                200,
		WindowStartUTC:            testNow.Add(24 * time.Hour),
		WindowEndUTC:              testNow.Add(25 * time.Hour),
		Status:                    domain.StatusRescheduleRequestedByClient,
		ProposedWindowStartUTC:    &proposedStart,
		ProposedWindowEndUTC:      &proposedEnd,
		RescheduleRequestedByRole: &requestedBy,
	}
}

func newTestUseCase(repo *apptRepoFake, noshowSvc *noshowStub, notifier *notifierStub) *UseCase {
	uc := NewUseCase(repo, noshowSvc, notifier, txManagerFake{}, nopLogger{})
	uc.timeProvider = &fixedTimeProvider{now: testNow}
	return uc
}

// seedNegotiationHistory журнал: confirmed -> reschedule_requested_by_client
func seedNegotiationHistory(repo *apptRepoFake) {
	confirmed := domain.StatusConfirmed
	repo.history = append(repo.history, &domain.AppointmentHistory{
		AppointmentID:  42,
		PreviousStatus: &confirmed,
		NewStatus:      domain.StatusRescheduleRequestedByClient,
		ActorUserID:    100,
		ActorRole:      domain.RoleClient,
	})
}

func TestExecute_AcceptCommitsProposedWindow(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)
	noshowSvc := &noshowStub{}
	notifier := &notifierStub{}
	uc := newTestUseCase(repo, noshowSvc, notifier)

	proposedStart := *repo.appt.ProposedWindowStartUTC

	appt, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusRescheduleConfirmed, appt.Status)
	assert.Equal(t, proposedStart, appt.WindowStartUTC)
	assert.Nil(t, appt.ProposedWindowStartUTC)
	assert.Nil(t, appt.RescheduleRequestedByRole)

	// Окно изменилось - риск пересчитан, автор запроса уведомлен
	assert.Equal(t, 1, noshowSvc.recalculated)
	assert.Equal(t, []int64{100}, notifier.sent)

	last := repo.history[len(repo.history)-1]
	assert.Equal(t, domain.StatusRescheduleConfirmed, last.NewStatus)
	require.NotNil(t, last.PreviousStatus)
	assert.Equal(t, domain.StatusRescheduleRequestedByClient, *last.PreviousStatus)
}

func TestExecute_AcceptFailsWhenWindowTaken(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)

	// Предложенное окно заняли за время переговоров
	proposedStart := *repo.appt.ProposedWindowStartUTC
	repo.blocking = []*domain.Appointment{
		{
			ID:             99,
			ProviderID:     200,
			WindowStartUTC: proposedStart.Add(30 * time.Minute),
			WindowEndUTC:   proposedStart.Add(90 * time.Minute),
			Status:         domain.StatusConfirmed,
		},
	}
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// Визит остался в переговорах
	assert.Equal(t, domain.StatusRescheduleRequestedByClient, repo.appt.Status)
	assert.NotNil(t, repo.appt.ProposedWindowStartUTC)
}

func TestExecute_AcceptIgnoresOwnWindowInConflictCheck(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)

	// Сам визит попадает в выборку блокирующих - не конфликт
	self := *repo.appt
	self.WindowStartUTC = *repo.appt.ProposedWindowStartUTC
	self.WindowEndUTC = *repo.appt.ProposedWindowEndUTC
	repo.blocking = []*domain.Appointment{&self}

	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	appt, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRescheduleConfirmed, appt.Status)
}

func TestExecute_RejectRestoresPreNegotiationStatus(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)
	notifier := &notifierStub{}
	uc := newTestUseCase(repo, &noshowStub{}, notifier)

	originalStart := repo.appt.WindowStartUTC
	reason := "окно не подходит"

	appt, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        false,
		Reason:        &reason,
	})
	require.NoError(t, err)

	// Статус восстановлен из журнала, исходное окно не тронуто
	assert.Equal(t, domain.StatusConfirmed, appt.Status)
	assert.Equal(t, originalStart, appt.WindowStartUTC)
	assert.Nil(t, appt.ProposedWindowStartUTC)
	assert.Equal(t, []int64{100}, notifier.sent)

	last := repo.history[len(repo.history)-1]
	assert.Equal(t, domain.StatusConfirmed, last.NewStatus)
	require.NotNil(t, last.Reason)
	assert.Equal(t, reason, *last.Reason)
}

func TestExecute_RequesterCannotRespondToOwnRequest(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   100,
		ActorRole:     domain.RoleClient,
		Accept:        true,
	})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestExecute_StrangerCannotRespond(t *testing.T) {
	repo := &apptRepoFake{appt: negotiatingAppointment()}
	seedNegotiationHistory(repo)
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   999,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestExecute_NotInNegotiation(t *testing.T) {
	appt := negotiatingAppointment()
	appt.Status = domain.StatusConfirmed
	appt.ProposedWindowStartUTC = nil
	appt.ProposedWindowEndUTC = nil
	appt.RescheduleRequestedByRole = nil

	repo := &apptRepoFake{appt: appt}
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestExecute_AppointmentNotFound(t *testing.T) {
	uc := newTestUseCase(&apptRepoFake{}, &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: 42,
		ActorUserID:   200,
		ActorRole:     domain.RoleProvider,
		Accept:        true,
	})
	require.ErrorIs(t, err, ErrAppointmentNotFound)
}
