package expire_appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
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

// apptRepoFake хранит pending визиты и воспроизводит выборку по дедлайну
type apptRepoFake struct {
	appointments map[int64]*domain.Appointment
	history      []*domain.AppointmentHistory
}

func newApptRepoFake() *apptRepoFake {
	return &apptRepoFake{appointments: map[int64]*domain.Appointment{}}
}

func (f *apptRepoFake) add(id int64, clientID int64, expiresAt time.Time) {
	f.appointments[id] = &domain.Appointment{
		ID:           id,
		ClientID:     clientID,
		ProviderID:   200,
		Status:       domain.StatusPendingProviderConfirmation,
		ExpiresAtUTC: &expiresAt,
	}
}

func (f *apptRepoFake) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]*domain.Appointment, error) {
	out := make([]*domain.Appointment, 0)
	for _, appt := range f.appointments {
		if len(out) >= limit {
			break
		}
		if appt.Status != domain.StatusPendingProviderConfirmation {
			continue
		}
		if appt.ExpiresAtUTC != nil && appt.ExpiresAtUTC.Before(now) {
			clone := *appt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *apptRepoFake) UpdateStatus(_ context.Context, id int64, status domain.AppointmentStatus) error {
	f.appointments[id].Status = status
	return nil
}

func (f *apptRepoFake) AppendHistory(_ context.Context, h *domain.AppointmentHistory) error {
	f.history = append(f.history, h)
	return nil
}

type noshowStub struct {
	resolved []int64
}

func (s *noshowStub) ResolveForAppointment(_ context.Context, appointmentID int64, _ string, _ time.Time) error {
	s.resolved = append(s.resolved, appointmentID)
	return nil
}

type notifierStub struct {
	sent []int64
}

func (s *notifierStub) Notify(_ context.Context, recipientID int64, _, _, _ string) error {
	s.sent = append(s.sent, recipientID)
	return nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestUseCase(repo *apptRepoFake, noshowSvc *noshowStub, notifier *notifierStub) *UseCase {
	uc := NewUseCase(repo, noshowSvc, notifier, txManagerFake{}, 100, nopLogger{})
	uc.timeProvider = &fixedTimeProvider{now: testNow}
	return uc
}

func TestExecute_ExpiresOverdueAppointments(t *testing.T) {
	repo := newApptRepoFake()
	repo.add(1, 100, testNow.Add(-time.Hour))
	repo.add(2, 101, testNow.Add(-time.Minute))
	repo.add(3, 102, testNow.Add(time.Hour)) // дедлайн еще не прошел

	noshowSvc := &noshowStub{}
	notifier := &notifierStub{}
	uc := newTestUseCase(repo, noshowSvc, notifier)

	resp, err := uc.Execute(context.Background(), &Request{})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.ProcessedCount)
	assert.Equal(t, domain.StatusExpiredWithoutProviderAction, repo.appointments[1].Status)
	assert.Equal(t, domain.StatusExpiredWithoutProviderAction, repo.appointments[2].Status)
	assert.Equal(t, domain.StatusPendingProviderConfirmation, repo.appointments[3].Status)

	require.Len(t, repo.history, 2)
	for _, h := range repo.history {
		assert.Equal(t, domain.StatusExpiredWithoutProviderAction, h.NewStatus)
		assert.Equal(t, domain.RoleSystem, h.ActorRole)
		require.NotNil(t, h.PreviousStatus)
		assert.Equal(t, domain.StatusPendingProviderConfirmation, *h.PreviousStatus)
		// Строка аудита несет момент перехода, а не нулевое время
		assert.True(t, h.OccurredAtUTC.Equal(testNow))
	}

	assert.ElementsMatch(t, []int64{1, 2}, noshowSvc.resolved)
	assert.ElementsMatch(t, []int64{100, 101}, notifier.sent)
}

func TestExecute_RerunFindsNothing(t *testing.T) {
	repo := newApptRepoFake()
	repo.add(1, 100, testNow.Add(-time.Hour))
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	resp, err := uc.Execute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCount)

	// Дедлайны лежат в данных: повторный запуск ничего не находит
	resp, err = uc.Execute(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ProcessedCount)
}

func TestExecute_BatchSizeLimitsPage(t *testing.T) {
	repo := newApptRepoFake()
	for i := int64(1); i <= 5; i++ {
		repo.add(i, 100+i, testNow.Add(-time.Hour))
	}
	uc := newTestUseCase(repo, &noshowStub{}, &notifierStub{})

	resp, err := uc.Execute(context.Background(), &Request{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ProcessedCount)

	resp, err = uc.Execute(context.Background(), &Request{BatchSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ProcessedCount)
}

func TestExecute_NegativeBatchSizeRejected(t *testing.T) {
	uc := newTestUseCase(newApptRepoFake(), &noshowStub{}, &notifierStub{})

	_, err := uc.Execute(context.Background(), &Request{BatchSize: -1})
	require.ErrorIs(t, err, ErrInvalidInput)
}
