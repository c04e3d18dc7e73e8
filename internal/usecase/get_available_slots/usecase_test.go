package get_available_slots

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

type apptRepoStub struct {
	appointments []*domain.Appointment
}

func (s *apptRepoStub) ListBlockingByProviderWindow(_ context.Context, _ int64, _, _ time.Time) ([]*domain.Appointment, error) {
	return s.appointments, nil
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

// Вторник 2026-03-10
var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func newTestUseCase(appts *apptRepoStub, avail *availabilityRepoStub, now time.Time) *UseCase {
	uc := NewUseCase(appts, avail, 60, nopLogger{})
	uc.timeProvider = &fixedTimeProvider{now: now}
	return uc
}

func weekdayRule(weekday time.Weekday, start, end string) *domain.ProviderAvailabilityRule {
	return &domain.ProviderAvailabilityRule{
		ID:         1,
		ProviderID: 200,
		DayOfWeek:  weekday,
		StartTime:  start,
		EndTime:    end,
	}
}

func TestExecute_SlicesRuleIntoSlots(t *testing.T) {
	avail := &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{
		weekdayRule(time.Tuesday, "09:00", "12:00"),
	}}
	uc := newTestUseCase(&apptRepoStub{}, avail, day)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 3)
	assert.Equal(t, at(9, 0), resp.Slots[0].StartUTC)
	assert.Equal(t, at(10, 0), resp.Slots[0].EndUTC)
	assert.Equal(t, at(11, 0), resp.Slots[2].StartUTC)
	assert.Equal(t, 60, resp.SlotDurationMinutes)
}

func TestExecute_AppointmentBlocksOverlappingSlots(t *testing.T) {
	avail := &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{
		weekdayRule(time.Tuesday, "09:00", "13:00"),
	}}
	appts := &apptRepoStub{appointments: []*domain.Appointment{
		{
			ID:             7,
			ProviderID:     200,
			WindowStartUTC: at(10, 30),
			WindowEndUTC:   at(11, 30),
			Status:         domain.StatusConfirmed,
		},
	}}
	uc := newTestUseCase(appts, avail, day)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	// 09:00-10:30 вмещает один часовой слот, 11:30-13:00 тоже один
	require.Len(t, resp.Slots, 2)
	assert.Equal(t, at(9, 0), resp.Slots[0].StartUTC)
	assert.Equal(t, at(11, 30), resp.Slots[1].StartUTC)
}

func TestExecute_AdjacentAppointmentDoesNotBlock(t *testing.T) {
	avail := &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{
		weekdayRule(time.Tuesday, "09:00", "11:00"),
	}}
	// Визит заканчивается ровно в 10:00 - полуинтервалы не пересекаются
	appts := &apptRepoStub{appointments: []*domain.Appointment{
		{
			ID:             7,
			ProviderID:     200,
			WindowStartUTC: at(9, 0),
			WindowEndUTC:   at(10, 0),
			Status:         domain.StatusConfirmed,
		},
	}}
	uc := newTestUseCase(appts, avail, day)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 1)
	assert.Equal(t, at(10, 0), resp.Slots[0].StartUTC)
}

func TestExecute_BlockExceptionOverridesRule(t *testing.T) {
	avail := &availabilityRepoStub{
		rules: []*domain.ProviderAvailabilityRule{
			weekdayRule(time.Tuesday, "09:00", "12:00"),
		},
		exceptions: []*domain.ProviderAvailabilityException{
			{
				ID:             1,
				ProviderID:     200,
				Kind:           domain.ExceptionBlock,
				WindowStartUTC: at(10, 0),
				WindowEndUTC:   at(12, 0),
			},
		},
	}
	uc := newTestUseCase(&apptRepoStub{}, avail, day)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 1)
	assert.Equal(t, at(9, 0), resp.Slots[0].StartUTC)
}

func TestExecute_OpenExceptionAddsWindowOutsideRules(t *testing.T) {
	avail := &availabilityRepoStub{
		// Правил на вторник нет вовсе
		rules: []*domain.ProviderAvailabilityRule{
			weekdayRule(time.Friday, "09:00", "12:00"),
		},
		exceptions: []*domain.ProviderAvailabilityException{
			{
				ID:             1,
				ProviderID:     200,
				Kind:           domain.ExceptionOpen,
				WindowStartUTC: at(14, 0),
				WindowEndUTC:   at(16, 0),
			},
		},
	}
	uc := newTestUseCase(&apptRepoStub{}, avail, day)

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 2)
	assert.Equal(t, at(14, 0), resp.Slots[0].StartUTC)
	assert.Equal(t, at(15, 0), resp.Slots[1].StartUTC)
}

func TestExecute_PastSlotsFiltered(t *testing.T) {
	avail := &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{
		weekdayRule(time.Tuesday, "09:00", "12:00"),
	}}
	// Сейчас 10:30 - слоты 09:00 и 10:00 уже в прошлом
	uc := newTestUseCase(&apptRepoStub{}, avail, at(10, 30))

	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID: 200,
		FromUTC:    day,
		ToUTC:      day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 1)
	assert.Equal(t, at(11, 0), resp.Slots[0].StartUTC)
}

func TestExecute_CustomSlotDuration(t *testing.T) {
	avail := &availabilityRepoStub{rules: []*domain.ProviderAvailabilityRule{
		weekdayRule(time.Tuesday, "09:00", "10:00"),
	}}
	uc := newTestUseCase(&apptRepoStub{}, avail, day)

	duration := 30
	resp, err := uc.Execute(context.Background(), &Request{
		ProviderID:          200,
		FromUTC:             day,
		ToUTC:               day.AddDate(0, 0, 1),
		SlotDurationMinutes: &duration,
	})
	require.NoError(t, err)

	require.Len(t, resp.Slots, 2)
	assert.Equal(t, 30, resp.SlotDurationMinutes)
}

func TestExecute_ValidationErrors(t *testing.T) {
	uc := newTestUseCase(&apptRepoStub{}, &availabilityRepoStub{}, day)

	_, err := uc.Execute(context.Background(), &Request{ProviderID: 0, FromUTC: day, ToUTC: day.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = uc.Execute(context.Background(), &Request{ProviderID: 200, FromUTC: day.Add(time.Hour), ToUTC: day})
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	tooShort := domain.MinSlotDurationMinutes - 1
	_, err = uc.Execute(context.Background(), &Request{
		ProviderID:          200,
		FromUTC:             day,
		ToUTC:               day.Add(time.Hour),
		SlotDurationMinutes: &tooShort,
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}
