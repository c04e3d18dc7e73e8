package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointment_StatusPredicates(t *testing.T) {
	tests := []struct {
		status        AppointmentStatus
		terminal      bool
		cancellable   bool
		confirmable   bool
		reschedulable bool
		negotiating   bool
	}{
		{StatusPendingProviderConfirmation, false, true, true, false, false},
		{StatusConfirmed, false, true, false, true, false},
		{StatusRescheduleRequestedByClient, false, true, false, false, true},
		{StatusRescheduleRequestedByProvider, false, true, false, false, true},
		{StatusRescheduleConfirmed, false, true, false, true, false},
		{StatusArrived, false, true, false, false, false},
		{StatusInProgress, false, true, false, false, false},
		{StatusCompleted, true, false, false, false, false},
		{StatusRejectedByProvider, true, false, false, false, false},
		{StatusExpiredWithoutProviderAction, true, false, false, false, false},
		{StatusCancelledByClient, true, false, false, false, false},
		{StatusCancelledByProvider, true, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			a := &Appointment{Status: tt.status}

			assert.Equal(t, tt.terminal, a.IsTerminal())
			assert.Equal(t, tt.cancellable, a.CanBeCancelled())
			assert.Equal(t, tt.confirmable, a.CanBeConfirmed())
			assert.Equal(t, tt.reschedulable, a.CanRequestReschedule())
			assert.Equal(t, tt.negotiating, a.IsInRescheduleNegotiation())
			// Календарь блокируют все нетерминальные визиты
			assert.Equal(t, !tt.terminal, a.IsBlockingCalendar())
		})
	}
}

func TestAppointment_ExecutionFlowPredicates(t *testing.T) {
	assert.True(t, (&Appointment{Status: StatusConfirmed}).CanMarkArrived())
	assert.True(t, (&Appointment{Status: StatusRescheduleConfirmed}).CanMarkArrived())
	assert.False(t, (&Appointment{Status: StatusArrived}).CanMarkArrived())

	assert.True(t, (&Appointment{Status: StatusArrived}).CanStartExecution())
	assert.False(t, (&Appointment{Status: StatusConfirmed}).CanStartExecution())

	assert.True(t, (&Appointment{Status: StatusInProgress}).CanGenerateCompletionPin())
	assert.False(t, (&Appointment{Status: StatusArrived}).CanGenerateCompletionPin())
}

func TestAppointment_IsPendingExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Appointment{Status: StatusPendingProviderConfirmation, ExpiresAtUTC: &past}).IsPendingExpired(now))
	assert.False(t, (&Appointment{Status: StatusPendingProviderConfirmation, ExpiresAtUTC: &future}).IsPendingExpired(now))
	// Дедлайн есть только у pending
	assert.False(t, (&Appointment{Status: StatusConfirmed, ExpiresAtUTC: &past}).IsPendingExpired(now))
	assert.False(t, (&Appointment{Status: StatusPendingProviderConfirmation}).IsPendingExpired(now))
}

func TestTimeWindow_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	window := TimeWindow{Start: base, End: base.Add(time.Hour)}

	assert.True(t, window.Overlaps(TimeWindow{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)}))
	assert.True(t, window.Overlaps(TimeWindow{Start: base.Add(-time.Hour), End: base.Add(2 * time.Hour)}))

	// Смежные полуинтервалы не пересекаются
	assert.False(t, window.Overlaps(TimeWindow{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}))
	assert.False(t, window.Overlaps(TimeWindow{Start: base.Add(-time.Hour), End: base}))
}

func TestToAppointmentStatus(t *testing.T) {
	status, ok := ToAppointmentStatus("confirmed")
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, status)

	_, ok = ToAppointmentStatus("teleported")
	assert.False(t, ok)
}

func TestIsOperationAllowed(t *testing.T) {
	tests := []struct {
		op      Operation
		role    ActorRole
		allowed bool
	}{
		{OpCreate, RoleClient, true},
		{OpCreate, RoleProvider, false},
		{OpConfirm, RoleProvider, true},
		{OpConfirm, RoleClient, false},
		{OpCancel, RoleClient, true},
		{OpCancel, RoleProvider, true},
		{OpCancel, RoleOperator, false},
		{OpMarkArrived, RoleProvider, true},
		{OpMarkArrived, RoleClient, false},
		{OpConfirmCompletion, RoleClient, true},
		{OpConfirmCompletion, RoleProvider, false},
		{OpGenerateCompletionPin, RoleProvider, true},
		{OpEscalateCompletion, RoleOperator, true},
		{OpEscalateCompletion, RoleClient, false},
		{OpExpirePending, RoleSystem, true},
		{OpExpirePending, RoleOperator, false},
		{OpResolveNoShowQueue, RoleOperator, true},
		{OpResolveNoShowQueue, RoleSystem, true},
		{OpResolveNoShowQueue, RoleProvider, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.allowed, IsOperationAllowed(tt.op, tt.role))
		})
	}
}

func TestCounterpartRole(t *testing.T) {
	assert.Equal(t, RoleProvider, CounterpartRole(RoleClient))
	assert.Equal(t, RoleClient, CounterpartRole(RoleProvider))
}

func TestValidActorRole(t *testing.T) {
	for _, role := range []ActorRole{RoleClient, RoleProvider, RoleSystem, RoleOperator} {
		assert.True(t, ValidActorRole(role))
	}
	assert.False(t, ValidActorRole("admin"))
}
