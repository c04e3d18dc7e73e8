package domain

import "time"

// AppointmentStatus represents the lifecycle status of an appointment
type AppointmentStatus string

const (
	StatusPendingProviderConfirmation   AppointmentStatus = "pending_provider_confirmation"
	StatusConfirmed                     AppointmentStatus = "confirmed"
	StatusRejectedByProvider            AppointmentStatus = "rejected_by_provider"
	StatusExpiredWithoutProviderAction  AppointmentStatus = "expired_without_provider_action"
	StatusCancelledByClient             AppointmentStatus = "cancelled_by_client"
	StatusCancelledByProvider           AppointmentStatus = "cancelled_by_provider"
	StatusRescheduleRequestedByClient   AppointmentStatus = "reschedule_requested_by_client"
	StatusRescheduleRequestedByProvider AppointmentStatus = "reschedule_requested_by_provider"
	StatusRescheduleConfirmed           AppointmentStatus = "reschedule_confirmed"
	StatusArrived                       AppointmentStatus = "arrived"
	StatusInProgress                    AppointmentStatus = "in_progress"
	StatusCompleted                     AppointmentStatus = "completed"
)

// Appointment represents a scheduled in-person service visit
type Appointment struct {
	ID               int64
	ServiceRequestID int64
	ClientID         int64
	ProviderID       int64
	WindowStartUTC   time.Time
	WindowEndUTC     time.Time
	Status           AppointmentStatus
	ExpiresAtUTC     *time.Time // дедлайн подтверждения провайдером (только для pending)
	Reason           *string

	// Поля переговоров о переносе (заполнены только во время переговоров)
	ProposedWindowStartUTC    *time.Time
	ProposedWindowEndUTC      *time.Time
	RescheduleRequestedByRole *ActorRole
	RescheduleRequestReason   *string

	// Отметка о прибытии: либо геолокация, либо manual reason
	ArrivedAtUTC          *time.Time
	ArrivedLatitude       *float64
	ArrivedLongitude      *float64
	ArrivedAccuracyMeters *float64
	ArrivedManualReason   *string

	StartedAtUTC *time.Time

	// Операционный статус визита, ортогонален статусу бронирования
	OperationalStatus             *string
	OperationalStatusUpdatedAtUTC *time.Time
	OperationalStatusReason       *string

	// Последний рассчитанный риск no-show
	NoShowRiskLevel           *RiskLevel
	NoShowRiskScore           int
	NoShowRiskReasonsCsv      *string
	NoShowRiskCalculatedAtUTC *time.Time

	CancellationReason *string
	CancelledAtUTC     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true if the appointment reached a terminal status
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case StatusRejectedByProvider,
		StatusExpiredWithoutProviderAction,
		StatusCancelledByClient,
		StatusCancelledByProvider,
		StatusCompleted:
		return true
	}
	return false
}

// IsBlockingCalendar returns true if the appointment window occupies the
// provider's calendar for conflict checks
func (a *Appointment) IsBlockingCalendar() bool {
	return !a.IsTerminal()
}

// CanBeCancelled returns true if the appointment can still be cancelled
func (a *Appointment) CanBeCancelled() bool {
	return !a.IsTerminal() && a.Status != StatusCompleted
}

// CanBeConfirmed returns true if the provider can confirm or reject
func (a *Appointment) CanBeConfirmed() bool {
	return a.Status == StatusPendingProviderConfirmation
}

// CanRequestReschedule returns true if a reschedule negotiation can start
func (a *Appointment) CanRequestReschedule() bool {
	return a.Status == StatusConfirmed || a.Status == StatusRescheduleConfirmed
}

// IsInRescheduleNegotiation returns true while a proposed window awaits a response
func (a *Appointment) IsInRescheduleNegotiation() bool {
	return a.Status == StatusRescheduleRequestedByClient || a.Status == StatusRescheduleRequestedByProvider
}

// CanMarkArrived returns true if the provider can register arrival
func (a *Appointment) CanMarkArrived() bool {
	return a.Status == StatusConfirmed || a.Status == StatusRescheduleConfirmed
}

// CanStartExecution returns true if the provider can start the work
func (a *Appointment) CanStartExecution() bool {
	return a.Status == StatusArrived
}

// CanGenerateCompletionPin returns true if completion confirmation can begin
func (a *Appointment) CanGenerateCompletionPin() bool {
	return a.Status == StatusInProgress
}

// IsPendingExpired returns true if the provider missed the confirmation deadline
func (a *Appointment) IsPendingExpired(now time.Time) bool {
	return a.Status == StatusPendingProviderConfirmation &&
		a.ExpiresAtUTC != nil &&
		now.After(*a.ExpiresAtUTC)
}

// Window returns the scheduled appointment window
func (a *Appointment) Window() TimeWindow {
	return TimeWindow{Start: a.WindowStartUTC, End: a.WindowEndUTC}
}

// ClientPresenceConfirmed - сигнал для risk scorer: клиент ничем не подтверждает
// присутствие отдельно, подтверждением считается само создание и неотмененный статус
// плюс отсутствие открытых переговоров о переносе
func (a *Appointment) ClientPresenceConfirmed() bool {
	return !a.IsInRescheduleNegotiation()
}

// ProviderPresenceConfirmed - провайдер подтвердил присутствие, если принял
// бронирование и (для окна ближе 2ч) отметил прибытие
func (a *Appointment) ProviderPresenceConfirmed() bool {
	if a.ArrivedAtUTC != nil {
		return true
	}
	return a.Status == StatusConfirmed || a.Status == StatusRescheduleConfirmed ||
		a.Status == StatusArrived || a.Status == StatusInProgress
}

// AppointmentListFilter фильтр для выборки визитов
type AppointmentListFilter struct {
	ClientID        *int64
	ProviderID      *int64
	StartFromUTC    *time.Time         // только визиты с окном, начинающимся не раньше
	StartToUTC      *time.Time         // только визиты с окном, начинающимся раньше
	Status          *AppointmentStatus // фильтр по статусу (опционально)
	IncludeTerminal bool               // включать ли терминальные визиты
}
