package domain

// Default configuration values
const (
	DefaultSlotDurationMinutes  = 30
	DefaultConfirmationSLAHours = 24
	DefaultPinLength            = 6
	DefaultPinTTLMinutes        = 10
	DefaultPinMaxFailedAttempts = 5
	DefaultExpireBatchSize      = 100
	DefaultQueuePageSize        = 50
)

// Business validation constants
const (
	MinSlotDurationMinutes  = 15
	MaxSlotDurationMinutes  = 480 // 8 часов
	MaxReasonLength         = 500
	MaxOperationalStatusLen = 100
	MaxSignatureNameLength  = 200
	MaxQueuePageSize        = 200
)

// Default risk score deltas and bands (могут быть переопределены конфигом)
const (
	DefaultDeltaBothPresenceNotConfirmed     = 40
	DefaultDeltaClientPresenceNotConfirmed   = 25
	DefaultDeltaProviderPresenceNotConfirmed = 25
	DefaultDeltaWindowWithin2h               = 30
	DefaultDeltaWindowWithin6h               = 15
	DefaultDeltaPriorNoShowHistory           = 20

	DefaultMediumRiskThreshold = 40
	DefaultHighRiskThreshold   = 70
)

// Time format constants
const (
	ClockFormat = "15:04" // HH:MM
	DateFormat  = "2006-01-02"
)

// TerminalStatuses список терминальных статусов визитов
// Используется для фильтрации при проверке конфликтов календаря
var TerminalStatuses = []AppointmentStatus{
	StatusRejectedByProvider,
	StatusExpiredWithoutProviderAction,
	StatusCancelledByClient,
	StatusCancelledByProvider,
	StatusCompleted,
}

// AllStatuses полный список статусов (для валидации на границе API)
var AllStatuses = []AppointmentStatus{
	StatusPendingProviderConfirmation,
	StatusConfirmed,
	StatusRejectedByProvider,
	StatusExpiredWithoutProviderAction,
	StatusCancelledByClient,
	StatusCancelledByProvider,
	StatusRescheduleRequestedByClient,
	StatusRescheduleRequestedByProvider,
	StatusRescheduleConfirmed,
	StatusArrived,
	StatusInProgress,
	StatusCompleted,
}

// ToAppointmentStatus валидирует и конвертирует строку в статус
func ToAppointmentStatus(s string) (AppointmentStatus, bool) {
	status := AppointmentStatus(s)
	for _, valid := range AllStatuses {
		if status == valid {
			return status, true
		}
	}
	return "", false
}
