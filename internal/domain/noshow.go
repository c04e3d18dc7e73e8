package domain

import "time"

// RiskLevel discrete no-show risk level
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Фиксированный словарь причин риска, в порядке оценки скорером
const (
	RiskReasonBothPresenceNotConfirmed     = "both_presence_not_confirmed"
	RiskReasonClientPresenceNotConfirmed   = "client_presence_not_confirmed"
	RiskReasonProviderPresenceNotConfirmed = "provider_presence_not_confirmed"
	RiskReasonWindowWithin2h               = "window_within_2h"
	RiskReasonWindowWithin6h               = "window_within_6h"
	RiskReasonPriorNoShowHistory           = "prior_no_show_history"
)

// NoShowQueueItemStatus lifecycle of a triage queue item
type NoShowQueueItemStatus string

const (
	QueueItemOpen       NoShowQueueItemStatus = "open"
	QueueItemInProgress NoShowQueueItemStatus = "in_progress"
	QueueItemResolved   NoShowQueueItemStatus = "resolved"
)

// NoShowQueueItem derived triage worklist entry, upserted by appointment id.
// City and Category are denormalized from the service request so operators
// can slice the queue without joins to an external service
type NoShowQueueItem struct {
	ID                   int64
	ServiceAppointmentID int64
	RiskLevel            RiskLevel
	Score                int
	ReasonsCsv           string
	City                 string
	Category             string
	Status               NoShowQueueItemStatus
	FirstDetectedAtUTC   time.Time
	LastDetectedAtUTC    time.Time
	ResolvedAtUTC        *time.Time
	ResolutionNote       *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsOpen returns true while the item still needs operator attention
func (i *NoShowQueueItem) IsOpen() bool {
	return i.Status == QueueItemOpen || i.Status == QueueItemInProgress
}

// NoShowQueueFilter фильтр триажной выборки
type NoShowQueueFilter struct {
	Status    *NoShowQueueItemStatus
	RiskLevel *RiskLevel
	City      *string
	Category  *string
	Limit     int
	Offset    int
}
