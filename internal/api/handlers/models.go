package handlers

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

// AppointmentResponse общая HTTP модель визита
// Используется всеми endpoint-ами, возвращающими визит
type AppointmentResponse struct {
	ID               int64   `json:"id"`
	ServiceRequestID int64   `json:"serviceRequestId"`
	ClientID         int64   `json:"clientId"`
	ProviderID       int64   `json:"providerId"`
	WindowStartUTC   string  `json:"windowStartUtc"`
	WindowEndUTC     string  `json:"windowEndUtc"`
	Status           string  `json:"status"`
	ExpiresAtUTC     *string `json:"expiresAtUtc,omitempty"`
	Reason           *string `json:"reason,omitempty"`

	ProposedWindowStartUTC    *string `json:"proposedWindowStartUtc,omitempty"`
	ProposedWindowEndUTC      *string `json:"proposedWindowEndUtc,omitempty"`
	RescheduleRequestedByRole *string `json:"rescheduleRequestedByRole,omitempty"`
	RescheduleRequestReason   *string `json:"rescheduleRequestReason,omitempty"`

	ArrivedAtUTC          *string  `json:"arrivedAtUtc,omitempty"`
	ArrivedLatitude       *float64 `json:"arrivedLatitude,omitempty"`
	ArrivedLongitude      *float64 `json:"arrivedLongitude,omitempty"`
	ArrivedAccuracyMeters *float64 `json:"arrivedAccuracyMeters,omitempty"`
	ArrivedManualReason   *string  `json:"arrivedManualReason,omitempty"`

	StartedAtUTC *string `json:"startedAtUtc,omitempty"`

	OperationalStatus             *string `json:"operationalStatus,omitempty"`
	OperationalStatusUpdatedAtUTC *string `json:"operationalStatusUpdatedAtUtc,omitempty"`
	OperationalStatusReason       *string `json:"operationalStatusReason,omitempty"`

	NoShowRiskLevel      *string `json:"noShowRiskLevel,omitempty"`
	NoShowRiskScore      int     `json:"noShowRiskScore"`
	NoShowRiskReasonsCsv *string `json:"noShowRiskReasons,omitempty"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledAtUTC     *string `json:"cancelledAtUtc,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// FromAppointment конвертирует доменную модель в HTTP ответ
func FromAppointment(a *domain.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:               a.ID,
		ServiceRequestID: a.ServiceRequestID,
		ClientID:         a.ClientID,
		ProviderID:       a.ProviderID,
		WindowStartUTC:   a.WindowStartUTC.Format(time.RFC3339),
		WindowEndUTC:     a.WindowEndUTC.Format(time.RFC3339),
		Status:           string(a.Status),
		ExpiresAtUTC:     formatTimePtr(a.ExpiresAtUTC),
		Reason:           a.Reason,

		ProposedWindowStartUTC:  formatTimePtr(a.ProposedWindowStartUTC),
		ProposedWindowEndUTC:    formatTimePtr(a.ProposedWindowEndUTC),
		RescheduleRequestReason: a.RescheduleRequestReason,

		ArrivedAtUTC:          formatTimePtr(a.ArrivedAtUTC),
		ArrivedLatitude:       a.ArrivedLatitude,
		ArrivedLongitude:      a.ArrivedLongitude,
		ArrivedAccuracyMeters: a.ArrivedAccuracyMeters,
		ArrivedManualReason:   a.ArrivedManualReason,
		StartedAtUTC:          formatTimePtr(a.StartedAtUTC),

		OperationalStatus:             a.OperationalStatus,
		OperationalStatusUpdatedAtUTC: formatTimePtr(a.OperationalStatusUpdatedAtUTC),
		OperationalStatusReason:       a.OperationalStatusReason,

		NoShowRiskScore:      a.NoShowRiskScore,
		NoShowRiskReasonsCsv: a.NoShowRiskReasonsCsv,
		CancellationReason:   a.CancellationReason,
		CancelledAtUTC:       formatTimePtr(a.CancelledAtUTC),
		CreatedAt:            a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            a.UpdatedAt.Format(time.RFC3339),
	}

	if a.RescheduleRequestedByRole != nil {
		resp.RescheduleRequestedByRole = ptr.Ptr(string(*a.RescheduleRequestedByRole))
	}
	if a.NoShowRiskLevel != nil {
		resp.NoShowRiskLevel = ptr.Ptr(string(*a.NoShowRiskLevel))
	}
	return resp
}

// FromAppointments конвертирует срез визитов
func FromAppointments(appts []*domain.Appointment) []*AppointmentResponse {
	out := make([]*AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, FromAppointment(a))
	}
	return out
}

// HistoryEntryResponse HTTP модель записи журнала переходов
type HistoryEntryResponse struct {
	ID                        int64                   `json:"id"`
	AppointmentID             int64                   `json:"appointmentId"`
	PreviousStatus            *string                 `json:"previousStatus,omitempty"`
	NewStatus                 string                  `json:"newStatus"`
	ActorUserID               int64                   `json:"actorUserId"`
	ActorRole                 string                  `json:"actorRole"`
	Reason                    *string                 `json:"reason,omitempty"`
	PreviousOperationalStatus *string                 `json:"previousOperationalStatus,omitempty"`
	NewOperationalStatus      *string                 `json:"newOperationalStatus,omitempty"`
	Metadata                  *domain.HistoryMetadata `json:"metadata,omitempty"`
	OccurredAtUTC             string                  `json:"occurredAtUtc"`
}

// FromHistory конвертирует записи журнала в HTTP ответ
func FromHistory(entries []*domain.AppointmentHistory) []*HistoryEntryResponse {
	out := make([]*HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := &HistoryEntryResponse{
			ID:                        e.ID,
			AppointmentID:             e.AppointmentID,
			NewStatus:                 string(e.NewStatus),
			ActorUserID:               e.ActorUserID,
			ActorRole:                 string(e.ActorRole),
			Reason:                    e.Reason,
			PreviousOperationalStatus: e.PreviousOperationalStatus,
			NewOperationalStatus:      e.NewOperationalStatus,
			Metadata:                  e.Metadata,
			OccurredAtUTC:             e.OccurredAtUTC.Format(time.RFC3339),
		}
		if e.PreviousStatus != nil {
			resp.PreviousStatus = ptr.Ptr(string(*e.PreviousStatus))
		}
		out = append(out, resp)
	}
	return out
}

// QueueItemResponse HTTP модель элемента триажной очереди no-show
type QueueItemResponse struct {
	ID                   int64   `json:"id"`
	ServiceAppointmentID int64   `json:"serviceAppointmentId"`
	RiskLevel            string  `json:"riskLevel"`
	Score                int     `json:"score"`
	Reasons              string  `json:"reasons"`
	City                 string  `json:"city,omitempty"`
	Category             string  `json:"category,omitempty"`
	Status               string  `json:"status"`
	FirstDetectedAtUTC   string  `json:"firstDetectedAtUtc"`
	LastDetectedAtUTC    string  `json:"lastDetectedAtUtc"`
	ResolvedAtUTC        *string `json:"resolvedAtUtc,omitempty"`
	ResolutionNote       *string `json:"resolutionNote,omitempty"`
}

// FromQueueItem конвертирует элемент очереди в HTTP ответ
func FromQueueItem(i *domain.NoShowQueueItem) *QueueItemResponse {
	return &QueueItemResponse{
		ID:                   i.ID,
		ServiceAppointmentID: i.ServiceAppointmentID,
		RiskLevel:            string(i.RiskLevel),
		Score:                i.Score,
		Reasons:              i.ReasonsCsv,
		City:                 i.City,
		Category:             i.Category,
		Status:               string(i.Status),
		FirstDetectedAtUTC:   i.FirstDetectedAtUTC.Format(time.RFC3339),
		LastDetectedAtUTC:    i.LastDetectedAtUTC.Format(time.RFC3339),
		ResolvedAtUTC:        formatTimePtr(i.ResolvedAtUTC),
		ResolutionNote:       i.ResolutionNote,
	}
}

// FromQueueItems конвертирует срез элементов очереди
func FromQueueItems(items []*domain.NoShowQueueItem) []*QueueItemResponse {
	out := make([]*QueueItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, FromQueueItem(i))
	}
	return out
}

// CompletionTermResponse HTTP модель условий завершения работ
// PIN и его хеш наружу не отдаются
type CompletionTermResponse struct {
	ID                    int64   `json:"id"`
	ServiceRequestID      int64   `json:"serviceRequestId"`
	ServiceAppointmentID  int64   `json:"serviceAppointmentId"`
	ProviderID            int64   `json:"providerId"`
	ClientID              int64   `json:"clientId"`
	Status                string  `json:"status"`
	AcceptedWithMethod    *string `json:"acceptedWithMethod,omitempty"`
	PinExpiresAtUTC       *string `json:"pinExpiresAtUtc,omitempty"`
	PinFailedAttempts     int     `json:"pinFailedAttempts"`
	AcceptedAtUTC         *string `json:"acceptedAtUtc,omitempty"`
	AcceptedSignatureName *string `json:"acceptedSignatureName,omitempty"`
	ContestedAtUTC        *string `json:"contestedAtUtc,omitempty"`
	ContestReason         *string `json:"contestReason,omitempty"`
	EscalatedAtUTC        *string `json:"escalatedAtUtc,omitempty"`
	Summary               *string `json:"summary,omitempty"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

// FromCompletionTerm конвертирует term в HTTP ответ
func FromCompletionTerm(t *domain.CompletionTerm) *CompletionTermResponse {
	resp := &CompletionTermResponse{
		ID:                    t.ID,
		ServiceRequestID:      t.ServiceRequestID,
		ServiceAppointmentID:  t.ServiceAppointmentID,
		ProviderID:            t.ProviderID,
		ClientID:              t.ClientID,
		Status:                string(t.Status),
		PinExpiresAtUTC:       formatTimePtr(t.PinExpiresAtUTC),
		PinFailedAttempts:     t.PinFailedAttempts,
		AcceptedAtUTC:         formatTimePtr(t.AcceptedAtUTC),
		AcceptedSignatureName: t.AcceptedSignatureName,
		ContestedAtUTC:        formatTimePtr(t.ContestedAtUTC),
		ContestReason:         t.ContestReason,
		EscalatedAtUTC:        formatTimePtr(t.EscalatedAtUTC),
		Summary:               t.Summary,
		CreatedAt:             t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             t.UpdatedAt.Format(time.RFC3339),
	}
	if t.AcceptedWithMethod != nil {
		resp.AcceptedWithMethod = ptr.Ptr(string(*t.AcceptedWithMethod))
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return ptr.Ptr(t.Format(time.RFC3339))
}
