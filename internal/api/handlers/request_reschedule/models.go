package request_reschedule

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	requestReschedule "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_reschedule"
)

// RequestRescheduleRequest HTTP request model
type RequestRescheduleRequest struct {
	ProposedStartUTC string  `json:"proposedStartUtc"` // RFC3339
	ProposedEndUTC   string  `json:"proposedEndUtc"`   // RFC3339
	Reason           *string `json:"reason,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RequestRescheduleRequest) ToUseCaseRequest(
	appointmentID, userID int64,
	role domain.ActorRole,
) (*requestReschedule.Request, error) {
	proposedStart, err := time.Parse(time.RFC3339, r.ProposedStartUTC)
	if err != nil {
		return nil, err
	}
	proposedEnd, err := time.Parse(time.RFC3339, r.ProposedEndUTC)
	if err != nil {
		return nil, err
	}

	return &requestReschedule.Request{
		AppointmentID:    appointmentID,
		ActorUserID:      userID,
		ActorRole:        role,
		ProposedStartUTC: proposedStart.UTC(),
		ProposedEndUTC:   proposedEnd.UTC(),
		Reason:           r.Reason,
	}, nil
}
