package create_appointment

import (
	"time"

	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	ServiceRequestID int64  `json:"serviceRequestId"`
	ProviderID       int64  `json:"providerId"`
	WindowStartUTC   string `json:"windowStartUtc"` // RFC3339
	WindowEndUTC     string `json:"windowEndUtc"`   // RFC3339
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest(clientID int64) (*createAppointment.Request, error) {
	windowStart, err := time.Parse(time.RFC3339, r.WindowStartUTC)
	if err != nil {
		return nil, err
	}
	windowEnd, err := time.Parse(time.RFC3339, r.WindowEndUTC)
	if err != nil {
		return nil, err
	}

	return &createAppointment.Request{
		ServiceRequestID: r.ServiceRequestID,
		ProviderID:       r.ProviderID,
		ClientID:         clientID,
		WindowStartUTC:   windowStart.UTC(),
		WindowEndUTC:     windowEnd.UTC(),
	}, nil
}
