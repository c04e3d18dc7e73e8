package create_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest проверяет входные данные запроса создания визита
func validateRequest(req *Request, now time.Time) error {
	if req.ServiceRequestID <= 0 {
		return fmt.Errorf("%w: service request id must be positive", ErrInvalidInput)
	}
	if req.ProviderID <= 0 {
		return fmt.Errorf("%w: provider id must be positive", ErrInvalidInput)
	}
	if req.ClientID <= 0 {
		return fmt.Errorf("%w: client id must be positive", ErrInvalidInput)
	}

	window := domain.TimeWindow{Start: req.WindowStartUTC, End: req.WindowEndUTC}
	if !window.IsValid() {
		return fmt.Errorf("%w: window end must be after window start", ErrInvalidTimeRange)
	}
	if req.WindowStartUTC.Before(now) {
		return fmt.Errorf("%w: window must start in the future", ErrInvalidTimeRange)
	}

	return nil
}
