package get_available_slots

import (
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest проверяет входные данные запроса слотов
func validateRequest(req *Request) error {
	if req.ProviderID <= 0 {
		return fmt.Errorf("%w: provider id must be positive", ErrInvalidInput)
	}
	if req.FromUTC.IsZero() || req.ToUTC.IsZero() {
		return fmt.Errorf("%w: from and to are required", ErrInvalidTimeRange)
	}
	if !req.ToUTC.After(req.FromUTC) {
		return fmt.Errorf("%w: to must be after from", ErrInvalidTimeRange)
	}
	if req.SlotDurationMinutes != nil {
		d := *req.SlotDurationMinutes
		if d < domain.MinSlotDurationMinutes || d > domain.MaxSlotDurationMinutes {
			return fmt.Errorf("%w: slot duration must be between %d and %d minutes",
				ErrInvalidInput, domain.MinSlotDurationMinutes, domain.MaxSlotDurationMinutes)
		}
	}
	return nil
}
