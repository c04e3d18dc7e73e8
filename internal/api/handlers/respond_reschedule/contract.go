package respond_reschedule

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	respondReschedule "github.com/m04kA/SMC-AppointmentService/internal/usecase/respond_reschedule"
)

type RespondRescheduleUseCase interface {
	Execute(ctx context.Context, req *respondReschedule.Request) (*domain.Appointment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
