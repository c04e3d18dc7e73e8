package request_reschedule

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	requestReschedule "github.com/m04kA/SMC-AppointmentService/internal/usecase/request_reschedule"
)

type RequestRescheduleUseCase interface {
	Execute(ctx context.Context, req *requestReschedule.Request) (*domain.Appointment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
