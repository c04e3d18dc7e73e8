package expire_appointments

import (
	"context"

	expireAppointments "github.com/m04kA/SMC-AppointmentService/internal/usecase/expire_appointments"
)

type ExpireAppointmentsUseCase interface {
	Execute(ctx context.Context, req *expireAppointments.Request) (*expireAppointments.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
