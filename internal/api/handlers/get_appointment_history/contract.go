package get_appointment_history

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
)

type AppointmentService interface {
	GetHistory(ctx context.Context, appointmentID int64, actor appointments.Actor) ([]*domain.AppointmentHistory, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
