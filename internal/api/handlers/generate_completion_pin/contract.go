package generate_completion_pin

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/service/completion"
)

type CompletionService interface {
	GeneratePin(ctx context.Context, appointmentID int64, actor completion.Actor, summary *string) (*completion.GeneratePinResult, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
