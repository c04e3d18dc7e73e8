package escalate_completion

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/completion"
)

type CompletionService interface {
	Escalate(ctx context.Context, appointmentID int64, actor completion.Actor) (*domain.CompletionTerm, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
