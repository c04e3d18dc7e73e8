package confirm_completion

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/completion"
)

type CompletionService interface {
	Confirm(ctx context.Context, in completion.ConfirmInput) (*domain.CompletionTerm, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
