package start_noshow_item

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type NoShowService interface {
	StartWorking(ctx context.Context, itemID int64) (*domain.NoShowQueueItem, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
