package list_noshow_queue

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type NoShowService interface {
	ListQueue(ctx context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
