package resolve_noshow_item

import (
	"context"

	resolveNoShowQueue "github.com/m04kA/SMC-AppointmentService/internal/usecase/resolve_noshow_queue"
)

type ResolveNoShowQueueUseCase interface {
	Execute(ctx context.Context, req *resolveNoShowQueue.Request) (*resolveNoShowQueue.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
