package recalculate_noshow_risk

import (
	"context"

	recalculateNoShowRisk "github.com/m04kA/SMC-AppointmentService/internal/usecase/recalculate_noshow_risk"
)

type RecalculateNoShowRiskUseCase interface {
	Execute(ctx context.Context, req *recalculateNoShowRisk.Request) (*recalculateNoShowRisk.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
