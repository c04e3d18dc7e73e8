package recalculate_noshow_risk

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	ListUpcomingForRiskSweep(ctx context.Context, from, to time.Time, limit int) ([]*domain.Appointment, error)
}

// NoShowService интерфейс сервиса риска no-show
type NoShowService interface {
	Recalculate(ctx context.Context, appt *domain.Appointment, now time.Time) (*noshow.RiskResult, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
