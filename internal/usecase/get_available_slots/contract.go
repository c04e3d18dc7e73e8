package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	ListBlockingByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error)
}

// AvailabilityRepository интерфейс репозитория расписания провайдера
type AvailabilityRepository interface {
	ListRulesByProvider(ctx context.Context, providerID int64) ([]*domain.ProviderAvailabilityRule, error)
	ListExceptionsByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.ProviderAvailabilityException, error)
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
