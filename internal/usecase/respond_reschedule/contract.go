package respond_reschedule

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListBlockingByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error)
	CommitReschedule(ctx context.Context, id int64, newStart, newEnd time.Time) error
	ClearRescheduleProposal(ctx context.Context, id int64, restoredStatus domain.AppointmentStatus) error
	AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error
	GetLastTransitionInto(ctx context.Context, appointmentID int64, status domain.AppointmentStatus) (*domain.AppointmentHistory, error)
}

// NoShowService интерфейс сервиса риска no-show
type NoShowService interface {
	Recalculate(ctx context.Context, appt *domain.Appointment, now time.Time) (*noshow.RiskResult, error)
}

// NotificationProducer интерфейс продюсера уведомлений
type NotificationProducer interface {
	Notify(ctx context.Context, recipientID int64, subject, message, actionURL string) error
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
