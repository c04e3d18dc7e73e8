package completion

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// TermRepository интерфейс репозитория completion term-ов
type TermRepository interface {
	Create(ctx context.Context, t *domain.CompletionTerm) (*domain.CompletionTerm, error)
	GetByAppointmentID(ctx context.Context, appointmentID int64) (*domain.CompletionTerm, error)
	RefreshPin(ctx context.Context, id int64, pinHash string, expiresAt time.Time) error
	IncrementFailedAttempts(ctx context.Context, id int64) error
	Accept(ctx context.Context, id int64, method domain.AcceptanceMethod, signatureName *string, acceptedAt time.Time) error
	Contest(ctx context.Context, id int64, reason string, contestedAt time.Time) error
	Escalate(ctx context.Context, id int64, escalatedAt time.Time) error
}

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error
	AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error
}

// NoShowService интерфейс сервиса риска no-show
type NoShowService interface {
	ResolveForAppointment(ctx context.Context, appointmentID int64, note string, now time.Time) error
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
