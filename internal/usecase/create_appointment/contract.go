package create_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error)
	GetActiveByRequestAndProvider(ctx context.Context, requestID, providerID int64) (*domain.Appointment, error)
	ListBlockingByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error)
	AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error
}

// AvailabilityRepository интерфейс репозитория расписания провайдера
type AvailabilityRepository interface {
	ListRulesByProvider(ctx context.Context, providerID int64) ([]*domain.ProviderAvailabilityRule, error)
	ListExceptionsByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.ProviderAvailabilityException, error)
}

// RequestServiceClient интерфейс клиента для RequestService
type RequestServiceClient interface {
	GetServiceRequest(ctx context.Context, requestID int64) (*requestservice.ServiceRequest, error)
	GetAcceptedProposal(ctx context.Context, requestID int64) (*requestservice.Proposal, error)
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
