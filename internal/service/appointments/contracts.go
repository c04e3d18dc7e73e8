package appointments

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	ListWithFilter(ctx context.Context, filter domain.AppointmentListFilter) ([]*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error
	Cancel(ctx context.Context, id int64, status domain.AppointmentStatus, reason string) error
	MarkArrived(ctx context.Context, id int64, arrivedAt time.Time, latitude, longitude, accuracyMeters *float64, manualReason *string) error
	StartExecution(ctx context.Context, id int64, startedAt time.Time) error
	UpdateOperationalStatus(ctx context.Context, id int64, status string, reason *string, updatedAt time.Time) error
	AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error
	ListHistory(ctx context.Context, appointmentID int64) ([]*domain.AppointmentHistory, error)
}

// RequestServiceClient интерфейс клиента для RequestService
type RequestServiceClient interface {
	GetAcceptedProposal(ctx context.Context, requestID int64) (*requestservice.Proposal, error)
}

// PolicyService интерфейс движка финансовой политики
type PolicyService interface {
	Apply(ctx context.Context, in policy.ApplyInput) *domain.HistoryMetadata
}

// NoShowService интерфейс сервиса риска no-show
type NoShowService interface {
	Recalculate(ctx context.Context, appt *domain.Appointment, now time.Time) (*noshow.RiskResult, error)
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
