package resolve_noshow_queue

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
)

// QueueService интерфейс сервиса триажной очереди
type QueueService interface {
	GetQueueItem(ctx context.Context, id int64) (*domain.NoShowQueueItem, error)
	Resolve(ctx context.Context, itemID int64, note string, now time.Time) (*domain.NoShowQueueItem, error)
}

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	Cancel(ctx context.Context, id int64, status domain.AppointmentStatus, reason string) error
	AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error
}

// RequestServiceClient интерфейс клиента сервиса заявок
type RequestServiceClient interface {
	GetAcceptedProposal(ctx context.Context, requestID int64) (*requestservice.Proposal, error)
}

// PolicyService интерфейс финансового движка
type PolicyService interface {
	Apply(ctx context.Context, in policy.ApplyInput) *domain.HistoryMetadata
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
