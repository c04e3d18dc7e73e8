package noshow

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
)

// AppointmentRepository интерфейс репозитория визитов
type AppointmentRepository interface {
	UpdateRisk(ctx context.Context, id int64, level domain.RiskLevel, score int, reasonsCsv string, calculatedAt time.Time) error
	CountPriorIncidents(ctx context.Context, clientID, providerID int64) (int, error)
}

// QueueRepository интерфейс репозитория триажной очереди
type QueueRepository interface {
	GetOpenByAppointmentID(ctx context.Context, appointmentID int64) (*domain.NoShowQueueItem, error)
	GetByID(ctx context.Context, id int64) (*domain.NoShowQueueItem, error)
	Insert(ctx context.Context, item *domain.NoShowQueueItem) (*domain.NoShowQueueItem, error)
	Refresh(ctx context.Context, id int64, level domain.RiskLevel, score int, reasonsCsv string, detectedAt time.Time) error
	UpdateStatus(ctx context.Context, id int64, status domain.NoShowQueueItemStatus, resolutionNote *string, resolvedAt *time.Time) error
	ResolveOpenByAppointmentID(ctx context.Context, appointmentID int64, note string, resolvedAt time.Time) error
	ListWithFilter(ctx context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error)
}

// RequestServiceClient интерфейс клиента для RequestService
type RequestServiceClient interface {
	GetServiceRequest(ctx context.Context, requestID int64) (*requestservice.ServiceRequest, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
