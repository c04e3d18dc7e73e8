package noshow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	queueRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/noshowqueue"
)

// Service пересчет риска no-show и работа с триажной очередью
type Service struct {
	apptRepo      AppointmentRepository
	queueRepo     QueueRepository
	requestClient RequestServiceClient
	cfg           RiskConfig
	logger        Logger
}

// NewService создает новый экземпляр сервиса no-show риска
func NewService(
	apptRepo AppointmentRepository,
	queueRepo QueueRepository,
	requestClient RequestServiceClient,
	cfg RiskConfig,
	logger Logger,
) *Service {
	return &Service{
		apptRepo:      apptRepo,
		queueRepo:     queueRepo,
		requestClient: requestClient,
		cfg:           cfg,
		logger:        logger,
	}
}

// Recalculate пересчитывает риск визита и синхронизирует триажную очередь
// Вызывается при подтверждении, переносе, отметке прибытия и фоновым обходом.
// Medium/High риск идемпотентно создает или обновляет открытый элемент очереди
func (s *Service) Recalculate(ctx context.Context, appt *domain.Appointment, now time.Time) (*RiskResult, error) {
	priorCount, err := s.apptRepo.CountPriorIncidents(ctx, appt.ClientID, appt.ProviderID)
	if err != nil {
		s.logger.Error("Recalculate: failed to count prior incidents for client=%d: %v", appt.ClientID, err)
		return nil, fmt.Errorf("%w: Recalculate - count prior incidents: %v", ErrInternal, err)
	}

	result := Calculate(RiskInput{
		ClientPresenceConfirmed:   appt.ClientPresenceConfirmed(),
		ProviderPresenceConfirmed: appt.ProviderPresenceConfirmed(),
		MinutesToWindow:           int(appt.WindowStartUTC.Sub(now).Minutes()),
		PriorNoShowCount:          priorCount,
	}, s.cfg)

	if err := s.apptRepo.UpdateRisk(ctx, appt.ID, result.Level, result.Score, result.ReasonsCsv(), now); err != nil {
		s.logger.Error("Recalculate: failed to persist risk for appointment=%d: %v", appt.ID, err)
		return nil, fmt.Errorf("%w: Recalculate - persist risk: %v", ErrInternal, err)
	}

	if result.Level == domain.RiskMedium || result.Level == domain.RiskHigh {
		if err := s.upsertQueueItem(ctx, appt, &result, now); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Recalculate: appointment=%d risk level=%s score=%d reasons=%s",
		appt.ID, result.Level, result.Score, result.ReasonsCsv())
	return &result, nil
}

// upsertQueueItem идемпотентный upsert: ищем открытый элемент визита,
// обновляем его, иначе вставляем новый. Дубликаты исключены, поскольку
// вызов всегда идет внутри транзакции пересчета (FOR UPDATE на поиске)
func (s *Service) upsertQueueItem(ctx context.Context, appt *domain.Appointment, result *RiskResult, now time.Time) error {
	existing, err := s.queueRepo.GetOpenByAppointmentID(ctx, appt.ID)
	if err != nil {
		if !errors.Is(err, queueRepo.ErrItemNotFound) {
			s.logger.Error("upsertQueueItem: lookup failed for appointment=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: upsertQueueItem - lookup: %v", ErrInternal, err)
		}

		city, category := s.requestAttributes(ctx, appt)
		item := &domain.NoShowQueueItem{
			ServiceAppointmentID: appt.ID,
			RiskLevel:            result.Level,
			Score:                result.Score,
			ReasonsCsv:           result.ReasonsCsv(),
			City:                 city,
			Category:             category,
			Status:               domain.QueueItemOpen,
			FirstDetectedAtUTC:   now,
			LastDetectedAtUTC:    now,
		}
		if _, err := s.queueRepo.Insert(ctx, item); err != nil {
			s.logger.Error("upsertQueueItem: insert failed for appointment=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: upsertQueueItem - insert: %v", ErrInternal, err)
		}
		return nil
	}

	if err := s.queueRepo.Refresh(ctx, existing.ID, result.Level, result.Score, result.ReasonsCsv(), now); err != nil {
		s.logger.Error("upsertQueueItem: refresh failed for item=%d: %v", existing.ID, err)
		return fmt.Errorf("%w: upsertQueueItem - refresh: %v", ErrInternal, err)
	}
	return nil
}

// requestAttributes подтягивает город и категорию заявки для фильтров
// очереди. Сбой интеграции не блокирует пересчет риска: элемент очереди
// важнее атрибутов, поля остаются пустыми
func (s *Service) requestAttributes(ctx context.Context, appt *domain.Appointment) (string, string) {
	request, err := s.requestClient.GetServiceRequest(ctx, appt.ServiceRequestID)
	if err != nil {
		s.logger.Warn("requestAttributes: failed to get request=%d for appointment=%d: %v",
			appt.ServiceRequestID, appt.ID, err)
		return "", ""
	}
	return request.City, request.Category
}

// ResolveForAppointment закрывает открытый элемент очереди визита
// Идемпотентно, вызывается при терминальных переходах
func (s *Service) ResolveForAppointment(ctx context.Context, appointmentID int64, note string, now time.Time) error {
	if err := s.queueRepo.ResolveOpenByAppointmentID(ctx, appointmentID, note, now); err != nil {
		s.logger.Error("ResolveForAppointment: failed for appointment=%d: %v", appointmentID, err)
		return fmt.Errorf("%w: ResolveForAppointment: %v", ErrInternal, err)
	}
	return nil
}

// ListQueue триажная выборка очереди для операторов
func (s *Service) ListQueue(ctx context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error) {
	items, err := s.queueRepo.ListWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("ListQueue: repository error: %v", err)
		return nil, fmt.Errorf("%w: ListQueue - repository error: %v", ErrInternal, err)
	}
	return items, nil
}

// GetQueueItem получает элемент очереди по ID
func (s *Service) GetQueueItem(ctx context.Context, id int64) (*domain.NoShowQueueItem, error) {
	item, err := s.queueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, queueRepo.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("GetQueueItem: repository error for item=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetQueueItem - repository error: %v", ErrInternal, err)
	}
	return item, nil
}

// StartWorking оператор берет элемент очереди в работу
func (s *Service) StartWorking(ctx context.Context, itemID int64) (*domain.NoShowQueueItem, error) {
	item, err := s.GetQueueItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() {
		s.logger.Warn("StartWorking: item=%d already resolved", itemID)
		return nil, ErrItemResolved
	}

	if err := s.queueRepo.UpdateStatus(ctx, itemID, domain.QueueItemInProgress, nil, nil); err != nil {
		s.logger.Error("StartWorking: update failed for item=%d: %v", itemID, err)
		return nil, fmt.Errorf("%w: StartWorking - update: %v", ErrInternal, err)
	}

	item.Status = domain.QueueItemInProgress
	return item, nil
}

// Resolve оператор закрывает элемент очереди с заметкой
func (s *Service) Resolve(ctx context.Context, itemID int64, note string, now time.Time) (*domain.NoShowQueueItem, error) {
	item, err := s.GetQueueItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsOpen() {
		s.logger.Warn("Resolve: item=%d already resolved", itemID)
		return nil, ErrItemResolved
	}

	if err := s.queueRepo.UpdateStatus(ctx, itemID, domain.QueueItemResolved, &note, &now); err != nil {
		s.logger.Error("Resolve: update failed for item=%d: %v", itemID, err)
		return nil, fmt.Errorf("%w: Resolve - update: %v", ErrInternal, err)
	}

	item.Status = domain.QueueItemResolved
	item.ResolutionNote = &note
	item.ResolvedAtUTC = &now
	return item, nil
}
