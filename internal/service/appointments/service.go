package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
)

// Actor инициатор операции, извлекается из заголовков аутентификации
type Actor struct {
	UserID int64
	Role   domain.ActorRole
}

// Service операции жизненного цикла визитов поверх статусной машины
// Мутирующие операции идут в serializable транзакции, финансовая политика
// и уведомления применяются после коммита перехода
type Service struct {
	apptRepo      AppointmentRepository
	requestClient RequestServiceClient
	policySvc     PolicyService
	noshowSvc     NoShowService
	notifier      NotificationProducer
	txManager     TransactionManager
	timeProvider  TimeProvider
	logger        Logger
}

// NewService создает новый экземпляр сервиса визитов
func NewService(
	apptRepo AppointmentRepository,
	requestClient RequestServiceClient,
	policySvc PolicyService,
	noshowSvc NoShowService,
	notifier NotificationProducer,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		apptRepo:      apptRepo,
		requestClient: requestClient,
		policySvc:     policySvc,
		noshowSvc:     noshowSvc,
		notifier:      notifier,
		txManager:     txManager,
		timeProvider:  &RealTimeProvider{},
		logger:        logger,
	}
}

// GetByID получает визит по ID
// Клиент и провайдер видят только свои визиты, оператор - любые
func (s *Service) GetByID(ctx context.Context, id int64, actor Actor) (*domain.Appointment, error) {
	appt, err := s.loadAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkPartyAccess(appt, actor); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d role=%s to appointment=%d", actor.UserID, actor.Role, id)
		return nil, err
	}

	return appt, nil
}

// GetClientAppointments получает визиты клиента с фильтрацией
func (s *Service) GetClientAppointments(ctx context.Context, clientID int64, filter domain.AppointmentListFilter) ([]*domain.Appointment, error) {
	filter.ClientID = &clientID

	appts, err := s.apptRepo.ListWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetClientAppointments: repository error for client=%d: %v", clientID, err)
		return nil, fmt.Errorf("%w: GetClientAppointments - repository error: %v", ErrInternal, err)
	}

	return appts, nil
}

// GetProviderAppointments получает визиты провайдера с фильтрацией
func (s *Service) GetProviderAppointments(ctx context.Context, providerID int64, filter domain.AppointmentListFilter) ([]*domain.Appointment, error) {
	filter.ProviderID = &providerID

	appts, err := s.apptRepo.ListWithFilter(ctx, filter)
	if err != nil {
		s.logger.Error("GetProviderAppointments: repository error for provider=%d: %v", providerID, err)
		return nil, fmt.Errorf("%w: GetProviderAppointments - repository error: %v", ErrInternal, err)
	}

	return appts, nil
}

// GetHistory получает журнал переходов визита
func (s *Service) GetHistory(ctx context.Context, appointmentID int64, actor Actor) ([]*domain.AppointmentHistory, error) {
	appt, err := s.loadAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkPartyAccess(appt, actor); err != nil {
		s.logger.Warn("GetHistory: access denied for user=%d to appointment=%d", actor.UserID, appointmentID)
		return nil, err
	}

	history, err := s.apptRepo.ListHistory(ctx, appointmentID)
	if err != nil {
		s.logger.Error("GetHistory: repository error for appointment=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: GetHistory - repository error: %v", ErrInternal, err)
	}

	return history, nil
}

// Вспомогательные методы

// loadAppointment загружает визит с маппингом ошибки not found
func (s *Service) loadAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			s.logger.Warn("loadAppointment: appointment=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("loadAppointment: repository error for appointment=%d: %v", id, err)
		return nil, fmt.Errorf("%w: loadAppointment - repository error: %v", ErrInternal, err)
	}
	return appt, nil
}

// checkPartyAccess проверяет, что актор является стороной визита
// Операторы и системные акторы видят любые визиты
func (s *Service) checkPartyAccess(appt *domain.Appointment, actor Actor) error {
	switch actor.Role {
	case domain.RoleOperator, domain.RoleSystem:
		return nil
	case domain.RoleClient:
		if appt.ClientID == actor.UserID {
			return nil
		}
	case domain.RoleProvider:
		if appt.ProviderID == actor.UserID {
			return nil
		}
	}
	return ErrAccessDenied
}

// checkOperation статическая проверка (operation, role) и принадлежности
// актора визиту. Выполняется до какой-либо логики переходов
func (s *Service) checkOperation(appt *domain.Appointment, op domain.Operation, actor Actor) error {
	if !domain.IsOperationAllowed(op, actor.Role) {
		return ErrAccessDenied
	}
	return s.checkPartyAccess(appt, actor)
}

// appendTransitionHistory добавляет запись журнала о переходе статуса
func (s *Service) appendTransitionHistory(
	ctx context.Context,
	appt *domain.Appointment,
	previous domain.AppointmentStatus,
	newStatus domain.AppointmentStatus,
	actor Actor,
	reason *string,
	metadata *domain.HistoryMetadata,
	now time.Time,
) error {
	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &previous,
		NewStatus:      newStatus,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Reason:         reason,
		Metadata:       metadata,
		OccurredAtUTC:  now,
	}
	if err := s.apptRepo.AppendHistory(ctx, h); err != nil {
		return fmt.Errorf("%w: append history: %v", ErrInternal, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, recipientID int64, subject, message, actionURL string) {
	if s.notifier == nil {
		return
	}
	// Сбой доставки уведомления не прерывает операцию
	if err := s.notifier.Notify(ctx, recipientID, subject, message, actionURL); err != nil {
		s.logger.Error("notify: failed to notify user=%d: %v", recipientID, err)
	}
}
