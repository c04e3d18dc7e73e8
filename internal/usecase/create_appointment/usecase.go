package create_appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	requestClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
)

// UseCase use case для создания визита
// Проверки владения заявкой и принятого предложения идут до транзакции,
// конфликт календаря перепроверяется внутри сериализуемой транзакции
// под FOR UPDATE
type UseCase struct {
	apptRepo         AppointmentRepository
	availabilityRepo AvailabilityRepository
	requestClient    RequestServiceClient
	noshowSvc        NoShowService
	notifier         NotificationProducer
	txManager        TransactionManager
	timeProvider     TimeProvider
	confirmationSLA  time.Duration
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	requestClient RequestServiceClient,
	noshowSvc NoShowService,
	notifier NotificationProducer,
	txManager TransactionManager,
	confirmationSLAHours int,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:         apptRepo,
		availabilityRepo: availabilityRepo,
		requestClient:    requestClient,
		noshowSvc:        noshowSvc,
		notifier:         notifier,
		txManager:        txManager,
		timeProvider:     &RealTimeProvider{},
		confirmationSLA:  time.Duration(confirmationSLAHours) * time.Hour,
		logger:           logger,
	}
}

// Execute выполняет use case создания визита
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Appointment, error) {
	uc.logger.Info("CreateAppointment: request=%d, provider=%d, client=%d, window=[%s, %s)",
		req.ServiceRequestID, req.ProviderID, req.ClientID,
		req.WindowStartUTC.Format(time.RFC3339), req.WindowEndUTC.Format(time.RFC3339))

	now := uc.timeProvider.Now()

	// 1. Валидация входных данных
	if err := validateRequest(req, now); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Заявка существует и принадлежит клиенту
	request, err := uc.requestClient.GetServiceRequest(ctx, req.ServiceRequestID)
	if err != nil {
		if errors.Is(err, requestClient.ErrRequestNotFound) {
			uc.logger.Warn("CreateAppointment: request=%d not found", req.ServiceRequestID)
			return nil, ErrRequestNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get request=%d: %v", req.ServiceRequestID, err)
		return nil, fmt.Errorf("%w: failed to get service request: %v", ErrInternal, err)
	}
	if request.ClientID != req.ClientID {
		uc.logger.Warn("CreateAppointment: request=%d not owned by client=%d", req.ServiceRequestID, req.ClientID)
		return nil, ErrAccessDenied
	}

	// 3. У провайдера есть принятое предложение по заявке
	proposal, err := uc.requestClient.GetAcceptedProposal(ctx, req.ServiceRequestID)
	if err != nil {
		if errors.Is(err, requestClient.ErrProposalNotFound) {
			uc.logger.Warn("CreateAppointment: request=%d has no accepted proposal", req.ServiceRequestID)
			return nil, ErrProviderNotFound
		}
		uc.logger.Error("CreateAppointment: failed to get proposal for request=%d: %v", req.ServiceRequestID, err)
		return nil, fmt.Errorf("%w: failed to get accepted proposal: %v", ErrInternal, err)
	}
	if proposal.ProviderID != req.ProviderID {
		uc.logger.Warn("CreateAppointment: accepted proposal for request=%d belongs to provider=%d, not %d",
			req.ServiceRequestID, proposal.ProviderID, req.ProviderID)
		return nil, ErrProviderNotFound
	}

	window := domain.TimeWindow{Start: req.WindowStartUTC.UTC(), End: req.WindowEndUTC.UTC()}
	expiresAt := now.Add(uc.confirmationSLA)

	var result *domain.Appointment

	// 4. Операции с БД в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 4.1. Не более одного незавершенного визита на пару (заявка, провайдер)
		existing, err := uc.apptRepo.GetActiveByRequestAndProvider(txCtx, req.ServiceRequestID, req.ProviderID)
		if err != nil && !errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			uc.logger.Error("CreateAppointment: failed to check existing appointment: %v", err)
			return fmt.Errorf("%w: failed to check existing appointment: %v", ErrInternal, err)
		}
		if existing != nil {
			uc.logger.Warn("CreateAppointment: active appointment=%d already exists for request=%d provider=%d",
				existing.ID, req.ServiceRequestID, req.ProviderID)
			return ErrAppointmentAlreadyExists
		}

		// 4.2. Окно покрыто расписанием провайдера
		rules, err := uc.availabilityRepo.ListRulesByProvider(txCtx, req.ProviderID)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get rules for provider=%d: %v", req.ProviderID, err)
			return fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
		}
		exceptions, err := uc.availabilityRepo.ListExceptionsByProviderWindow(txCtx, req.ProviderID, window.Start, window.End)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to get exceptions for provider=%d: %v", req.ProviderID, err)
			return fmt.Errorf("%w: failed to get availability exceptions: %v", ErrInternal, err)
		}

		open, err := windowIsOpen(window, rules, exceptions)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		if !open {
			uc.logger.Warn("CreateAppointment: window not covered by provider=%d schedule", req.ProviderID)
			return ErrSlotUnavailable
		}

		// 4.3. Окно свободно от других визитов провайдера
		// Выборка под FOR UPDATE закрывает гонку двух параллельных созданий
		blocking, err := uc.apptRepo.ListBlockingByProviderWindow(txCtx, req.ProviderID, window.Start, window.End)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to check calendar conflicts: %v", err)
			return fmt.Errorf("%w: failed to check calendar conflicts: %v", ErrInternal, err)
		}
		if len(blocking) > 0 {
			uc.logger.Warn("CreateAppointment: window conflicts with %d appointments of provider=%d",
				len(blocking), req.ProviderID)
			return ErrSlotUnavailable
		}

		// 4.4. Создаем визит с дедлайном подтверждения
		appointment := &domain.Appointment{
			ServiceRequestID: req.ServiceRequestID,
			ClientID:         req.ClientID,
			ProviderID:       req.ProviderID,
			WindowStartUTC:   window.Start,
			WindowEndUTC:     window.End,
			Status:           domain.StatusPendingProviderConfirmation,
			ExpiresAtUTC:     &expiresAt,
		}
		result, err = uc.apptRepo.Create(txCtx, appointment)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
		}

		// 4.5. Первая запись журнала переходов
		h := &domain.AppointmentHistory{
			AppointmentID: result.ID,
			NewStatus:     domain.StatusPendingProviderConfirmation,
			ActorUserID:   req.ClientID,
			ActorRole:     domain.RoleClient,
			OccurredAtUTC: now,
		}
		if err := uc.apptRepo.AppendHistory(txCtx, h); err != nil {
			uc.logger.Error("CreateAppointment: failed to append history: %v", err)
			return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
		}

		// 4.6. Начальная оценка риска no-show
		if _, err := uc.noshowSvc.Recalculate(txCtx, result, now); err != nil {
			uc.logger.Error("CreateAppointment: failed to recalculate risk for appointment=%d: %v", result.ID, err)
			return fmt.Errorf("%w: failed to recalculate no-show risk: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 5. Уведомляем провайдера о новом визите (сбой не прерывает операцию)
	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, req.ProviderID, "Новый визит",
			"Клиент предложил окно визита, подтвердите или отклоните",
			fmt.Sprintf("/appointments/%d", result.ID)); err != nil {
			uc.logger.Error("CreateAppointment: failed to notify provider=%d: %v", req.ProviderID, err)
		}
	}

	uc.logger.Info("CreateAppointment: appointment=%d created, expires at %s",
		result.ID, expiresAt.Format(time.RFC3339))
	return result, nil
}
