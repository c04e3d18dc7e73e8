package resolve_noshow_queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/service/noshow"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
)

// Outcome итог триажа элемента очереди no-show
type Outcome string

const (
	// OutcomeNoAction риск не подтвердился, визит не трогаем
	OutcomeNoAction Outcome = "no_action"
	// OutcomeClientNoShow клиент не явился на визит
	OutcomeClientNoShow Outcome = "client_no_show"
	// OutcomeProviderNoShow исполнитель не явился на визит
	OutcomeProviderNoShow Outcome = "provider_no_show"
)

// Request запрос закрытия элемента триажной очереди
type Request struct {
	QueueItemID int64
	ActorUserID int64
	ActorRole   domain.ActorRole
	Outcome     Outcome
	Note        string
}

// Response результат закрытия элемента очереди
type Response struct {
	Item        *domain.NoShowQueueItem
	Appointment *domain.Appointment
}

// UseCase use case закрытия элемента триажной очереди оператором
// Исход no_action только закрывает элемент. Исходы client_no_show и
// provider_no_show дополнительно отменяют визит от имени виновной стороны
// и запускают финансовый движок с соответствующим no-show событием.
// Политика применяется после коммита отмены: сбой расчета или проводки
// фиксируется в истории, но не откатывает триаж
type UseCase struct {
	queueSvc      QueueService
	apptRepo      AppointmentRepository
	requestClient RequestServiceClient
	policySvc     PolicyService
	notifier      NotificationProducer
	txManager     TransactionManager
	timeProvider  TimeProvider
	logger        Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	queueSvc QueueService,
	apptRepo AppointmentRepository,
	requestClient RequestServiceClient,
	policySvc PolicyService,
	notifier NotificationProducer,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		queueSvc:      queueSvc,
		apptRepo:      apptRepo,
		requestClient: requestClient,
		policySvc:     policySvc,
		notifier:      notifier,
		txManager:     txManager,
		timeProvider:  &RealTimeProvider{},
		logger:        logger,
	}
}

// Execute выполняет use case закрытия элемента очереди
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ResolveNoShowQueue: item=%d outcome=%s by user=%d role=%s",
		req.QueueItemID, req.Outcome, req.ActorUserID, req.ActorRole)

	if !domain.IsOperationAllowed(domain.OpResolveNoShowQueue, req.ActorRole) {
		return nil, ErrAccessDenied
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	now := uc.timeProvider.Now()

	var item *domain.NoShowQueueItem
	var appt *domain.Appointment
	var eventType domain.PolicyEventType
	cancelled := false

	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		item, err = uc.queueSvc.GetQueueItem(txCtx, req.QueueItemID)
		if err != nil {
			if errors.Is(err, noshow.ErrItemNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("%w: failed to get queue item: %v", ErrInternal, err)
		}
		if !item.IsOpen() {
			return ErrItemResolved
		}

		appt, err = uc.apptRepo.GetByID(txCtx, item.ServiceAppointmentID)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
		}

		if req.Outcome != OutcomeNoAction {
			eventType, err = uc.cancelForNoShow(txCtx, appt, req, now)
			if err != nil {
				return err
			}
			cancelled = true
		}

		item, err = uc.queueSvc.Resolve(txCtx, req.QueueItemID, req.Note, now)
		if err != nil {
			if errors.Is(err, noshow.ErrItemResolved) {
				return ErrItemResolved
			}
			return fmt.Errorf("%w: failed to resolve queue item: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		uc.applyPolicy(ctx, appt, eventType, req)
		uc.notifyParties(ctx, appt, req.Outcome)
	}

	uc.logger.Info("ResolveNoShowQueue: item=%d resolved with outcome=%s", req.QueueItemID, req.Outcome)
	return &Response{Item: item, Appointment: appt}, nil
}

// cancelForNoShow отменяет визит от имени неявившейся стороны
// client_no_show -> cancelled_by_client, provider_no_show -> cancelled_by_provider
func (uc *UseCase) cancelForNoShow(ctx context.Context, appt *domain.Appointment, req *Request, now time.Time) (domain.PolicyEventType, error) {
	if !appt.CanBeCancelled() {
		uc.logger.Warn("ResolveNoShowQueue: appointment=%d in status=%s cannot be cancelled for no-show",
			appt.ID, appt.Status)
		return "", ErrInvalidState
	}

	cancelStatus := domain.StatusCancelledByClient
	eventType := domain.EventClientNoShow
	if req.Outcome == OutcomeProviderNoShow {
		cancelStatus = domain.StatusCancelledByProvider
		eventType = domain.EventProviderNoShow
	}

	reason := fmt.Sprintf("no-show triage: %s", req.Outcome)
	if req.Note != "" {
		reason = fmt.Sprintf("no-show triage: %s (%s)", req.Outcome, req.Note)
	}

	previous := appt.Status
	if err := uc.apptRepo.Cancel(ctx, appt.ID, cancelStatus, reason); err != nil {
		return "", fmt.Errorf("%w: failed to cancel appointment=%d: %v", ErrInternal, appt.ID, err)
	}
	appt.Status = cancelStatus
	appt.CancellationReason = &reason

	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &previous,
		NewStatus:      cancelStatus,
		ActorUserID:    req.ActorUserID,
		ActorRole:      req.ActorRole,
		Reason:         &reason,
		OccurredAtUTC:  now,
	}
	if err := uc.apptRepo.AppendHistory(ctx, h); err != nil {
		return "", fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
	}
	return eventType, nil
}

// applyPolicy запускает финансовый движок после коммита отмены
func (uc *UseCase) applyPolicy(ctx context.Context, appt *domain.Appointment, eventType domain.PolicyEventType, req *Request) {
	now := uc.timeProvider.Now()

	var metadata *domain.HistoryMetadata

	proposal, err := uc.requestClient.GetAcceptedProposal(ctx, appt.ServiceRequestID)
	if err != nil {
		uc.logger.Error("ResolveNoShowQueue: failed to get proposal for request=%d: %v",
			appt.ServiceRequestID, err)
		metadata = &domain.HistoryMetadata{
			Type: domain.MetadataFinancialPolicyFailed,
			PolicyFailed: &domain.PolicyFailedMetadata{
				EventType: eventType,
				ErrorCode: "financial_policy_calculation_failed",
				Message:   fmt.Sprintf("agreed service value unavailable: %v", err),
			},
		}
	} else {
		metadata = uc.policySvc.Apply(ctx, policy.ApplyInput{
			Appointment:  appt,
			EventType:    eventType,
			ServiceValue: proposal.AgreedValue,
			Currency:     proposal.Currency,
			Now:          now,
		})
	}

	if metadata == nil {
		return
	}

	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &appt.Status,
		NewStatus:      appt.Status,
		ActorUserID:    req.ActorUserID,
		ActorRole:      req.ActorRole,
		Metadata:       metadata,
		OccurredAtUTC:  now,
	}
	if err := uc.apptRepo.AppendHistory(ctx, h); err != nil {
		uc.logger.Error("ResolveNoShowQueue: failed to append policy history for appointment=%d: %v",
			appt.ID, err)
	}
}

func (uc *UseCase) notifyParties(ctx context.Context, appt *domain.Appointment, outcome Outcome) {
	if uc.notifier == nil {
		return
	}

	message := "Визит отменен: клиент не явился"
	if outcome == OutcomeProviderNoShow {
		message = "Визит отменен: исполнитель не явился"
	}

	for _, recipientID := range []int64{appt.ClientID, appt.ProviderID} {
		if err := uc.notifier.Notify(ctx, recipientID, "Визит отменен", message,
			fmt.Sprintf("/appointments/%d", appt.ID)); err != nil {
			uc.logger.Error("ResolveNoShowQueue: failed to notify user=%d: %v", recipientID, err)
		}
	}
}

func validateRequest(req *Request) error {
	if req.QueueItemID <= 0 {
		return fmt.Errorf("%w: queue item id must be positive", ErrInvalidInput)
	}
	switch req.Outcome {
	case OutcomeNoAction, OutcomeClientNoShow, OutcomeProviderNoShow:
	default:
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, req.Outcome)
	}
	if len(req.Note) > domain.MaxReasonLength {
		return fmt.Errorf("%w: note too long", ErrInvalidInput)
	}
	return nil
}
