package respond_reschedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
)

// Request ответ на запрос переноса визита
type Request struct {
	AppointmentID int64
	ActorUserID   int64
	ActorRole     domain.ActorRole
	Accept        bool
	Reason        *string
}

// UseCase use case ответа на запрос переноса
// Принятие перепроверяет конфликт календаря для предложенного окна внутри
// той же сериализуемой транзакции. Отклонение возвращает визит в статус
// до начала переговоров, восстановленный из журнала переходов
type UseCase struct {
	apptRepo     AppointmentRepository
	noshowSvc    NoShowService
	notifier     NotificationProducer
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	noshowSvc NoShowService,
	notifier NotificationProducer,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:     apptRepo,
		noshowSvc:    noshowSvc,
		notifier:     notifier,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case ответа на перенос
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Appointment, error) {
	uc.logger.Info("RespondReschedule: appointment=%d by user=%d role=%s accept=%t",
		req.AppointmentID, req.ActorUserID, req.ActorRole, req.Accept)

	if !domain.IsOperationAllowed(domain.OpRespondReschedule, req.ActorRole) {
		return nil, ErrAccessDenied
	}
	if req.Reason != nil && len(*req.Reason) > domain.MaxReasonLength {
		return nil, fmt.Errorf("%w: reason too long", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()

	var appt *domain.Appointment
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = uc.apptRepo.GetByID(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
		}

		if !appt.IsInRescheduleNegotiation() {
			uc.logger.Warn("RespondReschedule: appointment=%d in status=%s", req.AppointmentID, appt.Status)
			return ErrInvalidState
		}
		if err := uc.checkResponder(appt, req); err != nil {
			return err
		}

		if req.Accept {
			return uc.accept(txCtx, appt, req, now)
		}
		return uc.reject(txCtx, appt, req, now)
	})
	if err != nil {
		return nil, err
	}

	uc.notifyRequester(ctx, appt, req)
	return appt, nil
}

// accept фиксирует принятый перенос: предложенное окно становится основным
func (uc *UseCase) accept(ctx context.Context, appt *domain.Appointment, req *Request, now time.Time) error {
	if appt.ProposedWindowStartUTC == nil || appt.ProposedWindowEndUTC == nil {
		uc.logger.Error("RespondReschedule: appointment=%d in negotiation without proposed window", appt.ID)
		return fmt.Errorf("%w: negotiation without proposed window", ErrInternal)
	}
	proposed := domain.TimeWindow{Start: *appt.ProposedWindowStartUTC, End: *appt.ProposedWindowEndUTC}

	// Перепроверяем конфликт календаря под FOR UPDATE: окно могли занять
	// за время переговоров
	blocking, err := uc.apptRepo.ListBlockingByProviderWindow(ctx, appt.ProviderID, proposed.Start, proposed.End)
	if err != nil {
		return fmt.Errorf("%w: failed to check calendar conflicts: %v", ErrInternal, err)
	}
	for _, other := range blocking {
		if other.ID != appt.ID {
			uc.logger.Warn("RespondReschedule: proposed window of appointment=%d conflicts with appointment=%d",
				appt.ID, other.ID)
			return ErrSlotUnavailable
		}
	}

	previous := appt.Status
	if err := uc.apptRepo.CommitReschedule(ctx, appt.ID, proposed.Start, proposed.End); err != nil {
		return fmt.Errorf("%w: failed to commit reschedule: %v", ErrInternal, err)
	}

	appt.Status = domain.StatusRescheduleConfirmed
	appt.WindowStartUTC = proposed.Start
	appt.WindowEndUTC = proposed.End
	appt.ProposedWindowStartUTC = nil
	appt.ProposedWindowEndUTC = nil
	appt.RescheduleRequestedByRole = nil
	appt.RescheduleRequestReason = nil

	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &previous,
		NewStatus:      domain.StatusRescheduleConfirmed,
		ActorUserID:    req.ActorUserID,
		ActorRole:      req.ActorRole,
		Reason:         req.Reason,
		OccurredAtUTC:  now,
	}
	if err := uc.apptRepo.AppendHistory(ctx, h); err != nil {
		return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
	}

	// Смена окна меняет близость визита, пересчитываем риск
	if _, err := uc.noshowSvc.Recalculate(ctx, appt, now); err != nil {
		return err
	}
	return nil
}

// reject откатывает переговоры: статус до запроса переноса восстанавливается
// из последней записи журнала о входе в переговоры
func (uc *UseCase) reject(ctx context.Context, appt *domain.Appointment, req *Request, now time.Time) error {
	entered, err := uc.apptRepo.GetLastTransitionInto(ctx, appt.ID, appt.Status)
	if err != nil {
		return fmt.Errorf("%w: failed to find negotiation start: %v", ErrInternal, err)
	}

	restored := domain.StatusConfirmed
	if entered.PreviousStatus != nil {
		restored = *entered.PreviousStatus
	}

	previous := appt.Status
	if err := uc.apptRepo.ClearRescheduleProposal(ctx, appt.ID, restored); err != nil {
		return fmt.Errorf("%w: failed to clear reschedule proposal: %v", ErrInternal, err)
	}

	appt.Status = restored
	appt.ProposedWindowStartUTC = nil
	appt.ProposedWindowEndUTC = nil
	appt.RescheduleRequestedByRole = nil
	appt.RescheduleRequestReason = nil

	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &previous,
		NewStatus:      restored,
		ActorUserID:    req.ActorUserID,
		ActorRole:      req.ActorRole,
		Reason:         req.Reason,
		OccurredAtUTC:  now,
	}
	if err := uc.apptRepo.AppendHistory(ctx, h); err != nil {
		return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
	}
	return nil
}

// checkResponder отвечать может только сторона визита, противоположная
// автору запроса на перенос
func (uc *UseCase) checkResponder(appt *domain.Appointment, req *Request) error {
	switch req.ActorRole {
	case domain.RoleClient:
		if appt.ClientID != req.ActorUserID {
			return ErrAccessDenied
		}
	case domain.RoleProvider:
		if appt.ProviderID != req.ActorUserID {
			return ErrAccessDenied
		}
	default:
		return ErrAccessDenied
	}

	if appt.RescheduleRequestedByRole != nil && *appt.RescheduleRequestedByRole == req.ActorRole {
		uc.logger.Warn("RespondReschedule: requester role=%s cannot respond to own request", req.ActorRole)
		return ErrAccessDenied
	}
	return nil
}

func (uc *UseCase) notifyRequester(ctx context.Context, appt *domain.Appointment, req *Request) {
	if uc.notifier == nil {
		return
	}

	counterpartID := appt.ProviderID
	if req.ActorRole == domain.RoleProvider {
		counterpartID = appt.ClientID
	}

	subject := "Перенос отклонен"
	message := "Вторая сторона отклонила предложенное окно визита"
	if req.Accept {
		subject = "Перенос принят"
		message = "Вторая сторона приняла новое окно визита"
	}

	if err := uc.notifier.Notify(ctx, counterpartID, subject, message,
		fmt.Sprintf("/appointments/%d", appt.ID)); err != nil {
		uc.logger.Error("RespondReschedule: failed to notify user=%d: %v", counterpartID, err)
	}
}
