package request_reschedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
)

// Request запрос переноса визита
type Request struct {
	AppointmentID    int64
	ActorUserID      int64
	ActorRole        domain.ActorRole
	ProposedStartUTC time.Time
	ProposedEndUTC   time.Time
	Reason           *string
}

// UseCase use case запроса переноса визита
// Любая из сторон предлагает новое окно, вторая сторона отвечает
// (см. respond_reschedule). Окно визита не меняется до принятия
type UseCase struct {
	apptRepo     AppointmentRepository
	notifier     NotificationProducer
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	notifier NotificationProducer,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:     apptRepo,
		notifier:     notifier,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// Execute выполняет use case запроса переноса
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*domain.Appointment, error) {
	uc.logger.Info("RequestReschedule: appointment=%d by user=%d role=%s, proposed=[%s, %s)",
		req.AppointmentID, req.ActorUserID, req.ActorRole,
		req.ProposedStartUTC.Format(time.RFC3339), req.ProposedEndUTC.Format(time.RFC3339))

	now := uc.timeProvider.Now()
	if err := uc.validate(req, now); err != nil {
		uc.logger.Warn("RequestReschedule: validation failed: %v", err)
		return nil, err
	}

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

		if err := uc.checkActor(appt, req); err != nil {
			return err
		}
		if !appt.CanRequestReschedule() {
			uc.logger.Warn("RequestReschedule: appointment=%d in status=%s", req.AppointmentID, appt.Status)
			return ErrInvalidState
		}

		newStatus := domain.StatusRescheduleRequestedByClient
		if req.ActorRole == domain.RoleProvider {
			newStatus = domain.StatusRescheduleRequestedByProvider
		}

		previous := appt.Status
		err = uc.apptRepo.SetRescheduleProposal(txCtx, req.AppointmentID, newStatus,
			req.ProposedStartUTC.UTC(), req.ProposedEndUTC.UTC(), req.ActorRole, req.Reason)
		if err != nil {
			return fmt.Errorf("%w: failed to set reschedule proposal: %v", ErrInternal, err)
		}

		appt.Status = newStatus
		start, end := req.ProposedStartUTC.UTC(), req.ProposedEndUTC.UTC()
		appt.ProposedWindowStartUTC = &start
		appt.ProposedWindowEndUTC = &end
		appt.RescheduleRequestedByRole = &req.ActorRole
		appt.RescheduleRequestReason = req.Reason

		h := &domain.AppointmentHistory{
			AppointmentID:  req.AppointmentID,
			PreviousStatus: &previous,
			NewStatus:      newStatus,
			ActorUserID:    req.ActorUserID,
			ActorRole:      req.ActorRole,
			Reason:         req.Reason,
			OccurredAtUTC:  now,
		}
		if err := uc.apptRepo.AppendHistory(txCtx, h); err != nil {
			return fmt.Errorf("%w: failed to append history: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	counterpartID := appt.ProviderID
	if req.ActorRole == domain.RoleProvider {
		counterpartID = appt.ClientID
	}
	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, counterpartID, "Запрос переноса визита",
			"Предложено новое окно визита, примите или отклоните",
			fmt.Sprintf("/appointments/%d", appt.ID)); err != nil {
			uc.logger.Error("RequestReschedule: failed to notify user=%d: %v", counterpartID, err)
		}
	}

	uc.logger.Info("RequestReschedule: appointment=%d negotiation started", req.AppointmentID)
	return appt, nil
}

func (uc *UseCase) validate(req *Request, now time.Time) error {
	if !domain.IsOperationAllowed(domain.OpRequestReschedule, req.ActorRole) {
		return ErrAccessDenied
	}

	window := domain.TimeWindow{Start: req.ProposedStartUTC, End: req.ProposedEndUTC}
	if !window.IsValid() {
		return fmt.Errorf("%w: proposed end must be after proposed start", ErrInvalidTimeRange)
	}
	if req.ProposedStartUTC.Before(now) {
		return fmt.Errorf("%w: proposed window must start in the future", ErrInvalidTimeRange)
	}
	if req.Reason != nil && len(*req.Reason) > domain.MaxReasonLength {
		return fmt.Errorf("%w: reason too long", ErrInvalidInput)
	}
	return nil
}

func (uc *UseCase) checkActor(appt *domain.Appointment, req *Request) error {
	switch req.ActorRole {
	case domain.RoleClient:
		if appt.ClientID == req.ActorUserID {
			return nil
		}
	case domain.RoleProvider:
		if appt.ProviderID == req.ActorUserID {
			return nil
		}
	}
	return ErrAccessDenied
}
