package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/policy"
)

// Confirm провайдер подтверждает визит
// Переход pending_provider_confirmation -> confirmed с пересчетом риска
func (s *Service) Confirm(ctx context.Context, id int64, actor Actor) (*domain.Appointment, error) {
	s.logger.Info("Confirm: appointment=%d by user=%d", id, actor.UserID)
	now := s.timeProvider.Now()

	var appt *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpConfirm, actor); err != nil {
			return err
		}
		if !appt.CanBeConfirmed() {
			s.logger.Warn("Confirm: appointment=%d in status=%s cannot be confirmed", id, appt.Status)
			return ErrInvalidState
		}
		if appt.IsPendingExpired(now) {
			// Дедлайн уже пропущен, подтверждение опоздало
			s.logger.Warn("Confirm: appointment=%d confirmation deadline passed", id)
			return ErrInvalidState
		}

		previous := appt.Status
		if err := s.apptRepo.UpdateStatus(txCtx, id, domain.StatusConfirmed); err != nil {
			return fmt.Errorf("%w: Confirm - update status: %v", ErrInternal, err)
		}
		appt.Status = domain.StatusConfirmed

		if err := s.appendTransitionHistory(txCtx, appt, previous, domain.StatusConfirmed, actor, nil, nil, now); err != nil {
			return err
		}

		if _, err := s.noshowSvc.Recalculate(txCtx, appt, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appt.ClientID, "Визит подтвержден",
		"Исполнитель подтвердил визит по вашей заявке", fmt.Sprintf("/appointments/%d", appt.ID))

	s.logger.Info("Confirm: appointment=%d confirmed", id)
	return appt, nil
}

// Reject провайдер отклоняет визит
// Переход pending_provider_confirmation -> rejected_by_provider
func (s *Service) Reject(ctx context.Context, id int64, actor Actor, reason *string) (*domain.Appointment, error) {
	s.logger.Info("Reject: appointment=%d by user=%d", id, actor.UserID)
	now := s.timeProvider.Now()

	var appt *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpReject, actor); err != nil {
			return err
		}
		if !appt.CanBeConfirmed() {
			s.logger.Warn("Reject: appointment=%d in status=%s cannot be rejected", id, appt.Status)
			return ErrInvalidState
		}

		previous := appt.Status
		if err := s.apptRepo.UpdateStatus(txCtx, id, domain.StatusRejectedByProvider); err != nil {
			return fmt.Errorf("%w: Reject - update status: %v", ErrInternal, err)
		}
		appt.Status = domain.StatusRejectedByProvider

		if err := s.appendTransitionHistory(txCtx, appt, previous, domain.StatusRejectedByProvider, actor, reason, nil, now); err != nil {
			return err
		}

		// Терминальный переход закрывает открытый элемент очереди
		return s.noshowSvc.ResolveForAppointment(txCtx, id, "appointment rejected by provider", now)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appt.ClientID, "Визит отклонен",
		"Исполнитель отклонил визит по вашей заявке", fmt.Sprintf("/appointments/%d", appt.ID))

	s.logger.Info("Reject: appointment=%d rejected", id)
	return appt, nil
}

// CancelInput входные данные отмены визита
type CancelInput struct {
	AppointmentID int64
	Actor         Actor
	Reason        string
}

// Cancel отменяет визит клиентом или провайдером
// Внутри окна политики запускает финансовый движок; результат расчета
// фиксируется отдельной строкой истории после коммита перехода
func (s *Service) Cancel(ctx context.Context, in CancelInput) (*domain.Appointment, error) {
	s.logger.Info("Cancel: appointment=%d by user=%d role=%s", in.AppointmentID, in.Actor.UserID, in.Actor.Role)
	now := s.timeProvider.Now()

	var appt *domain.Appointment
	var cancelStatus domain.AppointmentStatus
	var eventType domain.PolicyEventType

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, in.AppointmentID)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpCancel, in.Actor); err != nil {
			return err
		}
		if !appt.CanBeCancelled() {
			s.logger.Warn("Cancel: appointment=%d in status=%s cannot be cancelled", in.AppointmentID, appt.Status)
			return ErrInvalidState
		}

		if in.Actor.Role == domain.RoleClient {
			cancelStatus = domain.StatusCancelledByClient
			eventType = domain.EventClientCancellation
		} else {
			cancelStatus = domain.StatusCancelledByProvider
			eventType = domain.EventProviderCancellation
		}

		previous := appt.Status
		if err := s.apptRepo.Cancel(txCtx, in.AppointmentID, cancelStatus, in.Reason); err != nil {
			return fmt.Errorf("%w: Cancel - update status: %v", ErrInternal, err)
		}
		appt.Status = cancelStatus
		appt.CancellationReason = &in.Reason

		if err := s.appendTransitionHistory(txCtx, appt, previous, cancelStatus, in.Actor, &in.Reason, nil, now); err != nil {
			return err
		}

		// Терминальный переход закрывает открытый элемент очереди
		return s.noshowSvc.ResolveForAppointment(txCtx, in.AppointmentID, "appointment cancelled", now)
	})
	if err != nil {
		return nil, err
	}

	// Финансовая политика применяется после коммита перехода: сбой расчета
	// или проводки никогда не откатывает отмену
	s.applyPolicyAfterTransition(ctx, appt, eventType, in.Actor)

	counterpartID := appt.ProviderID
	if in.Actor.Role == domain.RoleProvider {
		counterpartID = appt.ClientID
	}
	s.notify(ctx, counterpartID, "Визит отменен",
		"Визит по вашей заявке отменен", fmt.Sprintf("/appointments/%d", appt.ID))

	s.logger.Info("Cancel: appointment=%d cancelled with status=%s", in.AppointmentID, cancelStatus)
	return appt, nil
}

// MarkArrivedInput входные данные отметки прибытия
type MarkArrivedInput struct {
	AppointmentID  int64
	Actor          Actor
	Latitude       *float64
	Longitude      *float64
	AccuracyMeters *float64
	ManualReason   *string
}

// MarkArrived провайдер отмечает прибытие на место визита
// Требуется геолокация либо непустая manual причина. Прибытие пересчитывает риск
func (s *Service) MarkArrived(ctx context.Context, in MarkArrivedInput) (*domain.Appointment, error) {
	s.logger.Info("MarkArrived: appointment=%d by user=%d", in.AppointmentID, in.Actor.UserID)

	hasGeo := in.Latitude != nil && in.Longitude != nil
	hasManual := in.ManualReason != nil && *in.ManualReason != ""
	if !hasGeo && !hasManual {
		s.logger.Warn("MarkArrived: appointment=%d neither geolocation nor manual reason provided", in.AppointmentID)
		return nil, fmt.Errorf("%w: either geolocation or manual reason is required", ErrInvalidInput)
	}

	now := s.timeProvider.Now()

	var appt *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, in.AppointmentID)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpMarkArrived, in.Actor); err != nil {
			return err
		}
		if !appt.CanMarkArrived() {
			s.logger.Warn("MarkArrived: appointment=%d in status=%s cannot be marked arrived", in.AppointmentID, appt.Status)
			return ErrInvalidState
		}

		previous := appt.Status
		err = s.apptRepo.MarkArrived(txCtx, in.AppointmentID, now,
			in.Latitude, in.Longitude, in.AccuracyMeters, in.ManualReason)
		if err != nil {
			return fmt.Errorf("%w: MarkArrived - update: %v", ErrInternal, err)
		}
		appt.Status = domain.StatusArrived
		appt.ArrivedAtUTC = &now
		appt.ArrivedLatitude = in.Latitude
		appt.ArrivedLongitude = in.Longitude
		appt.ArrivedAccuracyMeters = in.AccuracyMeters
		appt.ArrivedManualReason = in.ManualReason

		if err := s.appendTransitionHistory(txCtx, appt, previous, domain.StatusArrived, in.Actor, in.ManualReason, nil, now); err != nil {
			return err
		}

		if _, err := s.noshowSvc.Recalculate(txCtx, appt, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appt.ClientID, "Исполнитель прибыл",
		"Исполнитель отметил прибытие на место визита", fmt.Sprintf("/appointments/%d", appt.ID))

	s.logger.Info("MarkArrived: appointment=%d marked arrived", in.AppointmentID)
	return appt, nil
}

// StartExecution провайдер начинает работы
// Переход arrived -> in_progress
func (s *Service) StartExecution(ctx context.Context, id int64, actor Actor) (*domain.Appointment, error) {
	s.logger.Info("StartExecution: appointment=%d by user=%d", id, actor.UserID)
	now := s.timeProvider.Now()

	var appt *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, id)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpStartExecution, actor); err != nil {
			return err
		}
		if !appt.CanStartExecution() {
			s.logger.Warn("StartExecution: appointment=%d in status=%s cannot start", id, appt.Status)
			return ErrInvalidState
		}

		previous := appt.Status
		if err := s.apptRepo.StartExecution(txCtx, id, now); err != nil {
			return fmt.Errorf("%w: StartExecution - update: %v", ErrInternal, err)
		}
		appt.Status = domain.StatusInProgress
		appt.StartedAtUTC = &now

		return s.appendTransitionHistory(txCtx, appt, previous, domain.StatusInProgress, actor, nil, nil, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("StartExecution: appointment=%d in progress", id)
	return appt, nil
}

// UpdateOperationalStatusInput входные данные обновления операционного статуса
type UpdateOperationalStatusInput struct {
	AppointmentID int64
	Actor         Actor
	Status        string
	Reason        *string
}

// UpdateOperationalStatus обновляет операционный статус визита
// Статус бронирования не меняется, в журнал пишется отдельная запись
// с прежним и новым операционным статусом
func (s *Service) UpdateOperationalStatus(ctx context.Context, in UpdateOperationalStatusInput) (*domain.Appointment, error) {
	s.logger.Info("UpdateOperationalStatus: appointment=%d status=%s by user=%d",
		in.AppointmentID, in.Status, in.Actor.UserID)

	if in.Status == "" || len(in.Status) > domain.MaxOperationalStatusLen {
		return nil, fmt.Errorf("%w: operational status must be non-empty and at most %d characters",
			ErrInvalidInput, domain.MaxOperationalStatusLen)
	}

	now := s.timeProvider.Now()

	var appt *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		appt, err = s.loadAppointment(txCtx, in.AppointmentID)
		if err != nil {
			return err
		}

		if err := s.checkOperation(appt, domain.OpUpdateOperationalStatus, in.Actor); err != nil {
			return err
		}
		if appt.IsTerminal() {
			s.logger.Warn("UpdateOperationalStatus: appointment=%d is terminal", in.AppointmentID)
			return ErrInvalidState
		}

		previousOperational := appt.OperationalStatus
		if err := s.apptRepo.UpdateOperationalStatus(txCtx, in.AppointmentID, in.Status, in.Reason, now); err != nil {
			return fmt.Errorf("%w: UpdateOperationalStatus - update: %v", ErrInternal, err)
		}
		appt.OperationalStatus = &in.Status
		appt.OperationalStatusUpdatedAtUTC = &now
		appt.OperationalStatusReason = in.Reason

		h := &domain.AppointmentHistory{
			AppointmentID:             in.AppointmentID,
			PreviousStatus:            &appt.Status,
			NewStatus:                 appt.Status,
			ActorUserID:               in.Actor.UserID,
			ActorRole:                 in.Actor.Role,
			Reason:                    in.Reason,
			PreviousOperationalStatus: previousOperational,
			NewOperationalStatus:      &in.Status,
			Metadata:                  &domain.HistoryMetadata{Type: domain.MetadataOperationalStatusChange},
			OccurredAtUTC:             now,
		}
		if err := s.apptRepo.AppendHistory(txCtx, h); err != nil {
			return fmt.Errorf("%w: UpdateOperationalStatus - append history: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, appt.ClientID, "Статус визита обновлен",
		fmt.Sprintf("Исполнитель обновил статус работ: %s", in.Status), fmt.Sprintf("/appointments/%d", appt.ID))

	return appt, nil
}

// applyPolicyAfterTransition запускает финансовый движок после коммита
// терминального перехода. Любой сбой здесь логируется и фиксируется
// в истории, но не возвращается вызывающему
func (s *Service) applyPolicyAfterTransition(ctx context.Context, appt *domain.Appointment, eventType domain.PolicyEventType, actor Actor) {
	now := s.timeProvider.Now()

	var metadata *domain.HistoryMetadata

	proposal, err := s.requestClient.GetAcceptedProposal(ctx, appt.ServiceRequestID)
	if err != nil {
		s.logger.Error("applyPolicyAfterTransition: failed to get proposal for request=%d: %v",
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
		metadata = s.policySvc.Apply(ctx, policy.ApplyInput{
			Appointment:  appt,
			EventType:    eventType,
			ServiceValue: proposal.AgreedValue,
			Currency:     proposal.Currency,
			Now:          now,
		})
	}

	// Ни одно правило не покрыло событие - истории нечего фиксировать
	if metadata == nil {
		return
	}

	h := &domain.AppointmentHistory{
		AppointmentID:  appt.ID,
		PreviousStatus: &appt.Status,
		NewStatus:      appt.Status,
		ActorUserID:    actor.UserID,
		ActorRole:      actor.Role,
		Metadata:       metadata,
		OccurredAtUTC:  now,
	}
	if err := s.apptRepo.AppendHistory(ctx, h); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("applyPolicyAfterTransition: failed to append policy history for appointment=%d: %v",
			appt.ID, err)
	}
}
