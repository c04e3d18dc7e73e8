package completion

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	termRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/completion"
)

// Service протокол подтверждения завершения работ
// Клиент подтверждает завершение PIN-кодом или подписью, либо оспаривает.
// PIN хранится только bcrypt-хешем, попытки подбора ограничены
type Service struct {
	termRepo      TermRepository
	apptRepo      AppointmentRepository
	noshowSvc     NoShowService
	notifier      NotificationProducer
	txManager     TransactionManager
	timeProvider  TimeProvider
	pinTTL        time.Duration
	maxPinRetries int
	logger        Logger
}

// NewService создает новый экземпляр сервиса подтверждения завершения
func NewService(
	termRepo TermRepository,
	apptRepo AppointmentRepository,
	noshowSvc NoShowService,
	notifier NotificationProducer,
	txManager TransactionManager,
	pinTTLMinutes int,
	maxPinRetries int,
	logger Logger,
) *Service {
	return &Service{
		termRepo:      termRepo,
		apptRepo:      apptRepo,
		noshowSvc:     noshowSvc,
		notifier:      notifier,
		txManager:     txManager,
		timeProvider:  &RealTimeProvider{},
		pinTTL:        time.Duration(pinTTLMinutes) * time.Minute,
		maxPinRetries: maxPinRetries,
		logger:        logger,
	}
}

// GeneratePinResult результат генерации PIN
// Plaintext PIN возвращается провайдеру ровно один раз и нигде не хранится
type GeneratePinResult struct {
	Pin          string
	ExpiresAtUTC time.Time
}

// GeneratePin провайдер запускает подтверждение завершения работ
// Визит должен быть in_progress. Повторный вызов при живом pending term
// перевыпускает PIN и сбрасывает счетчик попыток
func (s *Service) GeneratePin(ctx context.Context, appointmentID int64, actor Actor, summary *string) (*GeneratePinResult, error) {
	s.logger.Info("GeneratePin: appointment=%d by user=%d", appointmentID, actor.UserID)

	if !domain.IsOperationAllowed(domain.OpGenerateCompletionPin, actor.Role) {
		return nil, ErrAccessDenied
	}

	pin, err := generatePin()
	if err != nil {
		s.logger.Error("GeneratePin: failed to generate pin: %v", err)
		return nil, fmt.Errorf("%w: generate pin: %v", ErrInternal, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("GeneratePin: failed to hash pin: %v", err)
		return nil, fmt.Errorf("%w: hash pin: %v", ErrInternal, err)
	}
	pinHash := string(hash)

	now := s.timeProvider.Now()
	expiresAt := now.Add(s.pinTTL)

	err = s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		appt, err := s.loadAppointment(txCtx, appointmentID)
		if err != nil {
			return err
		}
		if appt.ProviderID != actor.UserID {
			return ErrAccessDenied
		}
		if !appt.CanGenerateCompletionPin() {
			s.logger.Warn("GeneratePin: appointment=%d in status=%s", appointmentID, appt.Status)
			return ErrInvalidState
		}

		term, err := s.termRepo.GetByAppointmentID(txCtx, appointmentID)
		if err != nil && !errors.Is(err, termRepo.ErrTermNotFound) {
			return fmt.Errorf("%w: GeneratePin - load term: %v", ErrInternal, err)
		}

		// Живой pending term перевыпускается, терминальный не трогаем
		if term != nil {
			if term.IsTerminal() || term.Status == domain.CompletionContested {
				s.logger.Warn("GeneratePin: appointment=%d term in status=%s", appointmentID, term.Status)
				return ErrInvalidState
			}
			return s.termRepo.RefreshPin(txCtx, term.ID, pinHash, expiresAt)
		}

		_, err = s.termRepo.Create(txCtx, &domain.CompletionTerm{
			ServiceRequestID:     appt.ServiceRequestID,
			ServiceAppointmentID: appt.ID,
			ProviderID:           appt.ProviderID,
			ClientID:             appt.ClientID,
			Status:               domain.CompletionPending,
			PinHash:              &pinHash,
			PinExpiresAtUTC:      &expiresAt,
			Summary:              summary,
		})
		if err != nil {
			return fmt.Errorf("%w: GeneratePin - create term: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GeneratePin: appointment=%d pin issued, expires at %s", appointmentID, expiresAt.Format(time.RFC3339))
	return &GeneratePinResult{Pin: pin, ExpiresAtUTC: expiresAt}, nil
}

// ConfirmInput входные данные подтверждения завершения клиентом
type ConfirmInput struct {
	AppointmentID int64
	Actor         Actor
	Method        string
	Pin           string
	SignatureName string
}

// Confirm клиент подтверждает завершение работ PIN-кодом или подписью
// Успех: term Accepted, визит completed, открытый элемент очереди закрыт
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*domain.CompletionTerm, error) {
	s.logger.Info("Confirm: appointment=%d method=%s by user=%d", in.AppointmentID, in.Method, in.Actor.UserID)

	if !domain.IsOperationAllowed(domain.OpConfirmCompletion, in.Actor.Role) {
		return nil, ErrAccessDenied
	}

	method := domain.AcceptanceMethod(in.Method)
	if method != domain.MethodPin && method != domain.MethodSignature {
		return nil, ErrInvalidAcceptanceMethod
	}

	now := s.timeProvider.Now()

	var term *domain.CompletionTerm
	// Ошибки подбора PIN не откатывают транзакцию: инкремент счетчика
	// попыток должен фиксироваться. Бизнес-ошибка выносится наружу
	var bizErr error

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		appt, err := s.loadAppointment(txCtx, in.AppointmentID)
		if err != nil {
			return err
		}
		if appt.ClientID != in.Actor.UserID {
			return ErrAccessDenied
		}

		term, err = s.loadPendingTerm(txCtx, in.AppointmentID)
		if err != nil {
			return err
		}

		var signatureName *string
		switch method {
		case domain.MethodPin:
			bizErr = s.verifyPin(txCtx, term, in.Pin, now)
			if bizErr != nil {
				// Коммитим инкремент попыток, ошибку возвращаем после транзакции
				return nil
			}
		case domain.MethodSignature:
			if in.SignatureName == "" {
				bizErr = ErrSignatureRequired
				return nil
			}
			if len(in.SignatureName) > domain.MaxSignatureNameLength {
				bizErr = fmt.Errorf("%w: signature name too long", ErrSignatureRequired)
				return nil
			}
			signatureName = &in.SignatureName
		}

		if err := s.termRepo.Accept(txCtx, term.ID, method, signatureName, now); err != nil {
			return fmt.Errorf("%w: Confirm - accept term: %v", ErrInternal, err)
		}
		term.Status = domain.CompletionAccepted
		term.AcceptedWithMethod = &method
		term.AcceptedAtUTC = &now
		term.AcceptedSignatureName = signatureName

		previous := appt.Status
		if err := s.apptRepo.UpdateStatus(txCtx, in.AppointmentID, domain.StatusCompleted); err != nil {
			return fmt.Errorf("%w: Confirm - complete appointment: %v", ErrInternal, err)
		}

		h := &domain.AppointmentHistory{
			AppointmentID:  in.AppointmentID,
			PreviousStatus: &previous,
			NewStatus:      domain.StatusCompleted,
			ActorUserID:    in.Actor.UserID,
			ActorRole:      in.Actor.Role,
			OccurredAtUTC:  now,
		}
		if err := s.apptRepo.AppendHistory(txCtx, h); err != nil {
			return fmt.Errorf("%w: Confirm - append history: %v", ErrInternal, err)
		}

		return s.noshowSvc.ResolveForAppointment(txCtx, in.AppointmentID, "appointment completed", now)
	})
	if err != nil {
		return nil, err
	}
	if bizErr != nil {
		return nil, bizErr
	}

	s.notify(ctx, term.ProviderID, "Работы приняты",
		"Клиент подтвердил завершение работ", fmt.Sprintf("/appointments/%d", in.AppointmentID))

	s.logger.Info("Confirm: appointment=%d completed with method=%s", in.AppointmentID, method)
	return term, nil
}

// Contest клиент оспаривает завершение работ
func (s *Service) Contest(ctx context.Context, appointmentID int64, actor Actor, reason string) (*domain.CompletionTerm, error) {
	s.logger.Info("Contest: appointment=%d by user=%d", appointmentID, actor.UserID)

	if !domain.IsOperationAllowed(domain.OpContestCompletion, actor.Role) {
		return nil, ErrAccessDenied
	}
	if reason == "" {
		return nil, ErrContestReasonRequired
	}
	if len(reason) > domain.MaxReasonLength {
		return nil, fmt.Errorf("%w: reason too long", ErrContestReasonRequired)
	}

	now := s.timeProvider.Now()

	var term *domain.CompletionTerm
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		appt, err := s.loadAppointment(txCtx, appointmentID)
		if err != nil {
			return err
		}
		if appt.ClientID != actor.UserID {
			return ErrAccessDenied
		}

		term, err = s.loadPendingTerm(txCtx, appointmentID)
		if err != nil {
			return err
		}

		if err := s.termRepo.Contest(txCtx, term.ID, reason, now); err != nil {
			return fmt.Errorf("%w: Contest - update term: %v", ErrInternal, err)
		}
		term.Status = domain.CompletionContested
		term.ContestReason = &reason
		term.ContestedAtUTC = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, term.ProviderID, "Работы оспорены",
		"Клиент оспорил завершение работ", fmt.Sprintf("/appointments/%d", appointmentID))

	s.logger.Info("Contest: appointment=%d term contested", appointmentID)
	return term, nil
}

// Escalate оператор передает оспоренный term в разбирательство
func (s *Service) Escalate(ctx context.Context, appointmentID int64, actor Actor) (*domain.CompletionTerm, error) {
	s.logger.Info("Escalate: appointment=%d by user=%d", appointmentID, actor.UserID)

	if !domain.IsOperationAllowed(domain.OpEscalateCompletion, actor.Role) {
		return nil, ErrAccessDenied
	}

	now := s.timeProvider.Now()

	var term *domain.CompletionTerm
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		term, err = s.loadTerm(txCtx, appointmentID)
		if err != nil {
			return err
		}
		if term.Status != domain.CompletionContested {
			s.logger.Warn("Escalate: appointment=%d term in status=%s", appointmentID, term.Status)
			return ErrInvalidState
		}

		if err := s.termRepo.Escalate(txCtx, term.ID, now); err != nil {
			return fmt.Errorf("%w: Escalate - update term: %v", ErrInternal, err)
		}
		term.Status = domain.CompletionEscalated
		term.EscalatedAtUTC = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Escalate: appointment=%d term escalated", appointmentID)
	return term, nil
}

// GetByAppointment получает последний completion term визита
func (s *Service) GetByAppointment(ctx context.Context, appointmentID int64) (*domain.CompletionTerm, error) {
	return s.loadTerm(ctx, appointmentID)
}

// Вспомогательные методы

// Actor инициатор операции
type Actor struct {
	UserID int64
	Role   domain.ActorRole
}

func (s *Service) loadAppointment(ctx context.Context, id int64) (*domain.Appointment, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("%w: load appointment: %v", ErrInternal, err)
	}
	return appt, nil
}

func (s *Service) loadTerm(ctx context.Context, appointmentID int64) (*domain.CompletionTerm, error) {
	term, err := s.termRepo.GetByAppointmentID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, termRepo.ErrTermNotFound) {
			return nil, ErrTermNotFound
		}
		return nil, fmt.Errorf("%w: load term: %v", ErrInternal, err)
	}
	return term, nil
}

// loadPendingTerm загружает term и требует статус Pending
// Терминальные term-ы неизменяемы
func (s *Service) loadPendingTerm(ctx context.Context, appointmentID int64) (*domain.CompletionTerm, error) {
	term, err := s.loadTerm(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if term.Status != domain.CompletionPending {
		s.logger.Warn("loadPendingTerm: appointment=%d term in status=%s", appointmentID, term.Status)
		return nil, ErrInvalidState
	}
	return term, nil
}

// verifyPin проверяет PIN с учетом TTL и лимита попыток
// Несовпадение инкрементирует счетчик; инкремент коммитится вызывающим
func (s *Service) verifyPin(ctx context.Context, term *domain.CompletionTerm, pin string, now time.Time) error {
	if !isSixDigits(pin) {
		return ErrInvalidPinFormat
	}
	if term.IsPinLocked(s.maxPinRetries) {
		return ErrPinLocked
	}
	if term.IsPinExpired(now) {
		return ErrPinExpired
	}
	if term.PinHash == nil {
		return ErrInvalidPin
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*term.PinHash), []byte(pin)); err != nil {
		if incErr := s.termRepo.IncrementFailedAttempts(ctx, term.ID); incErr != nil {
			s.logger.Error("verifyPin: failed to increment attempts for term=%d: %v", term.ID, incErr)
		}
		term.PinFailedAttempts++
		if term.IsPinLocked(s.maxPinRetries) {
			s.logger.Warn("verifyPin: term=%d locked after %d failed attempts", term.ID, term.PinFailedAttempts)
			return ErrPinLocked
		}
		return ErrInvalidPin
	}

	return nil
}

func (s *Service) notify(ctx context.Context, recipientID int64, subject, message, actionURL string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, recipientID, subject, message, actionURL); err != nil {
		s.logger.Error("notify: failed to notify user=%d: %v", recipientID, err)
	}
}

// generatePin выпускает 6-значный PIN на crypto/rand
func generatePin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func isSixDigits(pin string) bool {
	if len(pin) != domain.DefaultPinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
