package expire_appointments

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request запрос пакетного истечения неподтвержденных визитов
type Request struct {
	BatchSize int
}

// Response результат пакетной обработки
type Response struct {
	ProcessedCount int `json:"processedCount"`
}

// UseCase use case пакетного истечения визитов, пропустивших дедлайн
// подтверждения. Дедлайн хранится в данных (expires_at_utc), таймеров нет:
// повторный запуск с тем же временем ничего не находит и возвращает 0.
// Выборка идет под FOR UPDATE SKIP LOCKED, параллельные запуски
// обрабатывают непересекающиеся пачки
type UseCase struct {
	apptRepo     AppointmentRepository
	noshowSvc    NoShowService
	notifier     NotificationProducer
	txManager    TransactionManager
	timeProvider TimeProvider
	batchSize    int
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	noshowSvc NoShowService,
	notifier NotificationProducer,
	txManager TransactionManager,
	defaultBatchSize int,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:     apptRepo,
		noshowSvc:    noshowSvc,
		notifier:     notifier,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		batchSize:    defaultBatchSize,
		logger:       logger,
	}
}

// Execute выполняет use case пакетного истечения
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = uc.batchSize
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()
	uc.logger.Info("ExpireAppointments: scanning batch of %d at %s", batchSize, now.Format("2006-01-02T15:04:05Z"))

	var expired []*domain.Appointment
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		expired, err = uc.apptRepo.ListExpiredPending(txCtx, now, batchSize)
		if err != nil {
			return fmt.Errorf("%w: failed to list expired appointments: %v", ErrInternal, err)
		}

		for _, appt := range expired {
			previous := appt.Status
			if err := uc.apptRepo.UpdateStatus(txCtx, appt.ID, domain.StatusExpiredWithoutProviderAction); err != nil {
				return fmt.Errorf("%w: failed to expire appointment=%d: %v", ErrInternal, appt.ID, err)
			}

			h := &domain.AppointmentHistory{
				AppointmentID:  appt.ID,
				PreviousStatus: &previous,
				NewStatus:      domain.StatusExpiredWithoutProviderAction,
				ActorRole:      domain.RoleSystem,
				OccurredAtUTC:  now,
			}
			if err := uc.apptRepo.AppendHistory(txCtx, h); err != nil {
				return fmt.Errorf("%w: failed to append history for appointment=%d: %v", ErrInternal, appt.ID, err)
			}

			// Терминальный переход закрывает открытый элемент очереди
			if err := uc.noshowSvc.ResolveForAppointment(txCtx, appt.ID, "appointment expired", now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Уведомления после коммита, сбой доставки не влияет на результат
	if uc.notifier != nil {
		for _, appt := range expired {
			if err := uc.notifier.Notify(ctx, appt.ClientID, "Визит не подтвержден",
				"Исполнитель не подтвердил визит вовремя, выберите другое окно",
				fmt.Sprintf("/appointments/%d", appt.ID)); err != nil {
				uc.logger.Error("ExpireAppointments: failed to notify client=%d: %v", appt.ClientID, err)
			}
		}
	}

	uc.logger.Info("ExpireAppointments: expired %d appointments", len(expired))
	return &Response{ProcessedCount: len(expired)}, nil
}
