package recalculate_noshow_risk

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request запрос фонового пересчета риска no-show
type Request struct {
	HorizonHours int
	BatchSize    int
}

// Response результат пакетного пересчета
type Response struct {
	ProcessedCount int `json:"processedCount"`
}

// UseCase фоновый обход незавершенных визитов с пересчетом риска no-show.
// Пороговые причины (окно через 6ч/2ч) срабатывают сами по ходу времени,
// без событий по визиту, поэтому обход запускается планировщиком и
// подхватывает пересечение порогов. Выборка идет под FOR UPDATE SKIP LOCKED,
// параллельные запуски обрабатывают непересекающиеся пачки
type UseCase struct {
	apptRepo     AppointmentRepository
	noshowSvc    NoShowService
	txManager    TransactionManager
	timeProvider TimeProvider
	horizonHours int
	batchSize    int
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	noshowSvc NoShowService,
	txManager TransactionManager,
	defaultHorizonHours int,
	defaultBatchSize int,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:     apptRepo,
		noshowSvc:    noshowSvc,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		horizonHours: defaultHorizonHours,
		batchSize:    defaultBatchSize,
		logger:       logger,
	}
}

// Execute выполняет use case пакетного пересчета риска
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	horizonHours := req.HorizonHours
	if horizonHours == 0 {
		horizonHours = uc.horizonHours
	}
	if horizonHours < 0 {
		return nil, fmt.Errorf("%w: horizon must be positive", ErrInvalidInput)
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = uc.batchSize
	}
	if batchSize < 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", ErrInvalidInput)
	}

	now := uc.timeProvider.Now()
	to := now.Add(time.Duration(horizonHours) * time.Hour)
	uc.logger.Info("RecalculateNoShowRisk: sweeping windows in [%s, %s), batch=%d",
		now.Format(time.RFC3339), to.Format(time.RFC3339), batchSize)

	var upcoming []*domain.Appointment
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		var err error
		upcoming, err = uc.apptRepo.ListUpcomingForRiskSweep(txCtx, now, to, batchSize)
		if err != nil {
			return fmt.Errorf("%w: failed to list upcoming appointments: %v", ErrInternal, err)
		}

		for _, appt := range upcoming {
			if _, err := uc.noshowSvc.Recalculate(txCtx, appt, now); err != nil {
				return fmt.Errorf("%w: failed to recalculate risk for appointment=%d: %v",
					ErrInternal, appt.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("RecalculateNoShowRisk: recalculated %d appointments", len(upcoming))
	return &Response{ProcessedCount: len(upcoming)}, nil
}
