package get_available_slots

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// UseCase use case для получения доступных слотов провайдера
// Резолвер: еженедельные правила -> одноразовые исключения ->
// вычитание окон блокирующих визитов -> нарезка на слоты
type UseCase struct {
	apptRepo            AppointmentRepository
	availabilityRepo    AvailabilityRepository
	timeProvider        TimeProvider
	defaultSlotDuration time.Duration
	logger              Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	apptRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	defaultSlotDurationMinutes int,
	logger Logger,
) *UseCase {
	return &UseCase{
		apptRepo:            apptRepo,
		availabilityRepo:    availabilityRepo,
		timeProvider:        &RealTimeProvider{},
		defaultSlotDuration: time.Duration(defaultSlotDurationMinutes) * time.Minute,
		logger:              logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: provider=%d, from=%s, to=%s",
		req.ProviderID, req.FromUTC.Format(time.RFC3339), req.ToUTC.Format(time.RFC3339))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	now := uc.timeProvider.Now()

	slotDuration := uc.defaultSlotDuration
	if req.SlotDurationMinutes != nil {
		slotDuration = time.Duration(*req.SlotDurationMinutes) * time.Minute
	}

	bounds := domain.TimeWindow{Start: req.FromUTC.UTC(), End: req.ToUTC.UTC()}

	// 2. Еженедельные правила провайдера
	rules, err := uc.availabilityRepo.ListRulesByProvider(ctx, req.ProviderID)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get rules for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: failed to get availability rules: %v", ErrInternal, err)
	}

	// 3. Исключения, пересекающие диапазон
	exceptions, err := uc.availabilityRepo.ListExceptionsByProviderWindow(ctx, req.ProviderID, bounds.Start, bounds.End)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get exceptions for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: failed to get availability exceptions: %v", ErrInternal, err)
	}

	// 4. Блокирующие визиты в диапазоне
	appointments, err := uc.apptRepo.ListBlockingByProviderWindow(ctx, req.ProviderID, bounds.Start, bounds.End)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get appointments for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 5. День за днем: правила -> исключения -> вычитание визитов -> слоты
	slots := make([]Slot, 0)
	for day := startOfDay(bounds.Start); day.Before(bounds.End); day = day.AddDate(0, 0, 1) {
		open, err := buildDayIntervals(rules, day, bounds)
		if err != nil {
			uc.logger.Error("GetAvailableSlots: invalid rule for provider=%d: %v", req.ProviderID, err)
			return nil, fmt.Errorf("%w: %v", ErrInternal, err)
		}

		open = applyExceptions(open, exceptions, dayBounds(day, bounds))
		open = subtractAppointments(open, appointments)
		slots = append(slots, sliceIntoSlots(open, slotDuration, now)...)
	}

	uc.logger.Info("GetAvailableSlots: generated %d slots for provider=%d", len(slots), req.ProviderID)

	return &Response{
		ProviderID:          req.ProviderID,
		FromUTC:             bounds.Start,
		ToUTC:               bounds.End,
		SlotDurationMinutes: int(slotDuration.Minutes()),
		Slots:               slots,
	}, nil
}

// dayBounds пересечение суток дня с диапазоном поиска
func dayBounds(day time.Time, bounds domain.TimeWindow) domain.TimeWindow {
	return clip(domain.TimeWindow{Start: day, End: day.AddDate(0, 0, 1)}, bounds)
}
