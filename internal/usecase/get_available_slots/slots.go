package get_available_slots

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// buildDayIntervals строит открытые интервалы одного дня из еженедельных
// правил, обрезанные по запрошенному диапазону
func buildDayIntervals(rules []*domain.ProviderAvailabilityRule, day time.Time, bounds domain.TimeWindow) ([]domain.TimeWindow, error) {
	intervals := make([]domain.TimeWindow, 0)

	for _, rule := range rules {
		if rule.DayOfWeek != day.Weekday() {
			continue
		}

		start, err := atClock(day, rule.StartTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %v", rule.ID, err)
		}
		end, err := atClock(day, rule.EndTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %v", rule.ID, err)
		}

		window := clip(domain.TimeWindow{Start: start, End: end}, bounds)
		if window.IsValid() {
			intervals = append(intervals, window)
		}
	}

	return intervals, nil
}

// applyExceptions применяет одноразовые исключения к открытым интервалам
// Исключение полностью перекрывает правила на своем интервале: сначала
// покрытый диапазон вырезается, затем open-исключение добавляет его обратно
func applyExceptions(intervals []domain.TimeWindow, exceptions []*domain.ProviderAvailabilityException, bounds domain.TimeWindow) []domain.TimeWindow {
	result := intervals

	for _, exc := range exceptions {
		covered := clip(exc.Window(), bounds)
		if !covered.IsValid() {
			continue
		}

		result = subtract(result, covered)
		if exc.Kind == domain.ExceptionOpen {
			result = append(result, covered)
		}
	}

	return result
}

// subtractAppointments вычитает окна блокирующих визитов
func subtractAppointments(intervals []domain.TimeWindow, appointments []*domain.Appointment) []domain.TimeWindow {
	result := intervals
	for _, appt := range appointments {
		result = subtract(result, appt.Window())
	}
	return result
}

// sliceIntoSlots нарезает свободные интервалы на слоты фиксированной длины
// Слот попадает в выдачу, только если целиком лежит в интервале и
// начинается не раньше notBefore
func sliceIntoSlots(intervals []domain.TimeWindow, slotDuration time.Duration, notBefore time.Time) []Slot {
	slots := make([]Slot, 0)

	for _, interval := range intervals {
		for start := interval.Start; !start.Add(slotDuration).After(interval.End); start = start.Add(slotDuration) {
			if start.Before(notBefore) {
				continue
			}
			slots = append(slots, Slot{StartUTC: start, EndUTC: start.Add(slotDuration)})
		}
	}

	return slots
}

// subtract вырезает cut из каждого интервала списка
func subtract(intervals []domain.TimeWindow, cut domain.TimeWindow) []domain.TimeWindow {
	result := make([]domain.TimeWindow, 0, len(intervals))

	for _, interval := range intervals {
		if !interval.Overlaps(cut) {
			result = append(result, interval)
			continue
		}

		// Левый остаток
		if interval.Start.Before(cut.Start) {
			result = append(result, domain.TimeWindow{Start: interval.Start, End: cut.Start})
		}
		// Правый остаток
		if cut.End.Before(interval.End) {
			result = append(result, domain.TimeWindow{Start: cut.End, End: interval.End})
		}
	}

	return result
}

// clip обрезает окно по границам диапазона поиска
func clip(window, bounds domain.TimeWindow) domain.TimeWindow {
	start := window.Start
	if start.Before(bounds.Start) {
		start = bounds.Start
	}
	end := window.End
	if end.After(bounds.End) {
		end = bounds.End
	}
	return domain.TimeWindow{Start: start, End: end}
}

// atClock совмещает дату дня с временем "HH:MM" в UTC
func atClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(domain.ClockFormat, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock value %q: %v", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// startOfDay обнуляет время до начала суток UTC
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
