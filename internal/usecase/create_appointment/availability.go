package create_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// windowIsOpen проверяет, что запрошенное окно целиком покрыто расписанием
// провайдера: еженедельные правила, скорректированные исключениями
func windowIsOpen(
	window domain.TimeWindow,
	rules []*domain.ProviderAvailabilityRule,
	exceptions []*domain.ProviderAvailabilityException,
) (bool, error) {
	open := make([]domain.TimeWindow, 0)

	// Правила по дням, которые затрагивает окно
	for day := startOfDay(window.Start); day.Before(window.End); day = day.AddDate(0, 0, 1) {
		for _, rule := range rules {
			if rule.DayOfWeek != day.Weekday() {
				continue
			}

			start, err := atClock(day, rule.StartTime)
			if err != nil {
				return false, fmt.Errorf("rule %d: %v", rule.ID, err)
			}
			end, err := atClock(day, rule.EndTime)
			if err != nil {
				return false, fmt.Errorf("rule %d: %v", rule.ID, err)
			}

			interval := domain.TimeWindow{Start: start, End: end}
			if interval.IsValid() {
				open = append(open, interval)
			}
		}
	}

	// Исключения полностью перекрывают правила на своем интервале
	for _, exc := range exceptions {
		open = subtract(open, exc.Window())
		if exc.Kind == domain.ExceptionOpen {
			open = append(open, exc.Window())
		}
	}

	// Окно должно целиком лежать в открытых интервалах: вычитаем их
	// из окна и проверяем, что ничего не осталось
	remainder := []domain.TimeWindow{window}
	for _, interval := range open {
		remainder = subtract(remainder, interval)
	}

	return len(remainder) == 0, nil
}

// subtract вырезает cut из каждого интервала списка
func subtract(intervals []domain.TimeWindow, cut domain.TimeWindow) []domain.TimeWindow {
	result := make([]domain.TimeWindow, 0, len(intervals))

	for _, interval := range intervals {
		if !interval.Overlaps(cut) {
			result = append(result, interval)
			continue
		}

		if interval.Start.Before(cut.Start) {
			result = append(result, domain.TimeWindow{Start: interval.Start, End: cut.Start})
		}
		if cut.End.Before(interval.End) {
			result = append(result, domain.TimeWindow{Start: cut.End, End: interval.End})
		}
	}

	return result
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
