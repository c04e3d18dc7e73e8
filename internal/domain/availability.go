package domain

import "time"

// TimeWindow полуинтервал [Start, End) в UTC
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// IsValid returns true if the window has positive length
func (w TimeWindow) IsValid() bool {
	return w.End.After(w.Start)
}

// Overlaps проверяет реальное пересечение полуинтервалов
// Окно, заканчивающееся ровно там, где начинается другое - НЕ пересечение
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains returns true if other lies fully inside w
func (w TimeWindow) Contains(other TimeWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// Duration returns the window length
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ProviderAvailabilityRule recurring weekly availability window of a provider
// StartTime/EndTime в формате HH:MM, время UTC
type ProviderAvailabilityRule struct {
	ID         int64
	ProviderID int64
	DayOfWeek  time.Weekday
	StartTime  string // "09:00"
	EndTime    string // "18:00"
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExceptionKind вид исключения из расписания
type ExceptionKind string

const (
	// ExceptionBlock закрывает интервал, открытый правилами
	ExceptionBlock ExceptionKind = "block"
	// ExceptionOpen открывает интервал, закрытый правилами
	ExceptionOpen ExceptionKind = "open"
)

// ProviderAvailabilityException one-off override of the weekly rules
// Исключения полностью перекрывают правила на покрываемом интервале
type ProviderAvailabilityException struct {
	ID             int64
	ProviderID     int64
	Kind           ExceptionKind
	WindowStartUTC time.Time
	WindowEndUTC   time.Time
	Reason         *string
	CreatedAt      time.Time
}

// Window returns the covered interval
func (e *ProviderAvailabilityException) Window() TimeWindow {
	return TimeWindow{Start: e.WindowStartUTC, End: e.WindowEndUTC}
}
