package get_available_slots

import "time"

// Request запрос доступных слотов провайдера
type Request struct {
	ProviderID          int64
	FromUTC             time.Time
	ToUTC               time.Time
	SlotDurationMinutes *int
}

// Slot один свободный слот
type Slot struct {
	StartUTC time.Time `json:"startUtc"`
	EndUTC   time.Time `json:"endUtc"`
}

// Response список свободных слотов провайдера в запрошенном диапазоне
type Response struct {
	ProviderID          int64     `json:"providerId"`
	FromUTC             time.Time `json:"fromUtc"`
	ToUTC               time.Time `json:"toUtc"`
	SlotDurationMinutes int       `json:"slotDurationMinutes"`
	Slots               []Slot    `json:"slots"`
}
