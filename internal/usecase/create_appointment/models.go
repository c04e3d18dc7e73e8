package create_appointment

import "time"

// Request запрос создания визита
type Request struct {
	ServiceRequestID int64
	ProviderID       int64
	ClientID         int64
	WindowStartUTC   time.Time
	WindowEndUTC     time.Time
}
