package requestservice

import "github.com/shopspring/decimal"

// Статусы заявки на услугу в RequestService
const (
	RequestStatusOpen       = "open"
	RequestStatusInProgress = "in_progress"
	RequestStatusClosed     = "closed"
	RequestStatusCancelled  = "cancelled"
)

// ServiceRequest модель заявки на услугу из RequestService
type ServiceRequest struct {
	ID       int64  `json:"id"`
	ClientID int64  `json:"client_id"`
	Status   string `json:"status"`
	City     string `json:"city"`
	Category string `json:"category"`
}

// Proposal модель предложения исполнителя по заявке
type Proposal struct {
	ID          int64           `json:"id"`
	RequestID   int64           `json:"request_id"`
	ProviderID  int64           `json:"provider_id"`
	Status      string          `json:"status"`
	AgreedValue decimal.Decimal `json:"agreed_value"`
	Currency    string          `json:"currency"`
}

// ErrorResponse модель ошибки от RequestService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
