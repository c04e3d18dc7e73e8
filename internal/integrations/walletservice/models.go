package walletservice

import "github.com/shopspring/decimal"

// LedgerEntry проводка по итогам применения финансовой политики
// IdempotencyKey защищает от дублей при ретраях
type LedgerEntry struct {
	IdempotencyKey       string          `json:"idempotency_key"`
	ServiceRequestID     int64           `json:"service_request_id"`
	ServiceAppointmentID int64           `json:"service_appointment_id"`
	ClientID             int64           `json:"client_id"`
	ProviderID           int64           `json:"provider_id"`
	EventType            string          `json:"event_type"`
	ClientCharge         decimal.Decimal `json:"client_charge"`
	ProviderCompensation decimal.Decimal `json:"provider_compensation"`
	PlatformFee          decimal.Decimal `json:"platform_fee"`
	Currency             string          `json:"currency"`
	Description          string          `json:"description"`
}

// LedgerReceipt ответ WalletService на принятую проводку
type LedgerReceipt struct {
	EntryID   string `json:"entry_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// ErrorResponse модель ошибки от WalletService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
