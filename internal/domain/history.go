package domain

import (
	"encoding/json"
	"time"
)

// AppointmentHistory append-only audit trail row, one per transition
// Никогда не мутируется после вставки
type AppointmentHistory struct {
	ID                        int64
	AppointmentID             int64
	PreviousStatus            *AppointmentStatus
	NewStatus                 AppointmentStatus
	ActorUserID               int64
	ActorRole                 ActorRole
	Reason                    *string
	PreviousOperationalStatus *string
	NewOperationalStatus      *string
	Metadata                  *HistoryMetadata
	OccurredAtUTC             time.Time
}

// Типы metadata-записей (дискриминатор tagged union)
const (
	MetadataFinancialPolicyApplied  = "financial_policy_applied"
	MetadataFinancialPolicyFailed   = "financial_policy_calculation_failed"
	MetadataOperationalStatusChange = "operational_status_changed"
	MetadataRiskRecalculated        = "risk_recalculated"
)

// HistoryMetadata tagged union, keyed by Type; ровно одно из полей-вариантов
// заполнено в зависимости от дискриминатора
type HistoryMetadata struct {
	Type string `json:"type"`

	PolicyApplied *PolicyAppliedMetadata `json:"policyApplied,omitempty"`
	PolicyFailed  *PolicyFailedMetadata  `json:"policyFailed,omitempty"`
	Risk          *RiskMetadata          `json:"risk,omitempty"`
}

// PolicyAppliedMetadata receipt of a financial policy computation
type PolicyAppliedMetadata struct {
	EventType       PolicyEventType `json:"eventType"`
	Breakdown       PolicyBreakdown `json:"breakdown"`
	LedgerRequested bool            `json:"ledger.requested"`
	LedgerResult    string          `json:"ledger.result"` // "ok" | текст ошибки
}

// PolicyFailedMetadata financial policy computation failure, recorded
// instead of aborting the triggering transition
type PolicyFailedMetadata struct {
	EventType PolicyEventType `json:"eventType"`
	ErrorCode string          `json:"errorCode"`
	Message   string          `json:"message"`
}

// RiskMetadata snapshot of a risk recalculation
type RiskMetadata struct {
	Level   RiskLevel `json:"level"`
	Score   int       `json:"score"`
	Reasons []string  `json:"reasons"`
}

// MarshalJSONB сериализует metadata для записи в JSONB колонку
func (m *HistoryMetadata) MarshalJSONB() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// UnmarshalHistoryMetadata десериализует metadata из JSONB колонки
func UnmarshalHistoryMetadata(raw []byte) (*HistoryMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m HistoryMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
