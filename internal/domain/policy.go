package domain

import "github.com/shopspring/decimal"

// PolicyEventType financial policy trigger event
type PolicyEventType string

const (
	EventClientCancellation   PolicyEventType = "client_cancellation"
	EventProviderCancellation PolicyEventType = "provider_cancellation"
	EventClientNoShow         PolicyEventType = "client_no_show"
	EventProviderNoShow       PolicyEventType = "provider_no_show"
)

// PolicyRule одна строка табличной политики штрафов
// Правило применяется, если событие произошло не раньше, чем за
// MaxHoursBeforeWindow часов до начала окна визита
type PolicyRule struct {
	Name                 string
	EventType            PolicyEventType
	MaxHoursBeforeWindow int
	PenaltyPercent       decimal.Decimal
	CompensationPercent  decimal.Decimal
	RetainedPercent      decimal.Decimal
}

// PolicyBreakdown computed monetary split for a cancellation/no-show event
// Не персистится отдельной таблицей - встраивается в metadata истории
type PolicyBreakdown struct {
	RuleName               string          `json:"ruleName"`
	CounterpartyActorLabel string          `json:"counterpartyActorLabel"`
	ServiceValue           decimal.Decimal `json:"serviceValue"`
	PenaltyPercent         decimal.Decimal `json:"penaltyPercent"`
	PenaltyAmount          decimal.Decimal `json:"penaltyAmount"`
	CompensationPercent    decimal.Decimal `json:"counterpartyCompensationPercent"`
	CompensationAmount     decimal.Decimal `json:"counterpartyCompensationAmount"`
	RetainedPercent        decimal.Decimal `json:"platformRetainedPercent"`
	RetainedAmount         decimal.Decimal `json:"platformRetainedAmount"`
	ResidualAmount         decimal.Decimal `json:"residualAmount"`
	RemainingAmount        decimal.Decimal `json:"remainingAmount"`
}

// Reconciles проверяет инвариант сверки:
// penalty = compensation + retained + residual и remaining + penalty = serviceValue
func (b *PolicyBreakdown) Reconciles() bool {
	sum := b.CompensationAmount.Add(b.RetainedAmount).Add(b.ResidualAmount)
	if !sum.Equal(b.PenaltyAmount) {
		return false
	}
	return b.RemainingAmount.Add(b.PenaltyAmount).Equal(b.ServiceValue)
}
