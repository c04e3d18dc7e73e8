package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/walletservice"
)

var oneHundred = decimal.NewFromInt(100)

// Service табличный движок финансовой политики отмен и неявок
// Все деньги считаются в decimal, результат сверяется перед проводкой.
// Ошибки движка никогда не прерывают вызвавший переход: любой сбой
// конвертируется в metadata-запись для истории визита
type Service struct {
	rules        []domain.PolicyRule
	walletClient WalletServiceClient
	logger       Logger
}

// NewService создает новый экземпляр движка политики
// rules должны быть отсортированы по возрастанию порога (см. BuildRules)
func NewService(rules []domain.PolicyRule, walletClient WalletServiceClient, logger Logger) *Service {
	return &Service{
		rules:        rules,
		walletClient: walletClient,
		logger:       logger,
	}
}

// SelectRule выбирает первое правило события, чей порог покрывает
// оставшиеся часы до окна. Нет подходящего правила - политика не применяется
func (s *Service) SelectRule(eventType domain.PolicyEventType, hoursBeforeWindow int) *domain.PolicyRule {
	for i := range s.rules {
		rule := &s.rules[i]
		if rule.EventType != eventType {
			continue
		}
		if hoursBeforeWindow <= rule.MaxHoursBeforeWindow {
			return rule
		}
	}
	return nil
}

// Compute вычисляет денежную раскладку по правилу
// Инвариант сверки: penalty = compensation + retained + residual,
// remaining + penalty = serviceValue. Правило с compensation + retained
// больше penalty - некорректная конфигурация
func (s *Service) Compute(rule *domain.PolicyRule, serviceValue decimal.Decimal, counterpartyLabel string) (*domain.PolicyBreakdown, error) {
	penalty := applyPercent(serviceValue, rule.PenaltyPercent)
	compensation := applyPercent(serviceValue, rule.CompensationPercent)
	retained := applyPercent(serviceValue, rule.RetainedPercent)

	residual := penalty.Sub(compensation).Sub(retained)
	if residual.IsNegative() {
		return nil, fmt.Errorf("%w: rule %q: compensation %s + retained %s exceed penalty %s",
			ErrRuleNotReconcilable, rule.Name, compensation, retained, penalty)
	}

	breakdown := &domain.PolicyBreakdown{
		RuleName:               rule.Name,
		CounterpartyActorLabel: counterpartyLabel,
		ServiceValue:           serviceValue,
		PenaltyPercent:         rule.PenaltyPercent,
		PenaltyAmount:          penalty,
		CompensationPercent:    rule.CompensationPercent,
		CompensationAmount:     compensation,
		RetainedPercent:        rule.RetainedPercent,
		RetainedAmount:         retained,
		ResidualAmount:         residual,
		RemainingAmount:        serviceValue.Sub(penalty),
	}

	if !breakdown.Reconciles() {
		return nil, fmt.Errorf("%w: rule %q: breakdown failed reconciliation", ErrRuleNotReconcilable, rule.Name)
	}

	return breakdown, nil
}

// ApplyInput входные данные применения политики
type ApplyInput struct {
	Appointment  *domain.Appointment
	EventType    domain.PolicyEventType
	ServiceValue decimal.Decimal
	Currency     string
	Now          time.Time
}

// Apply применяет политику к событию отмены или неявки
// Возвращает metadata-запись для истории визита: financial_policy_applied
// при успешном расчете (с результатом проводки) либо
// financial_policy_calculation_failed при сбое. Возвращает nil, когда
// ни одно правило не покрывает событие - это не ошибка
func (s *Service) Apply(ctx context.Context, in ApplyInput) *domain.HistoryMetadata {
	appt := in.Appointment

	hoursBeforeWindow := int(appt.WindowStartUTC.Sub(in.Now).Hours())
	if hoursBeforeWindow < 0 {
		// Событие после начала окна (no-show) трактуется как нулевой запас
		hoursBeforeWindow = 0
	}

	rule := s.SelectRule(in.EventType, hoursBeforeWindow)
	if rule == nil {
		s.logger.Info("Apply: no rule matches event=%s hours_before_window=%d for appointment=%d",
			in.EventType, hoursBeforeWindow, appt.ID)
		return nil
	}

	breakdown, err := s.Compute(rule, in.ServiceValue, string(counterpartyFor(in.EventType)))
	if err != nil {
		s.logger.Error("Apply: computation failed for appointment=%d rule=%s: %v", appt.ID, rule.Name, err)
		return &domain.HistoryMetadata{
			Type: domain.MetadataFinancialPolicyFailed,
			PolicyFailed: &domain.PolicyFailedMetadata{
				EventType: in.EventType,
				ErrorCode: "financial_policy_calculation_failed",
				Message:   err.Error(),
			},
		}
	}

	ledgerRequested, ledgerResult := s.postLedgerEntry(ctx, appt, in, breakdown)

	s.logger.Info("Apply: appointment=%d rule=%s penalty=%s compensation=%s retained=%s ledger=%s",
		appt.ID, rule.Name, breakdown.PenaltyAmount, breakdown.CompensationAmount,
		breakdown.RetainedAmount, ledgerResult)

	return &domain.HistoryMetadata{
		Type: domain.MetadataFinancialPolicyApplied,
		PolicyApplied: &domain.PolicyAppliedMetadata{
			EventType:       in.EventType,
			Breakdown:       *breakdown,
			LedgerRequested: ledgerRequested,
			LedgerResult:    ledgerResult,
		},
	}
}

// postLedgerEntry отправляет проводку в WalletService
// Нулевой penalty не порождает проводку. Сбой проводки не прерывает
// переход: результат фиксируется в metadata и логе
func (s *Service) postLedgerEntry(ctx context.Context, appt *domain.Appointment, in ApplyInput, breakdown *domain.PolicyBreakdown) (bool, string) {
	if breakdown.PenaltyAmount.IsZero() {
		return false, "skipped: zero penalty"
	}

	entry := &walletservice.LedgerEntry{
		IdempotencyKey:       uuid.NewString(),
		ServiceRequestID:     appt.ServiceRequestID,
		ServiceAppointmentID: appt.ID,
		ClientID:             appt.ClientID,
		ProviderID:           appt.ProviderID,
		EventType:            string(in.EventType),
		ClientCharge:         breakdown.PenaltyAmount,
		ProviderCompensation: breakdown.CompensationAmount,
		PlatformFee:          breakdown.RetainedAmount,
		Currency:             in.Currency,
		Description:          fmt.Sprintf("policy %s for appointment %d", breakdown.RuleName, appt.ID),
	}

	if _, err := s.walletClient.AppendEntry(ctx, entry); err != nil {
		s.logger.Error("postLedgerEntry: wallet post failed for appointment=%d: %v", appt.ID, err)
		return true, fmt.Sprintf("error: %v", err)
	}

	return true, "ok"
}

// applyPercent value * percent / 100, округление до копеек банковским правилом
func applyPercent(value, percent decimal.Decimal) decimal.Decimal {
	return value.Mul(percent).Div(oneHundred).RoundBank(2)
}

// counterpartyFor возвращает пострадавшую сторону события
func counterpartyFor(eventType domain.PolicyEventType) domain.ActorRole {
	switch eventType {
	case domain.EventClientCancellation, domain.EventClientNoShow:
		return domain.RoleProvider
	default:
		return domain.RoleClient
	}
}
