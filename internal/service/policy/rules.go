package policy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// BuildRules парсит табличную конфигурацию политики в доменные правила
// Проценты задаются строками ("100", "12.5") и валидируются на старте,
// а не в момент применения
func BuildRules(cfg config.PolicyConfig) ([]domain.PolicyRule, error) {
	rules := make([]domain.PolicyRule, 0, len(cfg.Rules))

	for _, rc := range cfg.Rules {
		eventType := domain.PolicyEventType(rc.EventType)
		switch eventType {
		case domain.EventClientCancellation, domain.EventProviderCancellation,
			domain.EventClientNoShow, domain.EventProviderNoShow:
			// Известный тип события
		default:
			return nil, fmt.Errorf("%w: rule %q: unknown event type %q", ErrInvalidRuleConfig, rc.Name, rc.EventType)
		}

		penalty, err := parsePercent(rc.Name, "penalty_percent", rc.PenaltyPercent)
		if err != nil {
			return nil, err
		}
		compensation, err := parsePercent(rc.Name, "compensation_percent", rc.CompensationPercent)
		if err != nil {
			return nil, err
		}
		retained, err := parsePercent(rc.Name, "retained_percent", rc.RetainedPercent)
		if err != nil {
			return nil, err
		}

		if rc.MaxHoursBeforeWindow < 0 {
			return nil, fmt.Errorf("%w: rule %q: negative max_hours_before_window", ErrInvalidRuleConfig, rc.Name)
		}

		rules = append(rules, domain.PolicyRule{
			Name:                 rc.Name,
			EventType:            eventType,
			MaxHoursBeforeWindow: rc.MaxHoursBeforeWindow,
			PenaltyPercent:       penalty,
			CompensationPercent:  compensation,
			RetainedPercent:      retained,
		})
	}

	// Правила сортируются по возрастанию порога: при выборе побеждает
	// самое узкое правило, покрывающее оставшиеся часы до окна
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].MaxHoursBeforeWindow < rules[j].MaxHoursBeforeWindow
	})

	return rules, nil
}

func parsePercent(ruleName, field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: rule %q: %s=%q is not a number", ErrInvalidRuleConfig, ruleName, field, raw)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: rule %q: %s=%q is negative", ErrInvalidRuleConfig, ruleName, field, raw)
	}
	return value, nil
}
