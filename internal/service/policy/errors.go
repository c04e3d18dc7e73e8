package policy

import "errors"

var (
	// ErrInvalidRuleConfig возвращается при некорректной табличной конфигурации
	// (нечисловые проценты, неизвестный тип события)
	ErrInvalidRuleConfig = errors.New("policy: invalid rule configuration")

	// ErrRuleNotReconcilable возвращается, когда compensation + retained
	// превышают penalty и сверка проводки невозможна
	ErrRuleNotReconcilable = errors.New("policy: rule breakdown does not reconcile")

	// ErrInternal возвращается при внутренних ошибках движка
	ErrInternal = errors.New("policy service: internal error")
)
