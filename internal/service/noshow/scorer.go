package noshow

import (
	"strings"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// RiskInput входные сигналы для расчета риска no-show
type RiskInput struct {
	ClientPresenceConfirmed   bool
	ProviderPresenceConfirmed bool
	MinutesToWindow           int
	PriorNoShowCount          int
}

// RiskConfig табличные дельты и пороги risk scorer-а
type RiskConfig struct {
	DeltaBothPresenceNotConfirmed     int
	DeltaClientPresenceNotConfirmed   int
	DeltaProviderPresenceNotConfirmed int
	DeltaWindowWithin2h               int
	DeltaWindowWithin6h               int
	DeltaPriorNoShowHistory           int
	MediumThreshold                   int
	HighThreshold                     int
}

// RiskConfigFromSettings конвертирует секцию конфига в RiskConfig
func RiskConfigFromSettings(cfg config.NoShowConfig) RiskConfig {
	return RiskConfig{
		DeltaBothPresenceNotConfirmed:     cfg.DeltaBothPresenceNotConfirmed,
		DeltaClientPresenceNotConfirmed:   cfg.DeltaClientPresenceNotConfirmed,
		DeltaProviderPresenceNotConfirmed: cfg.DeltaProviderPresenceNotConfirmed,
		DeltaWindowWithin2h:               cfg.DeltaWindowWithin2h,
		DeltaWindowWithin6h:               cfg.DeltaWindowWithin6h,
		DeltaPriorNoShowHistory:           cfg.DeltaPriorNoShowHistory,
		MediumThreshold:                   cfg.MediumThreshold,
		HighThreshold:                     cfg.HighThreshold,
	}
}

// RiskResult результат расчета риска
type RiskResult struct {
	Level   domain.RiskLevel
	Score   int
	Reasons []string
}

// ReasonsCsv причины риска одной строкой для персистенции
func (r *RiskResult) ReasonsCsv() string {
	return strings.Join(r.Reasons, ",")
}

// Calculate чистая функция расчета риска no-show
// Дельты аддитивны, причины перечисляются в порядке проверки,
// итоговый score обрезается в [0, 100]
func Calculate(in RiskInput, cfg RiskConfig) RiskResult {
	score := 0
	reasons := make([]string, 0, 4)

	switch {
	case !in.ClientPresenceConfirmed && !in.ProviderPresenceConfirmed:
		score += cfg.DeltaBothPresenceNotConfirmed
		reasons = append(reasons, domain.RiskReasonBothPresenceNotConfirmed)
	case !in.ClientPresenceConfirmed:
		score += cfg.DeltaClientPresenceNotConfirmed
		reasons = append(reasons, domain.RiskReasonClientPresenceNotConfirmed)
	case !in.ProviderPresenceConfirmed:
		score += cfg.DeltaProviderPresenceNotConfirmed
		reasons = append(reasons, domain.RiskReasonProviderPresenceNotConfirmed)
	}

	// Близость окна учитывается только для будущих окон
	if in.MinutesToWindow >= 0 {
		switch {
		case in.MinutesToWindow <= 120:
			score += cfg.DeltaWindowWithin2h
			reasons = append(reasons, domain.RiskReasonWindowWithin2h)
		case in.MinutesToWindow <= 360:
			score += cfg.DeltaWindowWithin6h
			reasons = append(reasons, domain.RiskReasonWindowWithin6h)
		}
	}

	if in.PriorNoShowCount > 0 {
		score += cfg.DeltaPriorNoShowHistory
		reasons = append(reasons, domain.RiskReasonPriorNoShowHistory)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return RiskResult{
		Level:   bandFor(score, cfg),
		Score:   score,
		Reasons: reasons,
	}
}

func bandFor(score int, cfg RiskConfig) domain.RiskLevel {
	switch {
	case score >= cfg.HighThreshold:
		return domain.RiskHigh
	case score >= cfg.MediumThreshold:
		return domain.RiskMedium
	}
	return domain.RiskLow
}
