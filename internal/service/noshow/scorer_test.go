package noshow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

func defaultRiskConfig() RiskConfig {
	return RiskConfig{
		DeltaBothPresenceNotConfirmed:     40,
		DeltaClientPresenceNotConfirmed:   25,
		DeltaProviderPresenceNotConfirmed: 25,
		DeltaWindowWithin2h:               30,
		DeltaWindowWithin6h:               15,
		DeltaPriorNoShowHistory:           20,
		MediumThreshold:                   40,
		HighThreshold:                     70,
	}
}

func TestCalculate(t *testing.T) {
	cfg := defaultRiskConfig()

	tests := []struct {
		name        string
		in          RiskInput
		wantScore   int
		wantLevel   domain.RiskLevel
		wantReasons []string
	}{
		{
			name: "all signals green",
			in: RiskInput{
				ClientPresenceConfirmed:   true,
				ProviderPresenceConfirmed: true,
				MinutesToWindow:           24 * 60,
			},
			wantScore:   0,
			wantLevel:   domain.RiskLow,
			wantReasons: []string{},
		},
		{
			name: "provider unconfirmed far from window",
			in: RiskInput{
				ClientPresenceConfirmed:   true,
				ProviderPresenceConfirmed: false,
				MinutesToWindow:           24 * 60,
			},
			wantScore:   25,
			wantLevel:   domain.RiskLow,
			wantReasons: []string{domain.RiskReasonProviderPresenceNotConfirmed},
		},
		{
			name: "client unconfirmed within six hours",
			in: RiskInput{
				ClientPresenceConfirmed:   false,
				ProviderPresenceConfirmed: true,
				MinutesToWindow:           300,
			},
			wantScore:   40,
			wantLevel:   domain.RiskMedium,
			wantReasons: []string{domain.RiskReasonClientPresenceNotConfirmed, domain.RiskReasonWindowWithin6h},
		},
		{
			name: "both unconfirmed within two hours",
			in: RiskInput{
				ClientPresenceConfirmed:   false,
				ProviderPresenceConfirmed: false,
				MinutesToWindow:           90,
			},
			wantScore:   70,
			wantLevel:   domain.RiskHigh,
			wantReasons: []string{domain.RiskReasonBothPresenceNotConfirmed, domain.RiskReasonWindowWithin2h},
		},
		{
			name: "prior history adds single delta regardless of count",
			in: RiskInput{
				ClientPresenceConfirmed:   false,
				ProviderPresenceConfirmed: true,
				MinutesToWindow:           200,
				PriorNoShowCount:          2,
			},
			wantScore: 60,
			wantLevel: domain.RiskMedium,
			wantReasons: []string{
				domain.RiskReasonClientPresenceNotConfirmed,
				domain.RiskReasonWindowWithin6h,
				domain.RiskReasonPriorNoShowHistory,
			},
		},
		{
			name: "score clamps at one hundred",
			in: RiskInput{
				ClientPresenceConfirmed:   false,
				ProviderPresenceConfirmed: false,
				MinutesToWindow:           30,
				PriorNoShowCount:          5,
			},
			wantScore: 90,
			wantLevel: domain.RiskHigh,
			wantReasons: []string{
				domain.RiskReasonBothPresenceNotConfirmed,
				domain.RiskReasonWindowWithin2h,
				domain.RiskReasonPriorNoShowHistory,
			},
		},
		{
			name: "past window ignores proximity deltas",
			in: RiskInput{
				ClientPresenceConfirmed:   false,
				ProviderPresenceConfirmed: false,
				MinutesToWindow:           -15,
			},
			wantScore:   40,
			wantLevel:   domain.RiskMedium,
			wantReasons: []string{domain.RiskReasonBothPresenceNotConfirmed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.in, cfg)

			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantLevel, result.Level)
			assert.ElementsMatch(t, tt.wantReasons, result.Reasons)
		})
	}
}

func TestCalculate_ClampCeiling(t *testing.T) {
	cfg := defaultRiskConfig()
	cfg.DeltaBothPresenceNotConfirmed = 80
	cfg.DeltaWindowWithin2h = 50

	result := Calculate(RiskInput{MinutesToWindow: 10, PriorNoShowCount: 1}, cfg)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, domain.RiskHigh, result.Level)
}

func TestRiskResult_ReasonsCsv(t *testing.T) {
	result := RiskResult{Reasons: []string{
		domain.RiskReasonBothPresenceNotConfirmed,
		domain.RiskReasonWindowWithin2h,
	}}

	assert.Equal(t, "both_presence_not_confirmed,window_within_2h", result.ReasonsCsv())
}
