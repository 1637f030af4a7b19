package assessment

import "testing"

func TestCategorizeBoundaries(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{1.0, RiskCritical},
		{0.90, RiskCritical},
		{0.8999, RiskHigh},
		{0.70, RiskHigh},
		{0.6999, RiskMedium},
		{0.40, RiskMedium},
		{0.3999, RiskLow},
		{0.0, RiskLow},
	}

	for _, tt := range tests {
		if got := th.Categorize(tt.score); got != tt.want {
			t.Errorf("Categorize(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.42: 0.42, 1: 1, 7: 1} {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestAgentDisplayName(t *testing.T) {
	tests := map[Agent]string{
		AgentLinguistic:          "Linguistic",
		AgentTechnicalValidation: "Technical Validation",
		AgentThreatIntelligence:  "Threat Intelligence",
	}
	for a, want := range tests {
		if got := a.DisplayName(); got != want {
			t.Errorf("%s.DisplayName() = %q, want %q", a, got, want)
		}
	}
}

func TestFinalActionFor(t *testing.T) {
	if got := FinalActionFor(0.5); got != FinalActionQuarantine {
		t.Errorf("FinalActionFor(0.5) = %s, want QUARANTINE", got)
	}
	if got := FinalActionFor(0.49); got != FinalActionAllow {
		t.Errorf("FinalActionFor(0.49) = %s, want ALLOW", got)
	}
}
