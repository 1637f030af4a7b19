package service

import (
	"math"
	"testing"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
)

const tolerance = 1e-9

func agent(a assessment.Agent, risk float64, c assessment.Certainty) assessment.AgentAssessment {
	return assessment.AgentAssessment{
		Agent:       a,
		RiskScore:   risk,
		Certainty:   c,
		Reasoning:   string(a) + " reasoning",
		KeyFindings: []string{},
	}
}

func ling(risk float64, c assessment.Certainty) assessment.AgentAssessment {
	return agent(assessment.AgentLinguistic, risk, c)
}

func tech(risk float64, c assessment.Certainty) assessment.AgentAssessment {
	return agent(assessment.AgentTechnicalValidation, risk, c)
}

func intel(risk float64, c assessment.Certainty) assessment.AgentAssessment {
	return agent(assessment.AgentThreatIntelligence, risk, c)
}

func TestFuse_WeightedScenario(t *testing.T) {
	f := NewFuser(assessment.DefaultPolicy())
	v := f.Fuse(
		ling(0.85, assessment.CertaintyHigh),
		tech(0.30, assessment.CertaintyMedium),
		intel(0.20, assessment.CertaintyLow),
	)

	if math.Abs(v.FinalRiskScore-0.61) > tolerance {
		t.Fatalf("final = %v, want 0.61", v.FinalRiskScore)
	}
	if v.RiskLevel != assessment.RiskMedium {
		t.Fatalf("level = %q, want MEDIUM", v.RiskLevel)
	}
	if v.OverrideActive {
		t.Fatal("override must not fire")
	}
	// ranks 3*0.6 + 2*0.2 + 1*0.2 = 2.4
	if v.Certainty != assessment.CertaintyMedium {
		t.Fatalf("certainty = %q, want MEDIUM", v.Certainty)
	}

	c, ok := v.Contribution(assessment.AgentLinguistic)
	if !ok {
		t.Fatal("linguistic contribution missing")
	}
	if c.Weight != 0.6 || math.Abs(c.WeightedContribution-0.51) > tolerance {
		t.Fatalf("linguistic weight=%v contribution=%v", c.Weight, c.WeightedContribution)
	}
}

func TestFuse_Override(t *testing.T) {
	f := NewFuser(assessment.DefaultPolicy())
	v := f.Fuse(
		ling(0.10, assessment.CertaintyLow),
		tech(0.05, assessment.CertaintyHigh),
		intel(0.96, assessment.CertaintyDefinitive),
	)

	if !v.OverrideActive {
		t.Fatal("override must fire")
	}
	if v.FinalRiskScore != 0.95 {
		t.Fatalf("final = %v, want 0.95", v.FinalRiskScore)
	}
	if v.RiskLevel != assessment.RiskCritical || v.Certainty != assessment.CertaintyDefinitive {
		t.Fatalf("level=%q certainty=%q", v.RiskLevel, v.Certainty)
	}
	if v.Weights.ThreatIntelligence != 1 || v.Weights.Linguistic != 0 || v.Weights.TechnicalValidation != 0 {
		t.Fatalf("weights = %+v", v.Weights)
	}
	ti, _ := v.Contribution(assessment.AgentThreatIntelligence)
	if ti.RiskScore != 0.96 || ti.WeightedContribution != 0.96 {
		t.Fatalf("ti raw=%v contribution=%v", ti.RiskScore, ti.WeightedContribution)
	}
	l, _ := v.Contribution(assessment.AgentLinguistic)
	if l.RiskScore != 0.10 || l.WeightedContribution != 0 {
		t.Fatalf("linguistic raw=%v contribution=%v", l.RiskScore, l.WeightedContribution)
	}
}

func TestOverrideActive_Conditions(t *testing.T) {
	f := NewFuser(assessment.DefaultPolicy())
	tests := []struct {
		name string
		ti   assessment.AgentAssessment
		want bool
	}{
		{"definitive at threshold", intel(0.90, assessment.CertaintyDefinitive), true},
		{"definitive below threshold", intel(0.8999, assessment.CertaintyDefinitive), false},
		{"high certainty", intel(0.99, assessment.CertaintyHigh), false},
		{"definitive max", intel(1.0, assessment.CertaintyDefinitive), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.OverrideActive(tt.ti); got != tt.want {
				t.Fatalf("OverrideActive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateCertainty(t *testing.T) {
	f := NewFuser(assessment.DefaultPolicy())
	tests := []struct {
		name      string
		l, te, ti assessment.AgentAssessment
		want      assessment.Certainty
	}{
		{
			"linguistic escalation",
			ling(0.95, assessment.CertaintyDefinitive), tech(0.3, assessment.CertaintyMedium), intel(0.1, assessment.CertaintyLow),
			assessment.CertaintyDefinitive,
		},
		{
			"definitive below gate does not escalate",
			ling(0.5, assessment.CertaintyDefinitive), tech(0.3, assessment.CertaintyMedium), intel(0.1, assessment.CertaintyLow),
			assessment.CertaintyHigh, // 4*0.6 + 2*0.2 + 1*0.2 = 3.0
		},
		{
			"technical definitive never escalates",
			ling(0.2, assessment.CertaintyLow), tech(0.99, assessment.CertaintyDefinitive), intel(0.1, assessment.CertaintyLow),
			assessment.CertaintyMedium, // 0.6 + 0.8 + 0.2 = 1.6
		},
		{
			"all inconclusive",
			ling(0.2, assessment.CertaintyInconclusive), tech(0.2, assessment.CertaintyInconclusive), intel(0.2, assessment.CertaintyInconclusive),
			assessment.CertaintyInconclusive,
		},
		{
			"all low",
			ling(0.2, assessment.CertaintyLow), tech(0.2, assessment.CertaintyLow), intel(0.2, assessment.CertaintyLow),
			assessment.CertaintyLow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.AggregateCertainty(tt.l, tt.te, tt.ti); got != tt.want {
				t.Fatalf("AggregateCertainty = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateUncertainty(t *testing.T) {
	tests := []struct {
		name   string
		levels []assessment.Certainty
		want   float64
	}{
		{"all definitive", []assessment.Certainty{assessment.CertaintyDefinitive, assessment.CertaintyDefinitive, assessment.CertaintyDefinitive}, 0.0},
		{"all inconclusive", []assessment.Certainty{assessment.CertaintyInconclusive, assessment.CertaintyInconclusive, assessment.CertaintyInconclusive}, 1.0},
		{"mixed", []assessment.Certainty{assessment.CertaintyHigh, assessment.CertaintyMedium, assessment.CertaintyLow}, (0.1 + 0.3 + 0.6) / 3},
		{"empty", nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateUncertainty(tt.levels...); math.Abs(got-tt.want) > tolerance {
				t.Fatalf("uncertainty = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFuse_BoundsAndFormula(t *testing.T) {
	f := NewFuser(assessment.DefaultPolicy())
	certs := assessment.Certainties
	scores := []float64{0, 0.1, 0.39, 0.4, 0.5, 0.69, 0.7, 0.89, 0.9, 1}

	for _, rl := range scores {
		for _, rt := range scores {
			for _, rti := range scores {
				c := certs[int(rl*10+rt*10+rti*10)%len(certs)]
				tiCert := assessment.CertaintyHigh
				v := f.Fuse(ling(rl, c), tech(rt, c), intel(rti, tiCert))
				if v.FinalRiskScore < 0 || v.FinalRiskScore > 1 {
					t.Fatalf("final %v out of range", v.FinalRiskScore)
				}
				if v.Uncertainty < 0 || v.Uncertainty > 1 {
					t.Fatalf("uncertainty %v out of range", v.Uncertainty)
				}
				want := 0.6*rl + 0.2*rt + 0.2*rti
				if math.Abs(v.FinalRiskScore-want) > tolerance {
					t.Fatalf("final = %v, want %v", v.FinalRiskScore, want)
				}
				if v.RiskLevel != assessment.DefaultThresholds().Categorize(v.FinalRiskScore) {
					t.Fatalf("level %q inconsistent with score %v", v.RiskLevel, v.FinalRiskScore)
				}
			}
		}
	}
}
