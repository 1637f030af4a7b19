package assessment

import (
	"strings"
	"testing"
)

func TestDefaultPolicyValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Policy)
		wantErr string
	}{
		{"weights do not sum", func(p *Policy) { p.Weights.Linguistic = 0.7 }, "sum to 1.0"},
		{"negative weight", func(p *Policy) {
			p.Weights = Weights{Linguistic: 1.2, TechnicalValidation: -0.2}
		}, "non-negative"},
		{"thresholds out of order", func(p *Policy) { p.Thresholds.High = 0.95 }, "thresholds"},
		{"unknown override certainty", func(p *Policy) { p.Override.Certainty = "SURE" }, "override certainty"},
		{"forced score below critical", func(p *Policy) { p.Override.ForcedScore = 0.8 }, "forced_score"},
		{"empty folder", func(p *Policy) { p.Actions.QuarantineFolder = "" }, "quarantine_folder"},
		{"zero retention", func(p *Policy) { p.Actions.Retention.Low = 0 }, "retention_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPolicyCloneDetachesSlices(t *testing.T) {
	p := DefaultPolicy()
	c := p.Clone()
	c.Actions.AlertRecipients[0] = "someone@else.test"
	if p.Actions.AlertRecipients[0] != "security-team@company.com" {
		t.Fatal("clone shares recipient slice with original")
	}
}

func TestOverrideRuleMatches(t *testing.T) {
	rule := DefaultPolicy().Override
	tests := []struct {
		name string
		a    AgentAssessment
		want bool
	}{
		{"definitive at bound", AgentAssessment{Certainty: CertaintyDefinitive, RiskScore: 0.90}, true},
		{"definitive below bound", AgentAssessment{Certainty: CertaintyDefinitive, RiskScore: 0.8999}, false},
		{"high certainty", AgentAssessment{Certainty: CertaintyHigh, RiskScore: 0.99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Matches(tt.a); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
