package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateCoordinationRequest(t *testing.T) {
	data := []byte(`{"email_id":"m1","linguistic_result":{"risk_score":0.9},"technical_result":{},"threat_intel_result":{}}`)
	if err := Validate(SubjectCoordinationRequest, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCoordinationRequestMissingAgent(t *testing.T) {
	data := []byte(`{"email_id":"m1","linguistic_result":{}}`)
	err := Validate(SubjectCoordinationRequest, data)
	if err == nil {
		t.Fatal("expected error for missing agent results")
	}
	if !strings.Contains(err.Error(), SubjectCoordinationRequest) {
		t.Errorf("error should name the subject: %v", err)
	}
}

func TestValidateCoordinationCompleted(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"email_id":"e1","request_id":"r1","risk_level":"HIGH","final_risk_score":0.75}`, false},
		{"missing email id", `{"request_id":"r1"}`, true},
		{"wrong type", `{"email_id":"e1","final_risk_score":"high"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(SubjectCoordinationCompleted, []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("coordination.other", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate("coordination.other", []byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
