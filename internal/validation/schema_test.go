package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestCoordinationRequestValid(t *testing.T) {
	data := []byte(`{
		"email_id": "msg-1",
		"email_data": {"subject": "Invoice", "sender": "billing@example.com"},
		"linguistic_result": {"risk_score": 0.8, "certainty_level": "HIGH"},
		"technical_result": {"risk_score": "0.3"},
		"threat_intel_result": {}
	}`)
	if err := CoordinationRequest(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCoordinationRequestInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing agent result", `{"linguistic_result":{},"technical_result":{}}`, "threat_intel_result"},
		{"agent result not object", `{"linguistic_result":[],"technical_result":{},"threat_intel_result":{}}`, "/linguistic_result"},
		{"sender not string", `{"email_data":{"sender":5},"linguistic_result":{},"technical_result":{},"threat_intel_result":{}}`, "/email_data/sender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CoordinationRequest([]byte(tt.data))
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !strings.Contains(verr.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", verr.Error(), tt.want)
			}
		})
	}
}

func TestCoordinationRequestNotJSON(t *testing.T) {
	err := CoordinationRequest([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *Error
	if errors.As(err, &verr) {
		t.Fatal("malformed JSON should not be reported as a schema violation")
	}
}
