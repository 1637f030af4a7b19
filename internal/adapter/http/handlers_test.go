package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/MailWarden/internal/domain"
	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/email"
	"github.com/Strob0t/MailWarden/internal/service"
)

type fakeAssessor struct {
	analyzed   []assessment.Request
	analyzeErr error
	filter     email.ListFilter
	emails     []email.Email
	listErr    error
	details    map[string]*email.Detail
}

func (f *fakeAssessor) Analyze(_ context.Context, req assessment.Request) (*service.Analysis, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	f.analyzed = append(f.analyzed, req)
	return &service.Analysis{
		EmailID:     "0b6f3c1e-0000-4000-8000-000000000001",
		EmailUID:    req.EmailID,
		FinalAction: assessment.FinalActionQuarantine,
		Outcome: assessment.Ok(assessment.CoordinationResult{
			FinalRiskScore: 0.61,
			RiskLevel:      assessment.RiskMedium,
		}),
	}, nil
}

func (f *fakeAssessor) GetEmail(_ context.Context, id string) (*email.Detail, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, fmt.Errorf("get email %s: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

func (f *fakeAssessor) ListEmails(_ context.Context, filter email.ListFilter) ([]email.Email, error) {
	f.filter = filter
	if filter.RiskLevel != "" && !filter.RiskLevel.Valid() {
		return nil, fmt.Errorf("risk_filter %q: %w", filter.RiskLevel, domain.ErrValidation)
	}
	return f.emails, f.listErr
}

const validRequest = `{
	"email_id": "msg-1",
	"email_data": {"subject": "Verify your account", "sender": "alerts@paypa1.com"},
	"linguistic_result": {"risk_score": 0.85, "confidence": "HIGH"},
	"technical_result": {"risk_score": 0.2, "confidence": "MEDIUM"},
	"threat_intel_result": {"risk_score": 0.3, "confidence": "LOW"}
}`

func newTestRouter(a Assessor, checks map[string]HealthCheck, opts RouteOptions) http.Handler {
	h := NewHandlers(a, checks)
	h.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	MountRoutes(r, h, opts)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestAnalyze(t *testing.T) {
	fa := &fakeAssessor{}
	router := newTestRouter(fa, nil, RouteOptions{})

	rec := do(t, router, http.MethodPost, "/api/v1/coordination/analyze", validRequest)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := decode[map[string]any](t, rec)
	if got["final_action"] != "QUARANTINE" {
		t.Errorf("final_action = %v", got["final_action"])
	}
	if got["email_uid"] != "msg-1" {
		t.Errorf("email_uid = %v", got["email_uid"])
	}
	if len(fa.analyzed) != 1 {
		t.Fatalf("analyzed %d requests, want 1", len(fa.analyzed))
	}
	req := fa.analyzed[0]
	if req.Email.Sender != "alerts@paypa1.com" {
		t.Errorf("sender = %q", req.Email.Sender)
	}
	if req.LinguisticResult["risk_score"] != 0.85 {
		t.Errorf("linguistic risk = %v", req.LinguisticResult["risk_score"])
	}
}

func TestAnalyze_Rejects(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		violations bool
	}{
		{"not json", `{broken`, http.StatusBadRequest, false},
		{"missing agent result", `{"linguistic_result":{},"technical_result":{}}`, http.StatusBadRequest, true},
		{"wrong type", `{"linguistic_result":[],"technical_result":{},"threat_intel_result":{}}`, http.StatusBadRequest, true},
		{"too large", `{"email_id":"` + strings.Repeat("x", maxRequestBodySize) + `"}`, http.StatusRequestEntityTooLarge, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAssessor{}
			router := newTestRouter(fa, nil, RouteOptions{})

			rec := do(t, router, http.MethodPost, "/api/v1/coordination/analyze", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.violations {
				resp := decode[validationResponse](t, rec)
				if len(resp.Violations) == 0 {
					t.Error("expected schema violations in response")
				}
			}
			if len(fa.analyzed) != 0 {
				t.Error("invalid requests must not reach the service")
			}
		})
	}
}

func TestAnalyze_StoreFailure(t *testing.T) {
	fa := &fakeAssessor{analyzeErr: errors.New("store coordination: connection refused")}
	router := newTestRouter(fa, nil, RouteOptions{})

	rec := do(t, router, http.MethodPost, "/api/v1/coordination/analyze", validRequest)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("internal error details must not leak to clients")
	}
}

func TestAnalyze_RouteMiddleware(t *testing.T) {
	var order []string
	mw := func(name string, block bool) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				if block {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
			})
		}
	}

	fa := &fakeAssessor{}
	router := newTestRouter(fa, nil, RouteOptions{
		AnalyzeLimit: mw("limit", true),
		Idempotency:  mw("idem", false),
	})

	rec := do(t, router, http.MethodPost, "/api/v1/coordination/analyze", validRequest)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if len(order) != 1 || order[0] != "limit" {
		t.Errorf("middleware order = %v, want [limit]", order)
	}

	// Other routes are not rate limited.
	rec = do(t, router, http.MethodGet, "/api/v1/emails", "")
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", rec.Code)
	}
}

func TestListEmails(t *testing.T) {
	score := 0.95
	fa := &fakeAssessor{emails: []email.Email{
		{ID: "e-1", Subject: "Urgent", FinalRiskScore: &score, FinalRiskLevel: assessment.RiskCritical},
	}}
	router := newTestRouter(fa, nil, RouteOptions{})

	rec := do(t, router, http.MethodGet, "/api/v1/emails?limit=500&offset=5&risk_filter=critical", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[listEmailsResponse](t, rec)
	if resp.Count != 1 || resp.Emails[0].ID != "e-1" {
		t.Errorf("emails = %+v", resp.Emails)
	}
	if resp.Limit != email.MaxLimit {
		t.Errorf("limit = %d, want clamped %d", resp.Limit, email.MaxLimit)
	}
	if resp.Offset != 5 {
		t.Errorf("offset = %d, want 5", resp.Offset)
	}
	if resp.Filter != "CRITICAL" || fa.filter.RiskLevel != assessment.RiskCritical {
		t.Errorf("filter = %q / %q, want CRITICAL", resp.Filter, fa.filter.RiskLevel)
	}
}

func TestListEmails_Defaults(t *testing.T) {
	fa := &fakeAssessor{}
	router := newTestRouter(fa, nil, RouteOptions{})

	rec := do(t, router, http.MethodGet, "/api/v1/emails", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"emails":[]`) {
		t.Errorf("empty list should encode as [], got %s", rec.Body.String())
	}
	if fa.filter.Limit != email.DefaultLimit || fa.filter.Offset != 0 {
		t.Errorf("filter = %+v", fa.filter)
	}
}

func TestListEmails_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"limit not a number", "?limit=ten"},
		{"offset not a number", "?offset=-x"},
		{"unknown risk level", "?risk_filter=severe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeAssessor{}, nil, RouteOptions{})
			rec := do(t, router, http.MethodGet, "/api/v1/emails"+tt.query, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetEmail(t *testing.T) {
	fa := &fakeAssessor{details: map[string]*email.Detail{
		"e-1": {
			Email:        email.Email{ID: "e-1", Subject: "Invoice"},
			Coordination: &assessment.CoordinationResult{RiskLevel: assessment.RiskHigh},
		},
	}}
	router := newTestRouter(fa, nil, RouteOptions{})

	rec := do(t, router, http.MethodGet, "/api/v1/emails/e-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	d := decode[email.Detail](t, rec)
	if d.Email.Subject != "Invoice" || d.Coordination == nil || d.Coordination.RiskLevel != assessment.RiskHigh {
		t.Errorf("detail = %+v", d)
	}

	rec = do(t, router, http.MethodGet, "/api/v1/emails/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error != "email missing not found" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("healthy", func(t *testing.T) {
		router := newTestRouter(&fakeAssessor{}, map[string]HealthCheck{"postgres": ok, "nats": ok}, RouteOptions{})
		rec := do(t, router, http.MethodGet, "/health", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[healthResponse](t, rec)
		if resp.Status != "healthy" || resp.Components["postgres"] != "ok" || resp.Components["nats"] != "ok" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("degraded", func(t *testing.T) {
		down := func(context.Context) error { return errors.New("nats: no servers available") }
		router := newTestRouter(&fakeAssessor{}, map[string]HealthCheck{"postgres": ok, "nats": down}, RouteOptions{})
		rec := do(t, router, http.MethodGet, "/health", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		resp := decode[healthResponse](t, rec)
		if resp.Status != "degraded" {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.Components["nats"] != "nats: no servers available" {
			t.Errorf("nats = %q", resp.Components["nats"])
		}
	})
}

func TestInfo(t *testing.T) {
	router := newTestRouter(&fakeAssessor{}, nil, RouteOptions{})
	rec := do(t, router, http.MethodGet, "/api/v1/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	info := decode[serviceInfo](t, rec)
	if info.Version != assessment.SystemVersion {
		t.Errorf("version = %q", info.Version)
	}
	if len(info.Agents) != 3 {
		t.Errorf("agents = %v", info.Agents)
	}
	if info.Weights["linguistic"] != 0.6 {
		t.Errorf("weights = %v", info.Weights)
	}
}
