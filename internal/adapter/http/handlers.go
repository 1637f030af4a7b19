package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/email"
	"github.com/Strob0t/MailWarden/internal/service"
	"github.com/Strob0t/MailWarden/internal/validation"
)

const healthCheckTimeout = 2 * time.Second

// Assessor is the application service behind the API.
type Assessor interface {
	Analyze(ctx context.Context, req assessment.Request) (*service.Analysis, error)
	GetEmail(ctx context.Context, id string) (*email.Detail, error)
	ListEmails(ctx context.Context, f email.ListFilter) ([]email.Email, error)
}

// HealthCheck probes one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Assessments Assessor
	Checks      map[string]HealthCheck
	// Weights are reported by the service descriptor.
	Weights assessment.Weights
	now     func() time.Time
}

// NewHandlers creates the API handlers.
func NewHandlers(a Assessor, checks map[string]HealthCheck) *Handlers {
	return &Handlers{Assessments: a, Checks: checks, Weights: assessment.DefaultWeights(), now: time.Now}
}

// ---------------------------------------------------------------------------
// Service info
// ---------------------------------------------------------------------------

type serviceInfo struct {
	Service   string             `json:"service"`
	Status    string             `json:"status"`
	Version   string             `json:"version"`
	Agents    []assessment.Agent `json:"agents"`
	Weights   map[string]float64 `json:"weights"`
	Endpoints map[string]string  `json:"endpoints"`
}

// Info returns the service descriptor.
func (h *Handlers) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, serviceInfo{
		Service: "MailWarden",
		Status:  "operational",
		Version: assessment.SystemVersion,
		Agents:  assessment.Agents,
		Weights: h.Weights.Map(),
		Endpoints: map[string]string{
			"analyze": "/api/v1/coordination/analyze",
			"emails":  "/api/v1/emails",
			"email":   "/api/v1/emails/{id}",
			"health":  "/health",
			"feed":    "/ws",
		},
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health probes every registered dependency concurrently. Any failing
// component marks the service degraded and answers 503.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(h.Checks))
	for name, check := range h.Checks {
		go func() {
			results <- result{name: name, err: check(ctx)}
		}()
	}

	resp := healthResponse{Status: "healthy", Timestamp: h.now().UTC(), Components: make(map[string]string, len(h.Checks))}
	for range h.Checks {
		res := <-results
		if res.err != nil {
			resp.Status = "degraded"
			resp.Components[res.name] = res.err.Error()
			continue
		}
		resp.Components[res.name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// ---------------------------------------------------------------------------
// Coordination
// ---------------------------------------------------------------------------

type validationResponse struct {
	Error      string   `json:"error"`
	Violations []string `json:"violations"`
}

// Analyze validates a coordination request, runs the pipeline and returns
// the outcome together with the final mailbox action.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}

	if err := validation.CoordinationRequest(data); err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, validationResponse{
				Error:      "invalid coordination request",
				Violations: ve.Violations,
			})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req assessment.Request
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a, err := h.Assessments.Analyze(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err, "email not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ---------------------------------------------------------------------------
// Emails
// ---------------------------------------------------------------------------

type listEmailsResponse struct {
	Emails []email.Email `json:"emails"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Filter string        `json:"filter,omitempty"`
}

// ListEmails returns recent emails, newest first.
func (h *Handlers) ListEmails(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", email.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := email.ListFilter{
		Limit:     limit,
		Offset:    offset,
		RiskLevel: assessment.RiskLevel(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("risk_filter")))),
	}.Normalize()

	emails, err := h.Assessments.ListEmails(r.Context(), filter)
	if err != nil {
		writeDomainError(w, r, err, "emails not found")
		return
	}
	if emails == nil {
		emails = []email.Email{}
	}
	writeJSON(w, http.StatusOK, listEmailsResponse{
		Emails: emails,
		Count:  len(emails),
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Filter: string(filter.RiskLevel),
	})
}

// GetEmail returns one email with its latest coordination result.
func (h *Handlers) GetEmail(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	d, err := h.Assessments.GetEmail(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, "email "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
