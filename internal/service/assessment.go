package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mwotel "github.com/Strob0t/MailWarden/internal/adapter/otel"
	"github.com/Strob0t/MailWarden/internal/domain"
	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/domain/email"
	"github.com/Strob0t/MailWarden/internal/logger"
	"github.com/Strob0t/MailWarden/internal/port/broadcast"
	"github.com/Strob0t/MailWarden/internal/port/cache"
	"github.com/Strob0t/MailWarden/internal/port/database"
	"github.com/Strob0t/MailWarden/internal/port/messagequeue"
)

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = 10 * time.Minute

// errIntakeStopped is returned for messages delivered after the intake was
// cancelled, so the queue redelivers them to the next consumer.
var errIntakeStopped = errors.New("coordination intake stopped")

// Analysis is the response to a single analyze call.
type Analysis struct {
	EmailID     string                 `json:"email_id"`
	EmailUID    string                 `json:"email_uid,omitempty"`
	FinalAction assessment.FinalAction `json:"final_action"`
	Outcome     assessment.Outcome     `json:"coordination"`
}

// AssessmentEvent is broadcast to dashboard clients after every analysis.
type AssessmentEvent struct {
	EmailID        string                 `json:"email_id"`
	Subject        string                 `json:"subject,omitempty"`
	Sender         string                 `json:"sender,omitempty"`
	RiskLevel      assessment.RiskLevel   `json:"risk_level"`
	FinalRiskScore float64                `json:"final_risk_score"`
	FinalAction    assessment.FinalAction `json:"final_action"`
	Fallback       bool                   `json:"fallback"`
}

// AssessmentService persists coordination outcomes and fans them out to
// the cache, the message queue, websocket clients and alert channels.
// Only the store is required; the other collaborators are optional.
type AssessmentService struct {
	coord  *CoordinationService
	store  database.Store
	cache  cache.Cache
	ttl    time.Duration
	queue  messagequeue.Queue
	hub    broadcast.Broadcaster
	alerts *AlertService
	log    *slog.Logger

	intakeMu      sync.Mutex
	intakeStopped bool
	inflight      sync.WaitGroup
}

// NewAssessmentService creates an AssessmentService.
func NewAssessmentService(coord *CoordinationService, store database.Store, log *slog.Logger) *AssessmentService {
	if log == nil {
		log = slog.Default()
	}
	return &AssessmentService{coord: coord, store: store, ttl: DefaultCacheTTL, log: log}
}

// SetCache enables cache-aside reads of email details.
func (s *AssessmentService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	if ttl > 0 {
		s.ttl = ttl
	}
}

// SetQueue enables completion events and the queue intake.
func (s *AssessmentService) SetQueue(q messagequeue.Queue) { s.queue = q }

// SetBroadcaster enables websocket notifications.
func (s *AssessmentService) SetBroadcaster(b broadcast.Broadcaster) { s.hub = b }

// SetAlerts enables delivery of ALERT actions.
func (s *AssessmentService) SetAlerts(a *AlertService) { s.alerts = a }

// Analyze coordinates the agent results in req, stores the outcome and
// notifies subscribers. Only storage failures are returned as errors: a
// coordination failure is carried by the fallback outcome.
func (s *AssessmentService) Analyze(ctx context.Context, req assessment.Request) (*Analysis, error) {
	ctx, span := mwotel.StartPersistSpan(ctx, req.EmailID)
	defer span.End()

	stored, err := s.store.UpsertEmail(ctx, req.EmailID, req.Email)
	if err != nil {
		return nil, fmt.Errorf("store email: %w", err)
	}

	out := s.coord.Coordinate(ctx, req)
	if err := s.store.SaveCoordination(ctx, stored.ID, out); err != nil {
		return nil, fmt.Errorf("store coordination: %w", err)
	}
	s.invalidate(ctx, stored.ID)

	a := &Analysis{
		EmailID:     stored.ID,
		EmailUID:    stored.EmailUID,
		FinalAction: assessment.FinalActionFor(out.Result.FinalRiskScore),
		Outcome:     out,
	}
	s.publishCompleted(ctx, a)
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, broadcast.EventAssessmentCompleted, AssessmentEvent{
			EmailID:        a.EmailID,
			Subject:        req.Email.Subject,
			Sender:         req.Email.Sender,
			RiskLevel:      out.Result.RiskLevel,
			FinalRiskScore: out.Result.FinalRiskScore,
			FinalAction:    a.FinalAction,
			Fallback:       out.IsFallback(),
		})
	}
	if s.alerts != nil {
		s.alerts.DispatchAsync(ctx, AlertSubject{EmailID: a.EmailID, Email: req.Email, Result: out.Result})
	}
	return a, nil
}

// GetEmail returns an email with its latest result, served from the cache
// when possible.
func (s *AssessmentService) GetEmail(ctx context.Context, id string) (*email.Detail, error) {
	key := cache.EmailKey(id)
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("cache get failed", "key", key, "error", err)
		} else if ok {
			var d email.Detail
			if err := json.Unmarshal(data, &d); err == nil {
				return &d, nil
			}
			s.log.Warn("discarding undecodable cache entry", "key", key)
		}
	}

	d, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(d); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Warn("cache set failed", "key", key, "error", err)
			}
		}
	}
	return d, nil
}

// ListEmails returns a page of recent emails.
func (s *AssessmentService) ListEmails(ctx context.Context, f email.ListFilter) ([]email.Email, error) {
	f = f.Normalize()
	if f.RiskLevel != "" && !f.RiskLevel.Valid() {
		return nil, fmt.Errorf("risk_filter %q: %w", f.RiskLevel, domain.ErrValidation)
	}
	return s.store.ListEmails(ctx, f)
}

// StartIntake subscribes to coordination.request and analyzes every valid
// message. Invalid payloads are rejected without redelivery. The returned
// cancel stops the subscription and waits for in-flight messages, so alert
// dispatches they start are visible to a later AlertService.Wait.
func (s *AssessmentService) StartIntake(ctx context.Context) (cancel func(), err error) {
	if s.queue == nil {
		return nil, errors.New("no message queue configured")
	}
	s.intakeMu.Lock()
	s.intakeStopped = false
	s.intakeMu.Unlock()

	stop, err := s.queue.Subscribe(ctx, messagequeue.SubjectCoordinationRequest, func(msgCtx context.Context, subject string, data []byte) error {
		s.intakeMu.Lock()
		if s.intakeStopped {
			s.intakeMu.Unlock()
			return errIntakeStopped
		}
		s.inflight.Add(1)
		s.intakeMu.Unlock()
		defer s.inflight.Done()

		if err := messagequeue.Validate(subject, data); err != nil {
			s.log.Warn("rejecting coordination request", "error", err, "request_id", logger.RequestID(msgCtx))
			return nil
		}
		var req messagequeue.CoordinationRequestPayload
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("unmarshal coordination request: %w", err)
		}
		if _, err := s.Analyze(msgCtx, req); err != nil {
			return fmt.Errorf("analyze %s: %w", req.EmailID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			s.intakeMu.Lock()
			s.intakeStopped = true
			s.intakeMu.Unlock()
			s.inflight.Wait()
		})
	}, nil
}

func (s *AssessmentService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.EmailKey(id)); err != nil {
		s.log.Warn("cache invalidation failed", "email_id", id, "error", err)
	}
}

func (s *AssessmentService) publishCompleted(ctx context.Context, a *Analysis) {
	if s.queue == nil {
		return
	}
	r := a.Outcome.Result
	data, err := json.Marshal(messagequeue.CoordinationCompletedPayload{
		EmailID:        a.EmailID,
		EmailUID:       a.EmailUID,
		RequestID:      r.Metadata.RequestID,
		RiskLevel:      r.RiskLevel,
		FinalRiskScore: r.FinalRiskScore,
		Certainty:      r.AggregatedCertainty,
		FinalAction:    a.FinalAction,
		OverrideActive: r.Metadata.OverrideActive,
		Fallback:       a.Outcome.IsFallback(),
	})
	if err != nil {
		s.log.Error("marshal completion event", "error", err)
		return
	}
	if err := s.queue.Publish(ctx, messagequeue.SubjectCoordinationCompleted, data); err != nil {
		s.log.Warn("publish completion event failed", "email_id", a.EmailID, "error", err)
	}
}
