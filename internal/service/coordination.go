package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	mwotel "github.com/Strob0t/MailWarden/internal/adapter/otel"
	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/logger"
)

// CoordinationService turns the raw output of the three upstream agents
// into a single CoordinationResult. It holds no per-request state and is
// safe for concurrent use.
type CoordinationService struct {
	normalizer  *Normalizer
	fuser       *Fuser
	explainer   *Explainer
	recommender *ActionRecommender
	weights     assessment.Weights
	log         *slog.Logger
	metrics     *mwotel.Metrics

	now   func() time.Time
	newID func() string
}

// NewCoordinationService creates a coordinator running on policy. The
// explainer may be nil, in which case narratives always use the
// deterministic text.
func NewCoordinationService(policy assessment.Policy, explainer *Explainer, log *slog.Logger) *CoordinationService {
	if log == nil {
		log = slog.Default()
	}
	if explainer == nil {
		explainer = NewExplainer(nil, ExplainerConfig{}, log)
	}
	return &CoordinationService{
		normalizer:  NewNormalizer(log),
		fuser:       NewFuser(policy),
		explainer:   explainer,
		recommender: NewActionRecommender(policy, log),
		weights:     policy.Weights,
		log:         log,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// SetMetrics attaches OTEL instruments. Nil disables recording.
func (s *CoordinationService) SetMetrics(m *mwotel.Metrics) {
	s.metrics = m
}

// Coordinate runs normalization, fusion, explanation and action selection.
// It never fails: any error or panic on the way yields the conservative
// fallback result tagged for manual review.
func (s *CoordinationService) Coordinate(ctx context.Context, req assessment.Request) (out assessment.Outcome) {
	start := s.now()
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = s.newID()
	}
	log := s.log.With("request_id", requestID, "email_id", req.EmailID)

	ctx, span := mwotel.StartCoordinationSpan(ctx, requestID)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			log.Error("coordination panicked", "panic", r, "stack", string(debug.Stack()))
			out = s.fallback(requestID, start, fmt.Errorf("panic: %v", r))
		}
		if out.IsFallback() {
			span.SetStatus(codes.Error, out.Reason)
		}
		s.record(ctx, out)
	}()

	result, err := s.coordinate(ctx, log, requestID, start, req)
	if err != nil {
		log.Error("coordination failed", "error", err)
		return s.fallback(requestID, start, err)
	}

	span.SetAttributes(
		attribute.String("risk.level", string(result.RiskLevel)),
		attribute.Float64("risk.score", result.FinalRiskScore),
		attribute.Bool("override.active", result.Metadata.OverrideActive),
	)
	log.Info("coordination complete",
		"risk_score", result.FinalRiskScore,
		"risk_level", result.RiskLevel,
		"certainty", result.AggregatedCertainty,
		"override", result.Metadata.OverrideActive,
		"actions", len(result.RecommendedActions),
	)
	return assessment.Ok(result)
}

func (s *CoordinationService) coordinate(ctx context.Context, log *slog.Logger, requestID string, start time.Time, req assessment.Request) (assessment.CoordinationResult, error) {
	normalize := func(a assessment.Agent) assessment.AgentAssessment {
		return s.normalizer.Normalize(a, req.Raw(a))
	}
	ling := normalize(assessment.AgentLinguistic)
	tech := normalize(assessment.AgentTechnicalValidation)
	ti := normalize(assessment.AgentThreatIntelligence)

	v := s.fuser.Fuse(ling, tech, ti)
	if v.OverrideActive {
		log.Warn("threat intelligence override active", "ti_risk", ti.RiskScore)
	}

	var (
		explanation       assessment.Explanation
		narrativeFallback bool
		actions           []assessment.RecommendedAction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverInto(&err, "explanation")
		explanation, narrativeFallback = s.explainer.Explain(gctx, req.Email, v)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverInto(&err, "action recommendation")
		actions, err = s.recommender.Recommend(v, req.Email)
		return err
	})
	if err := g.Wait(); err != nil {
		return assessment.CoordinationResult{}, err
	}

	now := s.now()
	elapsed := now.Sub(start)
	return assessment.CoordinationResult{
		FinalRiskScore:      v.FinalRiskScore,
		RiskLevel:           v.RiskLevel,
		AggregatedCertainty: v.Certainty,
		DetailedReasoning:   v.DetailedReasoning,
		Uncertainty:         v.Uncertainty,
		AgentContributions:  v.Contributions,
		Explanation:         explanation,
		RecommendedActions:  actions,
		UserRecommendations: UserRecommendations(v.RiskLevel, actions),
		Metadata: assessment.Metadata{
			RequestID:             requestID,
			AnalysisTimestamp:     now,
			TotalProcessingTimeMs: elapsed.Milliseconds(),
			SystemVersion:         assessment.SystemVersion,
			AgentsUsed:            slices.Clone(assessment.Agents),
			AgentWeights:          v.Weights.Map(),
			OverrideActive:        v.OverrideActive,
			NarrativeFallback:     narrativeFallback,
		},
		Timestamp:      now,
		ProcessingTime: elapsed,
	}, nil
}

// fallback builds the result returned when coordination cannot complete.
func (s *CoordinationService) fallback(requestID string, start time.Time, cause error) assessment.Outcome {
	now := s.now()
	elapsed := now.Sub(start)
	reason := cause.Error()
	actions := []assessment.RecommendedAction{{
		ActionType: assessment.ActionTag,
		Priority:   assessment.PriorityHigh,
		Confidence: 0,
		Parameters: map[string]any{"label": "ANALYSIS_ERROR"},
		Reasoning:  fmt.Sprintf("Coordination agent failed: %s. Manual review recommended.", reason),
	}}
	return assessment.Fallback(reason, assessment.CoordinationResult{
		FinalRiskScore:      0.5,
		RiskLevel:           assessment.RiskMedium,
		AggregatedCertainty: assessment.CertaintyInconclusive,
		DetailedReasoning:   fmt.Sprintf("Coordination agent failed: %s. Manual review recommended.", reason),
		Uncertainty:         1.0,
		AgentContributions:  []assessment.AgentContribution{},
		Explanation: assessment.Explanation{
			Summary:       "Email security analysis encountered an error.",
			Narrative:     fmt.Sprintf("Automated analysis could not be completed: %s. Manual review recommended.", reason),
			KeyFindings:   []string{"ERROR: Automated analysis failed"},
			RiskBreakdown: map[string]string{"error": "Coordination failed"},
			TopIndicators: []assessment.Indicator{},
		},
		RecommendedActions: actions,
		UserRecommendations: []string{
			"Automated analysis encountered an error",
			"Email has been flagged for manual security review",
			"Exercise caution until manual review is complete",
		},
		Metadata: assessment.Metadata{
			RequestID:             requestID,
			AnalysisTimestamp:     now,
			TotalProcessingTimeMs: elapsed.Milliseconds(),
			SystemVersion:         assessment.SystemVersion,
			AgentsUsed:            slices.Clone(assessment.Agents),
			AgentWeights:          s.weights.Map(),
			Fallback:              true,
			Error:                 reason,
		},
		Timestamp:      now,
		ProcessingTime: elapsed,
	})
}

func (s *CoordinationService) record(ctx context.Context, out assessment.Outcome) {
	if s.metrics == nil {
		return
	}
	r := out.Result
	attrs := metric.WithAttributes(
		attribute.String("risk.level", string(r.RiskLevel)),
		attribute.String("status", string(out.Status)),
	)
	s.metrics.Coordinations.Add(ctx, 1, attrs)
	s.metrics.Duration.Record(ctx, r.ProcessingTime.Seconds(), attrs)
	s.metrics.RiskScore.Record(ctx, r.FinalRiskScore, attrs)
	if out.IsFallback() {
		s.metrics.Fallbacks.Add(ctx, 1)
	}
	if r.Metadata.OverrideActive {
		s.metrics.Overrides.Add(ctx, 1)
	}
	if r.Metadata.NarrativeFallback {
		s.metrics.NarrativeFallbacks.Add(ctx, 1)
	}
}

// recoverInto converts a panic in a pipeline goroutine into an error.
func recoverInto(err *error, stage string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", stage, r)
	}
}
