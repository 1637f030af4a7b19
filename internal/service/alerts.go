package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/port/notifier"
)

const (
	// DefaultAlertTimeout bounds one asynchronous dispatch across all channels.
	DefaultAlertTimeout = 30 * time.Second
	alertSource         = "assessment.completed"
	maxAlertFindings    = 5
)

// AlertSubject identifies the email an alert is about.
type AlertSubject struct {
	EmailID string
	Email   assessment.EmailData
	Result  assessment.CoordinationResult
}

// AlertService delivers the ALERT actions of a result to the channels
// named in their parameters. Channels without a configured notifier are
// skipped. Delivery errors are logged and never fail the analysis.
type AlertService struct {
	channels map[string]notifier.Notifier
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewAlertService creates an AlertService over the given notifiers.
func NewAlertService(notifiers []notifier.Notifier, log *slog.Logger) *AlertService {
	if log == nil {
		log = slog.Default()
	}
	channels := make(map[string]notifier.Notifier, len(notifiers))
	for _, n := range notifiers {
		channels[n.Name()] = n
	}
	return &AlertService{channels: channels, timeout: DefaultAlertTimeout, log: log}
}

// SetTimeout overrides DefaultAlertTimeout. Non-positive values are ignored.
func (s *AlertService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Channels returns the sorted names of the configured channels.
func (s *AlertService) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch sends every ALERT action in subj.Result and returns the number
// of successful deliveries.
func (s *AlertService) Dispatch(ctx context.Context, subj AlertSubject) int {
	sent := 0
	for i := range subj.Result.RecommendedActions {
		action := &subj.Result.RecommendedActions[i]
		if action.ActionType != assessment.ActionAlert {
			continue
		}
		for _, ch := range stringsParam(action.Parameters, "channels") {
			provider, ok := s.channels[ch]
			if !ok {
				s.log.Debug("alert channel not configured", "channel", ch, "email_id", subj.EmailID)
				continue
			}
			n := buildNotification(subj, action, provider.Capabilities().RichFormatting)
			if err := provider.Send(ctx, n); err != nil {
				s.log.Warn("alert delivery failed",
					"channel", ch,
					"email_id", subj.EmailID,
					"error", err,
				)
				continue
			}
			sent++
			s.log.Info("alert sent", "channel", ch, "email_id", subj.EmailID, "priority", action.Priority)
		}
	}
	return sent
}

// DispatchAsync runs Dispatch in the background, detached from the
// caller's cancellation and bounded by the service timeout.
func (s *AlertService) DispatchAsync(ctx context.Context, subj AlertSubject) {
	if !assessment.HasAction(subj.Result.RecommendedActions, assessment.ActionAlert) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		s.Dispatch(dctx, subj)
	}()
}

// Wait blocks until all background dispatches have finished.
func (s *AlertService) Wait() { s.wg.Wait() }

// buildNotification renders the alert body. Rich channels render Markdown,
// so the score is set as inline code and findings as bullets.
func buildNotification(subj AlertSubject, action *assessment.RecommendedAction, rich bool) notifier.Notification {
	r := subj.Result
	subject := subj.Email.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	var b strings.Builder
	if msg, ok := action.Parameters["message"].(string); ok && msg != "" {
		b.WriteString(msg)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Email ID: %s\n", subj.EmailID)
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	if subj.Email.Sender != "" {
		fmt.Fprintf(&b, "Sender: %s\n", subj.Email.Sender)
	}
	score, bullet := fmt.Sprintf("%.2f", r.FinalRiskScore), "- "
	if rich {
		score, bullet = "`"+score+"`", "• "
	}
	fmt.Fprintf(&b, "Risk: %s (%s, certainty %s)\n", score, r.RiskLevel, r.AggregatedCertainty)

	if include, _ := action.Parameters["include_analysis"].(bool); include {
		if r.Explanation.Summary != "" {
			b.WriteString("\n")
			b.WriteString(r.Explanation.Summary)
			b.WriteString("\n")
		}
		findings := r.Explanation.KeyFindings
		if len(findings) > maxAlertFindings {
			findings = findings[:maxAlertFindings]
		}
		for _, f := range findings {
			b.WriteString(bullet)
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	return notifier.Notification{
		Title:      fmt.Sprintf("Phishing risk %.2f: %s", r.FinalRiskScore, subject),
		Message:    strings.TrimRight(b.String(), "\n"),
		Level:      alertLevel(action.Priority),
		Source:     alertSource,
		Recipients: stringsParam(action.Parameters, "recipients"),
	}
}

func alertLevel(p assessment.Priority) string {
	switch p {
	case assessment.PriorityCritical:
		return notifier.LevelError
	case assessment.PriorityHigh:
		return notifier.LevelWarning
	default:
		return notifier.LevelInfo
	}
}

// stringsParam reads a string list from action parameters. Parameters
// decoded from JSON carry []any instead of []string.
func stringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
