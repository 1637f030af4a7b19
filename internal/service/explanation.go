package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	mwotel "github.com/Strob0t/MailWarden/internal/adapter/otel"
	"github.com/Strob0t/MailWarden/internal/domain/assessment"
	"github.com/Strob0t/MailWarden/internal/port/narrative"
)

// minNarrativeLen is the shortest generated narrative that is accepted.
const minNarrativeLen = 50

// maxTopIndicators caps the ranked indicator list.
const maxTopIndicators = 5

const narrativeSystemPrompt = "You are an expert cybersecurity analyst explaining email security assessments to users."

const narrativePromptTemplate = `You are an expert cybersecurity analyst explaining email security assessments to users.

Given the following email security analysis results, write a clear, concise narrative explanation (3-4 sentences) that:
1. Explains the overall risk assessment
2. Identifies the PRIMARY contributing factors (mention which agents found what)
3. Explains HOW different indicators converge (e.g., "The Linguistic Agent detected phishing language while the Threat Intelligence Agent confirmed the URL matches known malware databases")
4. Uses specific evidence (domain age, threat database matches, ML model confidence, etc.)
5. Is written for a technical but not necessarily security-expert audience

%s

Write the explanation narrative (3-4 sentences, no bullet points):`

// errNoGenerator is reported when no narrative backend is configured.
var errNoGenerator = errors.New("no narrative generator configured")

// ExplainerConfig tunes narrative generation.
type ExplainerConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	// Thresholds label the per-agent risk breakdown. Zero means the
	// default tiers.
	Thresholds assessment.Thresholds
}

// Explainer assembles the explanation of a verdict. Only the narrative
// text is delegated to the generator; every other field is computed here.
type Explainer struct {
	gen narrative.Generator
	cfg ExplainerConfig
	log *slog.Logger
}

// NewExplainer creates an Explainer. gen may be nil, in which case the
// deterministic narrative is always used.
func NewExplainer(gen narrative.Generator, cfg ExplainerConfig, log *slog.Logger) *Explainer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Thresholds == (assessment.Thresholds{}) {
		cfg.Thresholds = assessment.DefaultThresholds()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Explainer{gen: gen, cfg: cfg, log: log}
}

// Explain builds the explanation for v. The returned flag reports whether
// the deterministic fallback narrative was used in place of generated text.
func (e *Explainer) Explain(ctx context.Context, mail assessment.EmailData, v Verdict) (assessment.Explanation, bool) {
	if v.OverrideActive {
		return overrideExplanation(v), false
	}

	text, err := e.narrate(ctx, BuildContext(mail, v))
	fallback := err != nil
	if fallback {
		e.log.Warn("narrative generation failed, using fallback", "error", err)
		text = FallbackNarrative(v.FinalRiskScore, v.RiskLevel)
	}

	return assessment.Explanation{
		Summary:       Summary(v.RiskLevel, v.FinalRiskScore, v.Certainty),
		Narrative:     text,
		KeyFindings:   KeyFindings(v.Contributions, v.RiskLevel),
		RiskBreakdown: RiskBreakdown(v.Contributions, e.cfg.Thresholds),
		TopIndicators: TopIndicators(v.Contributions),
	}, fallback
}

// narrate calls the generator under the configured timeout. The call runs
// in its own goroutine so that a generator ignoring ctx cannot stall the
// pipeline past the deadline.
func (e *Explainer) narrate(ctx context.Context, contextText string) (string, error) {
	if e.gen == nil {
		return "", errNoGenerator
	}

	ctx, span := mwotel.StartNarrativeSpan(ctx, e.cfg.Provider)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("narrative generator panicked: %v", r)}
			}
		}()
		text, err := e.gen.Generate(ctx, narrative.Request{
			System:      narrativeSystemPrompt,
			Prompt:      fmt.Sprintf(narrativePromptTemplate, contextText),
			MaxTokens:   e.cfg.MaxTokens,
			Temperature: e.cfg.Temperature,
		})
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("narrative generation: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		text := strings.TrimSpace(r.text)
		if len(text) < minNarrativeLen {
			return "", fmt.Errorf("narrative too short (%d chars)", len(text))
		}
		return text, nil
	}
}

// BuildContext renders the analysis context handed to the narrative
// generator. Email fields and findings are untrusted and sanitized.
func BuildContext(mail assessment.EmailData, v Verdict) string {
	lines := []string{
		"# Email Security Analysis Context",
		"",
		"## Email Details",
		"Subject: " + orNA(sanitizePromptField(mail.Subject)),
		"Sender: " + orNA(sanitizePromptField(mail.Sender)),
		"Date: " + orNA(sanitizePromptField(mail.Date)),
		"",
		"## Final Assessment",
		riskScoreLine(v.FinalRiskScore, v.RiskLevel),
		"Certainty Level: " + string(v.Certainty),
		"",
		"## Agent Analysis Results",
	}

	for _, c := range v.Contributions {
		lines = append(lines,
			"",
			"### "+c.Agent.DisplayName(),
			fmt.Sprintf("- Risk Score: %.2f", c.RiskScore),
			"- Certainty Level: "+string(c.Certainty),
			fmt.Sprintf("- Weight: %.0f%%", c.Weight*100),
			fmt.Sprintf("- Contribution to final score: %.2f", c.WeightedContribution),
		)
		if len(c.KeyFindings) > 0 {
			lines = append(lines, "- Key Findings:")
			for _, f := range c.KeyFindings {
				lines = append(lines, "  • "+sanitizePromptField(f))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// FallbackNarrative is the deterministic narrative used when generation fails.
func FallbackNarrative(score float64, level assessment.RiskLevel) string {
	return "Email security analysis completed. " + riskScoreLine(score, level) + ". " +
		"Multiple security agents analyzed this email using ML models, " +
		"infrastructure validation, and threat intelligence databases. " +
		"See detailed findings below for specific risk indicators."
}

// Summary renders the one-to-two sentence summary for a tier.
func Summary(level assessment.RiskLevel, score float64, certainty assessment.Certainty) string {
	switch level {
	case assessment.RiskCritical:
		return fmt.Sprintf("This email exhibits critical security threats with %s certainty. "+
			"Multiple agents detected severe phishing indicators requiring immediate action.", certainty)
	case assessment.RiskHigh:
		return fmt.Sprintf("This email shows strong phishing indicators with %s certainty. "+
			"Multiple security agents identified suspicious characteristics.", certainty)
	case assessment.RiskMedium:
		return fmt.Sprintf("This email contains some suspicious characteristics (%.0f%% risk score, %s certainty). "+
			"User review recommended before taking action.", score*100, certainty)
	case assessment.RiskLow:
		return fmt.Sprintf("This email appears legitimate with minimal risk indicators (%.0f%% risk score, %s certainty). "+
			"No significant threats detected.", score*100, certainty)
	}
	return "Email security analysis completed."
}

// findingSeverity grades a finding by the contribution of its agent,
// softened when the overall verdict is less severe.
func findingSeverity(contribution float64, level assessment.RiskLevel) assessment.RiskLevel {
	switch {
	case contribution >= 0.30:
		if level == assessment.RiskCritical {
			return assessment.RiskCritical
		}
		return assessment.RiskHigh
	case contribution >= 0.15:
		if level == assessment.RiskCritical || level == assessment.RiskHigh {
			return assessment.RiskHigh
		}
		return assessment.RiskMedium
	default:
		if level == assessment.RiskLow {
			return assessment.RiskLow
		}
		return assessment.RiskMedium
	}
}

func severityLabel(l assessment.RiskLevel) string {
	if l == assessment.RiskLow {
		return "INFO"
	}
	return string(l)
}

func severityOrder(l assessment.RiskLevel) int {
	switch l {
	case assessment.RiskCritical:
		return 0
	case assessment.RiskHigh:
		return 1
	case assessment.RiskMedium:
		return 2
	}
	return 3
}

// KeyFindings lists every finding of every agent prefixed with its
// severity, most severe first. Ties keep agent order.
func KeyFindings(contribs []assessment.AgentContribution, level assessment.RiskLevel) []string {
	type graded struct {
		sev  assessment.RiskLevel
		text string
	}
	var all []graded
	for _, c := range contribs {
		sev := findingSeverity(c.WeightedContribution, level)
		for _, f := range c.KeyFindings {
			all = append(all, graded{sev: sev, text: severityLabel(sev) + ": " + f})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return severityOrder(all[i].sev) < severityOrder(all[j].sev)
	})

	out := make([]string, 0, len(all))
	for _, g := range all {
		out = append(out, g.text)
	}
	return out
}

// RiskBreakdown summarizes each agent as "LEVEL (score) - top finding",
// keyed by the lowercase display name of the agent. Levels come from th.
func RiskBreakdown(contribs []assessment.AgentContribution, th assessment.Thresholds) map[string]string {
	out := make(map[string]string, len(contribs))
	for _, c := range contribs {
		entry := fmt.Sprintf("%s (%.2f)", th.Categorize(c.RiskScore), c.RiskScore)
		if len(c.KeyFindings) > 0 {
			primary := c.KeyFindings[0]
			if _, rest, ok := strings.Cut(primary, ": "); ok {
				primary = rest
			}
			entry += " - " + primary
		}
		out[strings.ToLower(c.Agent.DisplayName())] = entry
	}
	return out
}

// TopIndicators ranks all findings by the contribution of their agent and
// keeps the strongest five.
func TopIndicators(contribs []assessment.AgentContribution) []assessment.Indicator {
	out := []assessment.Indicator{}
	for _, c := range contribs {
		sev := assessment.RiskMedium
		switch {
		case c.WeightedContribution >= 0.30:
			sev = assessment.RiskCritical
		case c.WeightedContribution >= 0.15:
			sev = assessment.RiskHigh
		}
		for _, f := range c.KeyFindings {
			out = append(out, assessment.Indicator{
				Source:       c.Agent,
				Severity:     sev,
				Description:  f,
				Certainty:    c.Certainty,
				Contribution: c.WeightedContribution,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Contribution > out[j].Contribution
	})
	if len(out) > maxTopIndicators {
		out = out[:maxTopIndicators]
	}
	return out
}

func overrideExplanation(v Verdict) assessment.Explanation {
	ti, _ := v.Contribution(assessment.AgentThreatIntelligence)
	ling, _ := v.Contribution(assessment.AgentLinguistic)
	tech, _ := v.Contribution(assessment.AgentTechnicalValidation)

	reason := ti.Reasoning
	if r := []rune(reason); len(r) > 100 {
		reason = string(r[:100])
	}

	return assessment.Explanation{
		Summary:     "CRITICAL THREAT: " + reason,
		Narrative:   v.DetailedReasoning,
		KeyFindings: []string{"CRITICAL: DEFINITIVE threat detected by authoritative sources"},
		RiskBreakdown: map[string]string{
			"threat intelligence":  fmt.Sprintf("%s (%.2f) - OVERRIDE ACTIVE", ti.Certainty, ti.RiskScore),
			"linguistic":           fmt.Sprintf("%s (%.2f)", ling.Certainty, ling.RiskScore),
			"technical validation": fmt.Sprintf("%s (%.2f)", tech.Certainty, tech.RiskScore),
		},
		TopIndicators: []assessment.Indicator{},
	}
}

func riskScoreLine(score float64, level assessment.RiskLevel) string {
	return fmt.Sprintf("Risk Score: %.2f (%s)", score, level)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
