package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mailwarden"

// Metrics holds all MailWarden metric instruments.
type Metrics struct {
	Coordinations      metric.Int64Counter
	Fallbacks          metric.Int64Counter
	Overrides          metric.Int64Counter
	NarrativeFallbacks metric.Int64Counter
	Duration           metric.Float64Histogram
	RiskScore          metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Coordinations, err = meter.Int64Counter("mailwarden.coordinations",
		metric.WithDescription("Number of coordinated assessments"))
	if err != nil {
		return nil, err
	}

	m.Fallbacks, err = meter.Int64Counter("mailwarden.coordinations.fallback",
		metric.WithDescription("Number of assessments that returned the fallback result"))
	if err != nil {
		return nil, err
	}

	m.Overrides, err = meter.Int64Counter("mailwarden.overrides",
		metric.WithDescription("Number of threat intelligence overrides"))
	if err != nil {
		return nil, err
	}

	m.NarrativeFallbacks, err = meter.Int64Counter("mailwarden.narrative.fallback",
		metric.WithDescription("Number of narratives replaced by the deterministic text"))
	if err != nil {
		return nil, err
	}

	m.Duration, err = meter.Float64Histogram("mailwarden.coordination.duration_seconds",
		metric.WithDescription("Coordination duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.RiskScore, err = meter.Float64Histogram("mailwarden.risk_score",
		metric.WithDescription("Distribution of final risk scores"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
