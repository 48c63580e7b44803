// Package observe provides OpenTelemetry metrics for the dictation pipeline
// and a Prometheus scrape endpoint for them.
//
// Tests should build Metrics with NewMetrics over their own MeterProvider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all voxpaste metrics.
const meterName = "github.com/chaz8081/voxpaste"

// Metrics holds the instruments recorded by the pipeline. Safe for
// concurrent use.
type Metrics struct {
	// StageDuration tracks time spent per stage. Attribute: stage.
	StageDuration metric.Float64Histogram

	// Sessions counts finished sessions. Attribute: outcome
	// (injected, silent, empty, error).
	Sessions metric.Int64Counter

	// InjectAttempts counts delivery attempts. Attribute: status (ok, error).
	InjectAttempts metric.Int64Counter

	// RefineOutcomes counts refinement results. Attribute: outcome.
	RefineOutcomes metric.Int64Counter
}

// latencyBuckets are in seconds, sized for local inference.
var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("voxpaste.stage.duration",
		metric.WithDescription("Time spent in each pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Sessions, err = m.Int64Counter("voxpaste.sessions",
		metric.WithDescription("Finished dictation sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.InjectAttempts, err = m.Int64Counter("voxpaste.inject.attempts",
		metric.WithDescription("Clipboard paste delivery attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.RefineOutcomes, err = m.Int64Counter("voxpaste.refine.outcomes",
		metric.WithDescription("Refinement results by outcome."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Discard returns Metrics that record nothing.
func Discard() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("observe: noop metrics: " + err.Error())
	}
	return m
}

// RecordStage records the duration of one stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordSession counts a finished session.
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordInjectAttempt counts one delivery attempt.
func (m *Metrics) RecordInjectAttempt(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.InjectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordRefine counts one refinement outcome.
func (m *Metrics) RecordRefine(ctx context.Context, outcome string) {
	m.RefineOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
