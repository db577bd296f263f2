package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the engine's domain metrics. Counters are recorded through
// the global meter provider; a process that installs no provider gets
// no-ops, which keeps the engine free of I/O.
type Registry struct {
	meter metric.Meter

	RunDuration           metric.Float64Histogram
	RecordsProcessed      metric.Int64Counter
	CandidatesEmitted     metric.Int64Counter
	AnalyzerSkips         metric.Int64Counter
	IncidentsConsolidated metric.Int64Counter
	EstimatedLossUSD      metric.Float64Histogram
}

// NewRegistry creates the metrics registry for the audit engine.
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.RunDuration, err = meter.Float64Histogram(
		"fleetaudit.run.duration",
		metric.WithDescription("Wall time of one full audit run in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000, 10000),
	)
	if err != nil {
		return nil, err
	}

	r.RecordsProcessed, err = meter.Int64Counter(
		"fleetaudit.records.processed_total",
		metric.WithDescription("Normalized records consumed, by stream"),
	)
	if err != nil {
		return nil, err
	}

	r.CandidatesEmitted, err = meter.Int64Counter(
		"fleetaudit.violations.candidates_total",
		metric.WithDescription("Candidate violations emitted, by analyzer"),
	)
	if err != nil {
		return nil, err
	}

	r.AnalyzerSkips, err = meter.Int64Counter(
		"fleetaudit.analyzer.skips_total",
		metric.WithDescription("Per-vehicle analyzer skips, by reason"),
	)
	if err != nil {
		return nil, err
	}

	r.IncidentsConsolidated, err = meter.Int64Counter(
		"fleetaudit.violations.incidents_total",
		metric.WithDescription("Consolidated incidents produced per run"),
	)
	if err != nil {
		return nil, err
	}

	r.EstimatedLossUSD, err = meter.Float64Histogram(
		"fleetaudit.violations.estimated_loss_usd",
		metric.WithDescription("Estimated loss per consolidated incident in USD"),
		metric.WithUnit("USD"),
		metric.WithExplicitBucketBoundaries(1, 10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordRun records run duration and stream sizes.
func (r *Registry) RecordRun(ctx context.Context, elapsed time.Duration, fuel, gps, jobs int) {
	r.RunDuration.Record(ctx, float64(elapsed.Milliseconds()))
	r.RecordsProcessed.Add(ctx, int64(fuel), metric.WithAttributes(attribute.String("stream", "fuel")))
	r.RecordsProcessed.Add(ctx, int64(gps), metric.WithAttributes(attribute.String("stream", "gps")))
	r.RecordsProcessed.Add(ctx, int64(jobs), metric.WithAttributes(attribute.String("stream", "jobs")))
}

// RecordCandidates records candidate output of one analyzer.
func (r *Registry) RecordCandidates(ctx context.Context, analyzer string, count int) {
	r.CandidatesEmitted.Add(ctx, int64(count), metric.WithAttributes(attribute.String("analyzer", analyzer)))
}

// RecordSkip records a soft analyzer skip.
func (r *Registry) RecordSkip(ctx context.Context, analyzer, reason string) {
	r.AnalyzerSkips.Add(ctx, 1, metric.WithAttributes(
		attribute.String("analyzer", analyzer),
		attribute.String("reason", reason),
	))
}

// RecordIncident records one consolidated incident and its loss estimate.
func (r *Registry) RecordIncident(ctx context.Context, lossUSD float64) {
	r.IncidentsConsolidated.Add(ctx, 1)
	r.EstimatedLossUSD.Record(ctx, lossUSD)
}
