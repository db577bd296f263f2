package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer for the audit engine. No exporter is
// installed here; when the embedding process configures a provider, the
// spans flow to it, otherwise they are no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer scoped to the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartRun opens the root span for one audit run.
func (t *Tracer) StartRun(ctx context.Context, vehicles, fuelRecords, gpsRecords, jobRecords int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		attribute.Int("audit.vehicles", vehicles),
		attribute.Int("audit.fuel_records", fuelRecords),
		attribute.Int("audit.gps_records", gpsRecords),
		attribute.Int("audit.job_records", jobRecords),
	))
}

// StartAnalyzer opens a span for one (vehicle, analyzer) unit of work.
func (t *Tracer) StartAnalyzer(ctx context.Context, analyzer, vehicleID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("audit.analyze.%s", analyzer), trace.WithAttributes(
		attribute.String("audit.analyzer", analyzer),
		attribute.String("audit.vehicle_id", vehicleID),
	))
}

// StartStage opens a span for a post-barrier pipeline stage
// (consolidation, financial scoring).
func (t *Tracer) StartStage(ctx context.Context, stage string, candidates int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("audit.%s", stage), trace.WithAttributes(
		attribute.String("audit.stage", stage),
		attribute.Int("audit.candidates", candidates),
	))
}

// WithSpanError records err on the span and marks it failed.
func WithSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
