package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "maestro/orchestrator"

// Instruments records spans and metrics for workflow runs and steps.
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	tracer       trace.Tracer
	runs         metric.Int64Counter
	runDuration  metric.Float64Histogram
	steps        metric.Int64Counter
	stepDuration metric.Float64Histogram
	inflight     metric.Int64UpDownCounter
}

// NewInstruments builds instruments on the global providers.
func NewInstruments() *Instruments {
	return NewInstrumentsWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewInstrumentsWith builds instruments on explicit providers.
// Instrument creation errors leave that instrument unset.
func NewInstrumentsWith(tp trace.TracerProvider, mp metric.MeterProvider) *Instruments {
	meter := mp.Meter(scope)
	i := &Instruments{tracer: tp.Tracer(scope)}

	i.runs, _ = meter.Int64Counter("maestro.workflow.runs",
		metric.WithDescription("Workflow runs by terminal status"))
	i.runDuration, _ = meter.Float64Histogram("maestro.workflow.duration",
		metric.WithUnit("ms"))
	i.steps, _ = meter.Int64Counter("maestro.step.results",
		metric.WithDescription("Step results by outcome"))
	i.stepDuration, _ = meter.Float64Histogram("maestro.step.duration",
		metric.WithUnit("ms"))
	i.inflight, _ = meter.Int64UpDownCounter("maestro.step.inflight",
		metric.WithDescription("Agent invocations currently in flight"))
	return i
}

// StartRun opens the span covering one workflow run.
func (i *Instruments) StartRun(ctx context.Context, runID, workflow string) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, "workflow "+workflow,
		trace.WithAttributes(
			attribute.String("maestro.run_id", runID),
			attribute.String("maestro.workflow", workflow),
		),
	)
}

// EndRun closes a run span and records the run metrics.
func (i *Instruments) EndRun(ctx context.Context, span trace.Span, workflow, status string, results int, d time.Duration, errMsg string) {
	if i == nil {
		return
	}
	span.SetAttributes(
		attribute.String("maestro.status", status),
		attribute.Int("maestro.results", results),
	)
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("maestro.workflow", workflow),
		attribute.String("maestro.status", status),
	)
	if i.runs != nil {
		i.runs.Add(ctx, 1, attrs)
	}
	if i.runDuration != nil {
		i.runDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

// StartStep opens the span covering one step.
func (i *Instruments) StartStep(ctx context.Context, step, agent, method string) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, "step "+step,
		trace.WithAttributes(
			attribute.String("maestro.step", step),
			attribute.String("maestro.agent", agent),
			attribute.String("maestro.method", method),
		),
	)
}

// EndStep closes a step span and records the step metrics. kind is empty
// for successful steps.
func (i *Instruments) EndStep(ctx context.Context, span trace.Span, agent, kind string, d time.Duration, errMsg string) {
	if i == nil {
		return
	}
	outcome := "success"
	if kind != "" {
		outcome = kind
		span.SetStatus(codes.Error, errMsg)
	}
	span.SetAttributes(attribute.String("maestro.outcome", outcome))
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("maestro.agent", agent),
		attribute.String("maestro.outcome", outcome),
	)
	if i.steps != nil {
		i.steps.Add(ctx, 1, attrs)
	}
	if i.stepDuration != nil {
		i.stepDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

// InvocationStarted and InvocationFinished track in-flight agent calls.
func (i *Instruments) InvocationStarted(ctx context.Context) {
	if i != nil && i.inflight != nil {
		i.inflight.Add(ctx, 1)
	}
}

func (i *Instruments) InvocationFinished(ctx context.Context) {
	if i != nil && i.inflight != nil {
		i.inflight.Add(ctx, -1)
	}
}
