// Package otel provides OpenTelemetry integration for RuleForge compiles.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ruleforge/ruleforge/graph"
)

// CompileFunc runs one compile attempt and returns the emitted text and
// the diagnostics report.
type CompileFunc func(ctx context.Context) (string, graph.Report)

// CompileObserver wraps compile attempts in OpenTelemetry spans and
// records counters and histograms for attempts, diagnostics, and
// duration.
type CompileObserver struct {
	tracer trace.Tracer

	compiles    metric.Int64Counter
	diagnostics metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewCompileObserver creates a CompileObserver using the given tracer and
// meter for instrumentation.
func NewCompileObserver(tracer trace.Tracer, meter metric.Meter) (*CompileObserver, error) {
	compiles, err := meter.Int64Counter("ruleforge.compiles",
		metric.WithDescription("Number of compile attempts"),
	)
	if err != nil {
		return nil, err
	}

	diags, err := meter.Int64Counter("ruleforge.diagnostics",
		metric.WithDescription("Number of diagnostics produced by compile attempts"),
	)
	if err != nil {
		return nil, err
	}

	dur, err := meter.Float64Histogram("ruleforge.compile.duration",
		metric.WithDescription("Duration of compile attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &CompileObserver{
		tracer:      tracer,
		compiles:    compiles,
		diagnostics: diags,
		duration:    dur,
	}, nil
}

// ObserveCompile runs one compile attempt inside a span named after the
// graph. The span records whether the attempt succeeded, and every
// diagnostic increments the diagnostics counter tagged with its code and
// severity.
func (o *CompileObserver) ObserveCompile(ctx context.Context, graphName string, fn CompileFunc) (string, graph.Report) {
	ctx, span := o.tracer.Start(ctx, "compile:"+graphName,
		trace.WithAttributes(
			attribute.String("ruleforge.graph", graphName),
		),
	)
	defer span.End()

	start := time.Now()
	text, report := fn(ctx)
	elapsed := time.Since(start)

	status := "ok"
	if report.HasErrors() {
		status = "error"
		span.SetStatus(codes.Error, "compile failed")
	}

	span.SetAttributes(
		attribute.Int("ruleforge.diagnostics", len(report.Diagnostics)),
		attribute.Int("ruleforge.output_bytes", len(text)),
	)

	attrs := metric.WithAttributes(
		attribute.String("graph", graphName),
		attribute.String("status", status),
	)
	o.compiles.Add(ctx, 1, attrs)
	o.duration.Record(ctx, elapsed.Seconds(), attrs)

	for _, d := range report.Diagnostics {
		o.diagnostics.Add(ctx, 1, metric.WithAttributes(
			attribute.String("graph", graphName),
			attribute.String("code", d.Code),
			attribute.String("severity", d.Severity),
		))
	}

	return text, report
}
