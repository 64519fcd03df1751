package runtime

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("branchprog.runtime")
	meter  = otel.Meter("branchprog.runtime")
)

var (
	evalTotal   metric.Int64Counter
	evalLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		evalTotal, err = meter.Int64Counter(
			"branchprog_evaluations_total",
			metric.WithDescription("Program evaluations, by result"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evalLatency, err = meter.Float64Histogram(
			"branchprog_evaluation_duration_seconds",
			metric.WithDescription("Duration of a single program evaluation"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

var (
	acceptAttrs = metric.WithAttributes(attribute.Bool("accepted", true))
	rejectAttrs = metric.WithAttributes(attribute.Bool("accepted", false))
)

func recordEvaluation(accepted bool, d time.Duration) {
	if initMetrics() != nil {
		return
	}
	attrs := rejectAttrs
	if accepted {
		attrs = acceptAttrs
	}
	ctx := context.Background()
	evalTotal.Add(ctx, 1, attrs)
	evalLatency.Record(ctx, d.Seconds(), attrs)
}

func startSpan(ctx context.Context, name string, inputs int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.Int("program.inputs", inputs)))
}

func endSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
