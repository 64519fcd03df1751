package compiler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/sbl8/branchprog/kernels"
	"github.com/sbl8/branchprog/model"
)

var (
	tracer = otel.Tracer("branchprog.compiler")
	meter  = otel.Meter("branchprog.compiler")
)

var (
	loadLatency  metric.Float64Histogram
	loadTotal    metric.Int64Counter
	gatesTotal   metric.Int64Counter
	stepsEmitted metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		loadLatency, err = meter.Float64Histogram(
			"branchprog_load_duration_seconds",
			metric.WithDescription("Duration of compiling or decoding a program"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadTotal, err = meter.Int64Counter(
			"branchprog_load_total",
			metric.WithDescription("Programs compiled or decoded, by format and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		gatesTotal, err = meter.Int64Counter(
			"branchprog_gates_compiled_total",
			metric.WithDescription("Gates compiled, by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		stepsEmitted, err = meter.Int64Histogram(
			"branchprog_program_steps",
			metric.WithDescription("Number of steps per loaded program"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startLoadSpan(ctx context.Context, format Format) (context.Context, trace.Span) {
	return tracer.Start(ctx, "compiler.Load",
		trace.WithAttributes(attribute.String("program.format", string(format))),
	)
}

func recordLoadMetrics(ctx context.Context, span trace.Span, format Format, stats BuildStats, lp *model.LoadedProgram, d time.Duration, err error) {
	success := err == nil
	span.SetAttributes(
		attribute.Int("formula.inputs", stats.Inputs),
		attribute.Int("formula.gates", stats.Total()),
		attribute.Bool("load.success", success),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("program.steps", lp.Program.Len()))
	}

	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("format", string(format)),
		attribute.Bool("success", success),
	)
	loadLatency.Record(ctx, d.Seconds(), attrs)
	loadTotal.Add(ctx, 1, attrs)
	for k, n := range stats.Gates {
		if n > 0 {
			gatesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kernels.Kind(k).String())))
		}
	}
	if success {
		stepsEmitted.Record(ctx, int64(lp.Program.Len()))
	}
}
