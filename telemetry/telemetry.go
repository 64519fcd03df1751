// Package telemetry installs the OpenTelemetry providers used by the
// branchprog binaries.
//
// Traces go to a stdout-style exporter when enabled. Metrics are collected by
// an SDK meter provider whose reader is either the Prometheus bridge, backed
// by a private registry that is written as a node-exporter textfile on
// shutdown, or a periodic stdout exporter. The compiler and runtime packages
// obtain their tracers and meters from the global providers, so nothing is
// recorded until Init has run.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter is returned for an unsupported metrics exporter name.
var ErrUnknownExporter = errors.New("unknown exporter")

// Config selects exporters.
type Config struct {
	ServiceName     string
	ServiceVersion  string
	Trace           bool      // export spans
	TraceWriter     io.Writer // span destination, os.Stderr when nil
	Metrics         string    // "prometheus", "stdout" or "none"
	MetricsTextfile string    // Prometheus textfile written on shutdown, optional
}

// DefaultConfig returns a configuration with tracing off and Prometheus
// metrics kept in memory.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "branchprog",
		ServiceVersion: "0.1.0",
		Metrics:        "prometheus",
	}
}

// Providers holds what Init installed.
type Providers struct {
	Registry *prometheus.Registry // nil unless Metrics is "prometheus"

	cfg           Config
	shutdownFuncs []func(context.Context) error
}

// Init installs global tracer and meter providers according to cfg.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	p := &Providers{cfg: cfg}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.Trace {
		w := cfg.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
			trace.WithSampler(trace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		p.shutdownFuncs = append(p.shutdownFuncs, tp.Shutdown)
	}

	mp, err := p.initMeter(res)
	if err != nil {
		return nil, fmt.Errorf("init meter: %w", err)
	}
	if mp != nil {
		otel.SetMeterProvider(mp)
		p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)
	}
	return p, nil
}

func (p *Providers) initMeter(res *resource.Resource) (*metric.MeterProvider, error) {
	switch p.cfg.Metrics {
	case "prometheus", "":
		reg := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		p.Registry = reg
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		), nil

	case "stdout":
		exporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		), nil

	case "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, p.cfg.Metrics)
	}
}

// WriteTextfile writes the current Prometheus metrics to path.
func (p *Providers) WriteTextfile(path string) error {
	if p.Registry == nil {
		return errors.New("prometheus metrics not enabled")
	}
	return prometheus.WriteToTextfile(path, p.Registry)
}

// Shutdown writes the metrics textfile, if configured, then flushes and
// stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.cfg.MetricsTextfile != "" && p.Registry != nil {
		if err := p.WriteTextfile(p.cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
