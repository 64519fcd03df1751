package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// Init replaces the global providers, so these tests do not run in parallel.

func TestInitPrometheusTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "branchprog.prom")
	cfg := DefaultConfig()
	cfg.MetricsTextfile = path

	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, p.Registry)

	counter, err := otel.Meter("telemetry_test").Int64Counter("branchprog_test_events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "branchprog_test_events_total")
}

func TestInitTrace(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Trace = true
	cfg.TraceWriter = &buf
	cfg.Metrics = "none"

	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, p.Registry)

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "compile")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	assert.True(t, strings.Contains(buf.String(), `"Name": "compile"`), buf.String())
}

func TestInitErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics = "statsd"
	_, err := Init(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrUnknownExporter)

	cfg.Metrics = "none"
	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.Error(t, p.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.NoError(t, p.Shutdown(context.Background()))
}
