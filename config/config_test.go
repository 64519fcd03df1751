package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/branchprog/compiler"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Compiler.Validate)
	assert.Equal(t, "branchprog", cfg.Telemetry.ServiceName)
}

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "empty keeps defaults",
			yaml: "",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, Default(), c)
			},
		},
		{
			name: "partial override",
			yaml: "compiler:\n  output: binary\n  obliviate: true\nruntime:\n  workers: 3\n",
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "binary", c.Compiler.Output)
				assert.True(t, c.Compiler.Obliviate)
				assert.True(t, c.Compiler.Validate)
				assert.Equal(t, 3, c.Runtime.Workers)
				assert.Equal(t, "info", c.Logging.Level)
			},
		},
		{
			name: "telemetry",
			yaml: "telemetry:\n  trace: true\n  metrics_textfile: /tmp/mbp.prom\n",
			check: func(t *testing.T, c Config) {
				assert.True(t, c.Telemetry.Trace)
				assert.Equal(t, "/tmp/mbp.prom", c.Telemetry.MetricsTextfile)
			},
		},
		{name: "bad output format", yaml: "compiler:\n  output: xml\n", wantErr: true},
		{name: "bad log level", yaml: "logging:\n  level: loud\n", wantErr: true},
		{name: "negative workers", yaml: "runtime:\n  workers: -1\n", wantErr: true},
		{name: "empty service name", yaml: "telemetry:\n  service_name: \"\"\n", wantErr: true},
		{name: "bad metrics exporter", yaml: "telemetry:\n  metrics: statsd\n", wantErr: true},
		{name: "unknown key", yaml: "compiler:\n  optimize: true\n", wantErr: true},
		{name: "not yaml", yaml: "compiler: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, "branchprog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: json\n"), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "gate", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"gate":3`)
}

func TestOptionConversion(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Compiler.Output = "binary"
	cfg.Runtime.Workers = 5

	copts := cfg.CompileOptions(nil)
	assert.Equal(t, compiler.FormatBinary, copts.Output)
	assert.Equal(t, compiler.FormatAuto, copts.Input)
	assert.True(t, copts.Validate)

	eopts := cfg.EngineOptions(nil)
	assert.Equal(t, 5, eopts.Workers)

	cfg.Runtime.Workers = 0
	assert.Positive(t, cfg.EngineOptions(nil).Workers)

	cfg.Telemetry.Trace = true
	cfg.Telemetry.MetricsTextfile = "out.prom"
	tc := cfg.TelemetryOptions()
	assert.True(t, tc.Trace)
	assert.Equal(t, "prometheus", tc.Metrics)
	assert.Equal(t, "out.prom", tc.MetricsTextfile)
}
