// Package cli holds the setup shared by the branchprog binaries: config
// loading, logging, telemetry and terminal-aware output.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/sbl8/branchprog/config"
	"github.com/sbl8/branchprog/telemetry"
)

// Version is reported by every binary.
const Version = "0.1.0"

// Env is the state a command runs with.
type Env struct {
	Config    config.Config
	Logger    *slog.Logger
	Telemetry *telemetry.Providers
}

// Setup loads the config at path, applies verbose, and installs the logger
// and telemetry providers. Logs go to stderr.
func Setup(ctx context.Context, path string, verbose bool) (*Env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	tp, err := telemetry.Init(ctx, cfg.TelemetryOptions())
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return &Env{Config: cfg, Logger: logger, Telemetry: tp}, nil
}

// Close flushes telemetry. Errors are logged, not returned.
func (e *Env) Close(ctx context.Context) {
	if err := e.Telemetry.Shutdown(ctx); err != nil {
		e.Logger.Warn("telemetry shutdown", "error", err)
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
