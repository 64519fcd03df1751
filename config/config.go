// Package config loads the YAML configuration shared by the branchprog
// binaries.
//
// A missing file is not an error: every field has a default, and a file only
// needs to name what it changes. Command-line flags override file values.
//
//	compiler:
//	  input: auto        # auto, formula, steps, binary
//	  output: steps      # steps, binary
//	  validate: true
//	  obliviate: false
//	runtime:
//	  workers: 0         # 0 means one per CPU
//	logging:
//	  level: info        # debug, info, warn, error
//	  format: text       # text, json
//	telemetry:
//	  trace: false
//	  service_name: branchprog
//	  metrics: prometheus  # prometheus, stdout, none
//	  metrics_textfile: ""
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/runtime"
	"github.com/sbl8/branchprog/telemetry"
)

// Config is the root of the configuration file.
type Config struct {
	Compiler  CompilerConfig  `yaml:"compiler"`
	Runtime   RuntimeConfig   `yaml:"runtime"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CompilerConfig mirrors compiler.CompileOptions.
type CompilerConfig struct {
	Input     string `yaml:"input" validate:"oneof=auto formula steps binary"`
	Output    string `yaml:"output" validate:"oneof=steps binary"`
	Validate  bool   `yaml:"validate"`
	Obliviate bool   `yaml:"obliviate"`
}

// RuntimeConfig mirrors runtime.EngineOptions.
type RuntimeConfig struct {
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// TelemetryConfig controls trace export and the Prometheus textfile.
type TelemetryConfig struct {
	Trace           bool   `yaml:"trace"`
	ServiceName     string `yaml:"service_name" validate:"required,max=128"`
	Metrics         string `yaml:"metrics" validate:"oneof=prometheus stdout none"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Compiler: CompilerConfig{
			Input:    string(compiler.FormatAuto),
			Output:   string(compiler.FormatSteps),
			Validate: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "branchprog",
			Metrics:     "prometheus",
		},
	}
}

// Load reads the file at path over the defaults. An empty path, or one that
// does not exist, yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values against their tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewLogger builds the slog logger selected by the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// CompileOptions converts the compiler section.
func (c *Config) CompileOptions(logger *slog.Logger) compiler.CompileOptions {
	return compiler.CompileOptions{
		Input:     compiler.Format(c.Compiler.Input),
		Output:    compiler.Format(c.Compiler.Output),
		Validate:  c.Compiler.Validate,
		Obliviate: c.Compiler.Obliviate,
		Logger:    logger,
	}
}

// EngineOptions converts the runtime section.
func (c *Config) EngineOptions(logger *slog.Logger) runtime.EngineOptions {
	opts := runtime.DefaultEngineOptions()
	if c.Runtime.Workers > 0 {
		opts.Workers = c.Runtime.Workers
	}
	opts.Logger = logger
	return opts
}

// TelemetryOptions converts the telemetry section.
func (c *Config) TelemetryOptions() telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceName = c.Telemetry.ServiceName
	tc.Trace = c.Telemetry.Trace
	tc.Metrics = c.Telemetry.Metrics
	tc.MetricsTextfile = c.Telemetry.MetricsTextfile
	return tc
}
