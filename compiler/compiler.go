// Package compiler turns Boolean formulas into matrix branching programs.
//
// A formula file lists one declaration per line, each naming a gate id:
//
//	0 input
//	1 input
//	2 gate AND 0 1
//	3 output ID 2
//
// The keyword-first spelling "input 0", "gate 2 AND 0 1", "output 3 ID 2" is
// accepted as well. Gates are AND, OR, XOR (two inputs), NOT and ID (one
// input). Every id must be declared before it is referenced, ids increase
// strictly, the output (if any) is the last line, and every id feeds at most
// one gate: formulas, not circuits.
//
// Compilation pipeline:
//  1. Parse declarations line by line
//  2. Build the program of each gate from its inputs' programs (see kernels)
//  3. Normalize the output columns of the final program
//  4. Optionally validate and obliviate the result
//  5. Emit a JSON step file or the binary program format
//
// Pre-built programs in the JSON step-file format or the binary format can be
// loaded through the same entry points, so every tool accepts all three.
package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sbl8/branchprog/model"
)

// Format identifies a program source or output encoding.
type Format string

// Supported formats
const (
	FormatAuto    Format = "auto"
	FormatFormula Format = "formula"
	FormatSteps   Format = "steps"
	FormatBinary  Format = "binary"
)

// Compile reads a formula and returns its branching program.
func Compile(r io.Reader) (model.Program, error) {
	p, _, err := compileFormula(r, nil)
	return p, err
}

// compileFormula parses and builds in one pass so that the first offending
// line is the one reported.
func compileFormula(r io.Reader, logger *slog.Logger) (model.Program, BuildStats, error) {
	b := NewBuilder(logger)
	if err := scanDeclarations(r, b.Declare); err != nil {
		return nil, b.Stats(), err
	}
	p, err := b.Result()
	return p, b.Stats(), err
}

// LoadSteps reads a JSON step file and applies its output labels. A nil
// logger means slog.Default().
func LoadSteps(r io.Reader, logger *slog.Logger) (*model.LoadedProgram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lp, err := model.ReadStepFile(r)
	if err != nil {
		return nil, err
	}
	p, warn, err := model.NormalizeOutputs(lp.Program, lp.Outputs)
	if err != nil {
		return nil, err
	}
	if warn {
		logger.Warn("interpreting output label as truthy", "label", lp.Outputs[0])
	}
	lp.Program = p
	lp.Outputs = model.DefaultOutputs
	return lp, nil
}

// DetectFormat guesses the format of a program source from its content.
func DetectFormat(data []byte) Format {
	if model.IsBinary(data) {
		return FormatBinary
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if line[0] == '{' {
			return FormatSteps
		}
		return FormatFormula
	}
	return FormatFormula
}

// Load builds a normalized program from data in the given format. Formulas
// are compiled; step files and binary programs are decoded.
func Load(ctx context.Context, data []byte, format Format, logger *slog.Logger) (*model.LoadedProgram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if format == "" || format == FormatAuto {
		format = DetectFormat(data)
	}

	ctx, span := startLoadSpan(ctx, format)
	defer span.End()
	start := time.Now()

	lp, stats, err := load(data, format, logger)
	recordLoadMetrics(ctx, span, format, stats, lp, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if lp.ID == "" {
		lp.ID = uuid.NewString()
	}
	return lp, nil
}

func load(data []byte, format Format, logger *slog.Logger) (*model.LoadedProgram, BuildStats, error) {
	switch format {
	case FormatFormula:
		p, stats, err := compileFormula(bytes.NewReader(data), logger)
		if err != nil {
			return nil, stats, err
		}
		return &model.LoadedProgram{Program: p, Outputs: model.DefaultOutputs}, stats, nil
	case FormatSteps:
		lp, err := LoadSteps(bytes.NewReader(data), logger)
		return lp, BuildStats{}, err
	case FormatBinary:
		p, err := model.Deserialize(data)
		if err != nil {
			return nil, BuildStats{}, err
		}
		return &model.LoadedProgram{Program: p, Outputs: model.DefaultOutputs}, BuildStats{}, nil
	}
	return nil, BuildStats{}, fmt.Errorf("unknown input format %q", format)
}

// LoadFile reads and loads the program source at path. With FormatAuto the
// extension decides (.json step file, .mbp binary), then the content.
func LoadFile(ctx context.Context, path string, format Format, logger *slog.Logger) (*model.LoadedProgram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if format == "" || format == FormatAuto {
		format = formatFromExt(path)
	}
	return Load(ctx, data, format, logger)
}

func formatFromExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatSteps
	case ".mbp":
		return FormatBinary
	}
	return FormatAuto
}

// Emit writes lp in the given output format (FormatSteps or FormatBinary).
func Emit(w io.Writer, lp *model.LoadedProgram, format Format) error {
	switch format {
	case FormatSteps, "":
		return model.WriteStepFile(w, lp.ID, lp.Program, lp.Outputs)
	case FormatBinary:
		data, err := lp.Program.Serialize()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

// CompileOptions configures the compilation process
type CompileOptions struct {
	Input     Format       // source format, FormatAuto to detect
	Output    Format       // FormatSteps or FormatBinary
	Validate  bool         // Check step shapes compose
	Obliviate bool         // Pad to a fixed input reading order
	Logger    *slog.Logger // nil means slog.Default()
}

// DefaultOptions provides sensible compilation defaults
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Input:     FormatAuto,
		Output:    FormatSteps,
		Validate:  true,
		Obliviate: false,
	}
}

// CompileWithOptions compiles the source file src and writes the program to
// out. An out of "-" writes to standard output.
func CompileWithOptions(ctx context.Context, src, out string, opts CompileOptions) (*model.LoadedProgram, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("compiling", "src", src, "out", out)

	lp, err := LoadFile(ctx, src, opts.Input, logger)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	logger.Debug("parsed program", "steps", lp.Program.Len(), "inputs", lp.Program.Inputs())

	if opts.Validate {
		if err := lp.Program.Validate(); err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		logger.Debug("program validation passed")
	}

	if opts.Obliviate {
		p, err := model.Obliviate(lp.Program, lp.Program.Inputs())
		if err != nil {
			return nil, err
		}
		lp.Program = p
		logger.Debug("obliviated program", "steps", p.Len())
	}

	if err := writeProgram(lp, out, opts.Output); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("compiled", "src", src, "out", out, "id", lp.ID, "steps", lp.Program.Len(), "inputs", lp.Program.Inputs())
	return lp, nil
}

func writeProgram(lp *model.LoadedProgram, out string, format Format) error {
	if out == "-" {
		return Emit(os.Stdout, lp, format)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := Emit(f, lp, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
