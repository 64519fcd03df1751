package compiler

import (
	"fmt"
	"log/slog"

	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/kernels"
	"github.com/sbl8/branchprog/model"
)

// BuildStats counts what a Builder has processed.
type BuildStats struct {
	Inputs int
	Gates  [kernels.NumKinds]int // indexed by kernels.Kind
}

// Total returns the number of gate declarations (including the output).
func (s BuildStats) Total() int {
	n := 0
	for _, c := range s.Gates {
		n += c
	}
	return n
}

// Builder compiles a formula one declaration at a time.
//
// Declarations must arrive in source order: every referenced id has to be
// declared before it is used, ids are strictly increasing, and the output,
// if any, comes last. A wire may feed at most one gate; the builder keeps the
// set of every id referenced so far and rejects a second reference with
// core.ErrFanOut.
type Builder struct {
	table  map[int]model.Program // resolved, not yet consumed sub-programs
	used   map[int]struct{}      // every id referenced as an input
	lastID int
	count  int
	output int // -1 until an output declaration is seen
	labels [2]string
	stats  BuildStats
	logger *slog.Logger
}

// NewBuilder returns an empty Builder. A nil logger means slog.Default().
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		table:  make(map[int]model.Program),
		used:   make(map[int]struct{}),
		lastID: -1,
		output: -1,
		labels: model.DefaultOutputs,
		logger: logger,
	}
}

// Stats returns the counts accumulated so far.
func (b *Builder) Stats() BuildStats { return b.stats }

// Declare processes one declaration.
func (b *Builder) Declare(d Declaration) error {
	if b.output >= 0 {
		return malformed(d.Line, d.ID, "declaration after output %d", b.output)
	}
	if d.ID < 0 {
		return malformed(d.Line, -1, "negative gate index %d", d.ID)
	}
	if d.ID <= b.lastID {
		return malformed(d.Line, d.ID, "gate index not increasing (previous %d)", b.lastID)
	}

	var p model.Program
	switch d.Op {
	case DeclInput:
		p = kernels.Input(d.ID)
		b.stats.Inputs++
	case DeclGate, DeclOutput:
		var err error
		if p, err = b.gate(d); err != nil {
			return err
		}
	default:
		return malformed(d.Line, d.ID, "unknown declaration %s", d.Op)
	}

	if d.Op == DeclOutput {
		var warn bool
		var err error
		p, warn, err = model.NormalizeOutputs(p, b.labels)
		if err != nil {
			return fmt.Errorf("line %d: gate %d: %w", d.Line, d.ID, err)
		}
		if warn {
			b.logger.Warn("interpreting output label as truthy", "label", b.labels[0])
		}
		b.output = d.ID
	}

	b.table[d.ID] = p
	b.lastID = d.ID
	b.count++
	b.logger.Debug("declared", "line", d.Line, "id", d.ID, "op", d.Op.String(), "steps", len(p))
	return nil
}

func (b *Builder) gate(d Declaration) (model.Program, error) {
	if len(d.Inputs) != d.Kind.Arity() {
		return nil, malformed(d.Line, d.ID, "incorrect number of arguments given: %s takes %d, got %d", d.Kind, d.Kind.Arity(), len(d.Inputs))
	}

	inputs := make([]model.Program, len(d.Inputs))
	for i, in := range d.Inputs {
		if _, dup := b.used[in]; dup {
			return nil, &ParseError{
				Line: d.Line,
				Gate: d.ID,
				Err:  core.ErrFanOut,
				Msg:  fmt.Sprintf("only Boolean formulas supported: wire %d already consumed", in),
			}
		}
		p, ok := b.table[in]
		if !ok {
			return nil, malformed(d.Line, d.ID, "input %d is not declared", in)
		}
		b.used[in] = struct{}{}
		inputs[i] = p
	}

	p, err := kernels.Apply(d.Kind, inputs...)
	if err != nil {
		// shapes are fixed by the recipes, so this is a library bug
		return nil, fmt.Errorf("line %d: gate %d: internal error building %s: %w", d.Line, d.ID, d.Kind, err)
	}
	for _, in := range d.Inputs {
		delete(b.table, in)
	}
	b.stats.Gates[d.Kind]++
	return p, nil
}

// Result returns the program of the output declaration, or of the last
// declared gate when the formula has no output line.
func (b *Builder) Result() (model.Program, error) {
	if b.count == 0 {
		return nil, malformed(0, -1, "empty formula")
	}
	id := b.output
	if id < 0 {
		id = b.lastID
	}
	p, ok := b.table[id]
	if !ok {
		return nil, malformed(0, id, "result gate was consumed")
	}
	return p, nil
}
