// Package runtime implements the branching program evaluator.
//
// An Engine wraps a finished program and evaluates it on input assignments:
// for every step it selects the matrix named by the assignment bit the step
// reads, multiplies the selections in step order, and accepts when the entry
// in row 0, last column of the product is non-zero.
//
// Key components:
//   - Engine: immutable program plus worker configuration and statistics
//   - Assignment: the input bits, indexed by input position
//   - BufferPool: reusable row vectors for the accept/reject fast path
//   - ExecutionStats: evaluation counters and latency
//
// Evaluate only tracks row 0 of the running product, which is all the accept
// condition reads; Product computes the full matrix. Truth tables fan the
// 2^n assignments out over a bounded pool of goroutines.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/model"
)

// MaxTruthTableInputs bounds the number of inputs TruthTable enumerates.
const MaxTruthTableInputs = 24

// Assignment holds one Boolean per input position.
type Assignment []bool

// ParseAssignment reads a bit string such as "0110". Character i is input i.
// Spaces, commas and underscores are ignored.
func ParseAssignment(s string) (Assignment, error) {
	a := make(Assignment, 0, len(s))
	for i, c := range s {
		switch c {
		case '0':
			a = append(a, false)
		case '1':
			a = append(a, true)
		case ' ', ',', '_', '\t':
		default:
			return nil, fmt.Errorf("assignment: invalid character %q at offset %d", c, i)
		}
	}
	return a, nil
}

// AssignmentOf returns the n-bit assignment whose input i is bit i of v.
func AssignmentOf(v uint64, n int) Assignment {
	a := make(Assignment, n)
	for i := range a {
		a[i] = v&(1<<uint(i)) != 0
	}
	return a
}

// Bit returns input i or ErrMissingAssignmentBit.
func (a Assignment) Bit(i int) (bool, error) {
	if i < 0 || i >= len(a) {
		return false, fmt.Errorf("%w: input %d, assignment has %d bits", core.ErrMissingAssignmentBit, i, len(a))
	}
	return a[i], nil
}

func (a Assignment) String() string {
	var sb strings.Builder
	for _, b := range a {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Engine evaluates a branching program. It is safe for concurrent use.
type Engine struct {
	program model.Program
	inputs  int
	width   int // largest step dimension, the scratch row length
	workers int
	pool    *BufferPool
	logger  *slog.Logger

	evaluations atomic.Int64
	accepted    atomic.Int64
	latency     atomic.Int64 // nanoseconds
}

// EngineOptions configures engine behavior
type EngineOptions struct {
	Workers int          // goroutines used by TruthTable and Verify
	Logger  *slog.Logger // nil means slog.Default()
}

// ExecutionStats tracks evaluation counters
type ExecutionStats struct {
	Evaluations    int64
	Accepted       int64
	TotalLatency   time.Duration
	AverageLatency time.Duration
}

// DefaultEngineOptions provides sensible runtime defaults
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Workers: runtime.NumCPU(),
	}
}

// NewEngine checks that the steps of p compose and returns an engine for it.
// A nil opts uses DefaultEngineOptions.
func NewEngine(p model.Program, opts *EngineOptions) (*Engine, error) {
	if opts == nil {
		d := DefaultEngineOptions()
		opts = &d
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid program: %w", err)
	}

	e := &Engine{
		program: p.Clone(),
		inputs:  p.Inputs(),
		workers: opts.Workers,
		logger:  opts.Logger,
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, s := range p {
		rows, cols := s.Dims()
		e.width = max(e.width, rows, cols)
	}
	e.pool = NewBufferPool(2*e.workers, e.width)

	e.logger.Debug("engine ready", "steps", len(p), "inputs", e.inputs, "width", e.width, "workers", e.workers)
	return e, nil
}

// Program returns the program the engine evaluates.
func (e *Engine) Program() model.Program { return e.program }

// Inputs returns the number of assignment bits the program reads.
func (e *Engine) Inputs() int { return e.inputs }

// Workers returns the size of the evaluation pool.
func (e *Engine) Workers() int { return e.workers }

// Product returns the ordered product of the matrices selected by a.
func (e *Engine) Product(a Assignment) (core.Matrix, error) {
	var acc core.Matrix
	for i, s := range e.program {
		bit, err := a.Bit(s.Input)
		if err != nil {
			return core.Matrix{}, fmt.Errorf("step %d: %w", i, err)
		}
		m := s.Select(bit)
		if i == 0 {
			acc = m
			continue
		}
		if acc, err = acc.Mul(m); err != nil {
			return core.Matrix{}, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return acc, nil
}

// Evaluate reports whether the program accepts a: the product has a non-zero
// entry in row 0, last column.
func (e *Engine) Evaluate(a Assignment) (bool, error) {
	start := time.Now()
	ok, err := e.evaluate(a)
	if err != nil {
		return false, err
	}
	d := time.Since(start)

	e.evaluations.Add(1)
	e.latency.Add(int64(d))
	if ok {
		e.accepted.Add(1)
	}
	recordEvaluation(ok, d)
	return ok, nil
}

func (e *Engine) evaluate(a Assignment) (bool, error) {
	bufA, bufB := e.pool.GetBuffer(), e.pool.GetBuffer()
	defer func() {
		e.pool.PutBuffer(bufA)
		e.pool.PutBuffer(bufB)
	}()

	var row []int64
	spare := bufB
	for i, s := range e.program {
		bit, err := a.Bit(s.Input)
		if err != nil {
			return false, fmt.Errorf("step %d: %w", i, err)
		}
		m := s.Select(bit)
		if i == 0 {
			_, cols := m.Dims()
			row = bufA[:cols]
			for j := range row {
				row[j] = m.At(0, j)
			}
			continue
		}
		next, err := m.VecMul(spare, row)
		if err != nil {
			return false, fmt.Errorf("step %d: %w", i, err)
		}
		row, spare = next, row[:cap(row)]
	}
	return row[len(row)-1] != 0, nil
}

// TruthTable evaluates all 2^n assignments over n inputs. Entry v is the
// result for AssignmentOf(v, n). n must cover every input the program reads.
func (e *Engine) TruthTable(ctx context.Context, n int) ([]bool, error) {
	if n < e.inputs {
		return nil, fmt.Errorf("%w: program reads %d inputs, table has %d", core.ErrMissingAssignmentBit, e.inputs, n)
	}
	if n > MaxTruthTableInputs {
		return nil, fmt.Errorf("truth table over %d inputs exceeds limit of %d", n, MaxTruthTableInputs)
	}

	ctx, span := startSpan(ctx, "runtime.TruthTable", n)
	defer span.End()

	total := 1 << n
	table := make([]bool, total)
	workers := min(e.workers, total)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i, v := 0, w; v < total; i, v = i+1, v+workers {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				ok, err := e.Evaluate(AssignmentOf(uint64(v), n))
				if err != nil {
					return err
				}
				table[v] = ok
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		endSpan(span, err)
		return nil, err
	}

	e.logger.Debug("truth table complete", "inputs", n, "rows", total, "workers", workers)
	return table, nil
}

// MismatchError reports an assignment on which the program disagrees with a
// reference function.
type MismatchError struct {
	Assignment Assignment
	Got, Want  bool
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("assignment %s: program returned %v, reference %v", e.Assignment, e.Got, e.Want)
}

// Verify compares the program with fn on every assignment over n inputs and
// returns a *MismatchError for the first disagreement found.
func (e *Engine) Verify(ctx context.Context, n int, fn func(Assignment) bool) error {
	table, err := e.TruthTable(ctx, n)
	if err != nil {
		return err
	}
	for v, got := range table {
		a := AssignmentOf(uint64(v), n)
		if want := fn(a); got != want {
			return &MismatchError{Assignment: a, Got: got, Want: want}
		}
	}
	return nil
}

// Stats returns current execution statistics
func (e *Engine) Stats() ExecutionStats {
	s := ExecutionStats{
		Evaluations:  e.evaluations.Load(),
		Accepted:     e.accepted.Load(),
		TotalLatency: time.Duration(e.latency.Load()),
	}
	if s.Evaluations > 0 {
		s.AverageLatency = s.TotalLatency / time.Duration(s.Evaluations)
	}
	return s
}
