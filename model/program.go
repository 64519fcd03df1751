// Package model defines the matrix branching program and its algebraic
// composition operators.
//
// A Program is an ordered list of core.Step values; the order is the order in
// which the evaluator multiplies the selected matrices. Programs are built by
// the compiler from the programs of sub-formulas and then handed to the
// runtime for evaluation.
//
// Every operator in this package takes a Program and returns a new one. The
// argument is never modified, so a caller that still holds a sub-program
// after composing it cannot observe the composition.
//
// Operators:
//   - ReverseTranspose: reverse the step order and transpose every matrix
//   - Augment: embed every matrix into a larger one with an identity block
//   - MulFirstLeft / MulLastRight: apply a fixed matrix at one boundary
//   - Concat: sequence two programs
//   - NormalizeOutputs: reorder the accept column of the terminal step
//   - Obliviate: make the input reading order independent of the formula
//
// Programs are persisted either as a JSON step list (see ReadStepFile) or in
// a compact binary form (see Serialize).
package model

import (
	"fmt"
	"strings"

	"github.com/sbl8/branchprog/core"
)

// Program is a matrix branching program.
type Program []core.Step

// Len returns the number of steps.
func (p Program) Len() int { return len(p) }

// Inputs returns the number of input bits the program reads, that is one more
// than the largest input index of any step.
func (p Program) Inputs() int {
	n := 0
	for _, s := range p {
		if s.Input+1 > n {
			n = s.Input + 1
		}
	}
	return n
}

// Clone returns a copy of p that shares no slice storage with it.
func (p Program) Clone() Program {
	out := make(Program, len(p))
	copy(out, p)
	return out
}

// Validate checks every step and that consecutive steps compose.
func (p Program) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("empty program")
	}
	for i, s := range p {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		_, prevCols := p[i-1].Dims()
		rows, _ := s.Dims()
		if prevCols != rows {
			return fmt.Errorf("%w: step %d has %d columns, step %d has %d rows", core.ErrDimensionMismatch, i-1, prevCols, i, rows)
		}
	}
	return nil
}

// ReverseTranspose returns the steps of p in reverse order with both matrices
// of every step transposed. Applying it twice yields p again.
func ReverseTranspose(p Program) Program {
	out := make(Program, len(p))
	for i, s := range p {
		out[len(p)-1-i] = s.Transpose()
	}
	return out
}

// Augment replaces every n×m matrix M of p by the (n+r)×(m+r) block matrix
// [[M, 0], [0, I_r]].
func Augment(p Program, r int) Program {
	out := make(Program, len(p))
	for i, s := range p {
		out[i] = s.Augment(r)
	}
	return out
}

// MulFirstLeft returns p with the first step's matrices replaced by m×Zero and
// m×One.
func MulFirstLeft(p Program, m core.Matrix) (Program, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("multiply first step: empty program")
	}
	first, err := p[0].Map(m.Mul)
	if err != nil {
		return nil, fmt.Errorf("multiply first step on left: %w", err)
	}
	out := p.Clone()
	out[0] = first
	return out, nil
}

// MulLastRight returns p with the last step's matrices replaced by Zero×m and
// One×m.
func MulLastRight(p Program, m core.Matrix) (Program, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("multiply last step: empty program")
	}
	last, err := p[len(p)-1].Map(func(x core.Matrix) (core.Matrix, error) { return x.Mul(m) })
	if err != nil {
		return nil, fmt.Errorf("multiply last step on right: %w", err)
	}
	out := p.Clone()
	out[len(out)-1] = last
	return out, nil
}

// Concat returns the steps of a followed by the steps of b.
func Concat(a, b Program) Program {
	out := make(Program, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// DefaultOutputs are the output labels of a program whose accept column
// already follows the false-then-true convention.
var DefaultOutputs = [2]string{"false", "true"}

// NormalizeOutputs puts the program's output columns in false-then-true
// order. The first label is read case-insensitively: "0" or "false" keeps the
// column order, anything else swaps the first two columns of the terminal
// step. The returned flag is set when the first label was neither false-ish
// nor recognisably truthy ("1" or "true"); callers should warn about it.
func NormalizeOutputs(p Program, labels [2]string) (Program, bool, error) {
	first := strings.ToLower(strings.TrimSpace(labels[0]))
	switch first {
	case "0", "false":
		return p, false, nil
	}
	if len(p) == 0 {
		return nil, false, fmt.Errorf("normalize outputs: empty program")
	}
	last, err := p[len(p)-1].Map(func(m core.Matrix) (core.Matrix, error) { return m.SwapColumns(0, 1) })
	if err != nil {
		return nil, false, fmt.Errorf("normalize outputs: %w", err)
	}
	out := p.Clone()
	out[len(out)-1] = last
	return out, first != "1" && first != "true", nil
}

// Obliviate pads p so that it reads the inputs 0..n-1 in a fixed cyclic
// order: every original step is surrounded by identity steps on all the other
// inputs of its cycle. The padding matrices are sized to the neighbouring
// original step so the product, and therefore the evaluation, is unchanged.
func Obliviate(p Program, n int) (Program, error) {
	if n < p.Inputs() {
		return nil, fmt.Errorf("obliviate: program reads %d inputs, cycle has %d", p.Inputs(), n)
	}
	out := make(Program, 0, len(p)*n)
	for _, s := range p {
		rows, cols := s.Dims()
		pad := core.Identity(rows)
		for i := 0; i < n; i++ {
			if i == s.Input {
				out = append(out, s)
				pad = core.Identity(cols)
				continue
			}
			out = append(out, core.Step{Input: i, Zero: pad, One: pad})
		}
	}
	return out, nil
}
