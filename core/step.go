// Package core provides the primitives every other package of branchprog is
// built on.
//
// A matrix branching program is an ordered list of steps. Each Step reads one
// input bit and contributes one of its two matrices to a running product:
// Zero when the bit is 0, One when it is 1. This package defines the Step, the
// integer Matrix it selects between, and the error kinds shared by the
// compiler and the evaluator.
//
// Key components:
//   - Matrix: immutable dense int64 matrix with product, transpose, block
//     augmentation and column swap
//   - Step: input index plus its pair of equally sized matrices
//   - Sentinel errors distinguishing input errors from construction bugs
package core

import (
	"fmt"
)

// Step is one element of a branching program.
type Step struct {
	Input int    // index of the input bit read by this step
	Zero  Matrix // selected when the bit is 0
	One   Matrix // selected when the bit is 1
}

// NewStep returns a validated Step.
func NewStep(input int, zero, one Matrix) (Step, error) {
	s := Step{Input: input, Zero: zero, One: one}
	if err := s.Validate(); err != nil {
		return Step{}, err
	}
	return s, nil
}

// Dims returns the shape shared by both matrices of the step.
func (s Step) Dims() (rows, cols int) {
	return s.Zero.Dims()
}

// Validate checks the integrity of a Step
func (s Step) Validate() error {
	if s.Input < 0 {
		return fmt.Errorf("negative input index %d", s.Input)
	}
	if s.Zero.IsZero() || s.One.IsZero() {
		return fmt.Errorf("step on input %d: missing matrix", s.Input)
	}
	zr, zc := s.Zero.Dims()
	or, oc := s.One.Dims()
	if zr != or || zc != oc {
		return fmt.Errorf("%w: step on input %d has %dx%d and %dx%d matrices", ErrDimensionMismatch, s.Input, zr, zc, or, oc)
	}
	return nil
}

// Select returns the matrix chosen by bit.
func (s Step) Select(bit bool) Matrix {
	if bit {
		return s.One
	}
	return s.Zero
}

// Map applies f to both matrices and returns the resulting step.
func (s Step) Map(f func(Matrix) (Matrix, error)) (Step, error) {
	zero, err := f(s.Zero)
	if err != nil {
		return Step{}, err
	}
	one, err := f(s.One)
	if err != nil {
		return Step{}, err
	}
	return Step{Input: s.Input, Zero: zero, One: one}, nil
}

// Transpose returns the step with both matrices transposed.
func (s Step) Transpose() Step {
	return Step{Input: s.Input, Zero: s.Zero.T(), One: s.One.T()}
}

// Augment returns the step with both matrices augmented by an r×r identity block.
func (s Step) Augment(r int) Step {
	return Step{Input: s.Input, Zero: s.Zero.Augment(r), One: s.One.Augment(r)}
}

// Equal reports whether s and o read the same input and hold equal matrices.
func (s Step) Equal(o Step) bool {
	return s.Input == o.Input && s.Zero.Equal(o.Zero) && s.One.Equal(o.One)
}
