package core

import "errors"

// Error kinds. Wrapped errors returned by branchprog packages can be matched
// against these with errors.Is.
var (
	// ErrMalformedDeclaration: bad gate index, unknown gate keyword, wrong
	// arity or an out-of-order declaration in a formula.
	ErrMalformedDeclaration = errors.New("malformed declaration")

	// ErrFanOut: a wire consumed by more than one gate. Only formulas are
	// supported, not circuits.
	ErrFanOut = errors.New("fan-out violation")

	// ErrMalformedStepFile: bad position, bad matrix or wrong outputs arity
	// in a pre-built step list.
	ErrMalformedStepFile = errors.New("malformed step file")

	// ErrDimensionMismatch: matrix shapes do not compose. Raised during gate
	// composition it indicates a broken recipe, not bad input.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMissingAssignmentBit: the evaluator was given no bit for an input
	// index read by the program.
	ErrMissingAssignmentBit = errors.New("missing assignment bit")
)
