// Package kernels provides the gate library used to build branching programs.
//
// Every Boolean gate supported by the compiler is a Kind with a fixed arity and
// a fixed pair of small integer matrices. Composing the programs of a gate's
// inputs with those matrices yields a program for the gate, following a
// Barrington-style embedding: the product of the selected matrices of a
// compiled formula is the row [1, f(x)].
//
// Available gates:
//   - Leaf: reads one input bit, [1 0] on 0 and [1 1] on 1
//   - AND, OR, XOR: two-input recipe with a left and a right combiner
//   - NOT: right-multiplies the terminal step by [[1 1] [0 -1]]
//   - ID: right-multiplies the terminal step by the identity
//
// All recipes are registered in the global Catalog array, indexed by Kind, and
// resolved once at package initialization.
package kernels

import (
	"fmt"
	"strings"

	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/model"
)

// Kind identifies a gate.
type Kind uint8

// Gate kinds
const (
	AND Kind = iota
	OR
	NOT
	XOR
	ID

	// NumKinds is the number of gate kinds.
	NumKinds
)

var kindNames = [NumKinds]string{
	AND: "AND",
	OR:  "OR",
	NOT: "NOT",
	XOR: "XOR",
	ID:  "ID",
}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the Kind named by s. Names are upper-case as in formula
// files.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every supported gate kind.
func Kinds() []Kind {
	out := make([]Kind, NumKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Recipe describes how to build a gate from the programs of its inputs.
type Recipe struct {
	Arity int
	Left  core.Matrix // combiner applied to the first step of the second input; two-input gates only
	Right core.Matrix // applied to the last step of the result
}

// Arity returns the number of inputs of k, or 0 for an unknown kind.
func (k Kind) Arity() int {
	if k >= NumKinds {
		return 0
	}
	return Catalog[k].Arity
}

// Catalog maps gate kinds to their recipes
var Catalog = [NumKinds]Recipe{
	AND: {
		Arity: 2,
		Left:  core.MustMatrix([]int64{0, 0, 1}, []int64{0, 1, 0}),
		Right: swap2,
	},
	OR: {
		Arity: 2,
		Left:  core.MustMatrix([]int64{0, 1, 1}, []int64{1, -1, 0}),
		Right: swap2,
	},
	XOR: {
		Arity: 2,
		Left:  core.MustMatrix([]int64{0, 1, 1}, []int64{1, -2, 0}),
		Right: swap2,
	},
	NOT: {
		Arity: 1,
		Right: core.MustMatrix([]int64{1, 1}, []int64{0, -1}),
	},
	ID: {
		Arity: 1,
		Right: core.Identity(2),
	},
}

var swap2 = core.MustMatrix([]int64{0, 1}, []int64{1, 0})

// Input returns the single-step program reading input bit i.
func Input(i int) model.Program {
	return model.Program{{
		Input: i,
		Zero:  core.MustMatrix([]int64{1, 0}),
		One:   core.MustMatrix([]int64{1, 1}),
	}}
}

// Combine builds a two-input gate from the programs a and b of its inputs:
// b is reversed, transposed and augmented by one dimension, its first step is
// left-multiplied by left, its last step right-multiplied by right, and the
// result is appended to a.
func Combine(a, b model.Program, left, right core.Matrix) (model.Program, error) {
	tail := model.Augment(model.ReverseTranspose(b), 1)
	tail, err := model.MulFirstLeft(tail, left)
	if err != nil {
		return nil, err
	}
	tail, err = model.MulLastRight(tail, right)
	if err != nil {
		return nil, err
	}
	return model.Concat(a, tail), nil
}

// Apply builds the program of gate k from the programs of its inputs.
func Apply(k Kind, inputs ...model.Program) (model.Program, error) {
	if k >= NumKinds {
		return nil, fmt.Errorf("unsupported gate %s", k)
	}
	r := Catalog[k]
	if len(inputs) != r.Arity {
		return nil, fmt.Errorf("gate %s takes %d inputs, got %d", k, r.Arity, len(inputs))
	}
	for i, in := range inputs {
		if len(in) == 0 {
			return nil, fmt.Errorf("gate %s: input %d is an empty program", k, i)
		}
	}
	if r.Arity == 2 {
		return Combine(inputs[0], inputs[1], r.Left, r.Right)
	}
	return model.MulLastRight(inputs[0], r.Right)
}

// KindNames returns the names of all gate kinds joined by sep.
func KindNames(sep string) string {
	return strings.Join(kindNames[:], sep)
}
