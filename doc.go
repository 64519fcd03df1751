// Package branchprog compiles Boolean formulas into matrix branching programs
// and evaluates them.
//
// A matrix branching program is a sequence of steps. Each step names one
// input bit and carries two integer matrices of equal shape, one per value
// of that bit. Evaluating the program on an assignment multiplies the
// selected matrices in order; the program accepts when row 0, last column of
// the product is non-zero.
//
// # Architecture Overview
//
// The compiler follows a Barrington-style construction:
//
//   - Leaves: an input bit becomes the single step {i, [1 0], [1 1]}
//   - Gates: AND, OR, XOR combine the programs of two sub-formulas with a
//     fixed pair of small matrices; NOT and ID rewrite the terminal step
//   - Invariant: the product of every compiled formula is the row [1, f(x)]
//
// Only formulas are supported. A wire that feeds two gates (fan-out) is
// rejected, since every sub-program is consumed by the gate that uses it.
//
// # Basic Usage
//
//	// Compile a formula file
//	mbpc and.formula and.json
//
//	// Evaluate it
//	mbprun and.json 11 10
//
//	// From Go
//	p, err := compiler.Compile(strings.NewReader("0 input\n1 input\n2 output AND 0 1\n"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := runtime.NewEngine(p, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ok, err := engine.Evaluate(runtime.Assignment{true, true})
//
// # Package Structure
//
//   - core: integer matrices, steps and error kinds
//   - model: programs, composition operators, step-file and binary codecs
//   - kernels: the gate catalog and the two-input recipe
//   - compiler: formula parsing and compilation, program loading
//   - runtime: evaluation engine and truth tables
//   - config, telemetry: YAML configuration and OpenTelemetry setup
//   - cmd: command-line tools (mbpc, mbprun, mbpperf)
package branchprog
