package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/kernels"
)

// DeclOp is the kind of a formula declaration.
type DeclOp uint8

// Declaration kinds
const (
	DeclInput DeclOp = iota
	DeclGate
	DeclOutput
)

func (op DeclOp) String() string {
	switch op {
	case DeclInput:
		return "input"
	case DeclGate:
		return "gate"
	case DeclOutput:
		return "output"
	}
	return fmt.Sprintf("DeclOp(%d)", uint8(op))
}

// Declaration is one line of a formula file.
type Declaration struct {
	Line   int // 1-based source line, 0 when built programmatically
	ID     int
	Op     DeclOp
	Kind   kernels.Kind // gate and output only
	Inputs []int        // gate and output only
}

// ParseError reports a formula declaration that cannot be compiled. It
// unwraps to core.ErrMalformedDeclaration or core.ErrFanOut.
type ParseError struct {
	Line int   // 1-based source line, 0 if unknown
	Gate int   // gate id, -1 if it could not be read
	Err  error // error kind
	Msg  string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	if e.Gate >= 0 {
		fmt.Fprintf(&sb, "gate %d: ", e.Gate)
	}
	sb.WriteString(e.Msg)
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func malformed(line, gate int, format string, a ...any) *ParseError {
	return &ParseError{Line: line, Gate: gate, Err: core.ErrMalformedDeclaration, Msg: fmt.Sprintf(format, a...)}
}

// ParseFormula reads every declaration of a formula file without compiling
// it. Blank lines and lines starting with '#' or ':' are skipped.
func ParseFormula(r io.Reader) ([]Declaration, error) {
	var decls []Declaration
	err := scanDeclarations(r, func(d Declaration) error {
		decls = append(decls, d)
		return nil
	})
	return decls, err
}

// scanDeclarations parses r line by line and hands each declaration to fn,
// stopping at the first error.
func scanDeclarations(r io.Reader, fn func(Declaration) error) error {
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ":") {
			continue
		}
		d, err := parseDeclaration(lineno, line)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return sc.Err()
}

// parseDeclaration accepts both "<id> <op> ..." and "<op> <id> ..." forms.
func parseDeclaration(lineno int, line string) (Declaration, error) {
	fields := strings.Fields(line)
	var idField, opField string
	var rest []string

	if _, err := strconv.Atoi(fields[0]); err == nil || len(fields) < 2 {
		idField = fields[0]
		if len(fields) > 1 {
			opField = fields[1]
			rest = fields[2:]
		}
	} else {
		opField, idField = fields[0], fields[1]
		rest = fields[2:]
	}

	id, err := strconv.Atoi(idField)
	if err != nil || id < 0 {
		return Declaration{}, malformed(lineno, -1, "gate index %q not a number", idField)
	}
	d := Declaration{Line: lineno, ID: id}

	switch opField {
	case "input":
		d.Op = DeclInput
		return d, nil
	case "gate":
		d.Op = DeclGate
	case "output":
		d.Op = DeclOutput
	case "":
		return Declaration{}, malformed(lineno, id, "missing declaration kind")
	default:
		return Declaration{}, malformed(lineno, id, "unknown declaration %q", opField)
	}

	if len(rest) == 0 {
		return Declaration{}, malformed(lineno, id, "missing gate type")
	}
	kind, ok := kernels.ParseKind(rest[0])
	if !ok {
		return Declaration{}, malformed(lineno, id, "unsupported gate %s", rest[0])
	}
	d.Kind = kind

	d.Inputs = make([]int, 0, len(rest)-1)
	for _, f := range rest[1:] {
		in, err := strconv.Atoi(f)
		if err != nil || in < 0 {
			return Declaration{}, malformed(lineno, id, "input %q not a number", f)
		}
		d.Inputs = append(d.Inputs, in)
	}
	if len(d.Inputs) != kind.Arity() {
		return Declaration{}, malformed(lineno, id, "incorrect number of arguments given: %s takes %d, got %d", kind, kind.Arity(), len(d.Inputs))
	}
	return d, nil
}
