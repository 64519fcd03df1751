package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sbl8/branchprog/core"
)

// StepFile is the JSON form of a pre-built branching program.
//
//	{"id": "...", "steps": [{"position": 0, "0": [[1,0]], "1": [[1,1]]}, ...],
//	 "outputs": [["false", "true"]]}
type StepFile struct {
	ID      string       `json:"id,omitempty"`
	Steps   []stepRecord `json:"steps"`
	Outputs [][]string   `json:"outputs"`
}

type stepRecord struct {
	Position json.RawMessage `json:"position"`
	Zero     json.RawMessage `json:"0"`
	One      json.RawMessage `json:"1"`
}

// LoadedProgram is a program read from a step file together with its
// metadata.
type LoadedProgram struct {
	ID      string
	Program Program
	Outputs [2]string
}

// ReadStepFile reads the first JSON document of r that is not a comment line.
// Lines starting with '#' are skipped. The returned program is exactly as
// stored; use NormalizeOutputs to apply the output labels.
func ReadStepFile(r io.Reader) (*LoadedProgram, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	var doc bytes.Buffer
	for sc.Scan() {
		line := sc.Bytes()
		if bytes.HasPrefix(line, []byte("#")) {
			continue
		}
		doc.Write(line)
		doc.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(&doc)
	var f StepFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: no program found", core.ErrMalformedStepFile)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedStepFile, err)
	}
	return f.toProgram()
}

func (f *StepFile) toProgram() (*LoadedProgram, error) {
	if len(f.Outputs) != 1 || len(f.Outputs[0]) != 2 {
		return nil, fmt.Errorf("%w: expected exactly one pair of outputs", core.ErrMalformedStepFile)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", core.ErrMalformedStepFile)
	}

	p := make(Program, 0, len(f.Steps))
	for i, rec := range f.Steps {
		pos, err := parsePosition(rec.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: expected numeric position: %v", core.ErrMalformedStepFile, i, err)
		}
		zero, err := parseMatrix(rec.Zero)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: matrix \"0\": %v", core.ErrMalformedStepFile, i, err)
		}
		one, err := parseMatrix(rec.One)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: matrix \"1\": %v", core.ErrMalformedStepFile, i, err)
		}
		s, err := core.NewStep(pos, zero, one)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", core.ErrMalformedStepFile, i, err)
		}
		p = append(p, s)
	}

	return &LoadedProgram{
		ID:      f.ID,
		Program: p,
		Outputs: [2]string{f.Outputs[0][0], f.Outputs[0][1]},
	}, nil
}

// parsePosition accepts either a JSON number or a string holding one.
func parsePosition(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing position")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative position %d", n)
	}
	return n, nil
}

// parseMatrix accepts a list of rows or a single flat row.
func parseMatrix(raw json.RawMessage) (core.Matrix, error) {
	if len(raw) == 0 {
		return core.Matrix{}, fmt.Errorf("missing matrix")
	}
	var rows [][]int64
	if err := json.Unmarshal(raw, &rows); err == nil {
		return core.NewMatrix(rows)
	}
	var row []int64
	if err := json.Unmarshal(raw, &row); err != nil {
		return core.Matrix{}, err
	}
	return core.NewMatrix([][]int64{row})
}

// WriteStepFile writes p as a single-line JSON step file.
func WriteStepFile(w io.Writer, id string, p Program, outputs [2]string) error {
	f := StepFile{
		ID:      id,
		Steps:   make([]stepRecord, len(p)),
		Outputs: [][]string{{outputs[0], outputs[1]}},
	}
	for i, s := range p {
		zero, err := json.Marshal(s.Zero.Rows())
		if err != nil {
			return err
		}
		one, err := json.Marshal(s.One.Rows())
		if err != nil {
			return err
		}
		f.Steps[i] = stepRecord{
			Position: json.RawMessage(strconv.Itoa(s.Input)),
			Zero:     zero,
			One:      one,
		}
	}
	return json.NewEncoder(w).Encode(&f)
}
