package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/kernels"
	"github.com/sbl8/branchprog/model"
)

func compile(t testing.TB, src string) model.Program {
	t.Helper()
	p, err := compiler.Compile(strings.NewReader(src))
	require.NoError(t, err)
	return p
}

// majority3 is (x0 AND x1) OR ((x0 XOR x1) AND x2) with x0 and x1 re-read
// through separate input ids.
const majority3 = `0 input
1 input
2 input
3 input
4 input
5 gate AND 0 1
6 gate XOR 2 3
7 gate AND 6 4
8 output OR 5 7
`

func majorityRef(a Assignment) bool {
	return (a[0] && a[1]) || ((a[2] != a[3]) && a[4])
}

func TestParseAssignment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Assignment
		wantErr bool
	}{
		{"", Assignment{}, false},
		{"0110", Assignment{false, true, true, false}, false},
		{"1_0, 1", Assignment{true, false, true}, false},
		{"01x", nil, true},
		{"2", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseAssignment(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAssignment(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestAssignmentOf(t *testing.T) {
	t.Parallel()
	a := AssignmentOf(0b1101, 5)
	assert.Equal(t, "10110", a.String())

	_, err := a.Bit(5)
	assert.ErrorIs(t, err, core.ErrMissingAssignmentBit)
	bit, err := a.Bit(2)
	require.NoError(t, err)
	assert.True(t, bit)
}

func TestNewEngine(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, engine.Inputs())
	assert.Positive(t, engine.Workers())

	_, err = NewEngine(nil, nil)
	assert.Error(t, err)

	bad := model.Program{
		kernels.Input(0)[0],
		core.Step{Input: 1, Zero: core.Identity(3), One: core.Identity(3)},
	}
	_, err = NewEngine(bad, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestEngineOptions(t *testing.T) {
	t.Parallel()
	opts := DefaultEngineOptions()
	if opts.Workers <= 0 {
		t.Error("Default workers should be > 0")
	}

	engine, err := NewEngine(compile(t, majority3), &EngineOptions{Workers: 3})
	require.NoError(t, err)
	if engine.Workers() != 3 {
		t.Errorf("Expected 3 workers, got %d", engine.Workers())
	}
	assert.Equal(t, engine.width, engine.pool.Size())
}

func TestEvaluateMatchesProduct(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), nil)
	require.NoError(t, err)

	for v := uint64(0); v < 32; v++ {
		a := AssignmentOf(v, 5)
		m, err := engine.Product(a)
		require.NoError(t, err)
		rows, cols := m.Dims()
		require.Equal(t, 1, rows)
		require.Equal(t, 2, cols)

		want := majorityRef(a)
		assert.Equal(t, int64(1), m.At(0, 0), "assignment %s", a)
		assert.Equal(t, want, m.At(0, 1) != 0, "assignment %s", a)

		got, err := engine.Evaluate(a)
		require.NoError(t, err)
		assert.Equal(t, want, got, "assignment %s", a)
	}
}

func TestEvaluateMissingBit(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), nil)
	require.NoError(t, err)

	_, err = engine.Evaluate(Assignment{true, true})
	assert.ErrorIs(t, err, core.ErrMissingAssignmentBit)
	_, err = engine.Product(Assignment{})
	assert.ErrorIs(t, err, core.ErrMissingAssignmentBit)
	assert.Zero(t, engine.Stats().Evaluations)
}

func TestTruthTable(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), &EngineOptions{Workers: 4})
	require.NoError(t, err)

	table, err := engine.TruthTable(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, table, 32)
	for v, got := range table {
		a := AssignmentOf(uint64(v), 5)
		assert.Equal(t, majorityRef(a), got, "assignment %s", a)
	}

	// extra inputs the program never reads
	wide, err := engine.TruthTable(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, table, wide[:32])
	assert.Equal(t, table, wide[32:])

	_, err = engine.TruthTable(context.Background(), 4)
	assert.ErrorIs(t, err, core.ErrMissingAssignmentBit)
	_, err = engine.TruthTable(context.Background(), MaxTruthTableInputs+1)
	assert.Error(t, err)
}

func TestTruthTableCancelled(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = engine.TruthTable(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, majority3), nil)
	require.NoError(t, err)

	require.NoError(t, engine.Verify(context.Background(), 5, majorityRef))

	err = engine.Verify(context.Background(), 5, func(a Assignment) bool { return a[0] && a[1] })
	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.NotEqual(t, mismatch.Got, mismatch.Want)
	assert.Equal(t, majorityRef(mismatch.Assignment), mismatch.Got)
}

func TestEngineStats(t *testing.T) {
	t.Parallel()
	engine, err := NewEngine(compile(t, "0 input\n1 output NOT 0\n"), nil)
	require.NoError(t, err)

	initialStats := engine.Stats()
	if initialStats.Evaluations != 0 {
		t.Error("Initial evaluation count should be 0")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(bit bool) {
			defer wg.Done()
			_, err := engine.Evaluate(Assignment{bit})
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	stats := engine.Stats()
	assert.Equal(t, int64(8), stats.Evaluations)
	assert.Equal(t, int64(4), stats.Accepted)
	assert.GreaterOrEqual(t, stats.TotalLatency, stats.AverageLatency)
}

func TestEngineObliviousProgram(t *testing.T) {
	t.Parallel()
	p := compile(t, majority3)
	obl, err := model.Obliviate(p, 5)
	require.NoError(t, err)

	plain, err := NewEngine(p, nil)
	require.NoError(t, err)
	padded, err := NewEngine(obl, nil)
	require.NoError(t, err)

	want, err := plain.TruthTable(context.Background(), 5)
	require.NoError(t, err)
	got, err := padded.TruthTable(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func BenchmarkEngineEvaluate(b *testing.B) {
	engine, err := NewEngine(compile(b, majority3), nil)
	if err != nil {
		b.Fatalf("NewEngine failed: %v", err)
	}
	a := AssignmentOf(0b10111, 5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Evaluate(a); err != nil {
			b.Fatalf("Evaluate failed: %v", err)
		}
	}
}

func BenchmarkEngineProduct(b *testing.B) {
	engine, err := NewEngine(compile(b, majority3), nil)
	if err != nil {
		b.Fatalf("NewEngine failed: %v", err)
	}
	a := AssignmentOf(0b10111, 5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Product(a); err != nil {
			b.Fatalf("Product failed: %v", err)
		}
	}
}
