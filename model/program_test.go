package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbl8/branchprog/core"
	"github.com/sbl8/branchprog/kernels"
	"github.com/sbl8/branchprog/model"
)

func product(t *testing.T, p model.Program, bits []bool) core.Matrix {
	t.Helper()
	acc := p[0].Select(bits[p[0].Input])
	for _, s := range p[1:] {
		var err error
		acc, err = acc.Mul(s.Select(bits[s.Input]))
		require.NoError(t, err)
	}
	return acc
}

func assignments(n int) [][]bool {
	out := make([][]bool, 0, 1<<n)
	for v := 0; v < 1<<n; v++ {
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = v&(1<<i) != 0
		}
		out = append(out, bits)
	}
	return out
}

// sample returns the program of (x0 AND x1) XOR NOT x2.
func sample(t *testing.T) model.Program {
	t.Helper()
	and, err := kernels.Apply(kernels.AND, kernels.Input(0), kernels.Input(1))
	require.NoError(t, err)
	not, err := kernels.Apply(kernels.NOT, kernels.Input(2))
	require.NoError(t, err)
	p, err := kernels.Apply(kernels.XOR, and, not)
	require.NoError(t, err)
	return p
}

func matricesOf(p model.Program) [][][]int64 {
	var out [][][]int64
	for _, s := range p {
		out = append(out, s.Zero.Rows(), s.One.Rows())
	}
	return out
}

func TestReverseTransposeInvolution(t *testing.T) {
	t.Parallel()
	p := sample(t)

	twice := model.ReverseTranspose(model.ReverseTranspose(p))
	require.Len(t, twice, len(p))
	for i := range p {
		assert.Equal(t, p[i].Input, twice[i].Input, "step %d input", i)
	}
	if diff := cmp.Diff(matricesOf(p), matricesOf(twice)); diff != "" {
		t.Errorf("ReverseTranspose twice mismatch (-want +got):\n%s", diff)
	}
}

func TestReverseTransposeOrder(t *testing.T) {
	t.Parallel()
	p := sample(t)
	rt := model.ReverseTranspose(p)

	for i := range p {
		j := len(p) - 1 - i
		assert.Equal(t, p[i].Input, rt[j].Input)
		assert.True(t, p[i].Zero.T().Equal(rt[j].Zero))
		assert.True(t, p[i].One.T().Equal(rt[j].One))
	}
	// product of the reversed program is the transposed product
	for _, bits := range assignments(3) {
		assert.True(t, product(t, p, bits).T().Equal(product(t, rt, bits)))
	}
}

func TestAugmentDimensionClosure(t *testing.T) {
	t.Parallel()
	p := sample(t)

	for _, r := range []int{1, 2, 3} {
		aug := model.Augment(p, r)
		require.Len(t, aug, len(p))
		for i := range p {
			rows, cols := p[i].Dims()
			arows, acols := aug[i].Dims()
			assert.Equal(t, rows+r, arows, "step %d rows, r=%d", i, r)
			assert.Equal(t, cols+r, acols, "step %d cols, r=%d", i, r)
		}

		// the added block is inert: the original product sits in the top-left
		// corner, so the accept bit read there is unchanged
		for _, bits := range assignments(3) {
			orig := product(t, p, bits)
			got := product(t, aug, bits)
			rows, cols := orig.Dims()
			top, err := got.Sub(0, 0, rows, cols)
			require.NoError(t, err)
			assert.True(t, top.Equal(orig), "bits %v", bits)
			corner, err := got.Sub(rows, cols, r, r)
			require.NoError(t, err)
			assert.True(t, corner.Equal(core.Identity(r)))
			assert.Equal(t, orig.At(0, cols-1) != 0, got.At(0, cols-1) != 0)
		}
	}
}

func TestMulBoundaries(t *testing.T) {
	t.Parallel()
	p := sample(t)
	neg := core.MustMatrix([]int64{1, 1}, []int64{0, -1})

	out, err := model.MulLastRight(p, neg)
	require.NoError(t, err)
	assert.True(t, p[len(p)-1].Zero.Equal(sample(t)[len(p)-1].Zero), "input must not change")
	want, err := p[len(p)-1].One.Mul(neg)
	require.NoError(t, err)
	assert.True(t, out[len(out)-1].One.Equal(want))
	for i := 0; i < len(p)-1; i++ {
		assert.True(t, out[i].Equal(p[i]), "interior step %d untouched", i)
	}

	_, err = model.MulFirstLeft(p, core.Identity(5))
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	_, err = model.MulLastRight(nil, neg)
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	t.Parallel()
	a, b := kernels.Input(0), kernels.Input(1)
	c := model.Concat(a, b)
	require.Len(t, c, 2)
	assert.Equal(t, 0, c[0].Input)
	assert.Equal(t, 1, c[1].Input)
	assert.Len(t, a, 1)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, sample(t).Validate())
	assert.Error(t, model.Program{}.Validate())

	broken := model.Concat(kernels.Input(0), kernels.Input(1))
	assert.ErrorIs(t, broken.Validate(), core.ErrDimensionMismatch)
}

func TestInputs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3, sample(t).Inputs())
	assert.Equal(t, 8, kernels.Input(7).Inputs())
	assert.Equal(t, 0, model.Program{}.Inputs())
}

func TestNormalizeOutputs(t *testing.T) {
	t.Parallel()
	p := sample(t)
	tests := []struct {
		labels  [2]string
		swapped bool
		warn    bool
	}{
		{[2]string{"false", "true"}, false, false},
		{[2]string{"FALSE", "TRUE"}, false, false},
		{[2]string{"0", "1"}, false, false},
		{[2]string{"true", "false"}, true, false},
		{[2]string{"1", "0"}, true, false},
		{[2]string{"yes", "no"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.labels[0], func(t *testing.T) {
			out, warn, err := model.NormalizeOutputs(p, tt.labels)
			require.NoError(t, err)
			assert.Equal(t, tt.warn, warn)
			last := out[len(out)-1]
			orig := p[len(p)-1]
			if !tt.swapped {
				assert.True(t, last.Equal(orig))
				return
			}
			want, err := orig.Zero.SwapColumns(0, 1)
			require.NoError(t, err)
			assert.True(t, last.Zero.Equal(want))
			assert.True(t, p[len(p)-1].Equal(orig), "input must not change")
		})
	}
}

func TestObliviate(t *testing.T) {
	t.Parallel()
	p := sample(t)

	out, err := model.Obliviate(p, 4)
	require.NoError(t, err)
	require.Len(t, out, len(p)*4)
	for i, s := range out {
		assert.Equal(t, i%4, s.Input, "step %d", i)
	}
	require.NoError(t, out.Validate())

	for _, bits := range assignments(4) {
		assert.True(t, product(t, p, bits).Equal(product(t, out, bits)), "bits %v", bits)
	}

	_, err = model.Obliviate(p, 2)
	assert.Error(t, err)
}

func BenchmarkCombine(b *testing.B) {
	and, _ := kernels.Apply(kernels.AND, kernels.Input(0), kernels.Input(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = model.Augment(model.ReverseTranspose(and), 1)
	}
}
