package main

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/runtime"
)

func TestRandomFormulaCompiles(t *testing.T) {
	for _, n := range []int{1, 2, 7, 16} {
		src := randomFormula(rand.New(rand.NewPCG(uint64(n), 3)), n)
		p, err := compiler.Compile(strings.NewReader(src))
		require.NoError(t, err, "formula:\n%s", src)
		require.Equal(t, n, p.Inputs())

		engine, err := runtime.NewEngine(p, nil)
		require.NoError(t, err)
		if n <= 7 {
			_, err = engine.TruthTable(context.Background(), n)
			require.NoError(t, err)
		}
	}
}
