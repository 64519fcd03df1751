// Command mbpperf measures compilation and evaluation speed on random
// formulas.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/internal/cli"
	"github.com/sbl8/branchprog/kernels"
	"github.com/sbl8/branchprog/runtime"
)

var (
	configPath string
	testType   string
	size       int
	iter       int
	seed       uint64
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mbpperf [flags]",
		Short:         "Branching program performance analysis",
		Args:          cobra.NoArgs,
		Version:       cli.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "branchprog.yaml", "configuration file")
	flags.StringVar(&testType, "test", "all", "test type: all, compile, evaluate, table")
	flags.IntVar(&size, "size", 16, "number of formula inputs")
	flags.IntVar(&iter, "iter", 1000, "number of iterations")
	flags.Uint64Var(&seed, "seed", 1, "random formula seed")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mbpperf: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	env, err := cli.Setup(ctx, configPath, verbose)
	if err != nil {
		return err
	}
	defer env.Close(ctx)

	if size < 1 {
		return fmt.Errorf("size must be positive, got %d", size)
	}
	src := randomFormula(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), size)

	fmt.Printf("Branching Program Performance Analysis\n")
	fmt.Printf("======================================\n")
	fmt.Printf("Go Version: %s\n", goruntime.Version())
	fmt.Printf("OS/Arch: %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
	fmt.Printf("CPUs: %d\n", goruntime.NumCPU())
	fmt.Printf("Formula Inputs: %d\n", size)
	fmt.Printf("Iterations: %d\n", iter)
	fmt.Printf("\n")

	switch testType {
	case "all":
		if err := runCompileTests(src); err != nil {
			return err
		}
		if err := runEvaluateTests(ctx, env, src); err != nil {
			return err
		}
		return runTableTests(ctx, env, src)
	case "compile":
		return runCompileTests(src)
	case "evaluate":
		return runEvaluateTests(ctx, env, src)
	case "table":
		return runTableTests(ctx, env, src)
	}
	return fmt.Errorf("unknown test type: %s", testType)
}

func runCompileTests(src string) error {
	fmt.Printf("Compilation Performance\n")
	fmt.Printf("-----------------------\n")

	var steps int
	start := time.Now()
	for i := 0; i < iter; i++ {
		p, err := compiler.Compile(strings.NewReader(src))
		if err != nil {
			return err
		}
		steps = p.Len()
	}
	d := time.Since(start)

	fmt.Printf("Compile (%d steps):          %v (%.2f formulas/s)\n", steps, d, float64(iter)/d.Seconds())
	if verbose {
		fmt.Printf("  Source: %d bytes\n", len(src))
	}
	fmt.Printf("\n")
	return nil
}

func newEngine(ctx context.Context, env *cli.Env, src string) (*runtime.Engine, error) {
	lp, err := compiler.Load(ctx, []byte(src), compiler.FormatFormula, env.Logger)
	if err != nil {
		return nil, err
	}
	opts := env.Config.EngineOptions(env.Logger)
	return runtime.NewEngine(lp.Program, &opts)
}

func runEvaluateTests(ctx context.Context, env *cli.Env, src string) error {
	fmt.Printf("Evaluation Performance\n")
	fmt.Printf("----------------------\n")

	engine, err := newEngine(ctx, env, src)
	if err != nil {
		return err
	}
	r := rand.New(rand.NewPCG(seed, 0))
	assignments := make([]runtime.Assignment, 64)
	for i := range assignments {
		assignments[i] = runtime.AssignmentOf(r.Uint64(), size)
	}

	start := time.Now()
	for i := 0; i < iter; i++ {
		if _, err := engine.Evaluate(assignments[i%len(assignments)]); err != nil {
			return err
		}
	}
	evalTime := time.Since(start)

	start = time.Now()
	for i := 0; i < iter; i++ {
		if _, err := engine.Product(assignments[i%len(assignments)]); err != nil {
			return err
		}
	}
	productTime := time.Since(start)

	perSecond := func(d time.Duration) float64 { return float64(iter) / d.Seconds() }
	fmt.Printf("Evaluate (row vector):       %v (%.2f evals/s)\n", evalTime, perSecond(evalTime))
	fmt.Printf("Product (full matrix):       %v (%.2f evals/s)\n", productTime, perSecond(productTime))
	if verbose {
		stats := engine.Stats()
		fmt.Printf("  Steps: %d, accepted %d of %d\n", engine.Program().Len(), stats.Accepted, stats.Evaluations)
		fmt.Printf("  Full product overhead: %.2fx\n", float64(productTime)/float64(evalTime))
	}
	fmt.Printf("\n")
	return nil
}

func runTableTests(ctx context.Context, env *cli.Env, src string) error {
	fmt.Printf("Truth Table Performance\n")
	fmt.Printf("-----------------------\n")

	if size > runtime.MaxTruthTableInputs {
		fmt.Printf("skipped: %d inputs exceeds %d\n\n", size, runtime.MaxTruthTableInputs)
		return nil
	}
	engine, err := newEngine(ctx, env, src)
	if err != nil {
		return err
	}

	start := time.Now()
	table, err := engine.TruthTable(ctx, size)
	if err != nil {
		return err
	}
	d := time.Since(start)

	accepted := 0
	for _, ok := range table {
		if ok {
			accepted++
		}
	}
	fmt.Printf("Table (%d rows, %d workers): %v (%.2f evals/s)\n", len(table), engine.Workers(), d, float64(len(table))/d.Seconds())
	fmt.Printf("  Accepted: %d\n", accepted)
	fmt.Printf("\n")
	return nil
}

// randomFormula builds a formula over n inputs by repeatedly combining two
// random unconsumed wires, so that every wire feeds exactly one gate.
func randomFormula(r *rand.Rand, n int) string {
	var sb strings.Builder
	pool := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d input\n", i)
		pool = append(pool, i)
	}
	take := func() int {
		k := r.IntN(len(pool))
		id := pool[k]
		pool[k] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		return id
	}

	binary := []kernels.Kind{kernels.AND, kernels.OR, kernels.XOR}
	next := n
	for len(pool) > 1 {
		a, b := take(), take()
		fmt.Fprintf(&sb, "%d gate %s %d %d\n", next, binary[r.IntN(len(binary))], a, b)
		id := next
		next++
		if r.IntN(4) == 0 {
			fmt.Fprintf(&sb, "%d gate NOT %d\n", next, id)
			id = next
			next++
		}
		pool = append(pool, id)
	}
	fmt.Fprintf(&sb, "%d output ID %d\n", next, pool[0])
	return sb.String()
}
