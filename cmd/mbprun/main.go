// Command mbprun evaluates a matrix branching program on input assignments.
//
// The program may be a compiled step file, a binary program, or a formula,
// which is compiled on the fly. Assignments are bit strings, character i
// being input i; they come from the arguments or, one per line, from
// standard input. With --table every assignment over the program's inputs
// is evaluated.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/internal/cli"
	"github.com/sbl8/branchprog/runtime"
)

var (
	configPath  string
	inputFormat string
	workers     int
	table       bool
	inputs      int
	product     bool
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mbprun [flags] <program> [assignment...]",
		Short:         "Evaluate a matrix branching program",
		Args:          cobra.MinimumNArgs(1),
		Version:       cli.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "branchprog.yaml", "configuration file")
	flags.StringVar(&inputFormat, "input-format", "auto", "program format: auto, formula, steps, binary")
	flags.IntVarP(&workers, "workers", "w", 0, "worker goroutines for --table (0: from config)")
	flags.BoolVarP(&table, "table", "t", false, "evaluate every assignment")
	flags.IntVarP(&inputs, "inputs", "n", 0, "number of inputs for --table (0: as many as the program reads)")
	flags.BoolVarP(&product, "product", "p", false, "print the matrix product instead of accept/reject")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mbprun: %v\n", err)
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

	format := compiler.Format(env.Config.Compiler.Input)
	if cmd.Flags().Changed("input-format") {
		format = compiler.Format(inputFormat)
	}
	lp, err := compiler.LoadFile(ctx, args[0], format, env.Logger)
	if err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}

	opts := env.Config.EngineOptions(env.Logger)
	if workers > 0 {
		opts.Workers = workers
	}
	engine, err := runtime.NewEngine(lp.Program, &opts)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	env.Logger.Debug("loaded program", "id", lp.ID, "steps", lp.Program.Len(), "inputs", engine.Inputs())

	pretty := cli.IsTerminal(os.Stdout)
	switch {
	case table:
		err = runTable(ctx, engine, pretty)
	case len(args) > 1:
		err = runAssignments(engine, args[1:], pretty)
	default:
		err = runStream(engine, os.Stdin, os.Stdout)
	}
	if err != nil {
		return err
	}

	stats := engine.Stats()
	env.Logger.Info("evaluation complete", "evaluations", stats.Evaluations, "accepted", stats.Accepted, "avg_latency", stats.AverageLatency)
	return nil
}

func runTable(ctx context.Context, engine *runtime.Engine, pretty bool) error {
	n := inputs
	if n == 0 {
		n = engine.Inputs()
	}
	results, err := engine.TruthTable(ctx, n)
	if err != nil {
		return err
	}
	rows := make([]cli.Result, len(results))
	for v, ok := range results {
		rows[v] = cli.Result{Assignment: runtime.AssignmentOf(uint64(v), n).String(), Accept: ok}
	}
	return cli.WriteResults(os.Stdout, rows, pretty)
}

func runAssignments(engine *runtime.Engine, args []string, pretty bool) error {
	rows := make([]cli.Result, 0, len(args))
	for _, s := range args {
		a, err := runtime.ParseAssignment(s)
		if err != nil {
			return err
		}
		if product {
			m, err := engine.Product(a)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", a, m)
			continue
		}
		ok, err := engine.Evaluate(a)
		if err != nil {
			return fmt.Errorf("assignment %s: %w", s, err)
		}
		rows = append(rows, cli.Result{Assignment: a.String(), Accept: ok})
	}
	if product {
		return nil
	}
	return cli.WriteResults(os.Stdout, rows, pretty)
}

// runStream evaluates one assignment per input line, as in a pipeline.
// Malformed lines are reported and skipped.
func runStream(engine *runtime.Engine, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		a, err := runtime.ParseAssignment(line)
		if err == nil {
			var ok bool
			if ok, err = engine.Evaluate(a); err == nil {
				v := 0
				if ok {
					v = 1
				}
				fmt.Fprintf(bw, "%s\t%d\n", a, v)
				continue
			}
		}
		fmt.Fprintf(os.Stderr, "line %d: %v\n", lineno, err)
	}
	return sc.Err()
}
