// Command mbpc compiles a Boolean formula, or re-encodes a step file, into a
// matrix branching program file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sbl8/branchprog/compiler"
	"github.com/sbl8/branchprog/internal/cli"
)

var (
	configPath   string
	inputFormat  string
	outputFormat string
	validate     bool
	obliviate    bool
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mbpc [flags] <src> <out>",
		Short:         "Compile a Boolean formula into a matrix branching program",
		Long:          "Compiles a formula (or loads a JSON step file or binary program) and writes the program as a JSON step file or in binary form. An out of - writes to standard output.",
		Args:          cobra.ExactArgs(2),
		Version:       cli.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "branchprog.yaml", "configuration file")
	flags.StringVar(&inputFormat, "input-format", "auto", "source format: auto, formula, steps, binary")
	flags.StringVarP(&outputFormat, "output-format", "f", "steps", "output format: steps, binary")
	flags.BoolVar(&validate, "validate", true, "check that step dimensions compose")
	flags.BoolVar(&obliviate, "obliviate", false, "pad the program to a fixed input reading order")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mbpc: %v\n", err)
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

	opts := env.Config.CompileOptions(env.Logger)
	flags := cmd.Flags()
	if flags.Changed("input-format") {
		opts.Input = compiler.Format(inputFormat)
	}
	if flags.Changed("output-format") {
		opts.Output = compiler.Format(outputFormat)
	}
	if flags.Changed("validate") {
		opts.Validate = validate
	}
	if flags.Changed("obliviate") {
		opts.Obliviate = obliviate
	}

	srcFile, outFile := args[0], args[1]
	lp, err := compiler.CompileWithOptions(ctx, srcFile, outFile, opts)
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	if outFile != "-" {
		fmt.Fprintf(os.Stderr, "compiled %s -> %s (%d steps, %d inputs)\n", srcFile, outFile, lp.Program.Len(), lp.Program.Inputs())
	}
	return nil
}
