package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	perrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"microc/internal/ast"
	"microc/internal/compileerr"
	"microc/internal/compiler"
	"microc/internal/regalloc"
)

var (
	statsFlag bool
	astFlag   bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "microc <input-path> <register-count>",
		Short:         "Compile a Micro-C source file to RISC-V-like assembly",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}
	cmd.Flags().BoolVar(&statsFlag, "stats", false, "print allocator statistics to stderr after a successful compile")
	cmd.Flags().BoolVar(&astFlag, "ast", false, "print a debug dump of the typed AST to stderr after a successful compile (nothing is printed when compilation fails)")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	regCount, err := strconv.Atoi(args[1])
	if err != nil || regCount < 0 {
		return compileerr.New(compileerr.Other, fmt.Errorf("register-count must be a non-negative integer: %q", args[1]))
	}

	src, err := os.ReadFile(inputPath)
	if err != nil {
		return compileerr.New(compileerr.IO, perrors.Wrap(err, "read input"))
	}

	result, err := compiler.Compile(string(src), regCount, compiler.Options{WithStats: statsFlag})
	if err != nil {
		return err
	}

	if astFlag {
		dumpAST(cmd.ErrOrStderr(), result.AST)
	}

	fmt.Fprint(cmd.OutOrStdout(), result.Assembly)

	if statsFlag {
		printStats(cmd.ErrOrStderr(), result.Stats)
	}
	return nil
}

func dumpAST(w io.Writer, fns []*ast.Function) {
	for _, fn := range fns {
		fmt.Fprintf(w, "func %s (id=%d ret=%s): %#v\n", fn.Name, fn.ID, fn.ReturnType, fn.Body)
	}
}

func printStats(w io.Writer, stats *regalloc.Stats) {
	if stats == nil {
		return
	}
	fmt.Fprintf(w, "blocks: %s\n", humanize.Comma(int64(stats.Blocks)))
	fmt.Fprintf(w, "instructions emitted: %s\n", humanize.Comma(int64(stats.InstructionsOut)))
	fmt.Fprintf(w, "spill points: %s\n", humanize.Comma(int64(stats.SpillPoints)))
	fmt.Fprintf(w, "max live-set size: %s\n", humanize.Comma(int64(stats.MaxLiveSetSize)))
}

// exitCodeFor maps a compile failure to its process exit code: 7 for a type
// error, 1 for everything else (including Cobra's own arg-count validation
// failures, which arrive as plain errors).
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err)
	var ce *compileerr.Error
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return 1
}
