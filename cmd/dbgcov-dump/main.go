// Command dbgcov-dump prints how dbgcov sees a C file: the lowered syntax
// tree the region extractor walks, or with --raw the Tree-sitter parse it
// was lowered from.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/cfront"
	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

var (
	raw       bool
	strict    bool
	noMarkers bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dbgcov-dump <file.c>",
		Short:         "Print the syntax tree dbgcov extracts regions from",
		Args:          cobra.ExactArgs(1),
		RunE:          runDump,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the Tree-sitter parse instead of the lowered tree")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on syntax errors")
	cmd.Flags().BoolVar(&noMarkers, "no-line-markers", false, "Ignore #line directives and line markers")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDump(cmd *cobra.Command, args []string) error {
	fe := cfront.New(cfront.Options{Strict: strict, HonorLineMarkers: !noMarkers})
	out := cmd.OutOrStdout()

	if raw {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		return fe.DumpTree(cmd.Context(), out, src)
	}

	unit, err := fe.ParseFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "TranslationUnitDecl %s\n", unit.File)
	for _, decl := range unit.Decls {
		if err := syntax.Fprint(out, decl); err != nil {
			return err
		}
	}
	return nil
}
