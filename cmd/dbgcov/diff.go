package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
)

var (
	diffJSON     bool
	diffExitCode bool
	diffFiles    []string
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <old-regions> <new-regions>",
		Short: "Compare two region streams",
		Long: `Compare two region streams as sets of regions. Emission order does not
matter; a region present in only one stream is printed with - (old only) or
+ (new only).`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}
	cmd.Flags().BoolVar(&diffJSON, "json", false, "Print the delta as JSON")
	cmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Fail when the streams differ")
	cmd.Flags().StringSliceVar(&diffFiles, "file", nil, "Only compare regions in these source files")
	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	prev, err := facts.LoadTables(args[0])
	if err != nil {
		return err
	}
	next, err := facts.LoadTables(args[1])
	if err != nil {
		return err
	}

	delta := facts.ComputeDelta(prev, next)
	if len(diffFiles) > 0 {
		files, err := fileSet(diffFiles)
		if err != nil {
			return err
		}
		delta = facts.FilterDeltaByFiles(delta, files)
	}

	out := cmd.OutOrStdout()
	if diffJSON {
		if err := encodeJSON(out, delta); err != nil {
			return fmt.Errorf("encoding delta: %w", err)
		}
	} else {
		removed := color.New(color.FgRed)
		added := color.New(color.FgGreen)
		for _, row := range delta.Removed.Regions {
			removed.Fprintf(out, "- %s\n", formatRegionRow(row))
		}
		for _, row := range delta.Added.Regions {
			added.Fprintf(out, "+ %s\n", formatRegionRow(row))
		}
		fmt.Fprintf(out, "%d removed, %d added\n", len(delta.Removed.Regions), len(delta.Added.Regions))
	}

	if diffExitCode && !delta.Empty() {
		return fmt.Errorf("region streams differ")
	}
	return nil
}

func formatRegionRow(r facts.RegionRow) string {
	return fmt.Sprintf("%s:%d:%d\t%s:%d:%d\t%s\t%s",
		r.File, r.BeginLine, r.BeginCol, r.File, r.EndLine, r.EndCol, r.Kind, r.Detail)
}
