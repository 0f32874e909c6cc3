package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/robert-at-pretension-io/dbgcov/internal/config"
	"github.com/robert-at-pretension-io/dbgcov/internal/runner"
)

var (
	regionsOutput     string
	regionsFormat     string
	regionsValidate   bool
	regionsStrict     bool
	regionsNoMarkers  bool
	regionsWorkingDir string
	regionsJobs       int
	regionsTiming     string
)

func newRegionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions <file|dir>... [-- compiler args]",
		Short: "Write the region stream for C sources",
		Long: `Parse each C source and write one line per region:

  <file>:<line>:<col>\t<file>:<line>:<col>\t<Kind>\t<Detail>

Kind is Computation, DeclScope, MustBeDefined or MayBeDefined. For every kind
but Computation the detail names the variable as
"<function>, <variable>, decl <file>:<line>, unit <unit>".

Directories expand to the C sources matched by the configured patterns.
Arguments after -- are compiler arguments and are ignored.

Nothing is written unless every file succeeds.`,
		Args: cobra.ArbitraryArgs,
		RunE: runRegions,
	}
	addRegionFlags(cmd)
	return cmd
}

func addRegionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&regionsOutput, "output", "o", "", "Write regions to file (default: stdout)")
	cmd.Flags().StringVarP(&regionsFormat, "format", "f", "", "Output format: tsv or jsonl (default from config)")
	cmd.Flags().BoolVar(&regionsValidate, "validate", false, "Check every region against the region contract")
	cmd.Flags().BoolVar(&regionsStrict, "strict", false, "Fail files with syntax errors")
	cmd.Flags().BoolVar(&regionsNoMarkers, "no-line-markers", false, "Ignore #line directives and line markers")
	cmd.Flags().StringVar(&regionsWorkingDir, "working-dir", "", "Directory unit names are relative to (default: cwd)")
	cmd.Flags().IntVarP(&regionsJobs, "jobs", "j", 0, "Files processed in parallel (0 = one per CPU)")
	cmd.Flags().StringVar(&regionsTiming, "timing", "", "Write JSONL timing events to file")
}

func runRegions(cmd *cobra.Command, args []string) error {
	if dash := cmd.ArgsLenAtDash(); dash >= 0 && dash <= len(args) {
		args = args[:dash]
	}
	if len(args) == 0 {
		return fmt.Errorf("no input files")
	}

	cfg, err := loadConfig(args[0])
	if err != nil {
		return err
	}
	applyRegionFlags(cmd.Flags(), cfg)

	r := runner.NewWithConfig(cfg)
	r.Output = cmd.OutOrStdout()
	r.Diag = cmd.ErrOrStderr()
	r.Verbose = verbose
	if regionsTiming != "" {
		r.Timing = true
		r.TimingPath = regionsTiming
	}

	if regionsOutput == "" {
		_, err = r.Run(cmd.Context(), args)
		return err
	}
	return writeOutputFile(regionsOutput, func(out io.Writer) error {
		r.Output = out
		_, err := r.Run(cmd.Context(), args)
		return err
	})
}

// writeOutputFile writes through a temp file next to path and renames it
// into place only when write succeeds, so a failed run leaves no output.
func writeOutputFile(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("creating output: %w", err)
	}
	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// applyRegionFlags overrides config values with flags set on the command line
func applyRegionFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("format") {
		cfg.Output.Format = regionsFormat
	}
	if flags.Changed("validate") {
		cfg.Output.Validate = regionsValidate
	}
	if flags.Changed("strict") {
		cfg.Frontend.Strict = regionsStrict
	}
	if flags.Changed("no-line-markers") {
		honor := !regionsNoMarkers
		cfg.Frontend.HonorLineMarkers = &honor
	}
	if flags.Changed("working-dir") {
		cfg.Analysis.WorkingDir = regionsWorkingDir
	}
	if flags.Changed("jobs") {
		cfg.Analysis.MaxParallelFiles = regionsJobs
	}
}
