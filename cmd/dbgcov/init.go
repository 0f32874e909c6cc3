package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/config"
)

var (
	initJSON  bool
	initForce bool
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long:  "Write dbgcov.yaml (or dbgcov.json with --json) with the default configuration.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	cmd.Flags().BoolVar(&initJSON, "json", false, "Write dbgcov.json instead of dbgcov.yaml")
	cmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "dbgcov.yaml"
	if initJSON {
		configPath = "dbgcov.json"
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - Source patterns for directory arguments")
	fmt.Fprintln(out, "  - Output format and contract validation")
	fmt.Fprintln(out, "  - Audit rule severities")
	return nil
}
