package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/config"
	"github.com/robert-at-pretension-io/dbgcov/internal/validator"
)

var (
	configPath string
	verbose    bool
)

// newRootCmd builds the command tree. Flags bind to package variables and
// registering them resets those variables, so every tree starts from defaults.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dbgcov [file|dir]... [-- compiler args]",
		Short: "dbgcov - source regions for debug info coverage",
		Long: `dbgcov reports the source regions of C programs where computation happens
and where each local variable is in scope, must be defined or may be defined.

Comparing these regions against the variable locations recorded in debug info
shows how much of a program a debugger can actually observe.

Running dbgcov with files is the same as running "dbgcov regions".`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runRegions,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search dbgcov.json / dbgcov.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	addRegionFlags(root)

	// Add subcommands
	root.AddCommand(newRegionsCmd())
	root.AddCommand(newFactsCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig reads --config when given, otherwise searches from root. The
// result is checked against the configuration contract.
func loadConfig(root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	v, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("CRITICAL: Failed to initialize CUE validator: %w", err)
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := v.ValidateConfigJSON(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
