package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
	"github.com/robert-at-pretension-io/dbgcov/internal/validator"
)

var (
	factsOutput    string
	factsDeltaFrom string
	factsDeltaOut  string
	factsFiles     []string
)

func newFactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts <regions>",
		Short: "Convert a region stream into fact tables",
		Long: `Read a region stream (tsv or jsonl) and write its fact tables as JSON:
files, regions with flattened positions, variables split out of their join
keys, and per-file counts by kind.

With --delta-from, also write the rows added and removed since a previous
facts file.`,
		Args: cobra.ExactArgs(1),
		RunE: runFacts,
	}
	cmd.Flags().StringVarP(&factsOutput, "output", "o", "", "Write facts JSON to file (default: stdout)")
	cmd.Flags().StringVar(&factsDeltaFrom, "delta-from", "", "Previous facts JSON to compute delta from")
	cmd.Flags().StringVar(&factsDeltaOut, "delta-out", "", "Write delta JSON to file (requires --delta-from)")
	cmd.Flags().StringSliceVar(&factsFiles, "file", nil, "Only keep rows for these source files")
	return cmd
}

func runFacts(cmd *cobra.Command, args []string) error {
	if (factsDeltaFrom == "") != (factsDeltaOut == "") {
		return fmt.Errorf("--delta-from and --delta-out must be used together")
	}

	tables, err := facts.LoadTables(args[0])
	if err != nil {
		return err
	}
	if len(factsFiles) > 0 {
		files, err := fileSet(factsFiles)
		if err != nil {
			return err
		}
		tables = facts.FilterTablesByFiles(tables, files)
	}

	v, err := validator.New()
	if err != nil {
		return fmt.Errorf("CRITICAL: Failed to initialize CUE validator: %w", err)
	}
	if err := v.ValidateFacts(tables); err != nil {
		return fmt.Errorf("CRITICAL: fact tables violate contract: %w", err)
	}

	if factsOutput != "" {
		if err := writeJSON(factsOutput, tables); err != nil {
			return fmt.Errorf("writing facts: %w", err)
		}
	} else if err := encodeJSON(cmd.OutOrStdout(), tables); err != nil {
		return fmt.Errorf("encoding facts: %w", err)
	}

	if factsDeltaFrom != "" {
		prev, err := readTables(factsDeltaFrom)
		if err != nil {
			return fmt.Errorf("reading delta-from: %w", err)
		}
		delta := facts.ComputeDelta(prev, tables)
		if err := writeJSON(factsDeltaOut, delta); err != nil {
			return fmt.Errorf("writing delta: %w", err)
		}
	}
	return nil
}

// fileSet makes paths absolute, matching the file names in region records
func fileSet(paths []string) (map[string]bool, error) {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		files[abs] = true
	}
	return files, nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	return writeOutputFile(path, func(w io.Writer) error {
		return encodeJSON(w, data)
	})
}

func encodeJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
