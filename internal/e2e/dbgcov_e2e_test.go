package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/config"
	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
	"github.com/robert-at-pretension-io/dbgcov/internal/policy"
	"github.com/robert-at-pretension-io/dbgcov/internal/region"
	"github.com/robert-at-pretension-io/dbgcov/internal/runner"
	"github.com/robert-at-pretension-io/dbgcov/internal/validator"
)

// runTestdata extracts regions for testdata/c with the repository root as
// working directory and returns the stream and the diagnostics
func runTestdata(t *testing.T, jobs int) (string, string) {
	t.Helper()
	repoRoot := findRepoRoot(t)

	cfg := config.DefaultConfig()
	cfg.Analysis.WorkingDir = repoRoot
	cfg.Analysis.MaxParallelFiles = jobs
	cfg.Output.Validate = true

	var stdout, stderr bytes.Buffer
	r := runner.NewWithConfig(cfg)
	r.Output = &stdout
	r.Diag = &stderr
	_, err := r.Run(context.Background(), []string{filepath.Join(repoRoot, "testdata", "c")})
	require.NoError(t, err, "stderr:\n%s", stderr.String())
	return stdout.String(), stderr.String()
}

func TestDbgcovE2E_Testdata(t *testing.T) {
	repoRoot := findRepoRoot(t)
	stream, diag := runTestdata(t, 0)
	assert.NotContains(t, diag, "Error:")

	records, err := region.ReadAll(strings.NewReader(stream))
	require.NoError(t, err)
	require.NotEmpty(t, records)

	v, err := validator.New()
	require.NoError(t, err)
	require.NoError(t, v.ValidateRegions(records))

	tables := facts.BuildTables(records)
	require.NoError(t, v.ValidateFacts(tables))

	files := map[string]bool{}
	for _, f := range tables.Files {
		files[f.Path] = true
	}
	for _, name := range []string{"scenarios.c", "builtins.c"} {
		assert.True(t, files[filepath.Join(repoRoot, "testdata", "c", name)], name)
	}
	// regions of the preprocessed file land in the files its markers name
	assert.True(t, files[filepath.Join(repoRoot, "lib", "util.h")])
	assert.True(t, files[filepath.Join(repoRoot, "lib", "util.c")])

	units := map[string]bool{}
	for _, row := range tables.Variables {
		units[row.Unit] = true
	}
	assert.Equal(t, map[string]bool{
		"testdata/c/builtins":     true,
		"testdata/c/preprocessed": true,
		"testdata/c/scenarios":    true,
	}, units)

	engine, err := policy.New(context.Background(), "")
	require.NoError(t, err)
	result, err := engine.Evaluate(context.Background(), policy.NewInput(tables, nil))
	require.NoError(t, err)
	assert.Empty(t, result.Violations)
}

func TestDbgcovE2E_ParallelMatchesSerial(t *testing.T) {
	serial, _ := runTestdata(t, 1)
	parallel, _ := runTestdata(t, 4)
	assert.Equal(t, serial, parallel)

	prev, err := region.ReadAll(strings.NewReader(serial))
	require.NoError(t, err)
	next, err := region.ReadAll(strings.NewReader(parallel))
	require.NoError(t, err)
	assert.True(t, facts.ComputeDelta(facts.BuildTables(prev), facts.BuildTables(next)).Empty())
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "testdata", "c", "scenarios.c")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
