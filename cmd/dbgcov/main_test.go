package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/config"
	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
	"github.com/robert-at-pretension-io/dbgcov/internal/policy"
)

const sampleSource = `int compute(void);

int run(int p) {
  int x;
  x = compute();
  if (p)
    return x + p;
  return x;
}
`

// workspace moves the test into an empty directory with no config
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("DBGCOV_TIMING_JSONL", "")
	t.Setenv("DBGCOV_TIMING", "")
	color.NoColor = true
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRegionsCommand(t *testing.T) {
	dir := workspace(t)
	writeFile(t, "run.c", sampleSource)

	for _, args := range [][]string{
		{"run.c"},
		{"regions", "run.c"},
		{"regions", "run.c", "--", "-O2", "-Iinclude", "-DNDEBUG"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			stdout, _, err := execute(t, args...)
			require.NoError(t, err)
			file := filepath.Join(dir, "run.c")
			assert.Contains(t, stdout, file+":3:16\t"+file+":9:1\tDeclScope\trun, p, decl run.c:3, unit run\n")
			assert.Contains(t, stdout, file+":6:0\t"+file+":9:1\tMustBeDefined\trun, x, decl run.c:4, unit run\n")
		})
	}
}

func TestRegionsFlags(t *testing.T) {
	workspace(t)
	writeFile(t, "run.c", sampleSource)

	stdout, stderr, err := execute(t, "regions", "--format", "jsonl", "-o", "out.jsonl", "--validate", "-v", "run.c")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "=== Verbose: Regions ===")

	raw, err := os.ReadFile("out.jsonl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{"))

	tables, err := facts.LoadTables("out.jsonl")
	require.NoError(t, err)
	assert.NotEmpty(t, tables.Regions)
}

func TestRegionsErrors(t *testing.T) {
	workspace(t)

	_, _, err := execute(t, "regions")
	assert.ErrorContains(t, err, "no input files")

	_, _, err = execute(t, "regions", "--", "-O2")
	assert.ErrorContains(t, err, "no input files")

	writeFile(t, "bad.c", "int f( {\n")
	stdout, _, err := execute(t, "regions", "--strict", "bad.c")
	assert.ErrorContains(t, err, "syntax error")
	assert.Empty(t, stdout)

	_, _, err = execute(t, "regions", "--strict", "bad.c", "--", "-O2")
	assert.ErrorContains(t, err, "syntax error")

	writeFile(t, "dbgcov.json", `{"output": {"format": "xml"}}`)
	_, _, err = execute(t, "regions", "bad.c")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestRegionsOutputOnlyOnSuccess(t *testing.T) {
	dir := workspace(t)
	writeFile(t, "bad.c", "int f( {\n")

	_, _, err := execute(t, "regions", "--strict", "-o", "out.tsv", "bad.c")
	assert.ErrorContains(t, err, "syntax error")
	assert.NoFileExists(t, "out.tsv")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".out.tsv"), "leftover %s", e.Name())
	}

	writeFile(t, "out.tsv", "previous\n")
	_, _, err = execute(t, "regions", "--strict", "-o", "out.tsv", "bad.c")
	require.Error(t, err)
	raw, err := os.ReadFile("out.tsv")
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(raw))
}

func TestUnnamedParameterRoundTrip(t *testing.T) {
	dir := workspace(t)
	writeFile(t, "u.c", "int f(int, int q) {\n  return q;\n}\n")

	_, _, err := execute(t, "regions", "--validate", "-o", "u.tsv", "u.c")
	require.NoError(t, err)
	raw, err := os.ReadFile("u.tsv")
	require.NoError(t, err)
	file := filepath.Join(dir, "u.c")
	assert.Contains(t, string(raw), file+":1:19\t"+file+":3:1\tDeclScope\tf, , decl u.c:1, unit u\n")

	stdout, _, err := execute(t, "audit", "u.tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No violations")

	stdout, _, err = execute(t, "facts", "u.tsv")
	require.NoError(t, err)
	var tables facts.Tables
	require.NoError(t, json.Unmarshal([]byte(stdout), &tables))
	assert.Contains(t, tables.Variables, facts.VariableRow{
		Key:      "f, , decl u.c:1, unit u",
		Function: "f",
		DeclFile: "u.c",
		DeclLine: 1,
		Unit:     "u",
	})
}

func TestFactsCommand(t *testing.T) {
	workspace(t)
	writeFile(t, "run.c", sampleSource)
	_, _, err := execute(t, "regions", "-o", "run.tsv", "run.c")
	require.NoError(t, err)

	stdout, _, err := execute(t, "facts", "run.tsv")
	require.NoError(t, err)
	var tables facts.Tables
	require.NoError(t, json.Unmarshal([]byte(stdout), &tables))
	require.Len(t, tables.Files, 1)
	assert.Contains(t, tables.Variables, facts.VariableRow{
		Key:      "run, x, decl run.c:4, unit run",
		Function: "run",
		Name:     "x",
		DeclFile: "run.c",
		DeclLine: 4,
		Unit:     "run",
	})

	_, _, err = execute(t, "facts", "run.tsv", "-o", "facts.json")
	require.NoError(t, err)
	_, _, err = execute(t, "facts", "run.tsv", "--delta-from", "facts.json", "--delta-out", "delta.json")
	require.NoError(t, err)
	raw, err := os.ReadFile("delta.json")
	require.NoError(t, err)
	var delta facts.Delta
	require.NoError(t, json.Unmarshal(raw, &delta))
	assert.True(t, delta.Empty())

	_, _, err = execute(t, "facts", "run.tsv", "--delta-from", "facts.json")
	assert.ErrorContains(t, err, "must be used together")
}

func TestDiffCommand(t *testing.T) {
	workspace(t)
	writeFile(t, "run.c", sampleSource)
	_, _, err := execute(t, "regions", "-o", "old.tsv", "run.c")
	require.NoError(t, err)
	writeFile(t, "run.c", strings.Replace(sampleSource, "  int x;\n", "  int x = 0;\n", 1))
	_, _, err = execute(t, "regions", "-o", "new.tsv", "run.c")
	require.NoError(t, err)

	stdout, _, err := execute(t, "diff", "old.tsv", "old.tsv")
	require.NoError(t, err)
	assert.Equal(t, "0 removed, 0 added\n", stdout)

	stdout, _, err = execute(t, "diff", "old.tsv", "new.tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "\tMustBeDefined\trun, x, decl run.c:4, unit run\n")
	assert.Contains(t, stdout, "- ")
	assert.Contains(t, stdout, "+ ")

	_, _, err = execute(t, "diff", "--exit-code", "old.tsv", "new.tsv")
	assert.ErrorContains(t, err, "differ")

	stdout, _, err = execute(t, "diff", "--file", "other.c", "old.tsv", "new.tsv")
	require.NoError(t, err)
	assert.Equal(t, "0 removed, 0 added\n", stdout)
}

func TestAuditCommand(t *testing.T) {
	workspace(t)
	writeFile(t, "run.c", sampleSource)
	_, _, err := execute(t, "regions", "-o", "run.tsv", "run.c")
	require.NoError(t, err)

	stdout, _, err := execute(t, "audit", "run.tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No violations")

	writeFile(t, "broken.tsv", "/w/a.c:5:1\t/w/a.c:3:1\tComputation\tBinaryOperator\n")
	stdout, _, err = execute(t, "audit", "broken.tsv")
	assert.ErrorContains(t, err, "audit found 1 errors")
	assert.Contains(t, stdout, "/w/a.c:5: error [inverted-range]")
	assert.Contains(t, stdout, "1 violations (1 errors, 0 warnings, 0 info)")

	stdout, _, err = execute(t, "audit", "--json", "broken.tsv")
	require.Error(t, err)
	var result policy.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 1, result.Summary.Errors)

	writeFile(t, "dbgcov.yaml", "audit:\n  rules:\n    inverted-range: \"warning\"\n")
	stdout, stderr, err := execute(t, "audit", "-v", "broken.tsv")
	require.NoError(t, err)
	assert.Contains(t, stdout, "warning [inverted-range]")
	assert.Contains(t, stderr, "=== Verbose: Audit rules ===")
}

func TestInitCommand(t *testing.T) {
	workspace(t)

	stdout, _, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Created dbgcov.yaml")

	cfg, err := config.LoadFile("dbgcov.yaml")
	require.NoError(t, err)
	defaults := config.DefaultConfig()
	assert.Equal(t, defaults.Sources.Files, cfg.Sources.Files)
	assert.Equal(t, defaults.Output, cfg.Output)
	assert.True(t, cfg.LineMarkersHonored())

	_, _, err = execute(t, "init")
	assert.ErrorContains(t, err, "already exists")
	_, _, err = execute(t, "init", "--force")
	assert.NoError(t, err)

	_, _, err = execute(t, "init", "--json")
	require.NoError(t, err)
	_, err = config.LoadFile("dbgcov.json")
	assert.NoError(t, err)
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runVersion(cmd, []string{}))

	output := buf.String()
	assert.Contains(t, output, "dbgcov dev")
	assert.Contains(t, output, "Commit:")
	assert.Contains(t, output, "Go version:")
	assert.Contains(t, output, "OS/Arch:")
}
