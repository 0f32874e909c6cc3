package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/facts"
)

const (
	paramKey = "run, p, decl a.c:1, unit a"
	localKey = "run, x, decl a.c:2, unit a"
)

func row(kind, detail string, bl, bc, el, ec int) facts.RegionRow {
	return facts.RegionRow{File: "/w/a.c", BeginLine: bl, BeginCol: bc, EndLine: el, EndCol: ec, Kind: kind, Detail: detail}
}

// cleanRegions is what the extractor writes for
//
//	int run(int p) {
//	  int x = p;
//	  return x;
//	}
func cleanRegions() []facts.RegionRow {
	return []facts.RegionRow{
		row("Computation", "FunctionDecl.Prologue", 1, 16, 1, 16),
		row("Computation", "FunctionDecl.Epilogue", 4, 1, 4, 1),
		row("DeclScope", paramKey, 1, 16, 4, 1),
		row("MustBeDefined", paramKey, 1, 16, 4, 1),
		row("DeclScope", localKey, 1, 16, 4, 1),
		row("Computation", "VarDecl", 2, 3, 2, 11),
		row("MustBeDefined", localKey, 3, 0, 4, 1),
		row("MayBeDefined", paramKey, 2, 3, 2, 12),
		row("Computation", "ReturnStmt", 3, 3, 3, 10),
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New(context.Background(), "")
	require.NoError(t, err)
	return engine
}

func evaluate(t *testing.T, engine *Engine, regions []facts.RegionRow, severities map[string]string) *Result {
	t.Helper()
	result, err := engine.Evaluate(context.Background(), NewInput(facts.Tables{Regions: regions}, severities))
	require.NoError(t, err)
	return result
}

func rulesOf(result *Result) []string {
	var out []string
	for _, v := range result.Violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestCleanRegionsPass(t *testing.T) {
	result := evaluate(t, newEngine(t), cleanRegions(), nil)
	assert.Empty(t, result.Violations)
	assert.Equal(t, Summary{}, result.Summary)
}

func TestAuditRules(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name     string
		mutate   func([]facts.RegionRow) []facts.RegionRow
		wantRule string
		wantLine int
	}{
		{
			name: "inverted-range",
			mutate: func(rs []facts.RegionRow) []facts.RegionRow {
				return append(rs, row("Computation", "BinaryOperator", 3, 5, 2, 1))
			},
			wantRule: "inverted-range",
			wantLine: 3,
		},
		{
			name: "definition-without-scope",
			mutate: func(rs []facts.RegionRow) []facts.RegionRow {
				return append(rs, row("MustBeDefined", "run, y, decl a.c:3, unit a", 3, 0, 4, 1))
			},
			wantRule: "definition-without-scope",
			wantLine: 3,
		},
		{
			name: "definition-outside-scope",
			mutate: func(rs []facts.RegionRow) []facts.RegionRow {
				rs[6] = row("MustBeDefined", localKey, 3, 0, 9, 1)
				return rs
			},
			wantRule: "definition-outside-scope",
			wantLine: 3,
		},
		{
			name: "param-scope-mismatch",
			mutate: func(rs []facts.RegionRow) []facts.RegionRow {
				rs[3] = row("MustBeDefined", paramKey, 1, 16, 3, 1)
				return rs
			},
			wantRule: "param-scope-mismatch",
			wantLine: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluate(t, engine, tt.mutate(cleanRegions()), nil)
			require.Equal(t, []string{tt.wantRule}, rulesOf(result))
			v := result.Violations[0]
			assert.Equal(t, "/w/a.c", v.File)
			assert.Equal(t, tt.wantLine, v.Line)
			assert.NotEmpty(t, v.Message)
			assert.Equal(t, 1, result.Summary.TotalViolations)
		})
	}
}

func TestSeveritiesFromConfig(t *testing.T) {
	engine := newEngine(t)
	regions := append(cleanRegions(),
		row("Computation", "BinaryOperator", 3, 5, 2, 1),
		row("MustBeDefined", "run, y, decl a.c:3, unit a", 3, 0, 4, 1),
	)

	result := evaluate(t, engine, regions, nil)
	assert.Equal(t, Summary{TotalViolations: 2, Errors: 2}, result.Summary)

	result = evaluate(t, engine, regions, map[string]string{
		"inverted-range":           "warning",
		"definition-without-scope": "off",
	})
	require.Equal(t, []string{"inverted-range"}, rulesOf(result))
	assert.Equal(t, "warning", result.Violations[0].Severity)
	assert.Equal(t, Summary{TotalViolations: 1, Warnings: 1}, result.Summary)
}

func TestViolationsAreSorted(t *testing.T) {
	regions := append(cleanRegions(),
		facts.RegionRow{File: "/w/b.c", BeginLine: 9, BeginCol: 1, EndLine: 8, EndCol: 1, Kind: "Computation", Detail: "ReturnStmt"},
		row("Computation", "BreakStmt", 7, 1, 6, 1),
		row("Computation", "GotoStmt", 5, 1, 4, 1),
	)
	result := evaluate(t, newEngine(t), regions, nil)

	require.Len(t, result.Violations, 3)
	assert.Equal(t, 5, result.Violations[0].Line)
	assert.Equal(t, 7, result.Violations[1].Line)
	assert.Equal(t, "/w/b.c", result.Violations[2].File)
}

func TestExtraPolicyDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "naming.rego"), []byte(`package dbgcov.audit

violations contains v if {
	some r in input.regions
	r.kind == "Computation"
	r.detail == "ReturnStmt"
	v := violation("no-return", r, "returns are audited")
}
`), 0o644))

	engine, err := New(context.Background(), dir)
	require.NoError(t, err)
	result := evaluate(t, engine, cleanRegions(), map[string]string{"no-return": "info"})
	require.Equal(t, []string{"no-return"}, rulesOf(result))
	assert.Equal(t, Summary{TotalViolations: 1, Info: 1}, result.Summary)
}

func TestPolicyDirErrors(t *testing.T) {
	_, err := New(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no policy files found")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.rego"), []byte("package dbgcov.audit\n\nviolations contains"), 0o644))
	_, err = New(context.Background(), dir)
	assert.ErrorContains(t, err, "preparing")
}
