package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

func at(file string, line, col int) syntax.Position {
	return syntax.Position{File: file, Line: line, Col: col}
}

func validRecords() []region.Record {
	return []region.Record{
		{Begin: at("/w/a.c", 3, 14), End: at("/w/a.c", 3, 14), Kind: region.Computation, Detail: "FunctionDecl.Prologue"},
		{Begin: at("/w/a.c", 5, 0), End: at("/w/a.c", 9, 1), Kind: region.MustBeDefined, Detail: "main, x, decl a.c:4, unit a"},
	}
}

// TestRegionContractEnforcement checks that malformed records cannot
// reach the output
func TestRegionContractEnforcement(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(r *region.Record)
		wantErr string
	}{
		{name: "valid", mutate: func(*region.Record) {}},
		{name: "multi_file", mutate: func(r *region.Record) { r.End.File = "/w/b.h" }, wantErr: "file"},
		{name: "unknown_kind", mutate: func(r *region.Record) { r.Kind = "Sometimes" }, wantErr: "kind"},
		{name: "zero_line", mutate: func(r *region.Record) { r.Begin.Line = 0 }, wantErr: "line"},
		{name: "negative_column", mutate: func(r *region.Record) { r.End.Col = -1 }, wantErr: "col"},
		{name: "empty_detail", mutate: func(r *region.Record) { r.Detail = "" }, wantErr: "detail"},
		{name: "variable_without_join_key", mutate: func(r *region.Record) { r.Detail = "x" }, wantErr: "detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := validRecords()
			tt.mutate(&records[1])

			err := v.ValidateRegions(records)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				assert.NoError(t, v.ValidateRegion(records[1]))
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Error(t, v.ValidateRegion(records[1]))
		})
	}
}

func TestComputationDetailIsFreeForm(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	r := validRecords()[0]
	r.Detail = "ForStmt.Cond"
	assert.NoError(t, v.ValidateRegion(r))
}

func TestUnnamedParameterJoinKey(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	records := validRecords()
	records[1].Kind = region.DeclScope
	records[1].Detail = "f, , decl u.c:1, unit u"
	assert.NoError(t, v.ValidateRegions(records))
	assert.NoError(t, v.ValidateRegion(records[1]))

	records[1].Detail = ", x, decl u.c:1, unit u"
	assert.Error(t, v.ValidateRegion(records[1]))

	tables := map[string]interface{}{
		"files":   []interface{}{},
		"regions": []interface{}{},
		"variables": []interface{}{map[string]interface{}{
			"key": "f, , decl u.c:1, unit u", "function": "f", "name": "", "decl_file": "u.c", "decl_line": 1, "unit": "u",
		}},
		"counts": []interface{}{},
	}
	assert.NoError(t, v.ValidateFacts(tables))
}

func TestValidateEmptyRegionSet(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	assert.NoError(t, v.ValidateRegions(nil))
}

func TestValidationErrorsListsEveryViolation(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	records := validRecords()
	records[0].Kind = "Bogus"
	records[1].End.File = "/w/other.c"

	errs := v.ValidationErrors(RegionSetDef, records)
	assert.GreaterOrEqual(t, len(errs), 2)
	assert.Nil(t, v.ValidationErrors(RegionSetDef, validRecords()))
}

func TestValidateFacts(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tables := map[string]interface{}{
		"files":   []interface{}{map[string]interface{}{"path": "/w/a.c", "regions": 1}},
		"regions": []interface{}{map[string]interface{}{"file": "/w/a.c", "begin_line": 1, "begin_col": 0, "end_line": 2, "end_col": 1, "kind": "DeclScope", "detail": "main, x, decl a.c:1, unit a"}},
		"variables": []interface{}{map[string]interface{}{
			"key": "main, x, decl a.c:1, unit a", "function": "main", "name": "x", "decl_file": "a.c", "decl_line": 1, "unit": "a",
		}},
		"counts": []interface{}{map[string]interface{}{"file": "/w/a.c", "kind": "DeclScope", "count": 1}},
	}
	assert.NoError(t, v.ValidateFacts(tables))

	tables["counts"] = []interface{}{map[string]interface{}{"file": "/w/a.c", "kind": "DeclScope", "count": 1, "extra": true}}
	err = v.ValidateFacts(tables)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra")
}

func TestValidateConfigJSON(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateConfigJSON([]byte(`{"output": {"format": "jsonl"}, "audit": {"rules": {"inverted-range": "off"}}}`)))
	assert.NoError(t, v.ValidateConfigJSON([]byte(`{}`)))

	for _, bad := range []string{
		`{"output": {"format": "xml"}}`,
		`{"audit": {"rules": {"inverted-range": "fatal"}}}`,
		`{"analysis": {"maxParallelFiles": -1}}`,
		`{"lint": {}}`,
	} {
		assert.Error(t, v.ValidateConfigJSON([]byte(bad)), bad)
	}
}

func TestUnknownDefinition(t *testing.T) {
	v, err := New()
	require.NoError(t, err)
	err = v.Validate("#Nope", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#Nope")
}
