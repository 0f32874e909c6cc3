package validator

// =============================================================================
// VALIDATOR PHILOSOPHY: CRASH EARLY, CRASH LOUD
// =============================================================================
//
// The CUE validator is the contract guard between the extractor and everything
// that reads its output: the debug-info comparison, dbgcov diff, and the audit
// rules.
//
// Without validation, a region that spans two files or a variable region whose
// detail is not a join key flows downstream and simply fails to match. The
// comparison reports a coverage gap that does not exist.
//
// With validation:
// - the run stops before anything is written
// - "end.file: conflicting values" tells you exactly which record is wrong
// - fix the extractor or the frontend, not the schema
//
// WHEN VALIDATION FAILS:
// 1. DON'T relax schema.cue to make the error go away
// 2. DO find the construct that produced the record (dbgcov-dump helps)
// 3. DO fix the lowering or the rule that emitted it
// =============================================================================

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
)

//go:embed schema.cue
var schemaSource []byte

// Definitions in schema.cue
const (
	RegionSetDef = "#RegionSet"
	FactsDef     = "#FactTables"
	ConfigDef    = "#Config"
)

// Validator validates data against the embedded CUE contract.
// A Validator is not safe for concurrent use.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// New creates a new Validator with the embedded CUE schema
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// ValidateRegions checks a whole region stream
func (v *Validator) ValidateRegions(records []region.Record) error {
	if records == nil {
		records = []region.Record{}
	}
	return v.Validate(RegionSetDef, records)
}

// ValidateRegion checks one record. #Region only resolves once kind is
// concrete, so the record is checked as a one-element stream.
func (v *Validator) ValidateRegion(r region.Record) error {
	return v.Validate(RegionSetDef, []region.Record{r})
}

// ValidateFacts checks fact tables before they reach the audit rules
func (v *Validator) ValidateFacts(tables interface{}) error {
	return v.Validate(FactsDef, tables)
}

// ValidateConfigJSON checks a configuration document. YAML configs are
// checked after decoding, as the JSON they re-encode to.
func (v *Validator) ValidateConfigJSON(jsonBytes []byte) error {
	return v.ValidateJSON(ConfigDef, jsonBytes)
}

// Validate checks that data, encoded as JSON, conforms to the named definition.
// Returns nil if valid, or a detailed error explaining what failed.
func (v *Validator) Validate(def string, data interface{}) error {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling data to JSON: %w", err)
	}
	return v.ValidateJSON(def, jsonBytes)
}

// ValidateJSON validates JSON bytes directly against the named definition
func (v *Validator) ValidateJSON(def string, jsonBytes []byte) error {
	unified, err := v.unify(def, jsonBytes)
	if err != nil {
		return err
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s schema validation failed: %w", def, err)
	}
	return nil
}

// ValidationErrors returns every violation of the named definition, one
// message per error
func (v *Validator) ValidationErrors(def string, data interface{}) []string {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	unified, err := v.unify(def, jsonBytes)
	if err != nil {
		return []string{err.Error()}
	}
	err = unified.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) unify(def string, jsonBytes []byte) (cue.Value, error) {
	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	schemaDef := v.schema.LookupPath(cue.ParsePath(def))
	if schemaDef.Err() != nil {
		return cue.Value{}, fmt.Errorf("looking up %s definition: %w", def, schemaDef.Err())
	}

	return schemaDef.Unify(dataValue), nil
}
