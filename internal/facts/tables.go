package facts

import (
	"sort"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
)

// Tables is the relational model of a region stream. Each slice is a
// relation (table) with flat rows, ready for policy evaluation or diffing.
type Tables struct {
	Files     []FileRow     `json:"files"`
	Regions   []RegionRow   `json:"regions"`
	Variables []VariableRow `json:"variables"`
	Counts    []CountRow    `json:"counts"`
}

// FileRow is one file that regions were reported in
type FileRow struct {
	Path    string `json:"path"`
	Regions int    `json:"regions"`
}

// RegionRow is one region record with its positions flattened
type RegionRow struct {
	File      string `json:"file"`
	BeginLine int    `json:"begin_line"`
	BeginCol  int    `json:"begin_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
}

// VariableRow is a variable named by at least one non-Computation region,
// split out of its join key
type VariableRow struct {
	Key      string `json:"key"`
	Function string `json:"function"`
	Name     string `json:"name"`
	DeclFile string `json:"decl_file"`
	DeclLine int    `json:"decl_line"`
	Unit     string `json:"unit"`
}

// CountRow counts the regions of one kind in one file
type CountRow struct {
	File  string `json:"file"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

func emptyTables() Tables {
	return Tables{
		Files:     []FileRow{},
		Regions:   []RegionRow{},
		Variables: []VariableRow{},
		Counts:    []CountRow{},
	}
}

// RegionRowOf flattens a record. Regions never span files, so the begin
// file stands for both ends.
func RegionRowOf(r region.Record) RegionRow {
	return RegionRow{
		File:      r.Begin.File,
		BeginLine: r.Begin.Line,
		BeginCol:  r.Begin.Col,
		EndLine:   r.End.Line,
		EndCol:    r.End.Col,
		Kind:      string(r.Kind),
		Detail:    r.Detail,
	}
}

// BuildTables converts a region stream into the relational model. Regions
// keep stream order; the other relations are sorted.
func BuildTables(records []region.Record) Tables {
	tables := emptyTables()

	perFile := make(map[string]int)
	counts := make(map[[2]string]int)
	variables := make(map[string]VariableRow)

	for _, r := range records {
		row := RegionRowOf(r)
		tables.Regions = append(tables.Regions, row)
		perFile[row.File]++
		counts[[2]string{row.File, row.Kind}]++

		if r.Kind == region.Computation {
			continue
		}
		if _, seen := variables[r.Detail]; seen {
			continue
		}
		if v, ok := ParseVariable(r.Detail); ok {
			variables[r.Detail] = v
		}
	}

	for path, n := range perFile {
		tables.Files = append(tables.Files, FileRow{Path: path, Regions: n})
	}
	sort.Slice(tables.Files, func(i, j int) bool { return tables.Files[i].Path < tables.Files[j].Path })

	for key, n := range counts {
		tables.Counts = append(tables.Counts, CountRow{File: key[0], Kind: key[1], Count: n})
	}
	sort.Slice(tables.Counts, func(i, j int) bool {
		if tables.Counts[i].File != tables.Counts[j].File {
			return tables.Counts[i].File < tables.Counts[j].File
		}
		return tables.Counts[i].Kind < tables.Counts[j].Kind
	})

	for _, v := range variables {
		tables.Variables = append(tables.Variables, v)
	}
	sort.Slice(tables.Variables, func(i, j int) bool { return tables.Variables[i].Key < tables.Variables[j].Key })

	return tables
}

// ParseVariable splits a join key of the form
// "<function>, <name>, decl <file>:<line>, unit <unit>"
func ParseVariable(key string) (VariableRow, bool) {
	parts := strings.SplitN(key, ", ", 4)
	if len(parts) != 4 {
		return VariableRow{}, false
	}
	decl, ok := strings.CutPrefix(parts[2], "decl ")
	if !ok {
		return VariableRow{}, false
	}
	unit, ok := strings.CutPrefix(parts[3], "unit ")
	if !ok {
		return VariableRow{}, false
	}
	colon := strings.LastIndexByte(decl, ':')
	if colon < 0 {
		return VariableRow{}, false
	}
	line, err := strconv.Atoi(decl[colon+1:])
	if err != nil {
		return VariableRow{}, false
	}
	return VariableRow{
		Key:      key,
		Function: parts[0],
		Name:     parts[1],
		DeclFile: decl[:colon],
		DeclLine: line,
		Unit:     unit,
	}, true
}

// CountsByKind totals the count rows per kind across files
func (t Tables) CountsByKind() map[string]int {
	out := make(map[string]int)
	for _, c := range t.Counts {
		out[c.Kind] += c.Count
	}
	return out
}
