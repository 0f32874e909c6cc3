package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// Kind classifies a region record
type Kind string

const (
	// Computation marks code that performs work at run time
	Computation Kind = "Computation"
	// DeclScope is the lexical scope of a local variable or parameter
	DeclScope Kind = "DeclScope"
	// MustBeDefined is where a variable is guaranteed to hold a value
	MustBeDefined Kind = "MustBeDefined"
	// MayBeDefined is where a variable possibly holds a value
	MayBeDefined Kind = "MayBeDefined"
)

// Kinds lists every region kind in output order
var Kinds = []Kind{Computation, DeclScope, MustBeDefined, MayBeDefined}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown region kind %q", s)
}

// Record is one emitted region. Positions carry absolute file paths.
type Record struct {
	Begin  syntax.Position `json:"begin"`
	End    syntax.Position `json:"end"`
	Kind   Kind            `json:"kind"`
	Detail string          `json:"detail"`
}

// String renders the record as one tab separated line without the newline
func (r Record) String() string {
	return r.Begin.String() + "\t" + r.End.String() + "\t" + string(r.Kind) + "\t" + r.Detail
}

// ParseRecord reads a line written by Record.String
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("expected 4 tab separated fields, got %d", len(fields))
	}
	begin, err := ParsePosition(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("begin: %w", err)
	}
	end, err := ParsePosition(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("end: %w", err)
	}
	kind, err := ParseKind(fields[2])
	if err != nil {
		return Record{}, err
	}
	return Record{Begin: begin, End: end, Kind: kind, Detail: fields[3]}, nil
}

// ParsePosition reads "file:line:col". The file part may itself contain colons.
func ParsePosition(s string) (syntax.Position, error) {
	colSep := strings.LastIndexByte(s, ':')
	if colSep < 0 {
		return syntax.Position{}, fmt.Errorf("malformed position %q", s)
	}
	lineSep := strings.LastIndexByte(s[:colSep], ':')
	if lineSep <= 0 {
		return syntax.Position{}, fmt.Errorf("malformed position %q", s)
	}
	line, err := strconv.Atoi(s[lineSep+1 : colSep])
	if err != nil {
		return syntax.Position{}, fmt.Errorf("malformed line in %q: %w", s, err)
	}
	col, err := strconv.Atoi(s[colSep+1:])
	if err != nil {
		return syntax.Position{}, fmt.Errorf("malformed column in %q: %w", s, err)
	}
	return syntax.Position{File: s[:lineSep], Line: line, Col: col}, nil
}
