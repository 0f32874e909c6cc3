package syntax

import (
	"errors"
	"fmt"
)

// ErrInvalidLocation is returned when a position is not backed by a file
var ErrInvalidLocation = errors.New("invalid location")

// Position is a presumed source location. Line is 1-based, Col is a 1-based
// byte column; Col 0 means "start of line" and is only produced by
// AdvanceToNextLine.
type Position struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// IsValid reports whether the position refers to a real file location
func (p Position) IsValid() bool {
	return p.File != "" && p.Line > 0 && p.Col >= 0
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Before orders positions of the same file
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Col < o.Col
}

// Resolve splits a position into its presumed file, line and column
func Resolve(p Position) (file string, line, col int, err error) {
	if !p.IsValid() {
		return "", 0, 0, fmt.Errorf("%w: %q line %d col %d", ErrInvalidLocation, p.File, p.Line, p.Col)
	}
	return p.File, p.Line, p.Col, nil
}

// AdvanceToNextLine returns column 0 of the line after p
func AdvanceToNextLine(p Position) Position {
	return Position{File: p.File, Line: p.Line + 1, Col: 0}
}

// Range spans from the first byte of its first token to the first byte of its
// last token, both inclusive.
type Range struct {
	Begin Position
	End   Position
}

// Span builds a range from two positions
func Span(begin, end Position) Range {
	return Range{Begin: begin, End: end}
}

// SameFile reports whether both ends lie in the same file
func (r Range) SameFile() bool {
	return r.Begin.File == r.End.File
}

// Inverted reports whether the range begins on a later line than it ends
func (r Range) Inverted() bool {
	return r.Begin.Line > r.End.Line
}

func (r Range) String() string {
	return r.Begin.String() + "-" + r.End.String()
}
