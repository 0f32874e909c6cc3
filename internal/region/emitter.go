package region

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// ============================================================================
// EMITTER CONTRACT
// ============================================================================
//
// Every region passes through Emit, which is the only place records are
// checked and written:
//   - a region whose ends lie in different files is reported as a warning and
//     dropped (macro expansions and line markers can produce these)
//   - a region that begins on a later line than it ends is reported as an
//     error but still written; consumers decide what to do with it
//   - the next-line shift is only applied when begin and end are on
//     different lines
//
// An unresolvable position is not a diagnostic, it is a bug in whatever built
// the syntax tree, and aborts the run.
// ============================================================================

var (
	warnLabel  = color.New(color.FgYellow, color.Bold)
	errorLabel = color.New(color.FgRed, color.Bold)
)

// Emitter validates regions and hands them to a Sink
type Emitter struct {
	sink       Sink
	diag       io.Writer
	workingDir string

	dropped  int
	inverted int
}

// NewEmitter creates an emitter. Relative file names are made absolute
// against workingDir; diagnostics go to diag.
func NewEmitter(sink Sink, diag io.Writer, workingDir string) *Emitter {
	if diag == nil {
		diag = io.Discard
	}
	return &Emitter{sink: sink, diag: diag, workingDir: workingDir}
}

// Emit checks one region and writes it. If beginNextLine is set the region
// starts at column 0 of the line after rng.Begin, unless the region fits on a
// single line.
func (e *Emitter) Emit(rng syntax.Range, kind Kind, detail string, beginNextLine bool) error {
	beginFile, beginLine, _, err := syntax.Resolve(rng.Begin)
	if err != nil {
		return fmt.Errorf("region begin for %s %q: %w", kind, detail, err)
	}
	endFile, endLine, _, err := syntax.Resolve(rng.End)
	if err != nil {
		return fmt.Errorf("region end for %s %q: %w", kind, detail, err)
	}

	if beginFile != endFile {
		e.dropped++
		e.report("Warning", "Ignoring multi-file region", rng, kind, detail)
		return nil
	}
	if beginLine > endLine {
		e.inverted++
		e.report("Error", "Invalid region (begin after end)", rng, kind, detail)
	}
	if beginLine == endLine {
		beginNextLine = false
	}

	begin := rng.Begin
	if beginNextLine {
		begin = syntax.AdvanceToNextLine(begin)
	}
	return e.sink.Write(Record{
		Begin:  e.absolute(begin),
		End:    e.absolute(rng.End),
		Kind:   kind,
		Detail: detail,
	})
}

// Dropped is the number of multi-file regions that were not written
func (e *Emitter) Dropped() int { return e.dropped }

// Inverted is the number of regions written despite beginning after they end
func (e *Emitter) Inverted() int { return e.inverted }

func (e *Emitter) report(level, msg string, rng syntax.Range, kind Kind, detail string) {
	label := warnLabel
	if level == "Error" {
		label = errorLabel
	}
	label.Fprint(e.diag, level+":")
	fmt.Fprintf(e.diag, " %s\n%s\n%s\n%s\n%s\n",
		msg, e.absolute(rng.Begin), e.absolute(rng.End), kind, detail)
}

func (e *Emitter) absolute(p syntax.Position) syntax.Position {
	if p.File != "" && !filepath.IsAbs(p.File) && e.workingDir != "" {
		p.File = filepath.Join(e.workingDir, p.File)
	}
	return p
}
