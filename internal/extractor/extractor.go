package extractor

import (
	"errors"
	"fmt"

	"github.com/robert-at-pretension-io/dbgcov/internal/region"
	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// ============================================================================
// REGION EXTRACTION - FAIL LOUDLY ON MALFORMED TREES
// ============================================================================
//
// The extractor walks each top-level declaration in pre-order and asks the
// rule table what every node contributes. It trusts the frontend for tree
// shape: when an assumption about that shape does not hold (a local variable
// outside a declaration statement, a declaration statement floating outside
// any statement) the result is ErrInternal and the unit produces no output.
// A silently skipped region would look like a coverage gap downstream.
// ============================================================================

var (
	// ErrInternal reports a syntax tree that breaks a structural assumption
	ErrInternal = errors.New("internal error")
	// ErrUnsupportedContext reports a name requested for a declaration that
	// is not owned by a function
	ErrUnsupportedContext = errors.New("unsupported declaration context")
)

// Options configures an Extractor
type Options struct {
	// WorkingDir is the directory unit paths are made relative to
	WorkingDir string
}

// Extractor turns syntax trees into region records
type Extractor struct {
	emitter    *region.Emitter
	workingDir string
}

// New creates an extractor writing through emitter
func New(emitter *region.Emitter, opts Options) *Extractor {
	return &Extractor{emitter: emitter, workingDir: opts.WorkingDir}
}

// ExtractUnit emits the regions of every top-level declaration in order
func (e *Extractor) ExtractUnit(unit syntax.Unit) error {
	namer := NewNamer(e.workingDir, unit.MainFile())
	for _, decl := range unit.TopLevelDecls() {
		t := &traversal{
			emitter: e.emitter,
			parents: unit.Parents(decl),
			namer:   namer,
		}
		if err := t.walk(decl); err != nil {
			return fmt.Errorf("%s: %w", unit.MainFile(), err)
		}
	}
	return nil
}

// traversal is the state of one top-level declaration's walk
type traversal struct {
	emitter *region.Emitter
	parents syntax.ParentResolver
	namer   *Namer
}

func (t *traversal) walk(n syntax.Node) error {
	// Compile-time constants (case labels, enumerator values) have no
	// run-time footprint
	if n.Kind() == syntax.KindConstantExpr {
		return nil
	}
	if err := t.visit(n); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := t.walk(child); err != nil {
			return err
		}
	}
	return nil
}

func (t *traversal) visit(n syntax.Node) error {
	r, ok := rules[n.Kind()]
	if !ok {
		return nil
	}
	if r.tag != "" {
		if err := t.emitter.Emit(n.Range(), region.Computation, r.tag, false); err != nil {
			return err
		}
	}
	for _, c := range r.clauses {
		sub := c.pick(n)
		if sub == nil {
			continue
		}
		if err := t.emitter.Emit(sub.Range(), region.Computation, c.tag, false); err != nil {
			return err
		}
	}

	switch r.discover {
	case discoverAssignment:
		return t.assignment(n.(*syntax.BinaryOperator))
	case discoverCallArguments:
		return t.callArguments(n.(*syntax.CallExpr))
	case discoverLocalVariable:
		return t.localVariable(n.(*syntax.VarDecl))
	case discoverFunction:
		return t.function(n.(*syntax.FunctionDecl))
	}
	return nil
}

func (t *traversal) assignment(op *syntax.BinaryOperator) error {
	if !op.IsAssignment() {
		return nil
	}
	block, ok := enclosingStatement(t.parents, op)
	if !ok {
		return nil
	}
	end := block.Range().End

	for _, ref := range allReferences(op.RHS) {
		if err := t.report(ref, syntax.Span(op.Range().Begin, end), region.MayBeDefined, false); err != nil {
			return err
		}
	}
	// Debug info shows the target as defined from the line after the store
	for _, ref := range allReferences(op.LHS) {
		if err := t.report(ref, syntax.Span(op.Range().End, end), region.MustBeDefined, true); err != nil {
			return err
		}
	}
	return nil
}

func (t *traversal) callArguments(call *syntax.CallExpr) error {
	for _, arg := range call.Args {
		ref, ok := leadingReference(arg)
		if !ok {
			continue
		}
		if err := t.report(ref, call.Range(), region.MayBeDefined, false); err != nil {
			return err
		}
	}
	return nil
}

func (t *traversal) localVariable(v *syntax.VarDecl) error {
	if _, ok := v.DeclContext().(*syntax.FunctionDecl); !ok || !v.IsLocal() {
		return nil
	}

	parent, ok := t.parents.ParentOf(v)
	declStmt, isDeclStmt := parent.(*syntax.DeclStmt)
	if !ok || !isDeclStmt {
		return fmt.Errorf("%w: local variable %q at %s is not part of a declaration statement",
			ErrInternal, v.Name(), v.Location())
	}
	block, ok := enclosingStatement(t.parents, declStmt)
	if !ok {
		return fmt.Errorf("%w: declaration of %q at %s has no enclosing statement",
			ErrInternal, v.Name(), v.Location())
	}

	name, err := t.namer.Name(v)
	if err != nil {
		return err
	}
	if err := t.emitter.Emit(block.Range(), region.DeclScope, name, false); err != nil {
		return err
	}

	if !v.IsStaticLocal() && !v.HasInit() {
		return nil
	}
	if err := t.emitter.Emit(v.Range(), region.Computation, syntax.KindVarDecl.String(), false); err != nil {
		return err
	}
	defined := syntax.Span(v.Range().End, block.Range().End)
	if err := t.emitter.Emit(defined, region.MustBeDefined, name, true); err != nil {
		return err
	}

	for _, ref := range allReferences(v.Init) {
		if err := t.report(ref, declStmt.Range(), region.MayBeDefined, false); err != nil {
			return err
		}
	}
	return nil
}

func (t *traversal) function(fn *syntax.FunctionDecl) error {
	if fn.Body == nil {
		return nil
	}
	body := fn.Body.Range()

	if err := t.emitter.Emit(syntax.Span(body.Begin, body.Begin), region.Computation, "FunctionDecl.Prologue", false); err != nil {
		return err
	}
	if err := t.emitter.Emit(syntax.Span(body.End, body.End), region.Computation, "FunctionDecl.Epilogue", false); err != nil {
		return err
	}

	// Parameters hold their value for the whole body
	for _, param := range fn.Params {
		name, err := t.namer.Name(param)
		if err != nil {
			return err
		}
		if err := t.emitter.Emit(body, region.DeclScope, name, false); err != nil {
			return err
		}
		if err := t.emitter.Emit(body, region.MustBeDefined, name, false); err != nil {
			return err
		}
	}
	return nil
}

// report emits a region for the declaration ref points at, provided that
// declaration belongs to a function
func (t *traversal) report(ref *syntax.DeclRefExpr, rng syntax.Range, kind region.Kind, beginNextLine bool) error {
	if ref.Ref == nil {
		return nil
	}
	if _, ok := ref.Ref.DeclContext().(*syntax.FunctionDecl); !ok {
		return nil
	}
	name, err := t.namer.Name(ref.Ref)
	if err != nil {
		return err
	}
	return t.emitter.Emit(rng, kind, name, beginNextLine)
}
