package extractor

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/dbgcov/internal/cfront"
	"github.com/robert-at-pretension-io/dbgcov/internal/region"
	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

const (
	workDir  = "/work"
	mainFile = "/work/src/run.c"
)

const runSource = `int compute(void);
int f(int a);

int run(int p, int q) {
  int a = p;
  int x;
  x = compute();
  int y = f(a);
  static int count = 0;
  switch (q) {
  case 1+1:
    break;
  }
  return x + y + count;
}
`

func init() {
	color.NoColor = true
}

func extract(t *testing.T, src string) ([]region.Record, string) {
	t.Helper()
	tu, err := cfront.New(cfront.Options{}).Parse(context.Background(), mainFile, []byte(src))
	require.NoError(t, err)

	var sink region.Collector
	var diag bytes.Buffer
	ex := New(region.NewEmitter(&sink, &diag, workDir), Options{WorkingDir: workDir})
	require.NoError(t, ex.ExtractUnit(tu))
	return sink.Records, diag.String()
}

func pos(line, col int) syntax.Position {
	return syntax.Position{File: mainFile, Line: line, Col: col}
}

func rec(begin, end syntax.Position, kind region.Kind, detail string) region.Record {
	return region.Record{Begin: begin, End: end, Kind: kind, Detail: detail}
}

func name(variable string, line int) string {
	return "run, " + variable + ", decl run.c:" + strconv.Itoa(line) + ", unit src/run"
}

func selectRecords(records []region.Record, keep func(region.Record) bool) []region.Record {
	var out []region.Record
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// computationsOn selects the Computation regions that begin on line
func computationsOn(line int) func(region.Record) bool {
	return func(r region.Record) bool { return r.Kind == region.Computation && r.Begin.Line == line }
}

// sequenceFrom returns the n records emitted starting with first
func sequenceFrom(t *testing.T, records []region.Record, first region.Record, n int) []region.Record {
	t.Helper()
	for i, r := range records {
		if r == first {
			require.LessOrEqual(t, i+n, len(records))
			return records[i : i+n]
		}
	}
	t.Fatalf("record %s not emitted", first)
	return nil
}

func forDetail(detail string) func(region.Record) bool {
	return func(r region.Record) bool { return r.Detail == detail }
}

// Body of run spans 4:23 to 15:1 in runSource
var body = [2]syntax.Position{pos(4, 23), pos(15, 1)}

func TestAssignmentOfCallResult(t *testing.T) {
	records, diag := extract(t, runSource)
	assert.Empty(t, diag)

	assign := rec(pos(7, 3), pos(7, 15), region.Computation, "BinaryOperator")
	assert.Equal(t, []region.Record{
		assign,
		rec(pos(8, 0), body[1], region.MustBeDefined, name("x", 6)),
		rec(pos(7, 3), pos(7, 3), region.Computation, "DeclRefExpr"),
		rec(pos(7, 7), pos(7, 7), region.Computation, "CallExpr.Callee"),
		rec(pos(7, 7), pos(7, 7), region.Computation, "DeclRefExpr"),
	}, sequenceFrom(t, records, assign, 5))
	// compute() has no arguments and compute is not a local
	assert.Empty(t, selectRecords(records, func(r region.Record) bool {
		return r.Kind == region.MayBeDefined && r.Begin.Line == 7
	}))
}

func TestInitializedLocal(t *testing.T) {
	records, _ := extract(t, runSource)

	assert.Equal(t, []region.Record{
		rec(body[0], body[1], region.DeclScope, name("y", 8)),
		rec(pos(9, 0), body[1], region.MustBeDefined, name("y", 8)),
	}, selectRecords(records, forDetail(name("y", 8))))

	assert.Equal(t, []region.Record{
		rec(pos(8, 3), pos(8, 14), region.Computation, "VarDecl"),
		rec(pos(8, 3), pos(8, 15), region.MayBeDefined, name("a", 5)),
		rec(pos(8, 11), pos(8, 11), region.Computation, "CallExpr.Callee"),
		rec(pos(8, 11), pos(8, 14), region.MayBeDefined, name("a", 5)),
		rec(pos(8, 11), pos(8, 11), region.Computation, "DeclRefExpr"),
		rec(pos(8, 13), pos(8, 13), region.Computation, "DeclRefExpr"),
	}, selectRecords(records, func(r region.Record) bool {
		// shifted regions start at column 0 and belong to line 7
		return r.Begin.Line == 8 && r.Begin.Col > 0
	}))
}

func TestStaticLocal(t *testing.T) {
	records, _ := extract(t, runSource)

	assert.Equal(t, []region.Record{
		rec(body[0], body[1], region.DeclScope, name("count", 9)),
		rec(pos(10, 0), body[1], region.MustBeDefined, name("count", 9)),
	}, selectRecords(records, forDetail(name("count", 9))))

	assert.Equal(t, []region.Record{
		rec(pos(9, 3), pos(9, 22), region.Computation, "VarDecl"),
	}, selectRecords(records, computationsOn(9)))
	assert.Empty(t, selectRecords(records, func(r region.Record) bool {
		return r.Kind == region.MayBeDefined && r.Begin.Line == 9
	}))
}

func TestUninitializedLocalOnlyGetsScope(t *testing.T) {
	records, _ := extract(t, runSource)

	assert.Empty(t, selectRecords(records, computationsOn(6)))
	assert.Empty(t, selectRecords(records, func(r region.Record) bool {
		return r.Detail == name("x", 6) && r.Kind != region.DeclScope && r.Begin.Line <= 7
	}))
	// the local declared on the line above is defined from here on
	assert.Equal(t, []region.Record{
		rec(pos(6, 0), body[1], region.MustBeDefined, name("a", 5)),
	}, selectRecords(records, func(r region.Record) bool { return r.Begin.Line == 6 && r.Kind == region.MustBeDefined }))
	x := selectRecords(records, func(r region.Record) bool {
		return r.Detail == name("x", 6) && r.Kind == region.DeclScope
	})
	assert.Equal(t, []region.Record{rec(body[0], body[1], region.DeclScope, name("x", 6))}, x)
}

func TestCaseLabelIsPruned(t *testing.T) {
	records, _ := extract(t, runSource)

	assert.Empty(t, selectRecords(records, func(r region.Record) bool { return r.Begin.Line == 11 }))
	assert.Equal(t, []region.Record{
		rec(pos(10, 11), pos(10, 11), region.Computation, "SwitchStmt.Cond"),
		rec(pos(10, 11), pos(10, 11), region.Computation, "DeclRefExpr"),
	}, selectRecords(records, computationsOn(10)))
	assert.Equal(t, []region.Record{
		rec(pos(12, 5), pos(12, 5), region.Computation, "BreakStmt"),
	}, selectRecords(records, computationsOn(12)))
}

func TestFunctionParameters(t *testing.T) {
	records, _ := extract(t, runSource)

	assert.Equal(t, []region.Record{
		rec(body[0], body[0], region.Computation, "FunctionDecl.Prologue"),
		rec(body[1], body[1], region.Computation, "FunctionDecl.Epilogue"),
		rec(body[0], body[1], region.DeclScope, name("p", 4)),
		rec(body[0], body[1], region.MustBeDefined, name("p", 4)),
		rec(body[0], body[1], region.DeclScope, name("q", 4)),
		rec(body[0], body[1], region.MustBeDefined, name("q", 4)),
	}, records[:6])
}

func TestPrototypesEmitNothing(t *testing.T) {
	records, _ := extract(t, "int compute(void);\nint f(int a);\nint g;\n")
	assert.Empty(t, records)
}

func TestGlobalsAreNotNamed(t *testing.T) {
	records, _ := extract(t, `int g;
void run(void) {
  g = 1;
}
`)
	for _, r := range records {
		assert.NotEqual(t, region.MustBeDefined, r.Kind, r.String())
		assert.NotEqual(t, region.MayBeDefined, r.Kind, r.String())
	}
}

func TestSameLineBlockIsNotShifted(t *testing.T) {
	records, diag := extract(t, `void run(int c) {
  int v;
  if (c) { v = c; }
  v = 2;
}
`)
	assert.Empty(t, diag)

	// the if body is the enclosing block and ends on the assignment's line
	assert.Contains(t, records, rec(pos(3, 16), pos(3, 19), region.MustBeDefined, name("v", 2)))
	assert.Contains(t, records, rec(pos(3, 12), pos(3, 19), region.MayBeDefined, name("c", 1)))
	assert.Contains(t, records, rec(pos(5, 0), pos(5, 1), region.MustBeDefined, name("v", 2)))
}

func TestCompoundAssignmentAndHeaders(t *testing.T) {
	records, _ := extract(t, `void run(int n) {
  int sum = 0;
  for (int i = 0; i < n; i++)
    sum += i;
  while (n)
    n--;
}
`)
	assert.Contains(t, records, rec(pos(3, 8), pos(3, 17), region.Computation, "ForStmt.Init"))
	assert.Contains(t, records, rec(pos(3, 19), pos(3, 23), region.Computation, "ForStmt.Cond"))
	assert.Contains(t, records, rec(pos(3, 26), pos(3, 27), region.Computation, "ForStmt.Inc"))
	assert.Contains(t, records, rec(pos(5, 10), pos(5, 10), region.Computation, "WhileStmt.Cond"))

	// for-init variables are scoped by the loop
	assert.Contains(t, records, rec(pos(3, 3), pos(4, 12), region.DeclScope, name("i", 3)))
	// sum += i is bounded by the for loop, which ends on the same line
	assert.Contains(t, records, rec(pos(4, 12), pos(4, 12), region.MustBeDefined, name("sum", 2)))
	assert.Contains(t, records, rec(pos(4, 5), pos(4, 12), region.MayBeDefined, name("i", 3)))
}

func TestExtractionIsDeterministic(t *testing.T) {
	first, _ := extract(t, runSource)
	second, _ := extract(t, runSource)
	assert.Equal(t, first, second)
}

func TestEveryRegionStaysInOneFile(t *testing.T) {
	records, _ := extract(t, runSource)
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.Equal(t, r.Begin.File, r.End.File, r.String())
		assert.Equal(t, mainFile, r.Begin.File)
	}
}

// fakeUnit hands the extractor hand-built trees
type fakeUnit struct {
	decls   []syntax.Decl
	parents syntax.ParentIndex
}

func (u fakeUnit) MainFile() string                          { return mainFile }
func (u fakeUnit) TopLevelDecls() []syntax.Decl              { return u.decls }
func (u fakeUnit) Parents(syntax.Decl) syntax.ParentResolver { return u.parents }

func fakeFunction() (*syntax.FunctionDecl, *syntax.VarDecl) {
	tu := &syntax.TranslationUnit{File: mainFile}
	fn := &syntax.FunctionDecl{DeclInfo: syntax.DeclInfo{
		Ident: "run", NameLoc: pos(1, 6), Context: tu, Span: syntax.Span(pos(1, 1), pos(3, 1)),
	}}
	v := &syntax.VarDecl{
		DeclInfo: syntax.DeclInfo{Ident: "v", NameLoc: pos(2, 7), Context: fn, Span: syntax.Span(pos(2, 3), pos(2, 11))},
		Local:    true,
		Init:     &syntax.OperatorExpr{Tag: syntax.KindIntegerLiteral, Span: syntax.Span(pos(2, 11), pos(2, 11))},
	}
	return fn, v
}

func TestLocalOutsideDeclStmtIsInternalError(t *testing.T) {
	_, v := fakeFunction()
	block := &syntax.CompoundStmt{Span: syntax.Span(pos(1, 16), pos(3, 1))}
	unit := fakeUnit{decls: []syntax.Decl{v}, parents: syntax.ParentIndex{v: block}}

	var sink region.Collector
	err := New(region.NewEmitter(&sink, nil, workDir), Options{WorkingDir: workDir}).ExtractUnit(unit)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), mainFile)
	assert.Empty(t, sink.Records)
}

func TestDeclStmtWithoutStatementIsInternalError(t *testing.T) {
	_, v := fakeFunction()
	ds := &syntax.DeclStmt{Span: syntax.Span(pos(2, 3), pos(2, 12)), Decls: []syntax.Decl{v}}
	unit := fakeUnit{decls: []syntax.Decl{v}, parents: syntax.ParentIndex{v: ds}}

	err := New(region.NewEmitter(&region.Collector{}, nil, workDir), Options{WorkingDir: workDir}).ExtractUnit(unit)
	assert.True(t, errors.Is(err, ErrInternal))
}

func TestInvalidLocationAborts(t *testing.T) {
	fn, _ := fakeFunction()
	fn.Body = &syntax.CompoundStmt{Span: syntax.Span(pos(1, 16), syntax.Position{})}
	unit := fakeUnit{decls: []syntax.Decl{fn}, parents: syntax.IndexParents(fn)}

	err := New(region.NewEmitter(&region.Collector{}, nil, workDir), Options{WorkingDir: workDir}).ExtractUnit(unit)
	assert.True(t, errors.Is(err, syntax.ErrInvalidLocation))
}
