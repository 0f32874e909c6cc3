package syntax

// ============================================================================
// SYNTAX MODEL
// ============================================================================
//
// A closed set of node types mirroring the shapes of Clang's C AST, which is
// what downstream coverage tooling compares against. Ranges and kind names
// must therefore match what a Clang based tool would report for the same
// source. Frontends build these values; nothing in this package parses.
//
// Every Expr is also a Stmt. Decls are not statements; they are reached
// through DeclStmt, FunctionDecl parameters and TypeDecl members.
// ============================================================================

// Node is any element of the syntax tree
type Node interface {
	Kind() Kind
	Range() Range
	Children() []Node
}

// Stmt is a statement node
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node
type Expr interface {
	Stmt
	exprNode()
}

// Decl is a named declaration
type Decl interface {
	Node
	Name() string
	// Location is the position of the declared name
	Location() Position
	DeclContext() DeclContext
	declNode()
}

// DeclContext is the entity a declaration lives in: the translation unit,
// a function or a record/enum.
type DeclContext interface {
	ContextKind() Kind
}

// StorageClass of a variable declaration
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageStatic
	StorageExtern
	StorageRegister
	StorageAuto
)

func (s StorageClass) String() string {
	switch s {
	case StorageStatic:
		return "static"
	case StorageExtern:
		return "extern"
	case StorageRegister:
		return "register"
	case StorageAuto:
		return "auto"
	}
	return ""
}

// DeclInfo holds the fields shared by all declarations
type DeclInfo struct {
	Ident   string
	NameLoc Position
	Context DeclContext
	Span    Range
}

func (d *DeclInfo) Name() string             { return d.Ident }
func (d *DeclInfo) Location() Position       { return d.NameLoc }
func (d *DeclInfo) DeclContext() DeclContext { return d.Context }
func (d *DeclInfo) Range() Range             { return d.Span }
func (d *DeclInfo) declNode()                {}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// TranslationUnit is the root of one parsed source file
type TranslationUnit struct {
	File  string
	Decls []Decl
}

func (u *TranslationUnit) ContextKind() Kind { return KindTranslationUnitDecl }

// FunctionDecl is a function definition or prototype
type FunctionDecl struct {
	DeclInfo
	Params []*ParmVarDecl
	// Body is nil for prototypes
	Body *CompoundStmt
}

func (d *FunctionDecl) Kind() Kind        { return KindFunctionDecl }
func (d *FunctionDecl) ContextKind() Kind { return KindFunctionDecl }

func (d *FunctionDecl) Children() []Node {
	out := make([]Node, 0, len(d.Params)+1)
	for _, p := range d.Params {
		out = append(out, p)
	}
	if d.Body != nil {
		out = append(out, d.Body)
	}
	return out
}

// VarDecl is a variable declaration, global or local
type VarDecl struct {
	DeclInfo
	Storage StorageClass
	// Local is set for variables declared inside a function body
	Local bool
	Init  Expr
}

func (d *VarDecl) Kind() Kind { return KindVarDecl }

func (d *VarDecl) Children() []Node {
	if d.Init == nil {
		return nil
	}
	return []Node{d.Init}
}

// IsLocal reports whether the variable has block scope
func (d *VarDecl) IsLocal() bool { return d.Local }

// IsStaticLocal reports whether the variable is a block scope static
func (d *VarDecl) IsStaticLocal() bool { return d.Local && d.Storage == StorageStatic }

// HasInit reports whether the declaration carries an initializer
func (d *VarDecl) HasInit() bool { return d.Init != nil }

// ParmVarDecl is a function parameter
type ParmVarDecl struct {
	DeclInfo
}

func (d *ParmVarDecl) Kind() Kind       { return KindParmVarDecl }
func (d *ParmVarDecl) Children() []Node { return nil }

// TypeDecl is a typedef, struct/union or enum declaration
type TypeDecl struct {
	DeclInfo
	Tag     Kind
	Members []Decl
}

func (d *TypeDecl) Kind() Kind        { return d.Tag }
func (d *TypeDecl) ContextKind() Kind { return d.Tag }

func (d *TypeDecl) Children() []Node {
	out := make([]Node, 0, len(d.Members))
	for _, m := range d.Members {
		out = append(out, m)
	}
	return out
}

// FieldDecl is a struct or union member
type FieldDecl struct {
	DeclInfo
	// Width is the bit-field width, if any
	Width *ConstantExpr
}

func (d *FieldDecl) Kind() Kind { return KindFieldDecl }

func (d *FieldDecl) Children() []Node {
	if d.Width == nil {
		return nil
	}
	return []Node{d.Width}
}

// EnumConstantDecl is an enumerator
type EnumConstantDecl struct {
	DeclInfo
	Value *ConstantExpr
}

func (d *EnumConstantDecl) Kind() Kind { return KindEnumConstantDecl }

func (d *EnumConstantDecl) Children() []Node {
	if d.Value == nil {
		return nil
	}
	return []Node{d.Value}
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

type CompoundStmt struct {
	Span Range
	List []Stmt
}

type DeclStmt struct {
	Span  Range
	Decls []Decl
}

type IfStmt struct {
	Span Range
	Cond Expr
	Then Stmt
	Else Stmt
}

type ForStmt struct {
	Span Range
	Init Stmt
	Cond Expr
	Inc  Expr
	Body Stmt
}

type WhileStmt struct {
	Span Range
	Cond Expr
	Body Stmt
}

type DoStmt struct {
	Span Range
	Body Stmt
	Cond Expr
}

type SwitchStmt struct {
	Span Range
	Cond Expr
	Body Stmt
}

type CaseStmt struct {
	Span  Range
	Value *ConstantExpr
	Sub   Stmt
}

type DefaultStmt struct {
	Span Range
	Sub  Stmt
}

type LabelStmt struct {
	Span  Range
	Label string
	Sub   Stmt
}

type GotoStmt struct {
	Span  Range
	Label string
}

type ReturnStmt struct {
	Span   Range
	Result Expr
}

type BreakStmt struct{ Span Range }

type ContinueStmt struct{ Span Range }

type NullStmt struct{ Span Range }

// AsmStmt is a GNU inline assembly statement; Operands are the input and
// output operand expressions.
type AsmStmt struct {
	Span     Range
	Operands []Expr
}

// OpaqueStmt stands in for source the frontend could not parse
type OpaqueStmt struct {
	Span Range
}

func (s *CompoundStmt) Kind() Kind   { return KindCompoundStmt }
func (s *DeclStmt) Kind() Kind       { return KindDeclStmt }
func (s *IfStmt) Kind() Kind         { return KindIfStmt }
func (s *ForStmt) Kind() Kind        { return KindForStmt }
func (s *WhileStmt) Kind() Kind      { return KindWhileStmt }
func (s *DoStmt) Kind() Kind         { return KindDoStmt }
func (s *SwitchStmt) Kind() Kind     { return KindSwitchStmt }
func (s *CaseStmt) Kind() Kind       { return KindCaseStmt }
func (s *DefaultStmt) Kind() Kind    { return KindDefaultStmt }
func (s *LabelStmt) Kind() Kind      { return KindLabelStmt }
func (s *GotoStmt) Kind() Kind       { return KindGotoStmt }
func (s *ReturnStmt) Kind() Kind     { return KindReturnStmt }
func (s *BreakStmt) Kind() Kind      { return KindBreakStmt }
func (s *ContinueStmt) Kind() Kind   { return KindContinueStmt }
func (s *NullStmt) Kind() Kind       { return KindNullStmt }
func (s *AsmStmt) Kind() Kind        { return KindGCCAsmStmt }
func (s *OpaqueStmt) Kind() Kind     { return KindOpaqueStmt }
func (s *CompoundStmt) Range() Range { return s.Span }
func (s *DeclStmt) Range() Range     { return s.Span }
func (s *IfStmt) Range() Range       { return s.Span }
func (s *ForStmt) Range() Range      { return s.Span }
func (s *WhileStmt) Range() Range    { return s.Span }
func (s *DoStmt) Range() Range       { return s.Span }
func (s *SwitchStmt) Range() Range   { return s.Span }
func (s *CaseStmt) Range() Range     { return s.Span }
func (s *DefaultStmt) Range() Range  { return s.Span }
func (s *LabelStmt) Range() Range    { return s.Span }
func (s *GotoStmt) Range() Range     { return s.Span }
func (s *ReturnStmt) Range() Range   { return s.Span }
func (s *BreakStmt) Range() Range    { return s.Span }
func (s *ContinueStmt) Range() Range { return s.Span }
func (s *NullStmt) Range() Range     { return s.Span }
func (s *AsmStmt) Range() Range      { return s.Span }
func (s *OpaqueStmt) Range() Range   { return s.Span }
func (*CompoundStmt) stmtNode()      {}
func (*DeclStmt) stmtNode()          {}
func (*IfStmt) stmtNode()            {}
func (*ForStmt) stmtNode()           {}
func (*WhileStmt) stmtNode()         {}
func (*DoStmt) stmtNode()            {}
func (*SwitchStmt) stmtNode()        {}
func (*CaseStmt) stmtNode()          {}
func (*DefaultStmt) stmtNode()       {}
func (*LabelStmt) stmtNode()         {}
func (*GotoStmt) stmtNode()          {}
func (*ReturnStmt) stmtNode()        {}
func (*BreakStmt) stmtNode()         {}
func (*ContinueStmt) stmtNode()      {}
func (*NullStmt) stmtNode()          {}
func (*AsmStmt) stmtNode()           {}
func (*OpaqueStmt) stmtNode()        {}

func (s *CompoundStmt) Children() []Node {
	out := make([]Node, 0, len(s.List))
	for _, st := range s.List {
		out = append(out, st)
	}
	return out
}

func (s *DeclStmt) Children() []Node {
	out := make([]Node, 0, len(s.Decls))
	for _, d := range s.Decls {
		out = append(out, d)
	}
	return out
}

func (s *IfStmt) Children() []Node     { return nodes(s.Cond, s.Then, s.Else) }
func (s *ForStmt) Children() []Node    { return nodes(s.Init, s.Cond, s.Inc, s.Body) }
func (s *WhileStmt) Children() []Node  { return nodes(s.Cond, s.Body) }
func (s *DoStmt) Children() []Node     { return nodes(s.Body, s.Cond) }
func (s *SwitchStmt) Children() []Node { return nodes(s.Cond, s.Body) }

func (s *CaseStmt) Children() []Node {
	if s.Value == nil {
		return nodes(s.Sub)
	}
	return nodes(s.Value, s.Sub)
}

func (s *DefaultStmt) Children() []Node  { return nodes(s.Sub) }
func (s *LabelStmt) Children() []Node    { return nodes(s.Sub) }
func (s *GotoStmt) Children() []Node     { return nil }
func (s *ReturnStmt) Children() []Node   { return nodes(s.Result) }
func (s *BreakStmt) Children() []Node    { return nil }
func (s *ContinueStmt) Children() []Node { return nil }
func (s *NullStmt) Children() []Node     { return nil }
func (s *OpaqueStmt) Children() []Node   { return nil }

func (s *AsmStmt) Children() []Node {
	out := make([]Node, 0, len(s.Operands))
	for _, e := range s.Operands {
		out = append(out, e)
	}
	return out
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// DeclRefExpr names a declaration. Ref is never nil: frontends bind
// unresolved names to implicit translation unit declarations.
type DeclRefExpr struct {
	Span  Range
	Ident string
	Ref   Decl
}

// BinaryOperator covers arithmetic, logical, comma and assignment operators
type BinaryOperator struct {
	Span Range
	Op   string
	LHS  Expr
	RHS  Expr
}

type CallExpr struct {
	Span   Range
	Callee Expr
	Args   []Expr
}

// ConstantExpr wraps an expression evaluated at compile time
type ConstantExpr struct {
	Span Range
	Sub  Expr
}

// StmtExpr is a GNU statement expression
type StmtExpr struct {
	Span Range
	Body *CompoundStmt
}

// OperatorExpr is every other expression, tagged by its kind
type OperatorExpr struct {
	Tag      Kind
	Span     Range
	Op       string
	Operands []Expr
}

func (e *DeclRefExpr) Kind() Kind      { return KindDeclRefExpr }
func (e *BinaryOperator) Kind() Kind   { return KindBinaryOperator }
func (e *CallExpr) Kind() Kind         { return KindCallExpr }
func (e *ConstantExpr) Kind() Kind     { return KindConstantExpr }
func (e *StmtExpr) Kind() Kind         { return KindStmtExpr }
func (e *OperatorExpr) Kind() Kind     { return e.Tag }
func (e *DeclRefExpr) Range() Range    { return e.Span }
func (e *BinaryOperator) Range() Range { return e.Span }
func (e *CallExpr) Range() Range       { return e.Span }
func (e *ConstantExpr) Range() Range   { return e.Span }
func (e *StmtExpr) Range() Range       { return e.Span }
func (e *OperatorExpr) Range() Range   { return e.Span }
func (*DeclRefExpr) stmtNode()        {}
func (*BinaryOperator) stmtNode()     {}
func (*CallExpr) stmtNode()           {}
func (*ConstantExpr) stmtNode()       {}
func (*StmtExpr) stmtNode()           {}
func (*OperatorExpr) stmtNode()       {}
func (*DeclRefExpr) exprNode()        {}
func (*BinaryOperator) exprNode()     {}
func (*CallExpr) exprNode()           {}
func (*ConstantExpr) exprNode()       {}
func (*StmtExpr) exprNode()           {}
func (*OperatorExpr) exprNode()       {}

func (e *DeclRefExpr) Children() []Node    { return nil }
func (e *BinaryOperator) Children() []Node { return nodes(e.LHS, e.RHS) }
func (e *ConstantExpr) Children() []Node   { return nodes(e.Sub) }

func (e *CallExpr) Children() []Node {
	out := make([]Node, 0, len(e.Args)+1)
	if e.Callee != nil {
		out = append(out, e.Callee)
	}
	for _, a := range e.Args {
		out = append(out, a)
	}
	return out
}

func (e *StmtExpr) Children() []Node {
	if e.Body == nil {
		return nil
	}
	return []Node{e.Body}
}

func (e *OperatorExpr) Children() []Node {
	out := make([]Node, 0, len(e.Operands))
	for _, o := range e.Operands {
		out = append(out, o)
	}
	return out
}

// IsAssignment reports whether the operator is simple or compound assignment
func (e *BinaryOperator) IsAssignment() bool {
	switch e.Op {
	case "=", "*=", "/=", "%=", "+=", "-=", "<<=", ">>=", "&=", "^=", "|=":
		return true
	}
	return false
}

// nodes collects the non-nil statements among ss
func nodes(ss ...Stmt) []Node {
	out := make([]Node, 0, len(ss))
	for _, s := range ss {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
