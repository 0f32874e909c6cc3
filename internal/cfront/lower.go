package cfront

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// ============================================================================
// LOWERING - TREE-SITTER C TO CLANG SHAPED NODES
// ============================================================================
//
// Region tags and ranges must agree with what a Clang based tool reports for
// the same code, so lowering reproduces Clang's tree shapes rather than
// Tree-sitter's:
//   - expression statements are the expression itself
//   - a case label owns only the first statement after it
//   - if/while/do/switch conditions lose their parentheses
//   - case values, enumerator values and bit-field widths are ConstantExprs
//   - a range ends at the first byte of its last token, and statements end
//     before their terminating semicolon
//
// Names are bound while lowering. Anything not declared in the unit binds to
// an implicit external declaration.
// ============================================================================

// atomicTokens are named nodes that are a single token to a C compiler even
// though Tree-sitter gives them children
var atomicTokens = map[string]bool{
	"string_literal":     true,
	"char_literal":       true,
	"raw_string_literal": true,
	"system_lib_string":  true,
}

type lowerer struct {
	src      []byte
	lines    *lineMap
	tu       *syntax.TranslationUnit
	scope    *scope
	implicit map[string]syntax.Decl
	// fn is the function whose body is being lowered
	fn *syntax.FunctionDecl
}

func newLowerer(src []byte, lines *lineMap, path string) *lowerer {
	return &lowerer{
		src:      src,
		lines:    lines,
		tu:       &syntax.TranslationUnit{File: path},
		scope:    newScope(nil),
		implicit: make(map[string]syntax.Decl),
	}
}

// ----------------------------------------------------------------------------
// Positions
// ----------------------------------------------------------------------------

func (l *lowerer) pos(p sitter.Point) syntax.Position {
	file, line := l.lines.position(int(p.Row))
	return syntax.Position{File: file, Line: line, Col: int(p.Column) + 1}
}

func (l *lowerer) begin(n *sitter.Node) syntax.Position {
	return l.pos(n.StartPoint())
}

// end is the start of the last token of n
func (l *lowerer) end(n *sitter.Node) syntax.Position {
	return l.pos(lastToken(n).StartPoint())
}

func (l *lowerer) rangeOf(n *sitter.Node) syntax.Range {
	return syntax.Span(l.begin(n), l.end(n))
}

// endBefore is the end of n ignoring a trailing token of the given type,
// used for statements that Clang ends before their semicolon
func (l *lowerer) endBefore(n *sitter.Node, tok string) syntax.Position {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		child := n.Child(i)
		if skippable(child) || child.Type() == tok {
			continue
		}
		return l.end(child)
	}
	return l.begin(n)
}

func lastToken(n *sitter.Node) *sitter.Node {
	for !atomicTokens[n.Type()] {
		var next *sitter.Node
		for i := int(n.ChildCount()) - 1; i >= 0; i-- {
			if child := n.Child(i); !skippable(child) {
				next = child
				break
			}
		}
		if next == nil {
			break
		}
		n = next
	}
	return n
}

// skippable nodes carry no source tokens: comments and zero-width nodes
// inserted by error recovery
func skippable(n *sitter.Node) bool {
	return n.Type() == "comment" || n.IsMissing() || n.StartByte() == n.EndByte()
}

// ----------------------------------------------------------------------------
// Tree helpers
// ----------------------------------------------------------------------------

func (l *lowerer) text(n *sitter.Node) string {
	return n.Content(l.src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// fieldChildren returns every child stored under field, in order
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func isConditional(n *sitter.Node) bool {
	switch n.Type() {
	case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "preproc_elifdef":
		return true
	}
	return false
}

// forEachItem calls fn for the named children of n, looking through
// conditional compilation blocks: every branch is lowered, since the
// preprocessor configuration is unknown.
func forEachItem(n *sitter.Node, fn func(*sitter.Node)) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() || child.Type() == "comment" {
			continue
		}
		if isConditional(n) {
			if field := n.FieldNameForChild(i); field == "condition" || field == "name" {
				continue
			}
		}
		if isConditional(child) {
			forEachItem(child, fn)
			continue
		}
		fn(child)
	}
}

func (l *lowerer) context() syntax.DeclContext {
	if l.fn != nil {
		return l.fn
	}
	return l.tu
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (l *lowerer) lowerTranslationUnit(root *sitter.Node) *syntax.TranslationUnit {
	forEachItem(root, func(item *sitter.Node) {
		l.tu.Decls = append(l.tu.Decls, l.lowerTopLevel(item)...)
	})
	return l.tu
}

func (l *lowerer) lowerTopLevel(n *sitter.Node) []syntax.Decl {
	switch n.Type() {
	case "function_definition":
		return l.lowerFunctionDefinition(n)
	case "declaration":
		return l.lowerDeclaration(n)
	case "type_definition":
		return l.lowerTypedef(n)
	case "struct_specifier", "union_specifier", "enum_specifier":
		return l.lowerTagSpecifier(n)
	}
	// Preprocessor directives, stray statements from macro use at file
	// scope and error nodes declare nothing
	return nil
}

func (l *lowerer) lowerFunctionDefinition(n *sitter.Node) []syntax.Decl {
	declarator := n.ChildByFieldName("declarator")
	if declarator == nil {
		return nil
	}
	nameNode, _, params := declaratorName(declarator)

	fn := &syntax.FunctionDecl{DeclInfo: syntax.DeclInfo{
		Context: l.tu,
		Span:    l.rangeOf(n),
		NameLoc: l.begin(declarator),
	}}
	if nameNode != nil {
		fn.Ident = l.text(nameNode)
		fn.NameLoc = l.begin(nameNode)
	}
	l.scope.declare(fn)

	l.pushScope()
	outer := l.fn
	l.fn = fn
	if params != nil {
		fn.Params = l.lowerParams(params, fn)
		for _, p := range fn.Params {
			l.scope.declare(p)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil && body.Type() == "compound_statement" {
		fn.Body = l.lowerCompound(body)
	}
	l.fn = outer
	l.popScope()

	return []syntax.Decl{fn}
}

func (l *lowerer) lowerParams(list *sitter.Node, fn *syntax.FunctionDecl) []*syntax.ParmVarDecl {
	decls := namedChildren(list)
	var params []*syntax.ParmVarDecl
	for _, p := range decls {
		if p.Type() != "parameter_declaration" {
			continue
		}
		declarator := p.ChildByFieldName("declarator")
		if declarator == nil && len(decls) == 1 && l.isVoid(p.ChildByFieldName("type")) {
			// f(void) has no parameters
			continue
		}
		param := &syntax.ParmVarDecl{DeclInfo: syntax.DeclInfo{
			Context: fn,
			Span:    l.rangeOf(p),
			NameLoc: l.begin(p),
		}}
		if declarator != nil {
			if nameNode, _, _ := declaratorName(declarator); nameNode != nil {
				param.Ident = l.text(nameNode)
				param.NameLoc = l.begin(nameNode)
			}
		}
		params = append(params, param)
	}
	return params
}

func (l *lowerer) isVoid(typeNode *sitter.Node) bool {
	return typeNode != nil && l.text(typeNode) == "void"
}

// declaratorName finds the declared identifier inside a declarator and
// reports whether the declarator makes it a function, along with that
// function's parameter list
func declaratorName(d *sitter.Node) (name *sitter.Node, isFunc bool, params *sitter.Node) {
	wrapper := ""
	for d != nil {
		switch d.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return d, wrapper == "function_declarator", params
		case "function_declarator":
			wrapper = d.Type()
			params = d.ChildByFieldName("parameters")
			d = d.ChildByFieldName("declarator")
		case "pointer_declarator", "array_declarator", "init_declarator":
			wrapper = d.Type()
			d = d.ChildByFieldName("declarator")
		case "parenthesized_declarator", "attributed_declarator":
			d = firstNamedChild(d)
		default:
			return nil, false, nil
		}
	}
	return nil, false, nil
}

func (l *lowerer) storageClass(n *sitter.Node) syntax.StorageClass {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() != "storage_class_specifier" {
			continue
		}
		switch l.text(child) {
		case "static":
			return syntax.StorageStatic
		case "extern":
			return syntax.StorageExtern
		case "register":
			return syntax.StorageRegister
		case "auto":
			return syntax.StorageAuto
		}
	}
	return syntax.StorageNone
}

// lowerDeclaration lowers a declaration to one Decl per declarator, preceded
// by any struct, union or enum defined in its type
func (l *lowerer) lowerDeclaration(n *sitter.Node) []syntax.Decl {
	var decls []syntax.Decl
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		decls = append(decls, l.lowerTagSpecifier(typeNode)...)
	}
	storage := l.storageClass(n)
	for _, d := range fieldChildren(n, "declarator") {
		if decl := l.lowerDeclarator(n, d, storage); decl != nil {
			decls = append(decls, decl)
		}
	}
	return decls
}

func (l *lowerer) lowerDeclarator(declNode, d *sitter.Node, storage syntax.StorageClass) syntax.Decl {
	inner := d
	var init *sitter.Node
	if d.Type() == "init_declarator" {
		inner = d.ChildByFieldName("declarator")
		init = d.ChildByFieldName("value")
	}
	if inner == nil {
		return nil
	}
	nameNode, isFunc, params := declaratorName(inner)
	info := syntax.DeclInfo{
		Span:    syntax.Span(l.begin(declNode), l.end(d)),
		NameLoc: l.begin(inner),
	}
	if nameNode != nil {
		info.Ident = l.text(nameNode)
		info.NameLoc = l.begin(nameNode)
	}

	if isFunc {
		info.Context = l.tu
		fn := &syntax.FunctionDecl{DeclInfo: info}
		if params != nil {
			fn.Params = l.lowerParams(params, fn)
		}
		l.scope.declare(fn)
		return fn
	}

	info.Context = l.context()
	v := &syntax.VarDecl{DeclInfo: info, Storage: storage, Local: l.fn != nil}
	// The name is visible in its own initializer
	l.scope.declare(v)
	if init != nil {
		v.Init = l.lowerExpr(init)
	}
	return v
}

func (l *lowerer) lowerTypedef(n *sitter.Node) []syntax.Decl {
	var decls []syntax.Decl
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		decls = append(decls, l.lowerTagSpecifier(typeNode)...)
	}
	for _, d := range fieldChildren(n, "declarator") {
		td := &syntax.TypeDecl{
			DeclInfo: syntax.DeclInfo{
				Context: l.context(),
				Span:    syntax.Span(l.begin(n), l.end(d)),
				NameLoc: l.begin(d),
			},
			Tag: syntax.KindTypedefDecl,
		}
		if nameNode, _, _ := declaratorName(d); nameNode != nil {
			td.Ident = l.text(nameNode)
			td.NameLoc = l.begin(nameNode)
		}
		l.scope.declare(td)
		decls = append(decls, td)
	}
	return decls
}

// lowerTagSpecifier lowers a struct, union or enum definition. References to
// a tag without a body declare nothing.
func (l *lowerer) lowerTagSpecifier(n *sitter.Node) []syntax.Decl {
	tag := syntax.KindRecordDecl
	switch n.Type() {
	case "struct_specifier", "union_specifier":
	case "enum_specifier":
		tag = syntax.KindEnumDecl
	default:
		return nil
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	td := &syntax.TypeDecl{
		DeclInfo: syntax.DeclInfo{
			Context: l.context(),
			Span:    l.rangeOf(n),
			NameLoc: l.begin(n),
		},
		Tag: tag,
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		td.Ident = l.text(nameNode)
		td.NameLoc = l.begin(nameNode)
	}

	forEachItem(body, func(item *sitter.Node) {
		switch item.Type() {
		case "enumerator":
			td.Members = append(td.Members, l.lowerEnumerator(item, td))
		case "field_declaration":
			td.Members = append(td.Members, l.lowerFieldDeclaration(item, td)...)
		}
	})
	return []syntax.Decl{td}
}

func (l *lowerer) lowerEnumerator(n *sitter.Node, enum *syntax.TypeDecl) syntax.Decl {
	ec := &syntax.EnumConstantDecl{DeclInfo: syntax.DeclInfo{
		Context: enum,
		Span:    l.rangeOf(n),
		NameLoc: l.begin(n),
	}}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		ec.Ident = l.text(nameNode)
		ec.NameLoc = l.begin(nameNode)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		ec.Value = l.constant(value)
	}
	// Enumerators live in the enclosing ordinary scope
	l.scope.declare(ec)
	return ec
}

func (l *lowerer) lowerFieldDeclaration(n *sitter.Node, record *syntax.TypeDecl) []syntax.Decl {
	var decls []syntax.Decl
	if typeNode := n.ChildByFieldName("type"); typeNode != nil {
		decls = append(decls, l.lowerTagSpecifier(typeNode)...)
	}
	var width *sitter.Node
	for _, child := range namedChildren(n) {
		if child.Type() == "bitfield_clause" {
			width = firstNamedChild(child)
		}
	}
	for _, d := range fieldChildren(n, "declarator") {
		fd := &syntax.FieldDecl{DeclInfo: syntax.DeclInfo{
			Context: record,
			Span:    syntax.Span(l.begin(n), l.end(d)),
			NameLoc: l.begin(d),
		}}
		if nameNode, _, _ := declaratorName(d); nameNode != nil {
			fd.Ident = l.text(nameNode)
			fd.NameLoc = l.begin(nameNode)
		}
		if width != nil {
			fd.Width = l.constant(width)
		}
		decls = append(decls, fd)
	}
	return decls
}

// constant wraps a compile-time expression
func (l *lowerer) constant(n *sitter.Node) *syntax.ConstantExpr {
	sub := l.lowerExpr(n)
	if sub == nil {
		return nil
	}
	return &syntax.ConstantExpr{Span: sub.Range(), Sub: sub}
}
