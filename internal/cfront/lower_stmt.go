package cfront

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// blockItem is a lowered statement, or a case/default label still waiting
// for the statement it owns
type blockItem struct {
	stmt  syntax.Stmt
	label func(sub syntax.Stmt) syntax.Stmt
}

func (l *lowerer) lowerCompound(n *sitter.Node) *syntax.CompoundStmt {
	l.pushScope()
	defer l.popScope()

	var items []blockItem
	forEachItem(n, func(item *sitter.Node) {
		items = append(items, l.lowerBlockItem(item)...)
	})
	return &syntax.CompoundStmt{Span: l.rangeOf(n), List: attachLabels(items)}
}

// attachLabels gives every label the statement right after it, so that
// "case 1: case 2: x();" nests as case 1 -> case 2 -> x()
func attachLabels(items []blockItem) []syntax.Stmt {
	reversed := make([]syntax.Stmt, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.label == nil {
			reversed = append(reversed, item.stmt)
			continue
		}
		var sub syntax.Stmt
		if n := len(reversed); n > 0 {
			sub = reversed[n-1]
			reversed = reversed[:n-1]
		}
		reversed = append(reversed, item.label(sub))
	}
	out := make([]syntax.Stmt, len(reversed))
	for i, s := range reversed {
		out[len(reversed)-1-i] = s
	}
	return out
}

func (l *lowerer) lowerBlockItem(n *sitter.Node) []blockItem {
	switch n.Type() {
	case "case_statement":
		return l.lowerCase(n)
	case "declaration":
		return stmtItem(&syntax.DeclStmt{Span: l.rangeOf(n), Decls: l.lowerDeclaration(n)})
	case "type_definition":
		return stmtItem(&syntax.DeclStmt{Span: l.rangeOf(n), Decls: l.lowerTypedef(n)})
	case "struct_specifier", "union_specifier", "enum_specifier":
		decls := l.lowerTagSpecifier(n)
		if len(decls) == 0 {
			return nil
		}
		return stmtItem(&syntax.DeclStmt{Span: l.rangeOf(n), Decls: decls})
	case "function_definition", "preproc_include", "preproc_def", "preproc_function_def", "preproc_call":
		// Nested function definitions (a GNU extension) and directives
		return nil
	}
	if s := l.lowerStmt(n); s != nil {
		return stmtItem(s)
	}
	return nil
}

func stmtItem(s syntax.Stmt) []blockItem {
	return []blockItem{{stmt: s}}
}

// lowerCase splits a Tree-sitter case into the label and the statements
// that follow it
func (l *lowerer) lowerCase(n *sitter.Node) []blockItem {
	value := n.ChildByFieldName("value")
	var constant *syntax.ConstantExpr
	if value != nil {
		constant = l.constant(value)
	}

	begin := l.begin(n)
	colon := begin
	var body []blockItem
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == ":" && len(body) == 0 {
			colon = l.begin(child)
			continue
		}
		if !child.IsNamed() || child.Type() == "comment" || n.FieldNameForChild(i) == "value" {
			continue
		}
		if isConditional(child) {
			forEachItem(child, func(item *sitter.Node) {
				body = append(body, l.lowerBlockItem(item)...)
			})
			continue
		}
		body = append(body, l.lowerBlockItem(child)...)
	}

	label := blockItem{label: func(sub syntax.Stmt) syntax.Stmt {
		end := colon
		if sub != nil {
			end = sub.Range().End
		}
		if value == nil {
			return &syntax.DefaultStmt{Span: syntax.Span(begin, end), Sub: sub}
		}
		return &syntax.CaseStmt{Span: syntax.Span(begin, end), Value: constant, Sub: sub}
	}}
	return append([]blockItem{label}, body...)
}

// lowerStmt lowers a statement that stands on its own
func (l *lowerer) lowerStmt(n *sitter.Node) syntax.Stmt {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "compound_statement":
		return l.lowerCompound(n)

	case "expression_statement":
		expr := firstNamedChild(n)
		if expr == nil {
			return &syntax.NullStmt{Span: l.rangeOf(n)}
		}
		if expr.Type() == "gnu_asm_expression" {
			return l.lowerAsm(expr)
		}
		if e := l.lowerExpr(expr); e != nil {
			return e
		}
		return nil

	case "if_statement":
		s := &syntax.IfStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Then: l.lowerStmt(n.ChildByFieldName("consequence")),
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = firstNamedChild(alt)
			}
			s.Else = l.lowerStmt(alt)
		}
		last := s.Then
		if s.Else != nil {
			last = s.Else
		}
		s.Span = l.spanTo(n, last)
		return s

	case "for_statement":
		l.pushScope()
		defer l.popScope()
		s := &syntax.ForStmt{}
		if init := n.ChildByFieldName("initializer"); init != nil {
			if init.Type() == "declaration" {
				s.Init = &syntax.DeclStmt{Span: l.rangeOf(init), Decls: l.lowerDeclaration(init)}
			} else if e := l.lowerExpr(init); e != nil {
				s.Init = e
			}
		}
		s.Cond = l.lowerExpr(n.ChildByFieldName("condition"))
		s.Inc = l.lowerExpr(n.ChildByFieldName("update"))
		s.Body = l.lowerStmt(n.ChildByFieldName("body"))
		s.Span = l.spanTo(n, s.Body)
		return s

	case "while_statement":
		s := &syntax.WhileStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Body: l.lowerStmt(n.ChildByFieldName("body")),
		}
		s.Span = l.spanTo(n, s.Body)
		return s

	case "do_statement":
		return &syntax.DoStmt{
			Span: syntax.Span(l.begin(n), l.endBefore(n, ";")),
			Body: l.lowerStmt(n.ChildByFieldName("body")),
			Cond: l.condition(n.ChildByFieldName("condition")),
		}

	case "switch_statement":
		s := &syntax.SwitchStmt{
			Cond: l.condition(n.ChildByFieldName("condition")),
			Body: l.lowerStmt(n.ChildByFieldName("body")),
		}
		s.Span = l.spanTo(n, s.Body)
		return s

	case "return_statement":
		s := &syntax.ReturnStmt{Span: syntax.Span(l.begin(n), l.endBefore(n, ";"))}
		if result := firstNamedChild(n); result != nil {
			s.Result = l.lowerExpr(result)
		}
		return s

	case "break_statement":
		return &syntax.BreakStmt{Span: syntax.Span(l.begin(n), l.endBefore(n, ";"))}

	case "continue_statement":
		return &syntax.ContinueStmt{Span: syntax.Span(l.begin(n), l.endBefore(n, ";"))}

	case "goto_statement":
		s := &syntax.GotoStmt{Span: syntax.Span(l.begin(n), l.endBefore(n, ";"))}
		if label := n.ChildByFieldName("label"); label != nil {
			s.Label = l.text(label)
		}
		return s

	case "labeled_statement":
		s := &syntax.LabelStmt{}
		labelNode := n.ChildByFieldName("label")
		if labelNode != nil {
			s.Label = l.text(labelNode)
		}
		children := namedChildren(n)
		if last := children[len(children)-1]; labelNode == nil || last.StartByte() != labelNode.StartByte() {
			if last.Type() == "declaration" {
				s.Sub = &syntax.DeclStmt{Span: l.rangeOf(last), Decls: l.lowerDeclaration(last)}
			} else {
				s.Sub = l.lowerStmt(last)
			}
		}
		s.Span = l.spanTo(n, s.Sub)
		return s

	case "case_statement":
		stmts := attachLabels(l.lowerCase(n))
		if len(stmts) == 0 {
			return nil
		}
		return stmts[0]

	case "declaration":
		return &syntax.DeclStmt{Span: l.rangeOf(n), Decls: l.lowerDeclaration(n)}

	case "attributed_statement":
		children := namedChildren(n)
		if len(children) == 0 {
			return nil
		}
		return l.lowerStmt(children[len(children)-1])
	}

	// ERROR nodes and constructs outside C (SEH, C++) stay opaque
	return &syntax.OpaqueStmt{Span: l.rangeOf(n)}
}

// spanTo runs from the start of n to the end of its trailing sub-statement,
// which for statements ending in a semicolon is not the last token of n
func (l *lowerer) spanTo(n *sitter.Node, last syntax.Stmt) syntax.Range {
	if last == nil {
		return l.rangeOf(n)
	}
	return syntax.Span(l.begin(n), last.Range().End)
}

// condition strips the parentheses Clang does not keep around conditions
func (l *lowerer) condition(n *sitter.Node) syntax.Expr {
	if n == nil {
		return nil
	}
	if n.Type() == "parenthesized_expression" {
		if inner := firstNamedChild(n); inner != nil {
			return l.lowerExpr(inner)
		}
		return nil
	}
	return l.lowerExpr(n)
}

// lowerAsm lowers GNU inline assembly; the operand expressions are its
// only children
func (l *lowerer) lowerAsm(n *sitter.Node) syntax.Stmt {
	s := &syntax.AsmStmt{Span: l.rangeOf(n)}
	for _, list := range namedChildren(n) {
		switch list.Type() {
		case "gnu_asm_output_operand_list", "gnu_asm_input_operand_list":
		default:
			continue
		}
		for _, operand := range namedChildren(list) {
			if value := operand.ChildByFieldName("value"); value != nil {
				if e := l.lowerExpr(value); e != nil {
					s.Operands = append(s.Operands, e)
				}
			}
		}
	}
	return s
}
