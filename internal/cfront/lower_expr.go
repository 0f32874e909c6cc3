package cfront

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// lowerExpr lowers an expression. It returns nil only for a nil node.
func (l *lowerer) lowerExpr(n *sitter.Node) syntax.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return l.ref(n)

	case "number_literal":
		if isFloatLiteral(l.text(n)) {
			return l.op(syntax.KindFloatingLiteral, n, "")
		}
		return l.op(syntax.KindIntegerLiteral, n, "")
	case "char_literal":
		return l.op(syntax.KindCharacterLiteral, n, "")
	case "string_literal", "concatenated_string", "raw_string_literal":
		return l.op(syntax.KindStringLiteral, n, "")
	case "true", "false", "null":
		return l.op(syntax.KindIntegerLiteral, n, "")

	case "parenthesized_expression":
		inner := firstNamedChild(n)
		if inner != nil && inner.Type() == "compound_statement" {
			return &syntax.StmtExpr{Span: l.rangeOf(n), Body: l.lowerCompound(inner)}
		}
		return l.op(syntax.KindParenExpr, n, "", l.lowerExpr(inner))

	case "assignment_expression", "binary_expression":
		return &syntax.BinaryOperator{
			Span: l.rangeOf(n),
			Op:   l.fieldText(n, "operator"),
			LHS:  l.lowerExpr(n.ChildByFieldName("left")),
			RHS:  l.lowerExpr(n.ChildByFieldName("right")),
		}
	case "comma_expression":
		return &syntax.BinaryOperator{
			Span: l.rangeOf(n),
			Op:   ",",
			LHS:  l.lowerExpr(n.ChildByFieldName("left")),
			RHS:  l.lowerExpr(n.ChildByFieldName("right")),
		}

	case "unary_expression", "pointer_expression", "update_expression":
		return l.op(syntax.KindUnaryOperator, n, l.fieldText(n, "operator"), l.lowerExpr(n.ChildByFieldName("argument")))
	case "extension_expression":
		return l.op(syntax.KindUnaryOperator, n, "__extension__", l.lowerExpr(firstNamedChild(n)))

	case "cast_expression":
		return l.op(syntax.KindCStyleCastExpr, n, "", l.lowerExpr(n.ChildByFieldName("value")))

	case "sizeof_expression", "alignof_expression":
		if value := n.ChildByFieldName("value"); value != nil {
			return l.op(syntax.KindUnaryExprOrTypeTraitExpr, n, "", l.lowerExpr(value))
		}
		return l.op(syntax.KindUnaryExprOrTypeTraitExpr, n, "", l.typeOperand(n.ChildByFieldName("type")))

	case "offsetof_expression":
		return l.op(syntax.KindOffsetOfExpr, n, "")

	case "subscript_expression":
		return l.op(syntax.KindArraySubscriptExpr, n, "",
			l.lowerExpr(n.ChildByFieldName("argument")),
			l.lowerExpr(n.ChildByFieldName("index")))

	case "field_expression":
		return l.op(syntax.KindMemberExpr, n, l.fieldText(n, "operator"), l.lowerExpr(n.ChildByFieldName("argument")))

	case "call_expression":
		return l.lowerCall(n)

	case "conditional_expression":
		return l.op(syntax.KindConditionalOperator, n, "?:",
			l.lowerExpr(n.ChildByFieldName("condition")),
			l.lowerExpr(n.ChildByFieldName("consequence")),
			l.lowerExpr(n.ChildByFieldName("alternative")))

	case "compound_literal_expression":
		return l.op(syntax.KindCompoundLiteralExpr, n, "", l.lowerExpr(n.ChildByFieldName("value")))

	case "initializer_list":
		var elems []syntax.Expr
		for _, child := range namedChildren(n) {
			elems = append(elems, l.lowerExpr(child))
		}
		return l.op(syntax.KindInitListExpr, n, "", elems...)

	case "initializer_pair":
		return l.op(syntax.KindDesignatedInitExpr, n, "", l.lowerExpr(n.ChildByFieldName("value")))

	case "generic_expression":
		var operands []syntax.Expr
		for _, child := range namedChildren(n) {
			if child.Type() != "type_descriptor" {
				operands = append(operands, l.lowerExpr(child))
			}
		}
		return l.op(syntax.KindGenericSelectionExpr, n, "", operands...)

	case "compound_statement":
		// Macro arguments may be whole blocks
		return &syntax.StmtExpr{Span: l.rangeOf(n), Body: l.lowerCompound(n)}

	case "gnu_asm_expression":
		asm := l.lowerAsm(n).(*syntax.AsmStmt)
		return l.op(syntax.KindRecoveryExpr, n, "asm", asm.Operands...)
	}

	// ERROR nodes and anything this frontend does not model
	return l.op(syntax.KindRecoveryExpr, n, "")
}

func (l *lowerer) ref(n *sitter.Node) *syntax.DeclRefExpr {
	name := l.text(n)
	return &syntax.DeclRefExpr{Span: l.rangeOf(n), Ident: name, Ref: l.resolve(name)}
}

func (l *lowerer) fieldText(n *sitter.Node, field string) string {
	if child := n.ChildByFieldName(field); child != nil {
		return l.text(child)
	}
	return ""
}

// typeOperand recovers sizeof(x) where the grammar could not tell that x
// names a variable rather than a type
func (l *lowerer) typeOperand(n *sitter.Node) syntax.Expr {
	if n == nil || n.Type() != "type_descriptor" || n.NamedChildCount() != 1 {
		return nil
	}
	ident := n.NamedChild(0)
	if ident.Type() != "type_identifier" {
		return nil
	}
	d, ok := l.scope.lookup(l.text(ident))
	if !ok {
		return nil
	}
	switch d.(type) {
	case *syntax.VarDecl, *syntax.ParmVarDecl:
		return &syntax.DeclRefExpr{Span: l.rangeOf(ident), Ident: d.Name(), Ref: d}
	}
	return nil
}

// lowerCall lowers a call, recognising the builtins Clang gives their own
// expression kinds
func (l *lowerer) lowerCall(n *sitter.Node) syntax.Expr {
	callee := n.ChildByFieldName("function")
	var args []*sitter.Node
	if list := n.ChildByFieldName("arguments"); list != nil {
		args = namedChildren(list)
	}

	if callee != nil && callee.Type() == "identifier" {
		switch l.text(callee) {
		case "va_arg", "__builtin_va_arg":
			// The second argument is a type
			var list syntax.Expr
			if len(args) > 0 {
				list = l.lowerExpr(args[0])
			}
			return l.op(syntax.KindVAArgExpr, n, "", list)
		case "__builtin_choose_expr":
			operands := make([]syntax.Expr, 0, len(args))
			for _, a := range args {
				operands = append(operands, l.lowerExpr(a))
			}
			return l.op(syntax.KindChooseExpr, n, "", operands...)
		}
	}

	call := &syntax.CallExpr{Span: l.rangeOf(n), Callee: l.lowerExpr(callee)}
	for _, a := range args {
		call.Args = append(call.Args, l.lowerExpr(a))
	}
	return call
}

// op builds a generic expression node, dropping absent operands
func (l *lowerer) op(kind syntax.Kind, n *sitter.Node, operator string, operands ...syntax.Expr) *syntax.OperatorExpr {
	e := &syntax.OperatorExpr{Tag: kind, Span: l.rangeOf(n), Op: operator}
	for _, o := range operands {
		if o != nil {
			e.Operands = append(e.Operands, o)
		}
	}
	return e
}
