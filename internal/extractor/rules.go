package extractor

import "github.com/robert-at-pretension-io/dbgcov/internal/syntax"

// discovery selects the reference handling a construct needs beyond its
// plain Computation region
type discovery int

const (
	discoverNone discovery = iota
	// assignments define their left-hand side and touch their right-hand side
	discoverAssignment
	// call arguments may already be defined at the call
	discoverCallArguments
	// local variables get a scope and, when initialized, a definition
	discoverLocalVariable
	// function bodies get prologue/epilogue markers and parameter regions
	discoverFunction
)

// clause is a sub-node of a construct that gets its own tagged region
type clause struct {
	tag  string
	pick func(syntax.Node) syntax.Node
}

// rule says what a construct kind contributes to the output
type rule struct {
	// tag of the Computation region over the whole construct; empty if none
	tag      string
	clauses  []clause
	discover discovery
}

// computationKinds have run-time effect wherever they appear. The list
// includes C++ kinds so a C++ capable frontend is covered by the same table.
var computationKinds = []syntax.Kind{
	syntax.KindArraySubscriptExpr,
	syntax.KindCXXConstructExpr,
	syntax.KindCXXDefaultArgExpr,
	syntax.KindCXXFoldExpr,
	syntax.KindCXXInheritedCtorInitExpr,
	syntax.KindCXXNewExpr,
	syntax.KindCXXPseudoDestructorExpr,
	syntax.KindCXXScalarValueInitExpr,
	syntax.KindCXXTypeidExpr,
	syntax.KindChooseExpr,
	syntax.KindDeclRefExpr,
	syntax.KindGenericSelectionExpr,
	syntax.KindLambdaExpr,
	syntax.KindMaterializeTemporaryExpr,
	syntax.KindMemberExpr,
	syntax.KindOpaqueValueExpr,
	syntax.KindPseudoObjectExpr,
	syntax.KindUnaryOperator,
	syntax.KindVAArgExpr,
	syntax.KindBreakStmt,
	syntax.KindContinueStmt,
	syntax.KindGotoStmt,
	syntax.KindReturnStmt,
}

var rules = buildRules()

func buildRules() map[syntax.Kind]rule {
	table := make(map[syntax.Kind]rule, len(computationKinds)+10)
	for _, k := range computationKinds {
		table[k] = rule{tag: k.String()}
	}

	table[syntax.KindBinaryOperator] = rule{
		tag:      syntax.KindBinaryOperator.String(),
		discover: discoverAssignment,
	}
	table[syntax.KindCallExpr] = rule{
		clauses: []clause{
			{tag: "CallExpr.Callee", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.CallExpr).Callee) }},
		},
		discover: discoverCallArguments,
	}
	table[syntax.KindVarDecl] = rule{discover: discoverLocalVariable}
	table[syntax.KindFunctionDecl] = rule{discover: discoverFunction}

	table[syntax.KindDoStmt] = rule{clauses: []clause{
		{tag: "DoStmt.Cond", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.DoStmt).Cond) }},
	}}
	table[syntax.KindForStmt] = rule{clauses: []clause{
		{tag: "ForStmt.Init", pick: func(n syntax.Node) syntax.Node { return stmtNode(n.(*syntax.ForStmt).Init) }},
		{tag: "ForStmt.Cond", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.ForStmt).Cond) }},
		{tag: "ForStmt.Inc", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.ForStmt).Inc) }},
	}}
	table[syntax.KindIfStmt] = rule{clauses: []clause{
		{tag: "IfStmt.Cond", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.IfStmt).Cond) }},
	}}
	table[syntax.KindSwitchStmt] = rule{clauses: []clause{
		{tag: "SwitchStmt.Cond", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.SwitchStmt).Cond) }},
	}}
	table[syntax.KindWhileStmt] = rule{clauses: []clause{
		{tag: "WhileStmt.Cond", pick: func(n syntax.Node) syntax.Node { return exprNode(n.(*syntax.WhileStmt).Cond) }},
	}}
	return table
}

// exprNode and stmtNode keep absent clauses as untyped nil
func exprNode(e syntax.Expr) syntax.Node {
	if e == nil {
		return nil
	}
	return e
}

func stmtNode(s syntax.Stmt) syntax.Node {
	if s == nil {
		return nil
	}
	return s
}
