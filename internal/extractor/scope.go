package extractor

import "github.com/robert-at-pretension-io/dbgcov/internal/syntax"

// enclosingStatement climbs from n to the nearest ancestor that is a
// statement but not an expression. Declarations on the way (a variable whose
// initializer holds n) are climbed through.
func enclosingStatement(parents syntax.ParentResolver, n syntax.Node) (syntax.Stmt, bool) {
	cur := n
	for {
		parent, ok := parents.ParentOf(cur)
		if !ok {
			return nil, false
		}
		if stmt, isStmt := parent.(syntax.Stmt); isStmt {
			if _, isExpr := parent.(syntax.Expr); !isExpr {
				return stmt, true
			}
		}
		cur = parent
	}
}
