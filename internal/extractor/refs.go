package extractor

import "github.com/robert-at-pretension-io/dbgcov/internal/syntax"

// allReferences returns every DeclRefExpr below root, root included. The
// walk uses an explicit stack and never enters a ConstantExpr. Results come
// out in stack order, which is not source order.
func allReferences(root syntax.Expr) []*syntax.DeclRefExpr {
	if root == nil {
		return nil
	}
	var refs []*syntax.DeclRefExpr
	stack := []syntax.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Kind() == syntax.KindConstantExpr {
			continue
		}
		stack = append(stack, n.Children()...)
		if ref, ok := n.(*syntax.DeclRefExpr); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// leadingReference follows first children down from expr while they are
// expressions and returns the DeclRefExpr it lands on, if any. It only looks
// at the head of the argument: in f(a + b) it finds a, never b.
func leadingReference(expr syntax.Expr) (*syntax.DeclRefExpr, bool) {
	cur := expr
	for cur != nil {
		if ref, ok := cur.(*syntax.DeclRefExpr); ok {
			return ref, true
		}
		children := cur.Children()
		if len(children) == 0 {
			return nil, false
		}
		next, ok := children[0].(syntax.Expr)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}
