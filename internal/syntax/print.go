package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented dump of the tree rooted at n, one node per line:
// kind, range and the name or operator where the node has one.
func Fprint(w io.Writer, n Node) error {
	return fprint(w, n, 0)
}

func fprint(w io.Writer, n Node, depth int) error {
	line := fmt.Sprintf("%s%s <%d:%d, %d:%d>", strings.Repeat("  ", depth), n.Kind(),
		n.Range().Begin.Line, n.Range().Begin.Col, n.Range().End.Line, n.Range().End.Col)
	if label := nodeLabel(n); label != "" {
		line += " " + label
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := fprint(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func nodeLabel(n Node) string {
	switch v := n.(type) {
	case *VarDecl:
		label := v.Ident
		if v.Storage != StorageNone {
			label = v.Storage.String() + " " + label
		}
		if v.Local {
			label += " local"
		}
		return label
	case Decl:
		return v.Name()
	case *DeclRefExpr:
		if v.Ref == nil {
			return v.Ident
		}
		return fmt.Sprintf("%s -> %s", v.Ident, v.Ref.Kind())
	case *BinaryOperator:
		return "'" + v.Op + "'"
	case *OperatorExpr:
		if v.Op != "" {
			return "'" + v.Op + "'"
		}
	case *LabelStmt:
		return v.Label
	case *GotoStmt:
		return v.Label
	}
	return ""
}
