package syntax

// ParentResolver answers parent queries for nodes of one top-level declaration
type ParentResolver interface {
	// ParentOf returns the unique syntactic parent of n
	ParentOf(n Node) (Node, bool)
}

// Unit is one parsed translation unit as seen by the region extractor
type Unit interface {
	// MainFile is the path of the primary source file as it was given to the frontend
	MainFile() string
	TopLevelDecls() []Decl
	// Parents prepares parent queries for the subtree rooted at top
	Parents(top Decl) ParentResolver
}

// ParentIndex maps every node below a root to its parent
type ParentIndex map[Node]Node

func (p ParentIndex) ParentOf(n Node) (Node, bool) {
	parent, ok := p[n]
	return parent, ok
}

// IndexParents walks root and records the parent of every descendant
func IndexParents(root Node) ParentIndex {
	index := make(ParentIndex)
	stack := []Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range n.Children() {
			index[child] = n
			stack = append(stack, child)
		}
	}
	return index
}

func (u *TranslationUnit) MainFile() string      { return u.File }
func (u *TranslationUnit) TopLevelDecls() []Decl { return u.Decls }

func (u *TranslationUnit) Parents(top Decl) ParentResolver {
	return IndexParents(top)
}

// Inspect traverses the tree rooted at n in pre-order. If f returns false the
// children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, child := range n.Children() {
		Inspect(child, f)
	}
}
