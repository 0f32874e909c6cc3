package cfront

import "github.com/robert-at-pretension-io/dbgcov/internal/syntax"

// scope is one level of ordinary identifier bindings (variables,
// functions, typedef names, enumerators)
type scope struct {
	parent *scope
	names  map[string]syntax.Decl
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]syntax.Decl)}
}

func (s *scope) declare(d syntax.Decl) {
	if d.Name() == "" {
		return
	}
	s.names[d.Name()] = d
}

func (s *scope) lookup(name string) (syntax.Decl, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if d, ok := cur.names[name]; ok {
			return d, true
		}
	}
	return nil, false
}

func (l *lowerer) pushScope() { l.scope = newScope(l.scope) }
func (l *lowerer) popScope()  { l.scope = l.scope.parent }

// resolve binds a name to its declaration. Names with no visible
// declaration (library functions known only through headers that were not
// parsed, macros) bind to an implicit declaration owned by the translation
// unit, so they never count as function locals.
func (l *lowerer) resolve(name string) syntax.Decl {
	if d, ok := l.scope.lookup(name); ok {
		return d
	}
	if d, ok := l.implicit[name]; ok {
		return d
	}
	d := &syntax.VarDecl{DeclInfo: syntax.DeclInfo{Ident: name, Context: l.tu}, Storage: syntax.StorageExtern}
	l.implicit[name] = d
	return d
}
