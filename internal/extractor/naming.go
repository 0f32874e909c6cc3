package extractor

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// Namer builds the join key for declarations of one translation unit:
//
//	<function>, <variable>, decl <file>:<line>, unit <unit path>
//
// The exact shape is shared with the debug-info side of the coverage
// comparison and must not change.
type Namer struct {
	unit string
}

// NewNamer prepares a namer for the unit whose main file is mainFile
func NewNamer(workingDir, mainFile string) *Namer {
	return &Namer{unit: UnitPath(workingDir, mainFile)}
}

// Unit is the unit path written into every name
func (n *Namer) Unit() string { return n.unit }

// Name formats the key for a declaration owned by a function
func (n *Namer) Name(d syntax.Decl) (string, error) {
	fn, ok := d.DeclContext().(*syntax.FunctionDecl)
	if !ok {
		return "", fmt.Errorf("%w: %q is not declared inside a function", ErrUnsupportedContext, d.Name())
	}
	file, line, _, err := syntax.Resolve(d.Location())
	if err != nil {
		return "", fmt.Errorf("declaration of %q: %w", d.Name(), err)
	}

	var b strings.Builder
	b.WriteString(fn.Name())
	b.WriteString(", ")
	b.WriteString(d.Name())
	b.WriteString(", decl ")
	b.WriteString(filepath.Base(file))
	b.WriteString(":")
	b.WriteString(strconv.Itoa(line))
	b.WriteString(", unit ")
	b.WriteString(n.unit)
	return b.String(), nil
}

// UnitPath drops the leading path components mainFile shares with
// workingDir and strips the extension, so that preprocessed (.i) and
// original (.c) inputs produce the same unit name.
func UnitPath(workingDir, mainFile string) string {
	dir := pathComponents(workingDir)
	file := pathComponents(mainFile)

	i := 0
	for i < len(dir) && i < len(file) && dir[i] == file[i] {
		i++
	}
	rel := path.Join(file[i:]...)
	return strings.TrimSuffix(rel, path.Ext(rel))
}

// pathComponents splits a slash separated path; a leading root is its own
// component and empty components are skipped.
func pathComponents(p string) []string {
	slashed := filepath.ToSlash(p)
	var parts []string
	if strings.HasPrefix(slashed, "/") {
		parts = append(parts, "/")
	}
	for _, part := range strings.Split(slashed, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
