package cfront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/robert-at-pretension-io/dbgcov/internal/syntax"
)

// ErrSyntax is returned in strict mode when the source does not parse cleanly
var ErrSyntax = errors.New("syntax error")

// Options configures a Frontend
type Options struct {
	// Strict rejects sources with syntax errors instead of lowering the
	// unparseable parts to opaque statements
	Strict bool
	// HonorLineMarkers applies #line directives and preprocessor line
	// markers to reported positions
	HonorLineMarkers bool
}

// Frontend parses C sources with Tree-sitter and lowers them to the syntax
// model. A Frontend is not safe for concurrent use.
type Frontend struct {
	parser *sitter.Parser
	opts   Options
}

// New creates a Frontend for C
func New(opts Options) *Frontend {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	return &Frontend{parser: parser, opts: opts}
}

// ParseFile reads and parses one translation unit
func (f *Frontend) ParseFile(ctx context.Context, path string) (*syntax.TranslationUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return f.Parse(ctx, path, content)
}

// Parse lowers src, naming it path in every position
func (f *Frontend) Parse(ctx context.Context, path string, src []byte) (*syntax.TranslationUnit, error) {
	cleaned, lines := scanLineMarkers(src, path, f.opts.HonorLineMarkers)

	tree, err := f.parser.ParseCtx(ctx, nil, cleaned)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	l := newLowerer(cleaned, lines, path)
	if f.opts.Strict && root.HasError() {
		if bad := firstError(root); bad != nil {
			return nil, fmt.Errorf("%w at %s near %q", ErrSyntax, l.begin(bad), snippet(bad.Content(cleaned)))
		}
	}
	return l.lowerTranslationUnit(root), nil
}

// DumpTree writes the raw Tree-sitter parse of src, one node per line with
// its field name and position
func (f *Frontend) DumpTree(ctx context.Context, w io.Writer, src []byte) error {
	cleaned, _ := scanLineMarkers(src, "", false)
	tree, err := f.parser.ParseCtx(ctx, nil, cleaned)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()
	return dumpNode(w, tree.RootNode(), "", 0)
}

func dumpNode(w io.Writer, n *sitter.Node, field string, depth int) error {
	label := n.Type()
	if field != "" {
		label = field + ": " + label
	}
	if n.IsMissing() {
		label += " (MISSING)"
	}
	start := n.StartPoint()
	if _, err := fmt.Fprintf(w, "%s%s [%d:%d]\n", strings.Repeat("  ", depth), label, start.Row+1, start.Column+1); err != nil {
		return err
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			continue
		}
		if err := dumpNode(w, child, n.FieldNameForChild(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func snippet(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
