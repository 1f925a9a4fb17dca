//go:build cgo

package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// treeSitterBackend runs one tree-sitter query over a file and hands every
// capture to a language-specific visitor.
type treeSitterBackend struct {
	language  *sitter.Language
	query     string
	sampleSrc string
	visit     func(capture string, node *sitter.Node, src []byte) []Construct

	compiled *sitter.Query
}

// SelfCheck compiles the query and parses a tiny snippet. The engine calls it once,
// before any Parse.
func (b *treeSitterBackend) SelfCheck() error {
	if b.language == nil {
		return errors.New("grammar not loaded")
	}
	q, err := sitter.NewQuery([]byte(b.query), b.language)
	if err != nil {
		return fmt.Errorf("failed to create query: %w", err)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(b.language)
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(b.sampleSrc))
	if err != nil {
		return fmt.Errorf("self-check parse failed: %w", err)
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		return fmt.Errorf("%w in self-check snippet", ErrSyntax)
	}

	b.compiled = q
	return nil
}

func (b *treeSitterBackend) Parse(ctx context.Context, src []byte) ([]Construct, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(b.language)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w near line %d", ErrSyntax, firstErrorLine(root))
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(b.compiled, root)

	var out []Construct
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			name := b.compiled.CaptureNameForId(c.Index)
			out = append(out, b.visit(name, c.Node, src)...)
		}
	}
	return out, nil
}

func firstErrorLine(n *sitter.Node) int {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// namedContents returns the text of every named child except comments.
func namedContents(n *sitter.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child.Content(src))
	}
	return out
}

// enclosingCalls walks up from node and records every call whose argument
// list contains it, innermost first.
func enclosingCalls(node *sitter.Node, src []byte, callType, argsType string, ref func(*sitter.Node, []byte) (CallRef, bool)) []CallRef {
	var out []CallRef
	child := node
	for a := node.Parent(); a != nil; child, a = a, a.Parent() {
		if a.Type() != callType || child.Type() != argsType {
			continue
		}
		if r, ok := ref(a, src); ok {
			out = append(out, r)
		}
	}
	return out
}

func trimDecorator(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@"))
}
