//go:build cgo

package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

func javascriptStructural() StructuralBackend {
	return &treeSitterBackend{
		language: javascript.GetLanguage(),
		query: `
			(import_statement source: (string) @import)
			(call_expression) @call
		`,
		sampleSrc: "let sample = 1;\n",
		visit:     visitJavaScript,
	}
}

func visitJavaScript(capture string, node *sitter.Node, src []byte) []Construct {
	switch capture {
	case "import":
		if path, ok := Unquote(node.Content(src)); ok {
			return []Construct{{Kind: KindImport, Name: path, Line: line(node)}}
		}
	case "call":
		return javascriptCall(node, src)
	}
	return nil
}

func javascriptCallRef(call *sitter.Node, src []byte) (CallRef, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return CallRef{}, false
	}
	ref := CallRef{}
	switch fn.Type() {
	case "member_expression":
		if obj := fn.ChildByFieldName("object"); obj != nil {
			ref.Receiver = obj.Content(src)
		}
		if prop := fn.ChildByFieldName("property"); prop != nil {
			ref.Name = prop.Content(src)
		}
	case "identifier":
		ref.Name = fn.Content(src)
	default:
		return CallRef{}, false
	}
	if args := namedContents(call.ChildByFieldName("arguments"), src); len(args) > 0 {
		ref.FirstArg = args[0]
	}
	return ref, ref.Name != ""
}

func javascriptCall(node *sitter.Node, src []byte) []Construct {
	ref, ok := javascriptCallRef(node, src)
	if !ok {
		return nil
	}
	c := Construct{
		Kind:      KindCall,
		Name:      ref.Name,
		Receiver:  ref.Receiver,
		Line:      line(node),
		Args:      namedContents(node.ChildByFieldName("arguments"), src),
		Enclosing: enclosingCalls(node, src, "call_expression", "arguments", javascriptCallRef),
	}

	target := node
	parent := node.Parent()
	if parent != nil && parent.Type() == "await_expression" {
		target, parent = parent, parent.Parent()
	}
	if parent != nil {
		switch parent.Type() {
		case "variable_declarator":
			if sameNode(parent.ChildByFieldName("value"), target) {
				if name := parent.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
					c.AssignedTo = name.Content(src)
				}
			}
		case "assignment_expression":
			if sameNode(parent.ChildByFieldName("right"), target) {
				if left := parent.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
					c.AssignedTo = left.Content(src)
				}
			}
		}
	}

	out := []Construct{c}
	if ref.Receiver == "" && ref.Name == "require" {
		if path, ok := c.StringArg(0); ok {
			out = append(out, Construct{Kind: KindImport, Name: path, Line: c.Line})
		}
	}
	return out
}
