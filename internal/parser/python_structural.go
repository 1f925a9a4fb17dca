//go:build cgo

package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

func pythonStructural() StructuralBackend {
	return &treeSitterBackend{
		language: python.GetLanguage(),
		query: `
			(import_statement) @import
			(import_from_statement) @import_from
			(class_definition) @class
			(function_definition) @function
			(call) @call
		`,
		sampleSrc: "sample = 1\n",
		visit:     visitPython,
	}
}

func visitPython(capture string, node *sitter.Node, src []byte) []Construct {
	switch capture {
	case "import":
		var out []Construct
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			name := child
			if child.Type() == "aliased_import" {
				name = child.ChildByFieldName("name")
			}
			if name != nil {
				out = append(out, Construct{Kind: KindImport, Name: name.Content(src), Line: line(node)})
			}
		}
		return out
	case "import_from":
		if m := node.ChildByFieldName("module_name"); m != nil {
			return []Construct{{Kind: KindImport, Name: m.Content(src), Line: line(node)}}
		}
	case "class":
		name := node.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return []Construct{{
			Kind:       KindClass,
			Name:       name.Content(src),
			Line:       line(node),
			Bases:      namedContents(node.ChildByFieldName("superclasses"), src),
			Decorators: pythonDecorators(node, src),
		}}
	case "function":
		name := node.ChildByFieldName("name")
		if name == nil {
			return nil
		}
		return []Construct{{
			Kind:       KindFunction,
			Name:       name.Content(src),
			Line:       line(node),
			Decorators: pythonDecorators(node, src),
		}}
	case "call":
		return pythonCall(node, src)
	}
	return nil
}

func pythonDecorators(def *sitter.Node, src []byte) []string {
	parent := def.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var out []string
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() == "decorator" {
			out = append(out, trimDecorator(child.Content(src)))
		}
	}
	return out
}

func pythonCallRef(call *sitter.Node, src []byte) (CallRef, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return CallRef{}, false
	}
	ref := CallRef{}
	switch fn.Type() {
	case "attribute":
		if obj := fn.ChildByFieldName("object"); obj != nil {
			ref.Receiver = obj.Content(src)
		}
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			ref.Name = attr.Content(src)
		}
	case "identifier":
		ref.Name = fn.Content(src)
	default:
		return CallRef{}, false
	}
	if args := call.ChildByFieldName("arguments"); args != nil && args.Type() == "argument_list" {
		if items := namedContents(args, src); len(items) > 0 {
			ref.FirstArg = items[0]
		}
	}
	return ref, ref.Name != ""
}

func pythonCall(node *sitter.Node, src []byte) []Construct {
	ref, ok := pythonCallRef(node, src)
	if !ok {
		return nil
	}
	c := Construct{
		Kind:      KindCall,
		Name:      ref.Name,
		Receiver:  ref.Receiver,
		Line:      line(node),
		Enclosing: enclosingCalls(node, src, "call", "argument_list", pythonCallRef),
	}
	if args := node.ChildByFieldName("arguments"); args != nil && args.Type() == "argument_list" {
		c.Args = namedContents(args, src)
	}
	if parent := node.Parent(); parent != nil && parent.Type() == "assignment" && sameNode(parent.ChildByFieldName("right"), node) {
		if left := parent.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			c.AssignedTo = left.Content(src)
		}
	}
	return []Construct{c}
}
