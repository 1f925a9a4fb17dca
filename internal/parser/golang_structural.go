//go:build cgo

package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

func goStructural() StructuralBackend {
	return &treeSitterBackend{
		language: golang.GetLanguage(),
		query: `
			(package_clause (package_identifier) @package)
			(import_spec path: (_) @import)
			(type_spec name: (type_identifier) type: (struct_type)) @struct
			(call_expression) @call
		`,
		sampleSrc: "package sample\n",
		visit:     visitGo,
	}
}

func visitGo(capture string, node *sitter.Node, src []byte) []Construct {
	switch capture {
	case "package":
		return []Construct{{Kind: KindPackage, Name: node.Content(src), Line: line(node)}}
	case "import":
		path, ok := Unquote(node.Content(src))
		if !ok {
			return nil
		}
		return []Construct{{Kind: KindImport, Name: path, Line: line(node)}}
	case "struct":
		return goStruct(node, src)
	case "call":
		return goCall(node, src)
	}
	return nil
}

func goStruct(node *sitter.Node, src []byte) []Construct {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return nil
	}
	return []Construct{{
		Kind:   KindStruct,
		Name:   nameNode.Content(src),
		Line:   line(node),
		Fields: goStructFields(typeNode, src),
	}}
}

func goStructFields(structNode *sitter.Node, src []byte) []Field {
	var fieldList *sitter.Node
	for i := 0; i < int(structNode.ChildCount()); i++ {
		child := structNode.Child(i)
		if child.Type() == "field_declaration_list" {
			fieldList = child
			break
		}
	}
	if fieldList == nil {
		return nil
	}

	var fields []Field
	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		decl := fieldList.NamedChild(i)
		if decl.Type() != "field_declaration" {
			continue
		}

		var fieldType, fieldTag string
		if t := decl.ChildByFieldName("type"); t != nil {
			fieldType = t.Content(src)
		}
		if t := decl.ChildByFieldName("tag"); t != nil {
			fieldTag = t.Content(src)
		}

		named := false
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			child := decl.NamedChild(j)
			if child.Type() == "field_identifier" {
				fields = append(fields, Field{Name: child.Content(src), Type: fieldType, Tag: fieldTag})
				named = true
			}
		}

		// Embedded field: the type doubles as the name.
		if !named && fieldType != "" {
			name := fieldType
			if dot := strings.LastIndex(name, "."); dot != -1 {
				name = name[dot+1:]
			}
			fields = append(fields, Field{Name: strings.TrimPrefix(name, "*"), Type: fieldType, Tag: fieldTag})
		}
	}
	return fields
}

func goCallRef(call *sitter.Node, src []byte) (CallRef, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "selector_expression" {
		return CallRef{}, false
	}
	ref := CallRef{}
	if op := fn.ChildByFieldName("operand"); op != nil {
		ref.Receiver = op.Content(src)
	}
	if f := fn.ChildByFieldName("field"); f != nil {
		ref.Name = f.Content(src)
	}
	if args := namedContents(call.ChildByFieldName("arguments"), src); len(args) > 0 {
		ref.FirstArg = args[0]
	}
	return ref, ref.Name != ""
}

func goCall(node *sitter.Node, src []byte) []Construct {
	ref, ok := goCallRef(node, src)
	if !ok {
		return nil
	}
	c := Construct{
		Kind:      KindCall,
		Name:      ref.Name,
		Receiver:  ref.Receiver,
		Line:      line(node),
		Args:      namedContents(node.ChildByFieldName("arguments"), src),
		Enclosing: enclosingCalls(node, src, "call_expression", "argument_list", goCallRef),
	}

	if list := node.Parent(); list != nil && list.Type() == "expression_list" {
		if decl := list.Parent(); decl != nil {
			switch decl.Type() {
			case "short_var_declaration", "assignment_statement":
				if sameNode(decl.ChildByFieldName("right"), list) {
					if left := decl.ChildByFieldName("left"); left != nil && left.NamedChildCount() > 0 {
						c.AssignedTo = left.NamedChild(0).Content(src)
					}
				}
			case "var_spec":
				if name := decl.ChildByFieldName("name"); name != nil {
					c.AssignedTo = name.Content(src)
				}
			}
		}
	}
	return []Construct{c}
}
