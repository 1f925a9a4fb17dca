//go:build !cgo

package parser

// The tree-sitter grammars need cgo. Without it every engine is pattern-only
// and availability checks report Unavailable.

func goStructural() StructuralBackend { return nil }

func pythonStructural() StructuralBackend { return nil }

func javascriptStructural() StructuralBackend { return nil }
