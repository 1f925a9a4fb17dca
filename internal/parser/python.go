package parser

import (
	"regexp"
	"strings"
)

// NewPythonEngine returns the Python engine.
func NewPythonEngine() *Engine {
	return NewEngine("python", pythonStructural(), PatternFunc(parsePythonPatterns))
}

var (
	pyImportRe     = regexp.MustCompile(`^import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	pyFromImportRe = regexp.MustCompile(`^from\s+([\w.]+)\s+import\b`)
	pyClassRe      = regexp.MustCompile(`^class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyDefRe        = regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)\s*\(`)
	pyDecoratorRe  = regexp.MustCompile(`^@(.+)$`)
	pyCallRe       = regexp.MustCompile(`(?:\b(\w+)\s*=\s*)?\b([A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*)\(`)
)

func parsePythonPatterns(src []byte) []Construct {
	text := string(src)
	lines := strings.Split(text, "\n")
	var out []Construct
	var pending []string

	offset := 0
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		lineOffset := offset
		offset += len(raw) + 1

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := pyDecoratorRe.FindStringSubmatch(line); m != nil {
			pending = append(pending, strings.TrimSpace(m[1]))
			out = append(out, parsePythonCalls(text, lineOffset+strings.Index(raw, "@")+1, lineOffset+len(raw))...)
			continue
		}
		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			out = append(out, Construct{Kind: KindFunction, Name: m[1], Line: lineNo, Decorators: pending})
			pending = nil
			continue
		}
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			c := Construct{Kind: KindClass, Name: m[1], Line: lineNo, Decorators: pending}
			for _, b := range strings.Split(m[2], ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.Bases = append(c.Bases, b)
				}
			}
			out = append(out, c)
			pending = nil
			continue
		}
		pending = nil

		if m := pyFromImportRe.FindStringSubmatch(line); m != nil {
			out = append(out, Construct{Kind: KindImport, Name: m[1], Line: lineNo})
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				out = append(out, Construct{Kind: KindImport, Name: strings.TrimSpace(name), Line: lineNo})
			}
			continue
		}

		out = append(out, parsePythonCalls(text, lineOffset, lineOffset+len(raw))...)
	}
	return out
}

// parsePythonCalls finds calls starting within text[from:to]. Arguments may
// span several lines.
func parsePythonCalls(text string, from, to int) []Construct {
	var out []Construct
	segment := text[from:to]
	for _, m := range pyCallRe.FindAllStringSubmatchIndex(segment, -1) {
		if strings.Contains(segment[:m[0]], "#") {
			break
		}
		name := segment[m[4]:m[5]]
		call := Construct{Kind: KindCall, Line: lineAt(text, from+m[0])}
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			call.Receiver, call.Name = name[:dot], name[dot+1:]
		} else {
			call.Name = name
		}
		if isPythonKeyword(call.Name) && call.Receiver == "" {
			continue
		}
		if m[2] >= 0 {
			call.AssignedTo = segment[m[2]:m[3]]
		}
		args, end := splitArgs(text, from+m[1]-1)
		if end < 0 {
			continue
		}
		call.Args = args
		out = append(out, call)
	}
	return out
}

func isPythonKeyword(name string) bool {
	switch name {
	case "if", "elif", "while", "for", "return", "print", "assert", "not", "and", "or", "in", "with", "lambda", "yield":
		return true
	}
	return false
}
