package parser

import (
	"regexp"
	"strings"
)

// NewGoEngine returns the Go engine.
func NewGoEngine() *Engine {
	return NewEngine("go", goStructural(), PatternFunc(parseGoPatterns))
}

var (
	goPackageRe     = regexp.MustCompile(`(?m)^package\s+(\w+)`)
	goImportBlockRe = regexp.MustCompile(`(?s)import\s*\(([^)]*)\)`)
	goImportLineRe  = regexp.MustCompile(`(?m)^\s*(?:[\w.]+\s+)?"([^"]+)"`)
	goImportOneRe   = regexp.MustCompile(`(?m)^import\s+(?:[\w.]+\s+)?"([^"]+)"`)
	goStructRe      = regexp.MustCompile("(?s)type\\s+(\\w+)\\s+struct\\s*\\{([^}]*)\\}")
	goFieldRe       = regexp.MustCompile("^(\\w+(?:\\s*,\\s*\\w+)*)\\s+([^\\s`]+)\\s*(`[^`]*`)?")
	goEmbeddedRe    = regexp.MustCompile("^(\\*?[\\w.]+)\\s*(`[^`]*`)?$")
	goCallRe        = regexp.MustCompile(`(?:(\w+)\s*:?=\s*)?\b([A-Za-z_][\w]*(?:\.[A-Za-z_]\w*)*)\.([A-Za-z_]\w*)\(`)
	goChainRe       = regexp.MustCompile(`^\s*\.([A-Za-z_]\w*)\(`)
)

func parseGoPatterns(src []byte) []Construct {
	text := string(src)
	var out []Construct

	if m := goPackageRe.FindStringSubmatchIndex(text); m != nil {
		out = append(out, Construct{Kind: KindPackage, Name: text[m[2]:m[3]], Line: lineAt(text, m[0])})
	}

	for _, block := range goImportBlockRe.FindAllStringSubmatchIndex(text, -1) {
		body := text[block[2]:block[3]]
		for _, m := range goImportLineRe.FindAllStringSubmatchIndex(body, -1) {
			out = append(out, Construct{Kind: KindImport, Name: body[m[2]:m[3]], Line: lineAt(text, block[2]+m[0])})
		}
	}
	for _, m := range goImportOneRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Construct{Kind: KindImport, Name: text[m[2]:m[3]], Line: lineAt(text, m[0])})
	}

	for _, m := range goStructRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Construct{
			Kind:   KindStruct,
			Name:   text[m[2]:m[3]],
			Line:   lineAt(text, m[0]),
			Fields: parseGoFieldLines(text[m[4]:m[5]]),
		})
	}

	out = append(out, parseGoCalls(text)...)
	return out
}

func parseGoFieldLines(body string) []Field {
	var fields []Field
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "//"); i >= 0 && !strings.Contains(line[:i], "`") {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		if m := goEmbeddedRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if dot := strings.LastIndex(name, "."); dot >= 0 {
				name = name[dot+1:]
			}
			fields = append(fields, Field{Name: strings.TrimPrefix(name, "*"), Type: m[1], Tag: m[2]})
			continue
		}
		if m := goFieldRe.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				fields = append(fields, Field{Name: strings.TrimSpace(name), Type: m[2], Tag: m[3]})
			}
		}
	}
	return fields
}

// parseGoCalls finds selector calls such as r.GET("/x", h) including chained
// calls like r.HandleFunc("/x", h).Methods("GET").
func parseGoCalls(text string) []Construct {
	var out []Construct
	for _, m := range goCallRe.FindAllStringSubmatchIndex(text, -1) {
		if inLineComment(text, m[0]) {
			continue
		}
		call := Construct{
			Kind:     KindCall,
			Receiver: text[m[4]:m[5]],
			Name:     text[m[6]:m[7]],
			Line:     lineAt(text, m[0]),
		}
		if m[2] >= 0 {
			call.AssignedTo = text[m[2]:m[3]]
		}
		callStart := m[4]
		args, end := splitArgs(text, m[1]-1)
		if end < 0 {
			continue
		}
		call.Args = args
		head := len(out)
		out = append(out, call)

		for {
			cm := goChainRe.FindStringSubmatchIndex(text[end:])
			if cm == nil {
				break
			}
			chained := Construct{
				Kind:     KindCall,
				Receiver: text[callStart:end],
				Name:     text[end+cm[2] : end+cm[3]],
				Line:     lineAt(text, end),
			}
			args, next := splitArgs(text, end+cm[1]-1)
			if next < 0 {
				break
			}
			chained.Args = args
			out = append(out, chained)
			end = next
		}
		// The assignment receives the value of the outermost call in a chain.
		if last := len(out) - 1; last > head {
			out[last].AssignedTo, out[head].AssignedTo = out[head].AssignedTo, ""
		}
	}
	return out
}

func inLineComment(text string, offset int) bool {
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return strings.Contains(text[lineStart:offset], "//")
}
