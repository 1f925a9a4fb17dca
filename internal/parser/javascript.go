package parser

import (
	"regexp"
	"strings"
)

// NewJavaScriptEngine returns the JavaScript engine. TypeScript sources are
// routed here as well; the structural grammar rejects type annotations, so
// those files take the pattern path.
func NewJavaScriptEngine() *Engine {
	return NewEngine("javascript", javascriptStructural(), PatternFunc(parseJavaScriptPatterns))
}

var (
	jsImportFromRe = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'";]+?\s+from\s+)?['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`\brequire\(\s*['"]([^'"]+)['"]\s*\)`)
	jsCallRe       = regexp.MustCompile(`(?:\b(?:const|let|var)\s+(\w+)\s*=\s*(?:await\s+)?|\b(\w+)\s*=\s*)?\b([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\.([A-Za-z_$][\w$]*)\(`)
	jsChainRe      = regexp.MustCompile(`^\s*\.([A-Za-z_$][\w$]*)\(`)
)

func parseJavaScriptPatterns(src []byte) []Construct {
	text := string(src)
	var out []Construct

	for _, m := range jsImportFromRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Construct{Kind: KindImport, Name: text[m[2]:m[3]], Line: lineAt(text, m[0])})
	}
	for _, m := range jsRequireRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Construct{Kind: KindImport, Name: text[m[2]:m[3]], Line: lineAt(text, m[0])})
	}

	for _, m := range jsCallRe.FindAllStringSubmatchIndex(text, -1) {
		if inLineComment(text, m[0]) {
			continue
		}
		call := Construct{
			Kind:     KindCall,
			Receiver: text[m[6]:m[7]],
			Name:     text[m[8]:m[9]],
			Line:     lineAt(text, m[0]),
		}
		switch {
		case m[2] >= 0:
			call.AssignedTo = text[m[2]:m[3]]
		case m[4] >= 0:
			call.AssignedTo = text[m[4]:m[5]]
		}
		callStart := m[6]
		args, end := splitArgs(text, m[1]-1)
		if end < 0 {
			continue
		}
		call.Args = args
		out = append(out, call)

		for {
			cm := jsChainRe.FindStringSubmatchIndex(text[end:])
			if cm == nil {
				break
			}
			chained := Construct{
				Kind:     KindCall,
				Receiver: strings.TrimSpace(text[callStart:end]),
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
	}
	return out
}
