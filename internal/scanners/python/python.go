// Package python holds the scanners for Python projects.
package python

import (
	"path"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

const (
	language  = "python"
	pySources = "**/*.py"
)

// Register installs every Python scanner.
func Register(r *scanner.Registry) error {
	return r.Register(
		NewDependencyScanner(),
		NewFastAPIScanner(),
		NewFlaskScanner(),
		NewSQLAlchemyScanner(),
	)
}

// moduleName is the file name without the .py extension.
func moduleName(rel string) string {
	return strings.TrimSuffix(path.Base(rel), ".py")
}

func evidence(rel string, line int) *model.Evidence {
	return &model.Evidence{Filepath: rel, StartLine: line}
}

// handlerAt returns the first function defined at or after line, which for a
// decorator call is the function it decorates.
func handlerAt(res parser.Result, line int) string {
	for _, f := range res.Of(parser.KindFunction) {
		if f.Line >= line {
			return f.Name
		}
	}
	return ""
}

// joinPath concatenates URL prefixes the way routing frameworks mount them.
func joinPath(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	out := b.String()
	if last := parts[len(parts)-1]; strings.HasSuffix(last, "/") && last != "/" {
		out += "/"
	}
	return out
}

// receivers maps variables assigned from one of the constructors to the
// prefix passed as keyword to that constructor. Fallback names are
// recognised even when the constructor call is out of sight.
func receivers(res parser.Result, constructors map[string]bool, prefixKeyword string, fallback ...string) map[string]string {
	out := make(map[string]string, len(fallback))
	for _, name := range fallback {
		out[name] = ""
	}
	for _, c := range res.Of(parser.KindCall) {
		if c.AssignedTo == "" || !constructors[c.Name] {
			continue
		}
		prefix := ""
		if v, ok := c.KeywordArg(prefixKeyword); ok {
			prefix, _ = parser.Unquote(v)
		}
		out[c.AssignedTo] = prefix
	}
	return out
}

// mounts applies include calls such as app.include_router(router, prefix="/v1")
// on top of the receivers' own prefixes.
func mounts(res parser.Result, recv map[string]string, include, prefixKeyword string) map[string]string {
	out := make(map[string]string, len(recv))
	for name, prefix := range recv {
		out[name] = prefix
	}
	for _, c := range res.Of(parser.KindCall) {
		if c.Name != include {
			continue
		}
		target, ok := c.PositionalArg(0)
		if !ok {
			continue
		}
		if _, known := recv[target]; !known {
			continue
		}
		v, ok := c.KeywordArg(prefixKeyword)
		if !ok {
			continue
		}
		mount, ok := parser.Unquote(v)
		if !ok {
			continue
		}
		out[target] = joinPath(recv[c.Receiver], mount, recv[target])
	}
	return out
}
