// Package javascript holds the scanners for Node.js projects.
package javascript

import (
	"path"
	"strings"

	"archscan/internal/model"
	"archscan/internal/scanner"
)

const (
	language = "javascript"

	packageManager = "npm"
)

var sourcePatterns = []string{"**/*.js", "**/*.ts", "**/*.mjs", "**/*.cjs"}

// Register installs every JavaScript scanner.
func Register(r *scanner.Registry) error {
	return r.Register(
		NewNpmScanner(),
		NewExpressScanner(),
	)
}

// sourceFiles lists JavaScript and TypeScript sources, leaving out type
// declarations.
func sourceFiles(sc *scanner.Context) ([]string, error) {
	files, err := sc.FindAny(sourcePatterns...)
	if err != nil {
		return nil, err
	}
	out := files[:0:0]
	for _, f := range files {
		if !strings.HasSuffix(f, ".d.ts") {
			out = append(out, f)
		}
	}
	return out, nil
}

// moduleName is the file name without its extension.
func moduleName(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

func evidence(rel string, line int) *model.Evidence {
	return &model.Evidence{Filepath: rel, StartLine: line}
}
