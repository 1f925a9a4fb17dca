// Package golang holds the scanners for Go projects.
package golang

import (
	"path"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

const (
	language  = "go"
	goSources = "**/*.go"
)

// Register installs every Go scanner.
func Register(r *scanner.Registry) error {
	return r.Register(
		NewModScanner(),
		NewRouterScanner(),
		NewStructScanner(),
		NewKafkaScanner(),
	)
}

// sourceFiles lists non-test Go files.
func sourceFiles(sc *scanner.Context) ([]string, error) {
	files, err := sc.FindFiles(goSources)
	if err != nil {
		return nil, err
	}
	out := files[:0:0]
	for _, f := range files {
		if !strings.HasSuffix(f, "_test.go") {
			out = append(out, f)
		}
	}
	return out, nil
}

// packageName returns the declared package of a parsed file, or the name of
// its directory when the file has no package clause.
func packageName(rel string, res parser.Result) string {
	if pkgs := res.Of(parser.KindPackage); len(pkgs) > 0 {
		return pkgs[0].Name
	}
	dir := path.Base(path.Dir(rel))
	if dir == "." || dir == "/" {
		return "main"
	}
	return dir
}

func imports(res parser.Result) []string {
	var out []string
	for _, c := range res.Of(parser.KindImport) {
		out = append(out, c.Name)
	}
	return out
}

func importsAny(res parser.Result, prefixes ...string) bool {
	for _, imp := range imports(res) {
		for _, p := range prefixes {
			if imp == p || strings.HasPrefix(imp, p+"/") {
				return true
			}
		}
	}
	return false
}

func evidence(rel string, line int) *model.Evidence {
	return &model.Evidence{Filepath: rel, StartLine: line}
}
