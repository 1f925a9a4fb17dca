package golang

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// ModScanner reads module identity and requirements from go.mod files.
type ModScanner struct {
	scanner.Base
}

func NewModScanner() *ModScanner {
	return &ModScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "go-modules",
		DisplayName:  "Go Module Scanner",
		Languages:    []string{"go"},
		FilePatterns: []string{"**/go.mod"},
		Priority:     scanner.PriorityDependencies,
	}}}
}

var (
	modModuleRe  = regexp.MustCompile(`(?m)^module\s+([\w./-]+)`)
	modBlockRe   = regexp.MustCompile(`(?s)require\s*\(([^)]+)\)`)
	modSingleRe  = regexp.MustCompile(`(?m)^require\s+([\w./-]+)\s+(v[\w.+-]+)(.*)$`)
	modLineRe    = regexp.MustCompile(`(?m)^[ \t]*([\w./-]+)[ \t]+(v[\w.+-]+)(.*)$`)
	modGoVersion = regexp.MustCompile(`(?m)^go\s+([\d.]+)`)
)

// goMod is the part of a go.mod file the scanner cares about.
type goMod struct {
	module    string
	goVersion string
	requires  []goRequire
}

type goRequire struct {
	path, version string
	indirect      bool
	line          int
}

func (s *ModScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindFiles("**/go.mod")
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder().Discovered(len(files))

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.FileScanned()
		data, err := sc.ReadFile(rel)
		if err != nil {
			stats.Failed("read_error", err.Error())
			result.Warnf("cannot read %s: %v", rel, err)
			continue
		}

		mod, parseErr := parseGoMod(rel, data)
		level := confidence.High
		if parseErr != nil {
			stats.ParsedWithFallback().AddError("gomod_parse_error", parseErr.Error())
			mod = parseGoModPatterns(data)
			level = confidence.Medium
		} else {
			stats.ParsedSuccessfully()
		}

		if mod.module == "" {
			result.Warnf("%s has no module declaration", rel)
			mod.module = "unknown"
		}
		s.collect(result, rel, mod, level)
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("modules", len(result.Components)).
		Int("dependencies", len(result.Dependencies)).
		Msg("go modules scanned")
	return result, nil
}

func (s *ModScanner) collect(result *scanner.Result, rel string, mod goMod, level confidence.Level) {
	metadata := map[string]string{
		"modulePath":     mod.module,
		"packageManager": "go",
	}
	if mod.goVersion != "" {
		metadata["goVersion"] = mod.goVersion
	}
	result.Components = append(result.Components, model.Component{
		ID:          model.StableID("go", mod.module),
		Name:        shortName(mod.module),
		Type:        model.ComponentService,
		Description: "Go module: " + mod.module,
		Technology:  "go",
		Repository:  path.Dir(rel),
		Metadata:    metadata,
		Confidence:  level,
		Evidence:    evidence(rel, 1),
	})

	for _, req := range mod.requires {
		group, artifact := splitModulePath(req.path)
		result.Dependencies = append(result.Dependencies, model.Dependency{
			SourceComponentID: mod.module,
			GroupID:           group,
			ArtifactID:        artifact,
			Version:           req.version,
			Scope:             model.ScopeCompile,
			Direct:            !req.indirect,
			Confidence:        level,
			Evidence:          evidence(rel, req.line),
		})
	}
}

func parseGoMod(rel string, data []byte) (goMod, error) {
	f, err := modfile.ParseLax(rel, data, nil)
	if err != nil {
		return goMod{}, fmt.Errorf("failed to parse %s: %w", rel, err)
	}
	var mod goMod
	if f.Module != nil {
		mod.module = f.Module.Mod.Path
	}
	if f.Go != nil {
		mod.goVersion = f.Go.Version
	}
	for _, r := range f.Require {
		req := goRequire{path: r.Mod.Path, version: r.Mod.Version, indirect: r.Indirect}
		if r.Syntax != nil {
			req.line = r.Syntax.Start.Line
		}
		mod.requires = append(mod.requires, req)
	}
	return mod, nil
}

// parseGoModPatterns recovers what it can from a go.mod the module parser rejected.
func parseGoModPatterns(data []byte) goMod {
	text := string(data)
	var mod goMod
	if m := modModuleRe.FindStringSubmatch(text); m != nil {
		mod.module = m[1]
	}
	if m := modGoVersion.FindStringSubmatch(text); m != nil {
		mod.goVersion = m[1]
	}
	add := func(p, v, rest string, offset int) {
		mod.requires = append(mod.requires, goRequire{
			path:     p,
			version:  v,
			indirect: strings.Contains(rest, "// indirect"),
			line:     strings.Count(text[:offset], "\n") + 1,
		})
	}
	for _, block := range modBlockRe.FindAllStringSubmatchIndex(text, -1) {
		body := text[block[2]:block[3]]
		for _, m := range modLineRe.FindAllStringSubmatchIndex(body, -1) {
			add(body[m[2]:m[3]], body[m[4]:m[5]], body[m[6]:m[7]], block[2]+m[0])
		}
	}
	for _, m := range modSingleRe.FindAllStringSubmatchIndex(text, -1) {
		add(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]], m[0])
	}
	return mod
}

// splitModulePath turns a module path into group and artifact, dropping a
// major version suffix: github.com/go-chi/chi/v5 is github.com/go-chi + chi.
func splitModulePath(p string) (group, artifact string) {
	if prefix, major, ok := module.SplitPathVersion(p); ok && major != "" {
		p = prefix
	}
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "go", p
	}
	return p[:i], p[i+1:]
}

func shortName(modulePath string) string {
	if prefix, major, ok := module.SplitPathVersion(modulePath); ok && major != "" {
		modulePath = prefix
	}
	return path.Base(modulePath)
}
