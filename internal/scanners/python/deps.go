package python

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"

	"github.com/pelletier/go-toml/v2"
)

// DependencyScanner reads requirements files, pyproject.toml (PEP 621 and
// Poetry), Pipfile and setup.py.
type DependencyScanner struct {
	scanner.Base
}

var manifestPatterns = []string{"**/requirements*.txt", "**/pyproject.toml", "**/Pipfile", "**/setup.py"}

func NewDependencyScanner() *DependencyScanner {
	return &DependencyScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "pip-poetry-dependencies",
		DisplayName:  "Pip/Poetry Dependency Scanner",
		Languages:    []string{"python"},
		FilePatterns: manifestPatterns,
		Priority:     scanner.PriorityDependencies,
	}}}
}

var (
	// name, optional extras, then an optional operator and version up to a
	// marker or comment.
	requirementRe    = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[[^\]]*\])?\s*(?:([=<>~!]+)\s*([^;#\s]+(?:\s*,\s*[=<>~!]+\s*[^;#\s,]+)*))?\s*(?:[;#].*)?$`)
	installRequireRe = regexp.MustCompile(`(?s)install_requires\s*=\s*\[(.*?)\]`)
	quotedRe         = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

type requirement struct {
	name, version, scope string
	line                 int
}

// manifest is what one dependency file contributes.
type manifest struct {
	project  string
	requires []requirement
	level    confidence.Level
}

type pyproject struct {
	Project struct {
		Name                 string              `toml:"name"`
		Version              string              `toml:"version"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name            string         `toml:"name"`
			Version         string         `toml:"version"`
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

func (s *DependencyScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindAny(manifestPatterns...)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder().Discovered(len(files))

	// One component per directory holding manifests, named after the
	// pyproject project when there is one.
	var dirs []string
	byDir := map[string][]manifestFile{}
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
		m, err := parseManifest(rel, data)
		if err != nil {
			stats.Failed("manifest_parse_error", err.Error())
			result.Warnf("failed to parse %s: %v", rel, err)
			continue
		}
		if m.level == confidence.High {
			stats.ParsedSuccessfully()
		} else {
			stats.ParsedWithFallback()
		}
		dir := path.Dir(rel)
		if _, seen := byDir[dir]; !seen {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], manifestFile{rel: rel, manifest: m})
	}

	for _, dir := range dirs {
		collectProject(result, sc.Root(), dir, byDir[dir])
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("projects", len(result.Components)).
		Int("dependencies", len(result.Dependencies)).
		Msg("python dependencies scanned")
	return result, nil
}

type manifestFile struct {
	rel string
	manifest
}

func collectProject(result *scanner.Result, root, dir string, files []manifestFile) {
	name := ""
	for _, f := range files {
		if f.project != "" {
			name = f.project
			break
		}
	}
	if name == "" {
		name = path.Base(dir)
		if dir == "." {
			name = filepath.Base(root)
		}
	}

	level := confidence.High
	for _, f := range files {
		if f.level < level {
			level = f.level
		}
	}
	result.Components = append(result.Components, model.Component{
		ID:          model.StableID("python", name),
		Name:        name,
		Type:        model.ComponentLibrary,
		Description: "Python project: " + name,
		Technology:  "python",
		Repository:  dir,
		Metadata:    map[string]string{"packageManager": "pip"},
		Confidence:  level,
		Evidence:    evidence(files[0].rel, 1),
	})

	for _, f := range files {
		for _, r := range f.requires {
			result.Dependencies = append(result.Dependencies, model.Dependency{
				SourceComponentID: name,
				ArtifactID:        r.name,
				Version:           r.version,
				Scope:             r.scope,
				Direct:            true,
				Confidence:        f.level,
				Evidence:          evidence(f.rel, r.line),
			})
		}
	}
}

func parseManifest(rel string, data []byte) (manifest, error) {
	switch base := path.Base(rel); {
	case base == "pyproject.toml":
		return parsePyproject(data)
	case base == "Pipfile":
		return parsePipfile(data)
	case base == "setup.py":
		return parseSetupPy(data), nil
	default:
		return parseRequirements(data), nil
	}
}

// parseRequirement splits a PEP 508 requirement into name and version. The
// version keeps everything after the first operator, without markers.
func parseRequirement(spec string) (name, version string, ok bool) {
	m := requirementRe.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return "", "", false
	}
	return m[1], m[3], true
}

func parseRequirements(data []byte) manifest {
	m := manifest{level: confidence.High}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name, version, ok := parseRequirement(line); ok {
			m.requires = append(m.requires, requirement{name: name, version: version, scope: model.ScopeCompile, line: i + 1})
		}
	}
	return m
}

func parsePyproject(data []byte) (manifest, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return manifest{}, fmt.Errorf("decode pyproject.toml: %w", err)
	}
	text := string(data)
	m := manifest{level: confidence.High, project: doc.Project.Name}
	if m.project == "" {
		m.project = doc.Tool.Poetry.Name
	}

	add := func(spec, scope string) {
		if name, version, ok := parseRequirement(spec); ok {
			m.requires = append(m.requires, requirement{name: name, version: version, scope: scope, line: lineOf(text, spec)})
		}
	}
	for _, spec := range doc.Project.Dependencies {
		add(spec, model.ScopeCompile)
	}
	for _, extra := range sortedKeys(doc.Project.OptionalDependencies) {
		for _, spec := range doc.Project.OptionalDependencies[extra] {
			add(spec, model.ScopeOptional)
		}
	}

	poetry := doc.Tool.Poetry
	m.requires = append(m.requires, tableRequirements(text, poetry.Dependencies, model.ScopeCompile)...)
	m.requires = append(m.requires, tableRequirements(text, poetry.DevDependencies, model.ScopeTest)...)
	for _, group := range sortedKeys(poetry.Group) {
		m.requires = append(m.requires, tableRequirements(text, poetry.Group[group].Dependencies, model.ScopeTest)...)
	}
	return m, nil
}

func parsePipfile(data []byte) (manifest, error) {
	var doc pipfile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return manifest{}, fmt.Errorf("decode Pipfile: %w", err)
	}
	text := string(data)
	m := manifest{level: confidence.High}
	m.requires = append(m.requires, tableRequirements(text, doc.Packages, model.ScopeCompile)...)
	m.requires = append(m.requires, tableRequirements(text, doc.DevPackages, model.ScopeTest)...)
	return m, nil
}

// tableRequirements reads name = "spec" or name = { version = "spec" }
// tables in name order. The python interpreter entry is not a dependency.
func tableRequirements(text string, table map[string]any, scope string) []requirement {
	var out []requirement
	for _, name := range sortedKeys(table) {
		if strings.EqualFold(name, "python") {
			continue
		}
		out = append(out, requirement{
			name:    name,
			version: tableVersion(table[name]),
			scope:   scope,
			line:    lineOf(text, "\n"+name),
		})
	}
	return out
}

func tableVersion(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["version"].(string); ok {
			return s
		}
	}
	return "*"
}

// parseSetupPy pulls quoted requirements out of install_requires. Without
// evaluating the script this is a best guess.
func parseSetupPy(data []byte) manifest {
	text := string(data)
	m := manifest{level: confidence.Medium}
	block := installRequireRe.FindStringSubmatchIndex(text)
	if block == nil {
		return m
	}
	body := text[block[2]:block[3]]
	for _, q := range quotedRe.FindAllStringSubmatchIndex(body, -1) {
		if name, version, ok := parseRequirement(body[q[2]:q[3]]); ok {
			line := strings.Count(text[:block[2]+q[0]], "\n") + 1
			m.requires = append(m.requires, requirement{name: name, version: version, scope: model.ScopeCompile, line: line})
		}
	}
	return m
}

func lineOf(text, needle string) int {
	i := strings.Index(text, needle)
	if i < 0 {
		return 1
	}
	if strings.HasPrefix(needle, "\n") {
		i++
	}
	return strings.Count(text[:i], "\n") + 1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
