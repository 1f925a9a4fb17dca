package javascript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"
)

// NpmScanner reads package identity and dependencies from package.json files.
type NpmScanner struct {
	scanner.Base
}

func NewNpmScanner() *NpmScanner {
	return &NpmScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "npm-dependencies",
		DisplayName:  "npm Dependency Scanner",
		Languages:    []string{"javascript", "typescript"},
		FilePatterns: []string{"**/package.json"},
		Priority:     scanner.PriorityDependencies,
	}}}
}

type packageJSON struct {
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	Description      string  `json:"description"`
	Dependencies     depList `json:"dependencies"`
	DevDependencies  depList `json:"devDependencies"`
	PeerDependencies depList `json:"peerDependencies"`
}

type dep struct {
	name, spec string
}

// depList keeps the order in which a dependency section lists its packages.
// Sections that are not objects are ignored.
type depList []dep

func (d *depList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		spec, ok := v.(string)
		if !ok {
			spec = fmt.Sprint(v)
		}
		*d = append(*d, dep{name: key.(string), spec: spec})
	}
	return nil
}

func (s *NpmScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindFiles("**/package.json")
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

		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err != nil {
			stats.Failed("json_parse_error", err.Error())
			result.Warnf("failed to parse %s: %v", rel, err)
			continue
		}
		stats.ParsedSuccessfully()
		collectPackage(result, rel, string(data), pkg)
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("packages", len(result.Components)).
		Int("dependencies", len(result.Dependencies)).
		Msg("npm packages scanned")
	return result, nil
}

func collectPackage(result *scanner.Result, rel, text string, pkg packageJSON) {
	name := pkg.Name
	if name == "" {
		name = "unknown"
	}
	description := pkg.Description
	if description == "" {
		description = "npm package: " + name
	}
	result.Components = append(result.Components, model.Component{
		ID:          model.StableID(packageManager, name),
		Name:        name,
		Type:        model.ComponentLibrary,
		Description: description,
		Technology:  packageManager,
		Repository:  path.Dir(rel),
		Metadata: map[string]string{
			"version":        pkg.Version,
			"packageManager": packageManager,
		},
		Confidence: confidence.High,
		Evidence:   evidence(rel, 1),
	})

	sections := []struct {
		key   string
		scope string
		deps  depList
	}{
		{"dependencies", model.ScopeCompile, pkg.Dependencies},
		{"devDependencies", model.ScopeTest, pkg.DevDependencies},
		{"peerDependencies", model.ScopeProvided, pkg.PeerDependencies},
	}
	for _, section := range sections {
		for _, d := range section.deps {
			group, artifact := splitPackageName(d.name)
			result.Dependencies = append(result.Dependencies, model.Dependency{
				SourceComponentID: name,
				GroupID:           group,
				ArtifactID:        artifact,
				Version:           d.spec,
				Scope:             section.scope,
				Direct:            true,
				Confidence:        confidence.High,
				Evidence:          evidence(rel, keyLine(text, section.key, d.name)),
			})
		}
	}
}

// splitPackageName splits @scope/name into its scope and name; unscoped
// packages belong to the npm group.
func splitPackageName(name string) (group, artifact string) {
	if strings.HasPrefix(name, "@") {
		if scope, rest, ok := strings.Cut(name, "/"); ok {
			return scope, rest
		}
	}
	return packageManager, name
}

// keyLine finds the line of a quoted key inside the named section, or 1.
func keyLine(text, section, key string) int {
	start := strings.Index(text, strconv.Quote(section))
	if start < 0 {
		return 1
	}
	i := strings.Index(text[start:], strconv.Quote(key))
	if i < 0 {
		return 1
	}
	return strings.Count(text[:start+i], "\n") + 1
}
