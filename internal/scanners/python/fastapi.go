package python

import (
	"bytes"
	"context"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// FastAPIScanner finds path operations declared with FastAPI decorators.
type FastAPIScanner struct {
	scanner.Base
}

func NewFastAPIScanner() *FastAPIScanner {
	return &FastAPIScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "fastapi-rest",
		DisplayName:  "FastAPI REST Scanner",
		Languages:    []string{"python"},
		FilePatterns: []string{pySources},
		Priority:     scanner.PriorityAPI,
	}}}
}

// AppliesTo needs Python sources and a sign of FastAPI, either as a declared
// dependency or in the code itself.
func (s *FastAPIScanner) AppliesTo(sc *scanner.Context) bool {
	return scanner.All(
		scanner.HasFiles(pySources),
		scanner.Any(scanner.HasDependency("fastapi"), scanner.FileContains(pySources, "FastAPI")),
	)(sc)
}

var (
	fastAPIConstructors = map[string]bool{"FastAPI": true, "APIRouter": true}
	operationVerbs      = map[string]bool{"get": true, "post": true, "put": true, "delete": true, "patch": true, "options": true, "head": true}
)

func mentionsFastAPI(src []byte) bool {
	return bytes.Contains(src, []byte("fastapi")) || bytes.Contains(src, []byte("FastAPI")) || bytes.Contains(src, []byte("APIRouter"))
}

func (s *FastAPIScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindFiles(pySources)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	err = sc.ParseEach(ctx, language, files, stats, mentionsFastAPI, func(rel string, res parser.Result) {
		result.APIEndpoints = append(result.APIEndpoints, fastAPIRoutes(rel, res)...)
	})
	if err != nil {
		return nil, err
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("endpoints", len(result.APIEndpoints)).
		Int("files", result.Statistics.FilesScanned).
		Msg("fastapi routes scanned")
	return result, nil
}

func fastAPIRoutes(rel string, res parser.Result) []model.APIEndpoint {
	module := moduleName(rel)
	recv := receivers(res, fastAPIConstructors, "prefix", "app", "router")
	prefixes := mounts(res, recv, "include_router", "prefix")

	var out []model.APIEndpoint
	for _, c := range res.Of(parser.KindCall) {
		prefix, known := prefixes[c.Receiver]
		if !known {
			continue
		}
		var methods []string
		switch {
		case operationVerbs[c.Name]:
			methods = []string{strings.ToUpper(c.Name)}
		case c.Name == "api_route":
			methods = methodsArg(c, "GET")
		default:
			continue
		}
		p, ok := pathArg(c)
		if !ok {
			continue
		}
		response := ""
		if v, ok := c.KeywordArg("response_model"); ok {
			response = v
		}
		for _, method := range methods {
			out = append(out, model.APIEndpoint{
				ComponentID:    module,
				Type:           model.APIRest,
				Path:           joinPath(prefix, p),
				Method:         method,
				Description:    module + "." + handlerAt(res, c.Line),
				ResponseSchema: response,
				Confidence:     res.Confidence(),
				Evidence:       evidence(rel, c.Line),
			})
		}
	}
	return out
}

// pathArg reads the route path from the first positional or the path keyword.
func pathArg(c parser.Construct) (string, bool) {
	if p, ok := c.StringArg(0); ok {
		return p, true
	}
	if v, ok := c.KeywordArg("path"); ok {
		return parser.Unquote(v)
	}
	if v, ok := c.KeywordArg("rule"); ok {
		return parser.Unquote(v)
	}
	return "", false
}

// methodsArg reads methods=["GET", "POST"], falling back to def.
func methodsArg(c parser.Construct, def string) []string {
	v, ok := c.KeywordArg("methods")
	if !ok {
		return []string{def}
	}
	var out []string
	for _, item := range parser.ListItems(v) {
		if m, ok := parser.Unquote(item); ok {
			out = append(out, strings.ToUpper(m))
		}
	}
	if len(out) == 0 {
		return []string{def}
	}
	return out
}
