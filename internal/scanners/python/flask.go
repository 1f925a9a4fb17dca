package python

import (
	"bytes"
	"context"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// FlaskScanner finds view functions routed on Flask apps and blueprints.
type FlaskScanner struct {
	scanner.Base
}

func NewFlaskScanner() *FlaskScanner {
	return &FlaskScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "flask-rest",
		DisplayName:  "Flask REST Scanner",
		Languages:    []string{"python"},
		FilePatterns: []string{pySources},
		Priority:     scanner.PriorityAPI,
	}}}
}

var flaskConstructors = map[string]bool{"Flask": true, "Blueprint": true}

func mentionsFlask(src []byte) bool {
	return bytes.Contains(src, []byte("flask")) || bytes.Contains(src, []byte("Flask")) || bytes.Contains(src, []byte("Blueprint"))
}

func (s *FlaskScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindFiles(pySources)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	err = sc.ParseEach(ctx, language, files, stats, mentionsFlask, func(rel string, res parser.Result) {
		result.APIEndpoints = append(result.APIEndpoints, flaskRoutes(rel, res)...)
	})
	if err != nil {
		return nil, err
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("endpoints", len(result.APIEndpoints)).
		Int("files", result.Statistics.FilesScanned).
		Msg("flask routes scanned")
	return result, nil
}

func flaskRoutes(rel string, res parser.Result) []model.APIEndpoint {
	module := moduleName(rel)
	recv := receivers(res, flaskConstructors, "url_prefix", "app", "bp", "blueprint")
	prefixes := mounts(res, recv, "register_blueprint", "url_prefix")

	var out []model.APIEndpoint
	for _, c := range res.Of(parser.KindCall) {
		prefix, known := prefixes[c.Receiver]
		if !known {
			continue
		}
		var methods []string
		switch {
		case c.Name == "route":
			methods = methodsArg(c, "GET")
		case operationVerbs[c.Name] && c.Name != "options" && c.Name != "head":
			methods = []string{strings.ToUpper(c.Name)}
		default:
			continue
		}
		p, ok := pathArg(c)
		if !ok {
			continue
		}
		for _, method := range methods {
			out = append(out, model.APIEndpoint{
				ComponentID: module,
				Type:        model.APIRest,
				Path:        joinPath(prefix, p),
				Method:      method,
				Description: module + "." + handlerAt(res, c.Line),
				Confidence:  res.Confidence(),
				Evidence:    evidence(rel, c.Line),
			})
		}
	}
	return out
}
