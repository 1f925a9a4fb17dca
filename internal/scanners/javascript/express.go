package javascript

import (
	"context"
	"regexp"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// ExpressScanner finds routes registered on Express applications and routers.
type ExpressScanner struct {
	scanner.Base
}

func NewExpressScanner() *ExpressScanner {
	return &ExpressScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "express-api",
		DisplayName:  "Express.js API Scanner",
		Languages:    []string{"javascript", "typescript"},
		FilePatterns: sourcePatterns,
		Priority:     scanner.PriorityAPI,
	}}}
}

var (
	expressVerbs = map[string]bool{"get": true, "post": true, "put": true, "delete": true, "patch": true}

	// routeCallRe is the pre-parse filter: a verb call on something that
	// looks like an app or router.
	routeCallRe = regexp.MustCompile(`\b(?:app|router|\w+Router)\s*\.\s*(?:get|post|put|delete|patch)\s*\(`)
)

func (s *ExpressScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sourceFiles(sc)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	err = sc.ParseEach(ctx, language, files, stats, routeCallRe.Match, func(rel string, res parser.Result) {
		result.APIEndpoints = append(result.APIEndpoints, expressRoutes(rel, res)...)
	})
	if err != nil {
		return nil, err
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("endpoints", len(result.APIEndpoints)).
		Int("files", result.Statistics.FilesScanned).
		Msg("express routes scanned")
	return result, nil
}

// expressRoutes collects the routes of one file. Routers mounted in the same
// file with app.use("/prefix", router) get the mount prefix.
func expressRoutes(rel string, res parser.Result) []model.APIEndpoint {
	calls := res.Of(parser.KindCall)
	component := moduleName(rel)

	routers := map[string]bool{"app": true, "router": true}
	for _, c := range calls {
		if c.AssignedTo != "" && c.Name == "Router" {
			routers[c.AssignedTo] = true
		}
	}

	mounts := map[string]string{}
	for _, c := range calls {
		if c.Name != "use" || !routers[c.Receiver] {
			continue
		}
		prefix, ok := c.StringArg(0)
		if !ok {
			continue
		}
		if target, ok := c.PositionalArg(1); ok && routers[target] && target != c.Receiver {
			mounts[target] = joinPath(mounts[c.Receiver], prefix)
		}
	}

	var out []model.APIEndpoint
	for _, c := range calls {
		if !expressVerbs[c.Name] || !isRouter(routers, c.Receiver) {
			continue
		}
		p, ok := c.StringArg(0)
		if !ok {
			continue
		}
		out = append(out, model.APIEndpoint{
			ComponentID: component,
			Type:        model.APIRest,
			Path:        joinPath(mounts[c.Receiver], p),
			Method:      strings.ToUpper(c.Name),
			Description: component + "." + c.Receiver + "." + c.Name,
			Confidence:  res.Confidence(),
			Evidence:    evidence(rel, c.Line),
		})
	}
	return out
}

func isRouter(known map[string]bool, name string) bool {
	return known[name] || strings.HasSuffix(name, "Router")
}

func joinPath(prefix, p string) string {
	if prefix == "" {
		return p
	}
	prefix = strings.TrimRight(prefix, "/")
	if p == "/" || p == "" {
		return prefix
	}
	return prefix + "/" + strings.TrimLeft(p, "/")
}
