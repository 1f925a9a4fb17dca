package golang

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// RouterScanner finds HTTP routes registered with gin, echo, chi, gorilla/mux,
// fiber and net/http.
type RouterScanner struct {
	scanner.Base
}

func NewRouterScanner() *RouterScanner {
	return &RouterScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "go-http-router",
		DisplayName:  "Go HTTP Router Scanner",
		Languages:    []string{"go"},
		FilePatterns: []string{goSources},
		Priority:     scanner.PriorityAPI,
	}}}
}

const (
	ginImport     = "github.com/gin-gonic/gin"
	echoImport    = "github.com/labstack/echo"
	chiImport     = "github.com/go-chi/chi"
	muxImport     = "github.com/gorilla/mux"
	fiberImport   = "github.com/gofiber/fiber"
	netHTTPImport = "net/http"
)

var (
	frameworkImports = [][]byte{
		[]byte(ginImport), []byte(echoImport), []byte(chiImport), []byte(muxImport), []byte(fiberImport),
	}

	// gin and echo register with upper-case verbs, chi and fiber with title case.
	upperVerbs = map[string]bool{"GET": true, "POST": true, "PUT": true, "DELETE": true, "PATCH": true, "HEAD": true, "OPTIONS": true}
	titleVerbs = map[string]bool{"Get": true, "Post": true, "Put": true, "Delete": true, "Patch": true, "Head": true, "Options": true}

	muxHandleRe     = regexp.MustCompile("^([\\w.]+)\\.Handle(?:Func)?\\(\\s*(\"[^\"]*\"|`[^`]*`)\\s*,\\s*([^,]*?)\\s*\\)$")
	muxPathPrefixRe = regexp.MustCompile("^([\\w.]+)\\.PathPrefix\\(\\s*(\"[^\"]*\"|`[^`]*`)\\s*\\)$")
	servePatternRe  = regexp.MustCompile(`^([A-Z]+)\s+(/.*)$`)
)

// mightRoute is a cheap content filter applied before parsing.
func mightRoute(src []byte) bool {
	for _, imp := range frameworkImports {
		if bytes.Contains(src, imp) {
			return true
		}
	}
	return bytes.Contains(src, []byte(netHTTPImport)) && bytes.Contains(src, []byte("Handle"))
}

func (s *RouterScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sourceFiles(sc)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	err = sc.ParseEach(ctx, language, files, stats, mightRoute, func(rel string, res parser.Result) {
		result.APIEndpoints = append(result.APIEndpoints, routesOf(rel, res)...)
	})
	if err != nil {
		return nil, err
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("endpoints", len(result.APIEndpoints)).
		Int("files", result.Statistics.FilesScanned).
		Msg("go http routes scanned")
	return result, nil
}

// routeFile collects the routes of one parsed file.
type routeFile struct {
	rel        string
	component  string
	level      confidence.Level
	prefixes   map[string]string
	endpoints  []model.APIEndpoint
	handledMux map[int]bool
}

func routesOf(rel string, res parser.Result) []model.APIEndpoint {
	f := &routeFile{
		rel:        rel,
		component:  packageName(rel, res),
		level:      res.Confidence(),
		prefixes:   map[string]string{},
		handledMux: map[int]bool{},
	}

	upper := importsAny(res, ginImport, echoImport)
	title := importsAny(res, chiImport, fiberImport)
	mux := importsAny(res, muxImport)
	std := importsAny(res, netHTTPImport)

	calls := res.Of(parser.KindCall)
	for _, c := range calls {
		f.trackGroup(c)
	}
	for _, c := range calls {
		switch {
		case upper && upperVerbs[c.Name]:
			f.addVerbRoute(c, c.Name)
		case title && titleVerbs[c.Name]:
			f.addVerbRoute(c, strings.ToUpper(c.Name))
		case mux && c.Name == "Methods":
			f.addMuxRoute(c)
		}
	}
	if mux || std {
		for _, c := range calls {
			if (c.Name == "HandleFunc" || c.Name == "Handle") && !f.handledMux[c.Line] {
				f.addHandleRoute(c)
			}
		}
	}
	return f.endpoints
}

// trackGroup records route group prefixes: v1 := r.Group("/v1") for gin,
// echo and fiber, and s := r.PathPrefix("/api").Subrouter() for gorilla/mux.
func (f *routeFile) trackGroup(c parser.Construct) {
	if c.AssignedTo == "" {
		return
	}
	switch c.Name {
	case "Group":
		if p, ok := c.StringArg(0); ok {
			f.prefixes[c.AssignedTo] = combinePaths(f.prefixes[c.Receiver], p)
		}
	case "Subrouter":
		if m := muxPathPrefixRe.FindStringSubmatch(c.Receiver); m != nil {
			if p, ok := parser.Unquote(m[2]); ok {
				f.prefixes[c.AssignedTo] = combinePaths(f.prefixes[m[1]], p)
			}
		}
	}
}

// prefixOf resolves the prefix of a receiver, including chi r.Route("/x", ...)
// closures known from the structural parse.
func (f *routeFile) prefixOf(c parser.Construct) string {
	prefix := f.prefixes[c.Receiver]
	var nested []string
	for _, enc := range c.Enclosing {
		if enc.Name != "Route" && enc.Name != "Group" {
			continue
		}
		if p, ok := parser.Unquote(enc.FirstArg); ok {
			nested = append(nested, p)
		}
	}
	// Enclosing lists the innermost call first.
	for i := len(nested) - 1; i >= 0; i-- {
		prefix = combinePaths(prefix, nested[i])
	}
	return prefix
}

func (f *routeFile) addVerbRoute(c parser.Construct, method string) {
	p, ok := c.StringArg(0)
	if !ok {
		return
	}
	handler, _ := c.PositionalArg(1)
	f.add(method, combinePaths(f.prefixOf(c), p), handler, c.Line)
}

// addMuxRoute handles r.HandleFunc("/x", h).Methods("GET", "POST").
func (f *routeFile) addMuxRoute(c parser.Construct) {
	m := muxHandleRe.FindStringSubmatch(c.Receiver)
	if m == nil {
		return
	}
	p, ok := parser.Unquote(m[2])
	if !ok {
		return
	}
	full := combinePaths(f.prefixes[m[1]], p)
	for i := range c.Args {
		method, ok := c.StringArg(i)
		if !ok {
			continue
		}
		f.add(strings.ToUpper(method), full, m[3], c.Line)
	}
	f.handledMux[c.Line] = true
}

// addHandleRoute handles http.HandleFunc and mux routes without a method
// filter. Go 1.22 patterns such as "GET /users/{id}" carry their method.
func (f *routeFile) addHandleRoute(c parser.Construct) {
	p, ok := c.StringArg(0)
	if !ok {
		return
	}
	method := "GET"
	if m := servePatternRe.FindStringSubmatch(p); m != nil {
		method, p = m[1], m[2]
	}
	handler, _ := c.PositionalArg(1)
	f.add(method, combinePaths(f.prefixOf(c), p), handler, c.Line)
}

func (f *routeFile) add(method, fullPath, handler string, line int) {
	f.endpoints = append(f.endpoints, model.APIEndpoint{
		ComponentID: f.component,
		Type:        model.APIRest,
		Path:        fullPath,
		Method:      method,
		Description: describeHandler(handler),
		Confidence:  f.level,
		Evidence:    evidence(f.rel, line),
	})
}

func describeHandler(h string) string {
	h = strings.TrimSpace(h)
	if strings.HasPrefix(h, "func") {
		return "inline handler"
	}
	return h
}

// combinePaths joins a group prefix and a route path with exactly one slash.
func combinePaths(base, p string) string {
	if base == "" {
		if strings.HasPrefix(p, "/") {
			return p
		}
		return "/" + p
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return base
	}
	return base + "/" + p
}
