package parser

import (
	"context"
	"testing"

	"archscan/internal/confidence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goRoutes = `package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	mux "github.com/gorilla/mux"
)

type User struct {
	ID        uint   ` + "`gorm:\"primaryKey\"`" + `
	Name      string ` + "`gorm:\"not null\"`" + `
	gorm.Model
}

func Register(r *gin.Engine, m *mux.Router) {
	v1 := r.Group("/api/v1")
	v1.GET("/users/:id", getUser)
	m.HandleFunc("/orders", listOrders).Methods("GET")
	// r.POST("/ignored", nope)
	http.HandleFunc("/health", health)
}
`

func findCall(cs []Construct, name string) (Construct, bool) {
	for _, c := range cs {
		if c.Kind == KindCall && c.Name == name {
			return c, true
		}
	}
	return Construct{}, false
}

func assertGoConstructs(t *testing.T, res Result) {
	t.Helper()

	pkgs := res.Of(KindPackage)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "api", pkgs[0].Name)

	var imports []string
	for _, c := range res.Of(KindImport) {
		imports = append(imports, c.Name)
	}
	assert.ElementsMatch(t, []string{"net/http", "github.com/gin-gonic/gin", "github.com/gorilla/mux"}, imports)

	structs := res.Of(KindStruct)
	require.Len(t, structs, 1)
	assert.Equal(t, "User", structs[0].Name)
	require.Len(t, structs[0].Fields, 3)
	assert.Equal(t, Field{Name: "ID", Type: "uint", Tag: "`gorm:\"primaryKey\"`"}, structs[0].Fields[0])
	assert.Equal(t, "Model", structs[0].Fields[2].Name)
	assert.Equal(t, "gorm.Model", structs[0].Fields[2].Type)

	group, ok := findCall(res.Constructs, "Group")
	require.True(t, ok)
	assert.Equal(t, "r", group.Receiver)
	assert.Equal(t, "v1", group.AssignedTo)
	path, ok := group.StringArg(0)
	require.True(t, ok)
	assert.Equal(t, "/api/v1", path)

	get, ok := findCall(res.Constructs, "GET")
	require.True(t, ok)
	assert.Equal(t, "v1", get.Receiver)
	assert.Equal(t, []string{`"/users/:id"`, "getUser"}, get.Args)

	methods, ok := findCall(res.Constructs, "Methods")
	require.True(t, ok)
	assert.Equal(t, `m.HandleFunc("/orders", listOrders)`, methods.Receiver)

	_, ok = findCall(res.Constructs, "POST")
	assert.False(t, ok, "commented-out calls are not constructs")

	health, ok := findCall(res.Constructs, "HandleFunc")
	require.True(t, ok)
	assert.Contains(t, []string{"m", "http"}, health.Receiver)
}

func TestGoPatterns(t *testing.T) {
	res := Result{Constructs: parseGoPatterns([]byte(goRoutes)), Backend: Pattern}
	assertGoConstructs(t, res)
}

func TestGoEngine(t *testing.T) {
	e := NewGoEngine()
	res, err := e.Parse(context.Background(), []byte(goRoutes))
	require.NoError(t, err)
	if e.IsAvailable() {
		assert.Equal(t, Structural, res.Backend)
	} else {
		assert.Equal(t, Pattern, res.Backend)
	}
	assertGoConstructs(t, res)
}

func TestGoEngine_MalformedFileFallsBack(t *testing.T) {
	src := []byte(`package models

type Order struct {
	ID    uint   ` + "`db:\"id\"`" + `
	Total float64
}

func broken( {
`)
	e := NewGoEngine()
	res, err := e.Parse(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, Pattern, res.Backend)
	assert.Equal(t, confidence.Medium, res.Confidence())
	if e.IsAvailable() {
		assert.ErrorIs(t, res.FallbackReason, ErrSyntax)
	}

	structs := res.Of(KindStruct)
	require.Len(t, structs, 1)
	assert.Equal(t, "Order", structs[0].Name)
	assert.Len(t, structs[0].Fields, 2)
}

func TestGoEngine_ChiEnclosingRoute(t *testing.T) {
	src := []byte(`package api

func routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", stats)
	})
}
`)
	e := NewGoEngine()
	if !e.IsAvailable() {
		t.Skip("tree-sitter not available in this build")
	}
	res, err := e.Parse(context.Background(), src)
	require.NoError(t, err)

	get, ok := findCall(res.Constructs, "Get")
	require.True(t, ok)
	require.Len(t, get.Enclosing, 1)
	assert.Equal(t, CallRef{Receiver: "r", Name: "Route", FirstArg: `"/admin"`}, get.Enclosing[0])
}
