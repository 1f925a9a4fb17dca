package golang

import (
	"testing"

	"archscan/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ginRoutes = `package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/users/:id", getUser)
	v1.POST("/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, nil)
	})

	admin := v1.Group("/admin")
	admin.DELETE("/users/:id", deleteUser)

	r.GET("/healthz", health)
}
`

const muxRoutes = `package web

import "github.com/gorilla/mux"

func routes() *mux.Router {
	m := mux.NewRouter()
	api := m.PathPrefix("/api").Subrouter()
	api.HandleFunc("/orders", listOrders).Methods("GET", "POST")
	m.HandleFunc("/status", status)
	return m
}
`

const stdRoutes = `package main

import "net/http"

func main() {
	http.HandleFunc("GET /items/{id}", getItem)
	http.Handle("/metrics", metricsHandler)
	_ = http.ListenAndServe(":8080", nil)
}
`

func TestRouterScanner(t *testing.T) {
	sc := newProject(t, map[string]string{
		"api/routes.go":       ginRoutes,
		"web/router.go":       muxRoutes,
		"cmd/server/main.go":  stdRoutes,
		"internal/util.go":    "package internal\n\nfunc Add(a, b int) int { return a + b }\n",
		"api/routes_test.go":  "package api\n\nimport \"github.com/gin-gonic/gin\"\n\nfunc x(r *gin.Engine) { r.GET(\"/test-only\", nil) }\n",
		"vendor/x/ignored.go": ginRoutes,
	})
	res := runScanner(t, NewRouterScanner(), sc)

	assert.Equal(t, map[string]string{
		"GET /api/v1/users/:id":          "getUser",
		"POST /api/v1/users":             "inline handler",
		"DELETE /api/v1/admin/users/:id": "deleteUser",
		"GET /healthz":                   "health",
		"GET /api/orders":                "listOrders",
		"POST /api/orders":               "listOrders",
		"GET /status":                    "status",
		"GET /items/{id}":                "getItem",
		"GET /metrics":                   "metricsHandler",
	}, endpointSet(res.APIEndpoints))

	for _, e := range res.APIEndpoints {
		assert.Equal(t, model.APIRest, e.Type)
		require.NotNil(t, e.Evidence)
		switch e.Evidence.Filepath {
		case "api/routes.go":
			assert.Equal(t, "api", e.ComponentID)
		case "web/router.go":
			assert.Equal(t, "web", e.ComponentID)
		case "cmd/server/main.go":
			assert.Equal(t, "main", e.ComponentID)
		default:
			t.Errorf("unexpected evidence file %s", e.Evidence.Filepath)
		}
	}

	// util.go is filtered out before parsing.
	assert.Equal(t, 4, res.Statistics.FilesDiscovered)
	assert.Equal(t, 3, res.Statistics.FilesScanned)
}

func TestRouterScanner_NoRoutes(t *testing.T) {
	sc := newProject(t, map[string]string{"main.go": "package main\n\nfunc main() {}\n"})
	res := runScanner(t, NewRouterScanner(), sc)
	assert.Empty(t, res.APIEndpoints)
	assert.False(t, res.HasFindings())
}

func TestCombinePaths(t *testing.T) {
	tests := []struct{ base, p, want string }{
		{"", "/users", "/users"},
		{"", "users", "/users"},
		{"/api/", "/users", "/api/users"},
		{"api", "users", "/api/users"},
		{"/api", "/", "/api"},
		{"/api", "", "/api"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, combinePaths(tt.base, tt.p), "%q + %q", tt.base, tt.p)
	}
}

func TestDescribeHandler(t *testing.T) {
	assert.Equal(t, "inline handler", describeHandler("func(w http.ResponseWriter, r *http.Request) {}"))
	assert.Equal(t, "h.List", describeHandler(" h.List "))
}
