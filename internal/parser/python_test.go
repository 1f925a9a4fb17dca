package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastAPISource = `from fastapi import APIRouter, FastAPI
import os, sys

app = FastAPI()
router = APIRouter(prefix="/items", tags=["items"])


@router.get("/{item_id}")
async def read_item(item_id: int):
    return {"id": item_id}


@app.route("/legacy", methods=["GET", "POST"])
def legacy():
    pass


class Item(BaseModel, Generic):
    name: str

app.include_router(router, prefix="/v1")
`

func assertPythonConstructs(t *testing.T, res Result) {
	t.Helper()

	var imports []string
	for _, c := range res.Of(KindImport) {
		imports = append(imports, c.Name)
	}
	assert.Equal(t, []string{"fastapi", "os", "sys"}, imports)

	funcs := res.Of(KindFunction)
	require.Len(t, funcs, 2)
	assert.Equal(t, "read_item", funcs[0].Name)
	assert.Equal(t, []string{`router.get("/{item_id}")`}, funcs[0].Decorators)
	assert.Equal(t, []string{`app.route("/legacy", methods=["GET", "POST"])`}, funcs[1].Decorators)

	classes := res.Of(KindClass)
	require.Len(t, classes, 1)
	assert.Equal(t, []string{"BaseModel", "Generic"}, classes[0].Bases)

	apiRouter, ok := findCall(res.Constructs, "APIRouter")
	require.True(t, ok)
	assert.Equal(t, "router", apiRouter.AssignedTo)
	prefix, ok := apiRouter.KeywordArg("prefix")
	require.True(t, ok)
	assert.Equal(t, `"/items"`, prefix)

	route, ok := findCall(res.Constructs, "route")
	require.True(t, ok)
	methods, ok := route.KeywordArg("methods")
	require.True(t, ok)
	assert.Equal(t, []string{`"GET"`, `"POST"`}, ListItems(methods))

	include, ok := findCall(res.Constructs, "include_router")
	require.True(t, ok)
	assert.Equal(t, "app", include.Receiver)
	first, ok := include.PositionalArg(0)
	require.True(t, ok)
	assert.Equal(t, "router", first)
}

func TestPythonPatterns(t *testing.T) {
	res := Result{Constructs: parsePythonPatterns([]byte(fastAPISource)), Backend: Pattern}
	assertPythonConstructs(t, res)
}

func TestPythonEngine(t *testing.T) {
	e := NewPythonEngine()
	res, err := e.Parse(context.Background(), []byte(fastAPISource))
	require.NoError(t, err)
	assertPythonConstructs(t, res)
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"/users"`, "/users", true},
		{`'/users'`, "/users", true},
		{"`/raw`", "/raw", true},
		{`r"/re"`, "/re", true},
		{`"esc\"aped"`, `esc"aped`, true},
		{`handler`, "", false},
		{`"`, "", false},
	}
	for _, tt := range tests {
		got, ok := Unquote(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
