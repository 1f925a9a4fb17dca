package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return root
}

func TestContext_Defaults(t *testing.T) {
	root := newProject(t, map[string]string{"go.mod": "module x\n"})
	sc := scanner.NewContext(scanner.Options{Root: root})

	assert.Equal(t, root, sc.Root())
	assert.Equal(t, []string{root}, sc.SourcePaths())
	assert.Equal(t, 0, sc.Previous().Len())
	assert.NotNil(t, sc.Logger())
	assert.NotNil(t, sc.Parsers())
}

func TestContext_WithPreviousLeavesOriginal(t *testing.T) {
	sc := scanner.NewContext(scanner.Options{Root: t.TempDir()})
	prev := scanner.NewResults().Append(scanner.Entry{ScannerID: "a", Result: scanner.Empty("a")})

	next := sc.WithPrevious(prev)
	assert.Equal(t, 1, next.Previous().Len())
	assert.Equal(t, 0, sc.Previous().Len())
	assert.Same(t, sc.Parsers(), next.Parsers())
}

func TestContext_Config(t *testing.T) {
	cfg := map[string]any{"go-http-router": map[string]any{"frameworks": []any{"gin"}}}
	sc := scanner.NewContext(scanner.Options{
		Root:     t.TempDir(),
		Config:   cfg,
		Settings: map[string]string{"project": "demo"},
	})
	cfg["late"] = true

	_, ok := sc.Config("late")
	assert.False(t, ok)
	assert.NotNil(t, sc.ScannerConfig("go-http-router"))
	assert.Nil(t, sc.ScannerConfig("other"))
	assert.Equal(t, "demo", sc.SettingOr("project", "x"))
	assert.Equal(t, "x", sc.SettingOr("missing", "x"))
}

func TestContext_ParseFileRecordsStatistics(t *testing.T) {
	root := newProject(t, map[string]string{"main.go": "package main\n\nimport \"fmt\"\n"})
	sc := scanner.NewContext(scanner.Options{Root: root})
	stats := scanner.NewStatisticsBuilder()

	res, err := sc.ParseFile(context.Background(), "go", "main.go", stats)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Of(parser.KindImport))

	_, err = sc.ParseFile(context.Background(), "go", "missing.go", stats)
	require.Error(t, err)

	s := stats.Build()
	assert.Equal(t, 2, s.FilesScanned)
	assert.Equal(t, 1, s.FilesParsedSuccessfully+s.FilesParsedWithFallback)
	assert.Equal(t, 1, s.FilesFailed)
	assert.Equal(t, 1, s.ErrorCounts["read_error"])

	_, err = sc.ParseFile(context.Background(), "cobol", "main.go", stats)
	assert.ErrorIs(t, err, parser.ErrUnknownLanguage)
}

func TestApplicability(t *testing.T) {
	root := newProject(t, map[string]string{
		"go.mod":             "module x\n",
		"pkg/server/main.go": "package server\n// uses FastAPI? no\n",
	})
	sc := scanner.NewContext(scanner.Options{Root: root})

	assert.True(t, scanner.HasFiles("**/*.go")(sc))
	assert.True(t, scanner.HasFiles("**/go.mod")(sc))
	assert.False(t, scanner.HasFiles("**/*.py")(sc))
	assert.False(t, scanner.HasFiles()(sc))
	assert.True(t, scanner.FileContains("**/*.go", "FastAPI")(sc))
	assert.False(t, scanner.FileContains("**/*.go", "Flask")(sc))

	assert.False(t, scanner.HasDependency("kafka")(sc))
	deps := scanner.NewResult("go-modules")
	deps.Dependencies = []model.Dependency{{GroupID: "github.com/segmentio", ArtifactID: "kafka-go", Version: "v0.4.47"}}
	withDeps := sc.WithPrevious(scanner.NewResults().Append(scanner.Entry{ScannerID: "go-modules", Result: deps}))
	assert.True(t, scanner.HasDependency("segmentio/kafka-go")(withDeps))
	assert.True(t, scanner.HasDependency("KAFKA")(withDeps))

	yes := func(*scanner.Context) bool { return true }
	no := func(*scanner.Context) bool { return false }
	assert.True(t, scanner.All(yes, yes)(sc))
	assert.False(t, scanner.All(yes, no)(sc))
	assert.True(t, scanner.Any(no, yes)(sc))
	assert.False(t, scanner.Any(no, no)(sc))
	assert.True(t, scanner.Not(no)(sc))
}
