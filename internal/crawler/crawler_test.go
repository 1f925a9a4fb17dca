package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestCrawler_FindFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"go.mod":                    "module example.com/app",
		"main.go":                   "package main",
		"internal/api/routes.go":    "package api",
		"node_modules/x/index.js":   "module.exports = {}",
		"web/src/app.js":            "const x = 1",
		"vendor/github.com/a/a.go":  "package a",
		"docker-compose.yml":        "services: {}",
		"deploy/compose.prod.yaml":  "services: {}",
	})

	c := NewCrawler(root)

	t.Run("double star matches root and nested files", func(t *testing.T) {
		files, err := c.FindFiles("**/*.go")
		require.NoError(t, err)
		assert.Equal(t, []string{"internal/api/routes.go", "main.go"}, files)
	})

	t.Run("single star stays at root", func(t *testing.T) {
		files, err := c.FindFiles("*.go")
		require.NoError(t, err)
		assert.Equal(t, []string{"main.go"}, files)
	})

	t.Run("ignored directories are skipped", func(t *testing.T) {
		files, err := c.FindFiles("**/*.js")
		require.NoError(t, err)
		assert.Equal(t, []string{"web/src/app.js"}, files)
	})

	t.Run("alternatives", func(t *testing.T) {
		files, err := c.FindAny("**/docker-compose*.{yml,yaml}", "**/compose*.{yml,yaml}")
		require.NoError(t, err)
		assert.Equal(t, []string{"deploy/compose.prod.yaml", "docker-compose.yml"}, files)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := c.FindFiles("[")
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	assert.True(t, c.HasAny("**/go.mod"))
	assert.False(t, c.HasAny("**/pom.xml"))
}

func TestCrawler_Sources(t *testing.T) {
	root := writeTree(t, map[string]string{
		"svc/a.go":   "package a",
		"tools/b.go": "package b",
	})

	c := NewCrawler(root, WithSources("svc"))
	files, err := c.FindFiles("**/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"svc/a.go"}, files)
}

func TestCrawler_ReadFileIsCached(t *testing.T) {
	root := writeTree(t, map[string]string{"main.go": "package main"})
	c := NewCrawler(root, WithContentCacheSize(4))

	data, err := c.ReadFile("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package changed"), 0o644))
	data, err = c.ReadFile("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))

	c.Purge()
	data, err = c.ReadFile("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package changed", string(data))

	_, err = c.ReadFile("missing.go")
	assert.Error(t, err)
}

func TestCrawler_MissingExtraSourceIsSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{"svc/main.go": "package main"})

	c := NewCrawler(root, WithSources(".", "gone"))
	files, err := c.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"svc/main.go"}, files)
	assert.Equal(t, []string{filepath.Join(root, "gone")}, c.Missing())
}

func TestCrawler_MissingRootFails(t *testing.T) {
	c := NewCrawler(filepath.Join(t.TempDir(), "absent"))
	_, err := c.Files()
	require.Error(t, err)
	assert.Empty(t, c.Missing())
}
