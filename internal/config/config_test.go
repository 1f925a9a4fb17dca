package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"archscan/internal/scanners"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "archscan.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	ids, err := cfg.Selection()
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestLoad_File(t *testing.T) {
	p := writeConfig(t, `
project:
  name: shop
  root: ./src
repositories:
  - name: billing
    path: ../billing
    url: https://example.com/acme/billing.git
scanners:
  mode: groups
  groups: [go, infra]
  concurrency: 4
  timeout: 45s
  config:
    go-http-router:
      frameworks: [gin]
logging:
  level: debug
quality:
  min_coverage: 60
  max_errors: 0
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "shop", cfg.Project.Name)
	assert.Equal(t, "./src", cfg.Project.Root)
	assert.Equal(t, []string{"../billing"}, cfg.RepositoryPaths())
	assert.Equal(t, "text", cfg.Logging.Format, "unset keys keep defaults")

	timeout, err := cfg.ScannerTimeout()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, timeout)

	ids, err := cfg.Selection()
	require.NoError(t, err)
	assert.Equal(t, append(append([]string{}, scanners.Groups["go"]...), scanners.Groups["infra"]...), ids)

	section, ok := cfg.ScannerConfig()["go-http-router"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"gin"}, section["frameworks"])

	gate := cfg.Gate()
	assert.Equal(t, 60.0, gate.MinCoverage)
	assert.Equal(t, 0, gate.MaxErrors)
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeConfig(t, "scanners:\n  mode: auto\n")
	t.Setenv("ARCHSCAN_SCANNER_MODE", "explicit")
	t.Setenv("ARCHSCAN_SCANNERS", "go-modules, npm-dependencies,")
	t.Setenv("ARCHSCAN_CONCURRENCY", "3")
	t.Setenv("ARCHSCAN_LOG_LEVEL", "WARN")
	t.Setenv("ARCHSCAN_DB", "/tmp/runs.db")

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"go-modules", "npm-dependencies"}, cfg.Scanners.Enabled)
	assert.Equal(t, 3, cfg.Scanners.Concurrency)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/runs.db", cfg.Storage.Path)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "project: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Scanners.Mode = "groups"
	cfg.Scanners.Groups = []string{"cobol"}
	cfg.Scanners.Concurrency = 0
	cfg.Scanners.Timeout = "soon"
	cfg.Logging.Format = "xml"
	cfg.Repositories = []Repository{{Name: "broken"}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"Config.Scanners.Concurrency",
		"Config.Logging.Format",
		"Config.Repositories[0].Path",
		"scanners.timeout",
		"cobol",
	} {
		assert.Contains(t, err.Error(), want)
	}
	assert.ErrorIs(t, err, scanners.ErrUnknownGroup)
}
