package quality

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"archscan/internal/confidence"
	"archscan/internal/crawler"
	"archscan/internal/model"
	"archscan/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentMetrics(t *testing.T) {
	tests := []struct {
		name            string
		expected, found int
		coverage        float64
		high, low       bool
		format          string
	}{
		{"partial", 10, 6, 60, false, true, "6/10 (60%)"},
		{"capped", 2, 5, 100, true, false, "5/2 (100%)"},
		{"nothing expected", 0, 3, 100, true, false, "3/0 (100%)"},
		{"boundary", 10, 9, 90, true, false, "9/10 (90%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewComponentMetrics("REST APIs", tt.expected, tt.found)
			assert.InDelta(t, tt.coverage, m.Coverage, 1e-9)
			assert.Equal(t, tt.high, m.IsHighCoverage())
			assert.Equal(t, tt.low, m.IsLowCoverage())
			assert.Equal(t, tt.format, m.Format())
		})
	}
}

func TestDetectGaps(t *testing.T) {
	failed := scanner.Failed("broken", "manifest unreadable", "second")

	warned := scanner.NewResult("warned")
	warned.Dependencies = []model.Dependency{{ArtifactID: "x"}}
	warned.Warnings = []string{"skipped vendored file", "another"}

	flaky := scanner.NewResult("flaky")
	flaky.APIEndpoints = []model.APIEndpoint{{ComponentID: "svc", Path: "/"}}
	flaky.Statistics = scanner.Statistics{FilesScanned: 10, FilesParsedSuccessfully: 7, FilesFailed: 3}

	empty := scanner.NewResult("empty")

	gaps := DetectGaps([]scanner.Entry{
		{ScannerID: "empty", Result: empty},
		{ScannerID: "warned", Result: warned},
		{ScannerID: "broken", Result: failed},
		{ScannerID: "flaky", Result: flaky},
	})

	assert.Equal(t, []Gap{
		{ScannerID: "broken", Severity: SeverityError, Message: "Scanner failed: manifest unreadable"},
		{ScannerID: "warned", Severity: SeverityWarning, Message: "skipped vendored file"},
		{ScannerID: "flaky", Severity: SeverityWarning, Message: "High failure rate: 30.0% of files failed to parse"},
		{ScannerID: "empty", Severity: SeverityInfo, Message: "Scanner applied but found nothing"},
	}, gaps)
}

func writeFiles(t *testing.T, files ...string) *crawler.Crawler {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return crawler.NewCrawler(root)
}

func TestCalculate(t *testing.T) {
	files := writeFiles(t,
		"go.mod",
		"internal/http/router.go",
		"internal/http/handler_users.go",
		"internal/models/user.go",
		"README.md",
	)

	deps := scanner.NewResult("go-modules")
	deps.Dependencies = []model.Dependency{{ArtifactID: "gin", Confidence: confidence.High}}
	deps.Statistics = scanner.Statistics{FilesDiscovered: 1, FilesScanned: 1, FilesParsedSuccessfully: 1}

	api := scanner.NewResult("go-http-router")
	api.APIEndpoints = []model.APIEndpoint{{ComponentID: "http", Path: "/users", Method: "GET", Confidence: confidence.Medium}}
	api.Statistics = scanner.Statistics{FilesDiscovered: 3, FilesScanned: 3, FilesParsedWithFallback: 3}

	results := scanner.NewResults().Append(
		scanner.Entry{ScannerID: "go-modules", Priority: 10, Result: deps},
		scanner.Entry{ScannerID: "go-http-router", Priority: 50, Result: api},
	)
	arch := &model.Architecture{
		Dependencies: deps.Dependencies,
		APIEndpoints: api.APIEndpoints,
	}

	r := Calculate(results, arch, files)

	assert.Equal(t, 3, r.TotalFiles)
	assert.Equal(t, 4, r.FilesAnalyzed)
	assert.Equal(t, 0, r.FilesSkipped)
	assert.Equal(t, 100.0, r.CoveragePercentage())
	assert.Equal(t, 2, r.TotalFindings())
	assert.Equal(t, 1, r.Findings(confidence.High))
	assert.Equal(t, 1, r.Findings(confidence.Medium))
	assert.Equal(t, 0, r.Findings(confidence.Low))

	rest, ok := r.Category("REST APIs")
	require.True(t, ok)
	assert.Equal(t, 2, rest.ExpectedFiles)
	assert.Equal(t, 50.0, rest.Coverage)

	entities, ok := r.Category("Database Entities")
	require.True(t, ok)
	assert.Equal(t, 0.0, entities.Coverage)

	_, ok = r.Category("Message Flows")
	assert.False(t, ok)

	assert.Empty(t, r.Gaps)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf))
	assert.Contains(t, buf.String(), "REST APIs")
	assert.Contains(t, buf.String(), "1/2 (50%)")
}

func TestGate(t *testing.T) {
	r := &Report{
		Coverage: []ComponentMetrics{NewComponentMetrics("REST APIs", 4, 2), NewComponentMetrics("Dependencies", 1, 1)},
		Gaps:     []Gap{{ScannerID: "x", Severity: SeverityError, Message: "boom"}},
	}
	assert.InDelta(t, 75.0, r.AverageCoverage(), 1e-9)

	assert.True(t, Gate{MinCoverage: 70, MaxErrors: 1}.Evaluate(r).Passed)
	assert.True(t, Gate{MinCoverage: 0, MaxErrors: -1}.Evaluate(r).Passed)

	v := Gate{MinCoverage: 80, MaxErrors: 0}.Evaluate(r)
	assert.False(t, v.Passed)
	assert.Len(t, v.Reasons, 2)

	assert.Equal(t, 100.0, (&Report{}).AverageCoverage())
	assert.Equal(t, 0.0, (&Report{}).CoveragePercentage())
}
