// Package quality rolls scanner results into a coverage and gap report.
package quality

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"
)

type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}

// Gap is a shortfall a human reviewer should look at.
type Gap struct {
	ScannerID string   `json:"scanner_id"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
}

// ComponentMetrics is the coverage of one architecture category.
type ComponentMetrics struct {
	Category      string  `json:"category"`
	ExpectedFiles int     `json:"expected_files"`
	Findings      int     `json:"findings"`
	Coverage      float64 `json:"coverage"`
}

func NewComponentMetrics(category string, expected, found int) ComponentMetrics {
	m := ComponentMetrics{Category: category, ExpectedFiles: expected, Findings: found}
	switch {
	case expected > 0:
		m.Coverage = math.Min(float64(found)/float64(expected)*100.0, 100.0)
	default:
		m.Coverage = 100.0
	}
	return m
}

func (m ComponentMetrics) IsHighCoverage() bool { return m.Coverage >= 90.0 }
func (m ComponentMetrics) IsLowCoverage() bool  { return m.Coverage < 70.0 }

// Format renders "found/expected (pct%)".
func (m ComponentMetrics) Format() string {
	return fmt.Sprintf("%d/%d (%.0f%%)", m.Findings, m.ExpectedFiles, m.Coverage)
}

// Report is the quality summary of one run.
type Report struct {
	TotalFiles           int                `json:"total_files"`
	FilesAnalyzed        int                `json:"files_analyzed"`
	FilesSkipped         int                `json:"files_skipped"`
	Coverage             []ComponentMetrics `json:"coverage"`
	FindingsByConfidence map[string]int     `json:"findings_by_confidence"`
	Gaps                 []Gap              `json:"gaps"`
	Statistics           scanner.Statistics `json:"statistics"`
}

// CoveragePercentage is analyzed over total files, capped at 100 and 0 for an
// empty project.
func (r *Report) CoveragePercentage() float64 {
	if r.TotalFiles == 0 {
		return 0
	}
	return math.Min(float64(r.FilesAnalyzed)/float64(r.TotalFiles)*100.0, 100.0)
}

// AverageCoverage is the mean coverage across categories; 100 when no
// category applies.
func (r *Report) AverageCoverage() float64 {
	if len(r.Coverage) == 0 {
		return 100.0
	}
	sum := 0.0
	for _, c := range r.Coverage {
		sum += c.Coverage
	}
	return sum / float64(len(r.Coverage))
}

func (r *Report) TotalFindings() int {
	n := 0
	for _, v := range r.FindingsByConfidence {
		n += v
	}
	return n
}

func (r *Report) Findings(level confidence.Level) int {
	return r.FindingsByConfidence[level.String()]
}

func (r *Report) GapsBySeverity(sev Severity) []Gap {
	var out []Gap
	for _, g := range r.Gaps {
		if g.Severity == sev {
			out = append(out, g)
		}
	}
	return out
}

func (r *Report) HasGaps() bool { return len(r.Gaps) > 0 }

// Category looks up the metrics of one category.
func (r *Report) Category(name string) (ComponentMetrics, bool) {
	for _, c := range r.Coverage {
		if c.Category == name {
			return c, true
		}
	}
	return ComponentMetrics{}, false
}

// Write renders the report for terminals.
func (r *Report) Write(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Files: %d total, %d analyzed, %d skipped (%.1f%%)\n",
		r.TotalFiles, r.FilesAnalyzed, r.FilesSkipped, r.CoveragePercentage())
	fmt.Fprintf(&b, "Parsing: %s\n", r.Statistics.Summary())

	if len(r.Coverage) > 0 {
		b.WriteString("Coverage:\n")
		for _, c := range r.Coverage {
			marker := ""
			if c.IsLowCoverage() {
				marker = "  (low)"
			}
			fmt.Fprintf(&b, "  %-18s %s%s\n", c.Category, c.Format(), marker)
		}
	}

	fmt.Fprintf(&b, "Findings: %d (high %d, medium %d, low %d)\n",
		r.TotalFindings(), r.Findings(confidence.High), r.Findings(confidence.Medium), r.Findings(confidence.Low))

	if len(r.Gaps) > 0 {
		b.WriteString("Gaps:\n")
		for _, g := range r.Gaps {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", g.Severity, g.ScannerID, g.Message)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FileFinder resolves globs against the project.
type FileFinder interface {
	FindAny(patterns ...string) ([]string, error)
}

// Category file globs used to estimate how many facts a project should yield.
var (
	RestAPIPatterns = []string{
		"**/*handler*.go", "**/*router*.go", "**/routes.go",
		"**/routes.py", "**/views.py", "**/api.py",
		"**/routes/**.js", "**/routes/**.ts",
	}
	EntityPatterns = []string{
		"**/model/**.go", "**/models/**.go", "**/entity/**.go", "**/models.py",
	}
	MessagePatterns = []string{
		"**/*consumer*.go", "**/*producer*.go", "**/*consumer*.py", "**/*producer*.py",
	}
	DependencyPatterns = []string{
		"**/go.mod", "**/package.json", "**/requirements*.txt", "**/pyproject.toml", "**/setup.py",
	}
	SourcePatterns = []string{
		"**/*.go", "**/*.py", "**/*.js", "**/*.ts", "**/*.json",
		"**/*.yaml", "**/*.yml", "**/*.toml", "**/*.sql", "**/*.proto", "**/*.graphql",
	}
)

// Calculate builds the report from the run results and the merged model.
func Calculate(results *scanner.Results, arch *model.Architecture, files FileFinder) *Report {
	entries := results.Entries()

	var stats scanner.Statistics
	for _, e := range entries {
		if e.Result != nil && e.Result.Success {
			stats = stats.Add(e.Result.Statistics)
		}
	}

	total := count(files, SourcePatterns)
	r := &Report{
		TotalFiles:    total,
		FilesAnalyzed: stats.FilesScanned,
		FilesSkipped:  max(0, total-stats.FilesScanned),
		Statistics:    stats,
	}

	r.Coverage = categories(files, arch)
	r.FindingsByConfidence = findingsByConfidence(arch)
	r.Gaps = DetectGaps(entries)
	return r
}

func categories(files FileFinder, arch *model.Architecture) []ComponentMetrics {
	type category struct {
		name     string
		patterns []string
		found    int
	}
	cats := []category{
		{"REST APIs", RestAPIPatterns, len(arch.APIEndpoints)},
		{"Database Entities", EntityPatterns, len(arch.DataEntities)},
		{"Message Flows", MessagePatterns, len(arch.MessageFlows)},
		{"Dependencies", DependencyPatterns, len(arch.Dependencies)},
	}
	var out []ComponentMetrics
	for _, c := range cats {
		expected := count(files, c.patterns)
		if expected == 0 && c.found == 0 {
			continue
		}
		out = append(out, NewComponentMetrics(c.name, expected, c.found))
	}
	return out
}

func count(files FileFinder, patterns []string) int {
	if files == nil {
		return 0
	}
	matches, err := files.FindAny(patterns...)
	if err != nil {
		return 0
	}
	return len(matches)
}

func findingsByConfidence(arch *model.Architecture) map[string]int {
	out := make(map[string]int, len(confidence.Levels))
	for _, l := range confidence.Levels {
		out[l.String()] = 0
	}
	add := func(l confidence.Level) { out[l.String()]++ }
	for _, f := range arch.Components {
		add(f.Confidence)
	}
	for _, f := range arch.Dependencies {
		add(f.Confidence)
	}
	for _, f := range arch.APIEndpoints {
		add(f.Confidence)
	}
	for _, f := range arch.MessageFlows {
		add(f.Confidence)
	}
	for _, f := range arch.DataEntities {
		add(f.Confidence)
	}
	for _, f := range arch.Relationships {
		add(f.Confidence)
	}
	return out
}

// DetectGaps applies the gap rules to every completed scanner: a failure is
// an ERROR, warnings and a failure rate above 20% are WARNINGs, and a scanner
// that ran cleanly but found nothing is INFO. Gaps are ordered by severity,
// then execution order.
func DetectGaps(entries []scanner.Entry) []Gap {
	gaps := []Gap{}
	for _, e := range entries {
		r := e.Result
		if r == nil {
			continue
		}
		if !r.Success {
			msg := "unknown error"
			if len(r.Errors) > 0 {
				msg = r.Errors[0]
			}
			gaps = append(gaps, Gap{ScannerID: e.ScannerID, Severity: SeverityError, Message: "Scanner failed: " + msg})
			continue
		}
		if len(r.Warnings) > 0 {
			gaps = append(gaps, Gap{ScannerID: e.ScannerID, Severity: SeverityWarning, Message: r.Warnings[0]})
		}
		if fr := r.Statistics.FailureRate(); r.Statistics.FilesFailed > 0 && fr > 20.0 {
			gaps = append(gaps, Gap{
				ScannerID: e.ScannerID,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("High failure rate: %.1f%% of files failed to parse", fr),
			})
		}
		if !r.HasFindings() {
			gaps = append(gaps, Gap{ScannerID: e.ScannerID, Severity: SeverityInfo, Message: "Scanner applied but found nothing"})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Severity.rank() > gaps[j].Severity.rank()
	})
	return gaps
}
