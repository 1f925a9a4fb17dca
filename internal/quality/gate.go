package quality

import "fmt"

// Gate is an optional pass/fail policy over a report.
type Gate struct {
	// MinCoverage is the lowest acceptable average category coverage.
	MinCoverage float64
	// MaxErrors is the highest acceptable number of ERROR gaps; negative disables it.
	MaxErrors int
}

// Verdict is the outcome of a gate evaluation.
type Verdict struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

func (g Gate) Evaluate(r *Report) Verdict {
	v := Verdict{Passed: true}
	if avg := r.AverageCoverage(); avg < g.MinCoverage {
		v.Passed = false
		v.Reasons = append(v.Reasons, fmt.Sprintf("average coverage %.1f%% is below %.1f%%", avg, g.MinCoverage))
	}
	if g.MaxErrors >= 0 {
		if n := len(r.GapsBySeverity(SeverityError)); n > g.MaxErrors {
			v.Passed = false
			v.Reasons = append(v.Reasons, fmt.Sprintf("%d scanner errors exceed the limit of %d", n, g.MaxErrors))
		}
	}
	return v
}
