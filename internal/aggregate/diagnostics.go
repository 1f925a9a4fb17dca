package aggregate

import "archscan/internal/scanner"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one error or warning attributed to the scanner that raised it.
type Diagnostic struct {
	ScannerID string   `json:"scanner_id"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// Diagnostics lists the errors and warnings of every scanner, failed ones
// included, in execution order.
func Diagnostics(results *scanner.Results) []Diagnostic {
	var out []Diagnostic
	for _, e := range results.Entries() {
		if e.Result == nil {
			continue
		}
		for _, msg := range e.Result.Errors {
			out = append(out, Diagnostic{ScannerID: e.ScannerID, Severity: SeverityError, Message: msg})
		}
		for _, msg := range e.Result.Warnings {
			out = append(out, Diagnostic{ScannerID: e.ScannerID, Severity: SeverityWarning, Message: msg})
		}
	}
	return out
}

// Summary counts scanners by outcome.
type Summary struct {
	Completed int `json:"completed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Findings  int `json:"findings"`
}

func Summarize(results *scanner.Results) Summary {
	s := Summary{Completed: results.Len(), Skipped: len(results.Skipped())}
	for _, e := range results.Entries() {
		if e.Result != nil && e.Result.Success {
			s.Succeeded++
			s.Findings += e.Result.FindingsCount()
		} else {
			s.Failed++
		}
	}
	return s
}
