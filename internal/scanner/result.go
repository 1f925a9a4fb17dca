package scanner

import (
	"fmt"
	"time"

	"archscan/internal/model"
)

// Result is the partial result of one scanner for one run.
type Result struct {
	ScannerID string `json:"scanner_id"`
	Success   bool   `json:"success"`

	Components    []model.Component    `json:"components,omitempty"`
	Dependencies  []model.Dependency   `json:"dependencies,omitempty"`
	APIEndpoints  []model.APIEndpoint  `json:"api_endpoints,omitempty"`
	MessageFlows  []model.MessageFlow  `json:"message_flows,omitempty"`
	DataEntities  []model.DataEntity   `json:"data_entities,omitempty"`
	Relationships []model.Relationship `json:"relationships,omitempty"`

	// Warnings are non-fatal. Any error marks the result failed.
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`

	Statistics Statistics    `json:"statistics"`
	Duration   time.Duration `json:"duration"`
}

// NewResult returns an empty successful result to be filled by a scanner.
func NewResult(scannerID string) *Result {
	return &Result{ScannerID: scannerID, Success: true}
}

// Empty is a successful result with no findings.
func Empty(scannerID string) *Result {
	return NewResult(scannerID)
}

// Failed is a result carrying only errors.
func Failed(scannerID string, errs ...string) *Result {
	if len(errs) == 0 {
		errs = []string{"scanner failed"}
	}
	return &Result{ScannerID: scannerID, Success: false, Errors: append([]string(nil), errs...)}
}

// Warnf appends a non-fatal warning.
func (r *Result) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// HasFindings reports whether any fact collection is non-empty.
func (r *Result) HasFindings() bool {
	return r.FindingsCount() > 0
}

// FindingsCount is the total number of facts across all collections.
func (r *Result) FindingsCount() int {
	return len(r.Components) + len(r.Dependencies) + len(r.APIEndpoints) +
		len(r.MessageFlows) + len(r.DataEntities) + len(r.Relationships)
}

// Normalize enforces the result invariants: errors imply failure and a
// failed result carries no findings.
func (r *Result) Normalize() {
	if len(r.Errors) > 0 {
		r.Success = false
	}
	if r.Success {
		return
	}
	if len(r.Errors) == 0 {
		r.Errors = []string{"scanner reported failure without an error"}
	}
	r.Components = nil
	r.Dependencies = nil
	r.APIEndpoints = nil
	r.MessageFlows = nil
	r.DataEntities = nil
	r.Relationships = nil
}

// Clone returns a deep copy so readers of earlier results cannot alter them.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Components = cloneComponents(r.Components)
	c.Dependencies = append([]model.Dependency(nil), r.Dependencies...)
	c.APIEndpoints = append([]model.APIEndpoint(nil), r.APIEndpoints...)
	c.MessageFlows = append([]model.MessageFlow(nil), r.MessageFlows...)
	c.DataEntities = cloneEntities(r.DataEntities)
	c.Relationships = append([]model.Relationship(nil), r.Relationships...)
	c.Warnings = append([]string(nil), r.Warnings...)
	c.Errors = append([]string(nil), r.Errors...)
	c.Statistics = r.Statistics.clone()
	return &c
}

func cloneComponents(in []model.Component) []model.Component {
	if in == nil {
		return nil
	}
	out := make([]model.Component, len(in))
	for i, c := range in {
		if c.Metadata != nil {
			md := make(map[string]string, len(c.Metadata))
			for k, v := range c.Metadata {
				md[k] = v
			}
			c.Metadata = md
		}
		out[i] = c
	}
	return out
}

func cloneEntities(in []model.DataEntity) []model.DataEntity {
	if in == nil {
		return nil
	}
	out := make([]model.DataEntity, len(in))
	for i, e := range in {
		e.Fields = append([]model.Field(nil), e.Fields...)
		out[i] = e
	}
	return out
}
