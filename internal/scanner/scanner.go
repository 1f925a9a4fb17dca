package scanner

import (
	"context"
	"sort"
)

// Scanner is an extractor plugin. Implementations are stateless between
// invocations; all run state lives in the Context.
type Scanner interface {
	// ID is a stable lowercase-hyphen identifier such as "go-modules".
	ID() string
	DisplayName() string
	Languages() []string
	// FilePatterns are globs relative to the project root.
	FilePatterns() []string
	// Priority orders execution; lower runs first. Dependency scanners use
	// the lowest range so later scanners can read what they found.
	Priority() int
	AppliesTo(sc *Context) bool
	// Scan extracts facts. A returned error or a panic is treated as a fault
	// and converted into a failed Result by the orchestrator.
	Scan(ctx context.Context, sc *Context) (*Result, error)
}

// Priority bands used by the built-in scanners.
const (
	PriorityDependencies   = 10
	PriorityInfrastructure = 20
	PriorityAPI            = 50
	PriorityData           = 60
)

// SortByPriority stable-sorts scanners by ascending priority; ties keep
// their discovery order. The input slice is not modified.
func SortByPriority(scanners []Scanner) []Scanner {
	out := make([]Scanner, len(scanners))
	copy(out, scanners)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

// Info is the static description of a scanner.
type Info struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Languages    []string `json:"languages"`
	FilePatterns []string `json:"file_patterns"`
	Priority     int      `json:"priority"`
}

// Describe returns the static metadata of s.
func Describe(s Scanner) Info {
	return Info{
		ID:           s.ID(),
		DisplayName:  s.DisplayName(),
		Languages:    s.Languages(),
		FilePatterns: s.FilePatterns(),
		Priority:     s.Priority(),
	}
}

// Base carries the static metadata of a scanner. Embedding it supplies every
// metadata method of Scanner, and AppliesTo defaults to "any file matches".
type Base struct {
	Meta Info
}

func (b Base) ID() string             { return b.Meta.ID }
func (b Base) DisplayName() string    { return b.Meta.DisplayName }
func (b Base) Languages() []string    { return b.Meta.Languages }
func (b Base) FilePatterns() []string { return b.Meta.FilePatterns }
func (b Base) Priority() int          { return b.Meta.Priority }

func (b Base) AppliesTo(sc *Context) bool {
	return HasFiles(b.Meta.FilePatterns...)(sc)
}
