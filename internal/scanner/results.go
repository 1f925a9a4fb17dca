package scanner

import "archscan/internal/model"

// Entry is one completed scanner turn.
type Entry struct {
	ScannerID string
	Priority  int
	Result    *Result
}

// Results is an ordered, append-only record of completed scanner turns.
// Append never modifies the receiver, so a view handed to an earlier scanner
// stays exactly as it was. Readers get deep copies of results.
type Results struct {
	entries []Entry
	index   map[string]int
	skipped []string
}

// NewResults returns an empty record.
func NewResults() *Results {
	return &Results{index: map[string]int{}}
}

// Append returns a new Results with the entries added after the existing ones.
// An id that is already present keeps its first entry.
func (r *Results) Append(entries ...Entry) *Results {
	next := &Results{
		entries: make([]Entry, len(r.entries), len(r.entries)+len(entries)),
		index:   make(map[string]int, len(r.index)+len(entries)),
		skipped: r.skipped,
	}
	copy(next.entries, r.entries)
	for k, v := range r.index {
		next.index[k] = v
	}
	for _, e := range entries {
		if _, dup := next.index[e.ScannerID]; dup {
			continue
		}
		next.index[e.ScannerID] = len(next.entries)
		next.entries = append(next.entries, e)
	}
	return next
}

// Skip returns a new Results recording scanners that did not apply.
func (r *Results) Skip(ids ...string) *Results {
	next := *r
	next.skipped = append(append([]string(nil), r.skipped...), ids...)
	return &next
}

// Get returns a copy of the result recorded for id.
func (r *Results) Get(id string) (*Result, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.entries[i].Result.Clone(), true
}

// Has reports whether id completed.
func (r *Results) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

// Len is the number of completed scanners.
func (r *Results) Len() int { return len(r.entries) }

// IDs lists scanner ids in completion order.
func (r *Results) IDs() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.ScannerID
	}
	return out
}

// Skipped lists scanners that were not applicable.
func (r *Results) Skipped() []string {
	return append([]string(nil), r.skipped...)
}

// Entries returns copies of every entry in completion order.
func (r *Results) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = Entry{ScannerID: e.ScannerID, Priority: e.Priority, Result: e.Result.Clone()}
	}
	return out
}

// Map returns results keyed by scanner id.
func (r *Results) Map() map[string]*Result {
	out := make(map[string]*Result, len(r.entries))
	for _, e := range r.entries {
		out[e.ScannerID] = e.Result.Clone()
	}
	return out
}

// Dependencies returns every dependency found by successful scanners so far.
func (r *Results) Dependencies() []model.Dependency {
	var out []model.Dependency
	for _, e := range r.entries {
		if e.Result != nil && e.Result.Success {
			out = append(out, e.Result.Dependencies...)
		}
	}
	return out
}

// Components returns every component found by successful scanners so far.
func (r *Results) Components() []model.Component {
	var out []model.Component
	for _, e := range r.entries {
		if e.Result != nil && e.Result.Success {
			out = append(out, cloneComponents(e.Result.Components)...)
		}
	}
	return out
}
