package scanner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNoScanners       = errors.New("no scanners registered")
	ErrDuplicateScanner = errors.New("duplicate scanner id")
	ErrInvalidScanner   = errors.New("invalid scanner")
	ErrUnknownScanner   = errors.New("unknown scanner")
)

// Registry holds the installed scanners in registration order.
type Registry struct {
	mu       sync.RWMutex
	scanners []Scanner
	byID     map[string]Scanner
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Scanner)}
}

// Register adds scanners in order. The first nil, unnamed or duplicate
// scanner stops registration with an error; nothing is replaced.
func (r *Registry) Register(scanners ...Scanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range scanners {
		if s == nil {
			return fmt.Errorf("%w: scanner is nil", ErrInvalidScanner)
		}
		id := s.ID()
		if id == "" {
			return fmt.Errorf("%w: scanner id is required", ErrInvalidScanner)
		}
		if _, exists := r.byID[id]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateScanner, id)
		}
		r.byID[id] = s
		r.scanners = append(r.scanners, s)
	}
	return nil
}

// MustRegister is Register for static wiring that cannot fail at runtime.
func (r *Registry) MustRegister(scanners ...Scanner) {
	if err := r.Register(scanners...); err != nil {
		panic(err)
	}
}

// DiscoverAll returns every registered scanner in registration order.
// An empty registry is an installation problem and reported as ErrNoScanners.
func (r *Registry) DiscoverAll() ([]Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.scanners) == 0 {
		return nil, ErrNoScanners
	}
	out := make([]Scanner, len(r.scanners))
	copy(out, r.scanners)
	return out, nil
}

func (r *Registry) Get(id string) (Scanner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScanner, id)
	}
	return s, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scanners)
}

// IDs returns the registered ids sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Select keeps the scanners whose id is in ids, preserving the order of all.
// An empty ids list selects everything. Unknown ids are reported together.
func Select(all []Scanner, ids []string) ([]Scanner, error) {
	if len(ids) == 0 {
		return append([]Scanner(nil), all...), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = false
	}
	var out []Scanner
	for _, s := range all {
		if _, ok := want[s.ID()]; ok {
			want[s.ID()] = true
			out = append(out, s)
		}
	}
	var errs []error
	for _, id := range ids {
		if !want[id] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownScanner, id))
			want[id] = true
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
