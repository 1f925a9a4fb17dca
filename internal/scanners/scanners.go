// Package scanners wires the concrete scanner packages into a registry and
// resolves scanner selections by id or by group.
package scanners

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"archscan/internal/scanner"
	"archscan/internal/scanners/golang"
	"archscan/internal/scanners/infra"
	"archscan/internal/scanners/javascript"
	"archscan/internal/scanners/python"
)

var ErrUnknownGroup = errors.New("unknown scanner group")

// Selection modes.
const (
	ModeAuto     = "auto"
	ModeGroups   = "groups"
	ModeExplicit = "explicit"
)

// Groups maps a group name to the ids of its scanners.
var Groups = map[string][]string{
	"go":         {"go-modules", "go-http-router", "go-struct", "go-kafka"},
	"python":     {"pip-poetry-dependencies", "fastapi-rest", "flask-rest", "sqlalchemy-entities"},
	"javascript": {"npm-dependencies", "express-api"},
	"infra":      {"docker-compose"},
}

var registrations = []func(*scanner.Registry) error{
	golang.Register,
	python.Register,
	javascript.Register,
	infra.Register,
}

var (
	discoverOnce sync.Once
	discovered   *scanner.Registry
	discoverErr  error
)

// Discover returns the process-wide registry. Registration runs once; a
// failure is returned on every call.
func Discover() (*scanner.Registry, error) {
	discoverOnce.Do(func() {
		discovered, discoverErr = NewRegistry()
	})
	return discovered, discoverErr
}

// NewRegistry builds a fresh registry holding every built-in scanner.
func NewRegistry() (*scanner.Registry, error) {
	r := scanner.NewRegistry()
	for _, register := range registrations {
		if err := register(r); err != nil {
			return nil, fmt.Errorf("register scanners: %w", err)
		}
	}
	return r, nil
}

// GroupNames returns the known group names sorted.
func GroupNames() []string {
	names := make([]string, 0, len(Groups))
	for name := range Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GroupsOf lists the groups a scanner belongs to.
func GroupsOf(id string) []string {
	var out []string
	for _, name := range GroupNames() {
		for _, member := range Groups[name] {
			if member == id {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

// Resolve turns a selection into the allow-list of scanner ids. Auto mode
// returns nil, meaning every scanner. Groups mode also keeps any explicitly
// enabled ids; duplicates are dropped in first-seen order.
func Resolve(mode string, enabled, groups []string) ([]string, error) {
	switch mode {
	case "", ModeAuto:
		return nil, nil
	case ModeExplicit:
		if len(enabled) == 0 {
			return nil, errors.New("explicit mode needs at least one enabled scanner")
		}
		return dedupe(enabled), nil
	case ModeGroups:
		if len(groups) == 0 {
			return nil, errors.New("groups mode needs at least one group")
		}
		var (
			ids  []string
			errs []error
		)
		for _, g := range groups {
			members, ok := Groups[g]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownGroup, g))
				continue
			}
			ids = append(ids, members...)
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return dedupe(append(ids, enabled...)), nil
	default:
		return nil, fmt.Errorf("unknown selection mode %q", mode)
	}
}

// Selected resolves a selection against a registry and returns the chosen
// scanners in registration order.
func Selected(r *scanner.Registry, mode string, enabled, groups []string) ([]scanner.Scanner, error) {
	all, err := r.DiscoverAll()
	if err != nil {
		return nil, err
	}
	ids, err := Resolve(mode, enabled, groups)
	if err != nil {
		return nil, err
	}
	return scanner.Select(all, ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
