// Package aggregate merges scanner results into one architecture model.
package aggregate

import (
	"sort"

	"archscan/internal/model"
	"archscan/internal/scanner"
)

// Project carries the identity of the scanned project.
type Project struct {
	Name         string
	Version      string
	Repositories []model.Repository
}

// Aggregate merges the results of successful scanners in priority order.
// Each collection is deduplicated on its own key; the first fact seen wins and
// facts whose key cannot be computed are always kept. Collections are never
// re-sorted. The same input always yields the same model.
func Aggregate(project Project, results *scanner.Results) *model.Architecture {
	return FromEntries(project, results.Entries())
}

// FromEntries is Aggregate over an explicit entry list. Entries are ordered by
// priority; equal priorities keep their given order.
func FromEntries(project Project, entries []scanner.Entry) *model.Architecture {
	ordered := make([]scanner.Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	var (
		components    []model.Component
		dependencies  []model.Dependency
		endpoints     []model.APIEndpoint
		flows         []model.MessageFlow
		entities      []model.DataEntity
		relationships []model.Relationship
	)
	for _, e := range ordered {
		r := e.Result
		if r == nil || !r.Success {
			continue
		}
		components = append(components, r.Components...)
		dependencies = append(dependencies, r.Dependencies...)
		endpoints = append(endpoints, r.APIEndpoints...)
		flows = append(flows, r.MessageFlows...)
		entities = append(entities, r.DataEntities...)
		relationships = append(relationships, r.Relationships...)
	}

	return &model.Architecture{
		ProjectName:    project.Name,
		ProjectVersion: project.Version,
		Repositories:   append([]model.Repository{}, project.Repositories...),
		Components:     Dedupe(components),
		Dependencies:   Dedupe(dependencies),
		APIEndpoints:   Dedupe(endpoints),
		MessageFlows:   Dedupe(flows),
		DataEntities:   Dedupe(entities),
		Relationships:  Dedupe(relationships),
	}
}

// Keyed is a fact with a dedup identity.
type Keyed interface {
	Key() (string, bool)
}

// Dedupe drops every fact whose key was already seen, keeping input order.
// Facts without a computable key are never dropped. The result is never nil.
func Dedupe[T Keyed](in []T) []T {
	out := make([]T, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		key, ok := f.Key()
		if !ok {
			out = append(out, f)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
