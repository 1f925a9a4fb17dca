package aggregate

import (
	"fmt"
	"strings"

	"archscan/internal/model"
)

type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
)

// Change is one fact that appears in only one of two models.
type Change struct {
	Collection string     `json:"collection"`
	Kind       ChangeKind `json:"kind"`
	Label      string     `json:"label"`
}

// Delta is the difference between two models, removals first then additions,
// each in model order.
type Delta struct {
	Changes []Change `json:"changes"`
}

func (d Delta) Empty() bool { return len(d.Changes) == 0 }

// Count returns the number of changes of kind in collection. An empty
// collection counts every collection.
func (d Delta) Count(collection string, kind ChangeKind) int {
	n := 0
	for _, c := range d.Changes {
		if c.Kind == kind && (collection == "" || c.Collection == collection) {
			n++
		}
	}
	return n
}

// Diff compares two models by dedup key. Facts without a computable key have
// no identity across runs and are ignored.
func Diff(previous, current *model.Architecture) Delta {
	if previous == nil {
		previous = &model.Architecture{}
	}
	if current == nil {
		current = &model.Architecture{}
	}
	var d Delta
	d.Changes = append(d.Changes, diff("components", previous.Components, current.Components, componentLabel)...)
	d.Changes = append(d.Changes, diff("dependencies", previous.Dependencies, current.Dependencies, model.Dependency.Coordinate)...)
	d.Changes = append(d.Changes, diff("api_endpoints", previous.APIEndpoints, current.APIEndpoints, endpointLabel)...)
	d.Changes = append(d.Changes, diff("message_flows", previous.MessageFlows, current.MessageFlows, flowLabel)...)
	d.Changes = append(d.Changes, diff("data_entities", previous.DataEntities, current.DataEntities, entityLabel)...)
	d.Changes = append(d.Changes, diff("relationships", previous.Relationships, current.Relationships, relationshipLabel)...)
	return d
}

func diff[T Keyed](collection string, before, after []T, label func(T) string) []Change {
	keys := func(in []T) map[string]struct{} {
		out := make(map[string]struct{}, len(in))
		for _, f := range in {
			if k, ok := f.Key(); ok {
				out[k] = struct{}{}
			}
		}
		return out
	}
	beforeKeys, afterKeys := keys(before), keys(after)

	var out []Change
	emit := func(in []T, other map[string]struct{}, kind ChangeKind) {
		seen := map[string]struct{}{}
		for _, f := range in {
			k, ok := f.Key()
			if !ok {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if _, ok := other[k]; !ok {
				out = append(out, Change{Collection: collection, Kind: kind, Label: label(f)})
			}
		}
	}
	emit(before, afterKeys, Removed)
	emit(after, beforeKeys, Added)
	return out
}

func componentLabel(c model.Component) string {
	if c.Name != "" && c.Name != c.ID {
		return fmt.Sprintf("%s (%s)", c.ID, c.Name)
	}
	return c.ID
}

func endpointLabel(e model.APIEndpoint) string {
	method := strings.ToUpper(e.Method)
	if method == "" {
		method = "ANY"
	}
	return fmt.Sprintf("%s %s [%s]", method, e.Path, e.ComponentID)
}

func flowLabel(m model.MessageFlow) string {
	return fmt.Sprintf("%s: %s -> %s", m.Topic, orUnknown(m.PublisherID), orUnknown(m.SubscriberID))
}

func entityLabel(e model.DataEntity) string {
	return e.ComponentID + "." + e.Name
}

func relationshipLabel(r model.Relationship) string {
	return fmt.Sprintf("%s -%s-> %s", r.SourceID, r.Type, r.TargetID)
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
