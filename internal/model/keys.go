package model

import "strings"

// keySep cannot appear in identifiers extracted from source text.
const keySep = "\x1f"

func joinKey(parts ...string) string {
	return strings.Join(parts, keySep)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Key returns the dedup identity of a component. ok is false when the id is absent.
func (c Component) Key() (string, bool) {
	if blank(c.ID) {
		return "", false
	}
	return c.ID, true
}

// Key identifies a dependency by (group, artifact, version). Group and version may be empty.
func (d Dependency) Key() (string, bool) {
	if blank(d.ArtifactID) {
		return "", false
	}
	return joinKey(d.GroupID, d.ArtifactID, d.Version), true
}

// Coordinate renders the dependency as group:artifact:version, omitting empty parts.
func (d Dependency) Coordinate() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.GroupID, d.ArtifactID, d.Version} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

// Key identifies an endpoint by (component, method, path). Method may be empty
// and is compared case-insensitively.
func (e APIEndpoint) Key() (string, bool) {
	if blank(e.ComponentID) || blank(e.Path) {
		return "", false
	}
	return joinKey(e.ComponentID, strings.ToUpper(e.Method), e.Path), true
}

// Key identifies a message flow by (topic, publisher, subscriber).
// At least one side of the flow must be known.
func (m MessageFlow) Key() (string, bool) {
	if blank(m.Topic) || (blank(m.PublisherID) && blank(m.SubscriberID)) {
		return "", false
	}
	return joinKey(m.Topic, m.PublisherID, m.SubscriberID), true
}

// Key identifies a data entity by (component, name).
func (d DataEntity) Key() (string, bool) {
	if blank(d.ComponentID) || blank(d.Name) {
		return "", false
	}
	return joinKey(d.ComponentID, d.Name), true
}

// Key identifies a relationship by (source, target, type).
func (r Relationship) Key() (string, bool) {
	if blank(r.SourceID) || blank(r.TargetID) || blank(string(r.Type)) {
		return "", false
	}
	return joinKey(r.SourceID, r.TargetID, string(r.Type)), true
}
