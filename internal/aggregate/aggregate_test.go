package aggregate

import (
	"encoding/json"
	"testing"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/scanner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, priority int, fill func(r *scanner.Result)) scanner.Entry {
	r := scanner.NewResult(id)
	if fill != nil {
		fill(r)
	}
	return scanner.Entry{ScannerID: id, Priority: priority, Result: r}
}

func TestAggregate_Scenario(t *testing.T) {
	dep := model.Dependency{GroupID: "org", ArtifactID: "lib", Version: "1.0"}
	a := entry("a", 10, func(r *scanner.Result) {
		d := dep
		d.Confidence = confidence.High
		r.Dependencies = []model.Dependency{d}
	})
	b := entry("b", 60, func(r *scanner.Result) {
		d := dep
		d.Confidence = confidence.Low
		d.Scope = model.ScopeTest
		r.Dependencies = []model.Dependency{d}
		r.APIEndpoints = []model.APIEndpoint{{ComponentID: "svc", Method: "GET", Path: "/x"}}
	})

	arch := Aggregate(Project{Name: "demo"}, scanner.NewResults().Append(a, b))

	require.Len(t, arch.Dependencies, 1)
	require.Len(t, arch.APIEndpoints, 1)
	assert.Equal(t, confidence.High, arch.Dependencies[0].Confidence)
	assert.Empty(t, arch.Dependencies[0].Scope)
	assert.Equal(t, "demo", arch.ProjectName)
}

func TestAggregate_FirstSeenFollowsPriority(t *testing.T) {
	late := entry("late", 20, func(r *scanner.Result) {
		r.Dependencies = []model.Dependency{{GroupID: "g", ArtifactID: "a", Version: "1", Scope: model.ScopeTest}}
	})
	early := entry("early", 10, func(r *scanner.Result) {
		r.Dependencies = []model.Dependency{{GroupID: "g", ArtifactID: "a", Version: "1", Scope: model.ScopeCompile}}
	})

	arch := FromEntries(Project{}, []scanner.Entry{late, early})
	require.Len(t, arch.Dependencies, 1)
	assert.Equal(t, model.ScopeCompile, arch.Dependencies[0].Scope)
}

func TestAggregate_OrderPreserved(t *testing.T) {
	a := entry("a", 10, func(r *scanner.Result) {
		r.Components = []model.Component{{ID: "z"}, {ID: "b"}}
	})
	b := entry("b", 50, func(r *scanner.Result) {
		r.Components = []model.Component{{ID: "b"}, {ID: "a"}, {ID: "m"}}
	})
	arch := Aggregate(Project{}, scanner.NewResults().Append(a, b))

	var got []string
	for _, c := range arch.Components {
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{"z", "b", "a", "m"}, got)
}

func TestAggregate_UncomputableKeysAlwaysKept(t *testing.T) {
	a := entry("a", 10, func(r *scanner.Result) {
		r.Dependencies = []model.Dependency{{GroupID: "g"}, {GroupID: "g"}}
		r.MessageFlows = []model.MessageFlow{{Topic: "orders"}, {Topic: "orders"}}
		r.Relationships = []model.Relationship{{SourceID: "x"}, {SourceID: "x"}}
	})
	arch := Aggregate(Project{}, scanner.NewResults().Append(a))
	assert.Len(t, arch.Dependencies, 2)
	assert.Len(t, arch.MessageFlows, 2)
	assert.Len(t, arch.Relationships, 2)
}

func TestAggregate_FailedResultsContributeNothing(t *testing.T) {
	failed := scanner.Entry{ScannerID: "f", Priority: 10, Result: &scanner.Result{
		ScannerID:    "f",
		Success:      false,
		Errors:       []string{"boom"},
		Dependencies: []model.Dependency{{ArtifactID: "leaked"}},
	}}
	ok := entry("ok", 20, func(r *scanner.Result) {
		r.Dependencies = []model.Dependency{{ArtifactID: "kept"}}
		r.Warnings = []string{"partial"}
	})
	results := scanner.NewResults().Append(failed, ok)

	arch := Aggregate(Project{}, results)
	require.Len(t, arch.Dependencies, 1)
	assert.Equal(t, "kept", arch.Dependencies[0].ArtifactID)

	diags := Diagnostics(results)
	assert.Equal(t, []Diagnostic{
		{ScannerID: "f", Severity: SeverityError, Message: "boom"},
		{ScannerID: "ok", Severity: SeverityWarning, Message: "partial"},
	}, diags)

	s := Summarize(results)
	assert.Equal(t, Summary{Completed: 2, Succeeded: 1, Failed: 1, Findings: 1}, s)
}

func TestAggregate_Idempotent(t *testing.T) {
	results := scanner.NewResults().Append(
		entry("a", 10, func(r *scanner.Result) {
			r.Components = []model.Component{{ID: "svc", Metadata: map[string]string{"k": "v"}}}
			r.Dependencies = []model.Dependency{{ArtifactID: "a"}, {ArtifactID: "a"}, {ArtifactID: "b"}}
		}),
		entry("b", 50, func(r *scanner.Result) {
			r.DataEntities = []model.DataEntity{{ComponentID: "svc", Name: "user", Fields: []model.Field{{Name: "id"}}}}
		}),
	)

	first, err := json.Marshal(Aggregate(Project{Name: "p"}, results))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(Project{Name: "p"}, results))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestAggregate_EmptyCollectionsAreNotNil(t *testing.T) {
	arch := Aggregate(Project{}, scanner.NewResults())
	assert.NotNil(t, arch.Components)
	assert.NotNil(t, arch.Relationships)
}

func TestDedupe_PerCollectionKeys(t *testing.T) {
	endpoints := []model.APIEndpoint{
		{ComponentID: "svc", Method: "get", Path: "/x"},
		{ComponentID: "svc", Method: "GET", Path: "/x", Description: "dup"},
		{ComponentID: "svc", Method: "POST", Path: "/x"},
		{ComponentID: "other", Method: "GET", Path: "/x"},
	}
	got := Dedupe(endpoints)
	require.Len(t, got, 3)
	assert.Empty(t, got[0].Description)

	entities := Dedupe([]model.DataEntity{
		{ComponentID: "a", Name: "user"},
		{ComponentID: "a", Name: "user", Type: "view"},
		{ComponentID: "b", Name: "user"},
	})
	assert.Len(t, entities, 2)
}
