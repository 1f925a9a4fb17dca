package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/quality"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return store
}

func testArchitecture(project string, components ...string) *model.Architecture {
	arch := &model.Architecture{ProjectName: project, ProjectVersion: "1.0.0"}
	for _, name := range components {
		arch.Components = append(arch.Components, model.Component{
			ID:         model.StableID("test", name),
			Name:       name,
			Type:       model.ComponentService,
			Confidence: confidence.High,
			Evidence:   &model.Evidence{Filepath: name + "/go.mod", StartLine: 1},
		})
	}
	arch.APIEndpoints = []model.APIEndpoint{{ComponentID: "api", Type: model.APIRest, Path: "/health", Method: "GET"}}
	return arch
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	arch := testArchitecture("shop", "api", "worker")
	report := &quality.Report{TotalFiles: 10, FilesAnalyzed: 7, Gaps: []quality.Gap{{ScannerID: "go-struct", Message: "no findings", Severity: quality.SeverityInfo}}}
	id, err := store.SaveSnapshot(ctx, arch, report)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := store.GetSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "shop", snap.Project)
	assert.Equal(t, arch, snap.Architecture)
	require.NotNil(t, snap.Report)
	assert.Equal(t, 7, snap.Report.FilesAnalyzed)
	assert.Equal(t, report.Gaps, snap.Report.Gaps)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC), snap.CreatedAt)
}

func TestSQLiteStore_LatestAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.SaveSnapshot(ctx, testArchitecture("shop", "api"), nil)
	require.NoError(t, err)
	_, err = store.SaveSnapshot(ctx, testArchitecture("blog", "web"), nil)
	require.NoError(t, err)
	second, err := store.SaveSnapshot(ctx, testArchitecture("shop", "api", "worker"), nil)
	require.NoError(t, err)

	latest, err := store.LatestSnapshot(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Len(t, latest.Architecture.Components, 2)
	assert.Nil(t, latest.Report)

	runs, err := store.ListSnapshots(ctx, "shop", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 2, runs[0].Components)
	assert.Equal(t, 1, runs[0].Endpoints)

	all, err := store.ListSnapshots(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.LatestSnapshot(ctx, "nothing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = store.GetSnapshot(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = store.SaveSnapshot(ctx, nil, nil)
	assert.Error(t, err)
}
