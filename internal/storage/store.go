package storage

import (
	"context"
	"errors"
	"time"

	"archscan/internal/model"
	"archscan/internal/quality"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted outcome of one scan run.
type Snapshot struct {
	ID           string
	Project      string
	CreatedAt    time.Time
	Architecture *model.Architecture
	Report       *quality.Report
}

// SnapshotInfo is the listing view of a snapshot, without its payload.
type SnapshotInfo struct {
	ID         string
	Project    string
	CreatedAt  time.Time
	Components int
	Endpoints  int
}

// Store persists scan snapshots.
type Store interface {
	// SaveSnapshot stores a run and returns its generated id.
	SaveSnapshot(ctx context.Context, arch *model.Architecture, report *quality.Report) (string, error)

	// LatestSnapshot returns the newest snapshot of a project.
	LatestSnapshot(ctx context.Context, project string) (*Snapshot, error)

	// GetSnapshot loads one snapshot by id.
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)

	// ListSnapshots returns snapshots of a project, newest first. An empty
	// project lists every snapshot.
	ListSnapshots(ctx context.Context, project string, limit int) ([]SnapshotInfo, error)

	Close() error
}
