package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"archscan/internal/model"
	"archscan/internal/quality"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database. The parent directory is
// created when missing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			project TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			components INTEGER NOT NULL DEFAULT 0,
			endpoints INTEGER NOT NULL DEFAULT 0,
			model JSON NOT NULL,
			report JSON
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, arch *model.Architecture, report *quality.Report) (string, error) {
	if arch == nil {
		return "", errors.New("save snapshot: architecture is nil")
	}
	modelJSON, err := json.Marshal(arch)
	if err != nil {
		return "", fmt.Errorf("encode architecture: %w", err)
	}
	var reportJSON []byte
	if report != nil {
		if reportJSON, err = json.Marshal(report); err != nil {
			return "", fmt.Errorf("encode report: %w", err)
		}
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, project, created_at, components, endpoints, model, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, arch.ProjectName, s.now().UTC().UnixNano(), len(arch.Components), len(arch.APIEndpoints), modelJSON, reportJSON)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, project string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project, created_at, model, report FROM runs
		WHERE project = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, project)
	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %q: %w", project, err)
	}
	return snap, nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, project, created_at, model, report FROM runs WHERE id = ?", id)
	snap, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, project string, limit int) ([]SnapshotInfo, error) {
	query := "SELECT id, project, created_at, components, endpoints FROM runs"
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info    SnapshotInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Project, &created, &info.Components, &info.Endpoints); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		info.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var (
		snap       Snapshot
		created    int64
		modelJSON  []byte
		reportJSON []byte
	)
	if err := row.Scan(&snap.ID, &snap.Project, &created, &modelJSON, &reportJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	snap.CreatedAt = time.Unix(0, created).UTC()

	snap.Architecture = &model.Architecture{}
	if err := json.Unmarshal(modelJSON, snap.Architecture); err != nil {
		return nil, fmt.Errorf("decode architecture: %w", err)
	}
	if len(reportJSON) > 0 {
		snap.Report = &quality.Report{}
		if err := json.Unmarshal(reportJSON, snap.Report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
	}
	return &snap, nil
}
