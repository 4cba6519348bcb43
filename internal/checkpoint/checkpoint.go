// Package checkpoint implements the CheckpointManager: a durable,
// point-in-time snapshot of a project's progress that the coordinator can
// request after any wave completes. The core treats the persisted
// payload as opaque; Get and Latest read every Checkpoint field back. Storage
// is backed by mattn/go-sqlite3. The on-disk snapshot file itself is
// written through internal/filelock's AtomicWrite/LockAndWrite for
// crash-safe writes.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/nexus/internal/filelock"
	"github.com/harrison/nexus/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id                 TEXT PRIMARY KEY,
	project_id         TEXT NOT NULL,
	wave_id            INTEGER NOT NULL,
	completed_tasks    TEXT NOT NULL,
	pending_tasks      TEXT NOT NULL,
	coordinator_state  TEXT NOT NULL,
	commit_handle      TEXT NOT NULL,
	snapshot_path      TEXT NOT NULL,
	created_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_project ON checkpoints(project_id);
`

// Manager owns the SQLite-backed checkpoint store and the directory its
// atomic snapshot files live in.
type Manager struct {
	db  *sql.DB
	dir string // <projectPath>/.nexus/snapshots
}

// Open opens (creating if absent) the checkpoint database at dbPath and
// ensures the schema exists. snapshotDir holds one JSON file per
// checkpoint, written atomically.
func Open(dbPath, snapshotDir string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: migrate schema: %w", err)
	}
	return &Manager{db: db, dir: snapshotDir}, nil
}

func (m *Manager) Close() error { return m.db.Close() }

// Create persists a checkpoint: the row goes to SQLite for querying by
// project/wave, and the full payload is atomically written as JSON so a
// restore can read it without a DB round trip.
func (m *Manager) Create(ctx context.Context, cp *models.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal %s: %w", cp.ID, err)
	}
	snapshotPath := filepath.Join(m.dir, cp.ID+".json")
	if err := filelock.LockAndWrite(snapshotPath, payload); err != nil {
		return fmt.Errorf("checkpoint: write snapshot %s: %w", cp.ID, err)
	}

	completedJSON, _ := json.Marshal(cp.CompletedTasks)
	pendingJSON, _ := json.Marshal(cp.PendingTasks)
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO checkpoints
			(id, project_id, wave_id, completed_tasks, pending_tasks, coordinator_state, commit_handle, snapshot_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.ProjectID, cp.WaveID, string(completedJSON), string(pendingJSON), cp.CoordinatorState, cp.CommitHandle, snapshotPath, cp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("checkpoint: insert %s: %w", cp.ID, err)
	}
	return nil
}

// Latest returns the most recently created checkpoint for a project, or
// nil if none exist.
func (m *Manager) Latest(ctx context.Context, projectID string) (*models.Checkpoint, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, project_id, wave_id, completed_tasks, pending_tasks, coordinator_state, commit_handle, created_at
		FROM checkpoints WHERE project_id = ? ORDER BY created_at DESC LIMIT 1`, projectID)
	return scanCheckpoint(row)
}

// Get loads a single checkpoint by id, for rollback/inspection. Its
// CoordinatorState and CommitHandle remain opaque to callers.
func (m *Manager) Get(ctx context.Context, id string) (*models.Checkpoint, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, project_id, wave_id, completed_tasks, pending_tasks, coordinator_state, commit_handle, created_at
		FROM checkpoints WHERE id = ?`, id)
	return scanCheckpoint(row)
}

// ListByProject returns every checkpoint recorded for a project, oldest
// first.
func (m *Manager) ListByProject(ctx context.Context, projectID string) ([]*models.Checkpoint, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, project_id, wave_id, completed_tasks, pending_tasks, coordinator_state, commit_handle, created_at
		FROM checkpoints WHERE project_id = ? ORDER BY created_at ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []*models.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpointRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scannable) (*models.Checkpoint, error) {
	return scanRow(row)
}

func scanCheckpointRows(rows *sql.Rows) (*models.Checkpoint, error) {
	return scanRow(rows)
}

func scanRow(row scannable) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var completedJSON, pendingJSON string
	if err := row.Scan(&cp.ID, &cp.ProjectID, &cp.WaveID, &completedJSON, &pendingJSON, &cp.CoordinatorState, &cp.CommitHandle, &cp.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: scan: %w", err)
	}
	_ = json.Unmarshal([]byte(completedJSON), &cp.CompletedTasks)
	_ = json.Unmarshal([]byte(pendingJSON), &cp.PendingTasks)
	return &cp, nil
}
