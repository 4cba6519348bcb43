package models

import "time"

// Checkpoint is a snapshot taken after a wave completes. The core produces
// the metadata and requests creation; persistence is opaque to the core.
type Checkpoint struct {
	ID             string
	ProjectID      string
	WaveID         int
	CompletedTasks []string
	PendingTasks   []string
	CoordinatorState string
	CommitHandle   string // VCS commit handle for rollback, opaque here
	CreatedAt      time.Time
}
