// Package queue implements the TaskQueue: a wave/priority/dependency
// aware ready-set. Wave-advance logic computes and walks waves using
// Kahn's algorithm over the task dependency graph.
package queue

import (
	"sort"
	"sync"

	"github.com/harrison/nexus/internal/models"
)

// TaskQueue holds every task ever enqueued and releases them in
// (waveId, priority, createdAt, id) order once their dependencies are
// satisfied and their wave has become current.
type TaskQueue struct {
	mu          sync.Mutex
	tasks       map[string]*models.Task
	order       []string // insertion order, for stable iteration
	currentWave int
	completed   map[string]bool
	failed      map[string]bool
}

// New creates an empty TaskQueue.
func New() *TaskQueue {
	return &TaskQueue{
		tasks:     make(map[string]*models.Task),
		completed: make(map[string]bool),
		failed:    make(map[string]bool),
	}
}

// Enqueue inserts a task, marking it queued. waveId defaults to the task's
// own WaveID field if waveId is nil. Fails with DuplicateTaskError on a
// duplicate id.
func (q *TaskQueue) Enqueue(task *models.Task, waveID *int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.tasks[task.ID]; exists {
		return &models.DuplicateTaskError{ID: task.ID}
	}

	if waveID != nil {
		task.WaveID = *waveID
	}
	task.Status = models.TaskQueued
	q.tasks[task.ID] = task
	q.order = append(q.order, task.ID)
	return nil
}

// isReady reports whether every dependency of t has completed and t's wave
// has become current.
func (q *TaskQueue) isReady(t *models.Task) bool {
	if t.Status != models.TaskQueued {
		return false
	}
	if t.WaveID > q.currentWave {
		return false
	}
	for _, dep := range t.DependsOn {
		if !q.completed[dep] {
			return false
		}
	}
	return true
}

// readyLocked returns the ready tasks ordered by (waveId, priority,
// createdAt, id). Caller must hold q.mu.
func (q *TaskQueue) readyLocked() []*models.Task {
	var ready []*models.Task
	for _, id := range q.order {
		t := q.tasks[id]
		if q.isReady(t) {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.WaveID != b.WaveID {
			return a.WaveID < b.WaveID
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return ready
}

// Dequeue atomically selects and removes the highest-priority ready task,
// marking it assigned. Returns (nil, nil) when no task is ready.
func (q *TaskQueue) Dequeue() (*models.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ready := q.readyLocked()
	if len(ready) == 0 {
		return nil, nil
	}
	t := ready[0]
	t.Status = models.TaskAssigned
	return t, nil
}

// Peek performs the same selection as Dequeue without mutation.
func (q *TaskQueue) Peek() *models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	ready := q.readyLocked()
	if len(ready) == 0 {
		return nil
	}
	return ready[0]
}

// advanceWaveLocked moves currentWave to the smallest waveId > currentWave
// that still has tasks, if no tasks remain at currentWave. Caller must hold
// q.mu.
func (q *TaskQueue) advanceWaveLocked() {
	stillAtCurrent := false
	nextWave := -1
	for _, id := range q.order {
		t := q.tasks[id]
		if t.IsTerminal() {
			continue
		}
		if t.WaveID == q.currentWave {
			stillAtCurrent = true
			break
		}
		if t.WaveID > q.currentWave && (nextWave == -1 || t.WaveID < nextWave) {
			nextWave = t.WaveID
		}
	}
	if !stillAtCurrent && nextWave != -1 {
		q.currentWave = nextWave
	}
}

// MarkComplete records id as complete. Idempotent. Fails with
// UnknownTaskError if id was never enqueued.
func (q *TaskQueue) MarkComplete(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return &models.UnknownTaskError{ID: id}
	}
	t.Status = models.TaskCompleted
	q.completed[id] = true
	q.advanceWaveLocked()
	return nil
}

// MarkFailed records id as failed. Dependents are not unblocked; they
// remain blocked forever until the coordinator reaps them.
func (q *TaskQueue) MarkFailed(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[id]
	if !ok {
		return &models.UnknownTaskError{ID: id}
	}
	t.Status = models.TaskFailed
	q.failed[id] = true
	q.advanceWaveLocked()
	return nil
}

// GetReadyTasks returns the current ready set, in release order.
func (q *TaskQueue) GetReadyTasks() []*models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readyLocked()
}

// GetByWave returns every task assigned to waveID, regardless of status.
func (q *TaskQueue) GetByWave(waveID int) []*models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*models.Task
	for _, id := range q.order {
		t := q.tasks[id]
		if t.WaveID == waveID {
			out = append(out, t)
		}
	}
	return out
}

// Size returns the number of tasks ever enqueued.
func (q *TaskQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// CurrentWave returns the queue's current wave cursor.
func (q *TaskQueue) CurrentWave() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentWave
}

// CompletedCount and FailedCount report terminal-status counts.
func (q *TaskQueue) CompletedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.completed)
}

func (q *TaskQueue) FailedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.failed)
}

// CompletedIDs and PendingIDs list task ids by terminal status, for
// checkpoint snapshots.
func (q *TaskQueue) CompletedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.completed))
	for id := range q.completed {
		out = append(out, id)
	}
	return out
}

func (q *TaskQueue) PendingIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, id := range q.order {
		t := q.tasks[id]
		if !t.IsTerminal() {
			out = append(out, id)
		}
	}
	return out
}

// Clear resets the queue to empty.
func (q *TaskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = make(map[string]*models.Task)
	q.order = nil
	q.currentWave = 0
	q.completed = make(map[string]bool)
	q.failed = make(map[string]bool)
}
