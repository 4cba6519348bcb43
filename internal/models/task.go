// Package models defines the data types shared across the orchestration
// core: tasks, waves, agents, worktrees, QA iterations, checkpoints, and
// review requests.
package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle status of a Task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskQueued    TaskStatus = "queued"
	TaskAssigned  TaskStatus = "assigned"
	TaskWorking   TaskStatus = "working"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskEscalated TaskStatus = "escalated"
)

// Task is the unit of work dispatched by the coordinator.
type Task struct {
	ID               string
	Name             string
	Description      string
	Files            []string
	TestCriteria     []string
	EstimatedMinutes int
	Priority         int
	DependsOn        []string
	WaveID           int
	Status           TaskStatus
	CreatedAt        time.Time

	// Filled in as the task is dispatched and reviewed; never cleared.
	Agent         string
	WorktreePath  string
	HumanApproved bool
	HumanRejected bool
	Feedback      string
}

// NewTask builds a Task with a generated id and sane defaults.
func NewTask(name string) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    TaskPending,
		CreatedAt: time.Now(),
	}
}

// IsTerminal reports whether the task has reached a status from which it
// does not transition except via human review.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskCompleted, TaskFailed, TaskEscalated:
		return true
	default:
		return false
	}
}

// AgentType is a pool-slot role.
type AgentType string

const (
	AgentCoder    AgentType = "coder"
	AgentTester   AgentType = "tester"
	AgentReviewer AgentType = "reviewer"
	AgentMerger   AgentType = "merger"
	AgentPlanner  AgentType = "planner"
)

// AgentStatus is the lifecycle status of a pool slot.
type AgentStatus string

const (
	AgentIdle       AgentStatus = "idle"
	AgentAssigned   AgentStatus = "assigned"
	AgentWorking    AgentStatus = "working"
	AgentTerminated AgentStatus = "terminated"
)

// AgentMetrics accumulates per-agent statistics across its lifetime.
type AgentMetrics struct {
	TasksCompleted  int
	TasksFailed     int
	TotalIterations int
	TotalTokensUsed int64
	TotalTimeActive time.Duration
}

// AverageIterationsPerTask derives the mean QA-iteration count per
// terminated task; returns 0 when no task has terminated yet.
func (m *AgentMetrics) AverageIterationsPerTask() float64 {
	done := m.TasksCompleted + m.TasksFailed
	if done == 0 {
		return 0
	}
	return float64(m.TotalIterations) / float64(done)
}

// Agent is a pool-owned worker slot, not an LLM invocation.
type Agent struct {
	ID             string
	Type           AgentType
	Status         AgentStatus
	CurrentTaskID  string
	WorktreePath   string
	Metrics        AgentMetrics
	SpawnedAt      time.Time
	LastActiveAt   time.Time
}

// NewAgent allocates an idle agent of the given role.
func NewAgent(t AgentType) *Agent {
	now := time.Now()
	return &Agent{
		ID:           uuid.NewString(),
		Type:         t,
		Status:       AgentIdle,
		SpawnedAt:    now,
		LastActiveAt: now,
	}
}
