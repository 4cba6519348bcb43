package models

import "time"

// Event is a single fan-out notification emitted by the coordinator.
// Handlers receive events by value and must be non-blocking; a handler
// exception is caught and ignored.
type Event struct {
	Type      string
	Timestamp time.Time
	ProjectID string
	Data      map[string]any
}

// NewEvent stamps the current time onto a new event.
func NewEvent(typ, projectID string, data map[string]any) Event {
	return Event{Type: typ, Timestamp: time.Now(), ProjectID: projectID, Data: data}
}

// Event type prefixes, namespaced by the component that emits them.
const (
	EvtCoordinatorStarted = "coordinator:started"
	EvtCoordinatorPaused  = "coordinator:paused"
	EvtCoordinatorResumed = "coordinator:resumed"
	EvtCoordinatorStopped = "coordinator:stopped"

	EvtWaveStarted   = "wave:started"
	EvtWaveCompleted = "wave:completed"

	EvtTaskAssigned    = "task:assigned"
	EvtTaskStarted     = "task:started"
	EvtTaskCompleted   = "task:completed"
	EvtTaskFailed      = "task:failed"
	EvtTaskEscalated   = "task:escalated"
	EvtTaskMerged      = "task:merged"
	EvtTaskMergeFailed = "task:merge-failed"
	EvtTaskPushed      = "task:pushed"
	EvtTaskPushFailed  = "task:push-failed"

	EvtAgentSpawned    = "agent:spawned"
	EvtAgentTerminated = "agent:terminated"
	EvtAgentIdle       = "agent:idle"
	EvtAgentReleased   = "agent:released"
	EvtAgentError      = "agent:error"

	EvtCheckpointCreated = "checkpoint:created"
	EvtCheckpointFailed  = "checkpoint:failed"

	EvtOrchestrationMode = "orchestration:mode"

	EvtEvolutionAnalyzing       = "evolution:analyzing"
	EvtEvolutionAnalyzed        = "evolution:analyzed"
	EvtEvolutionAnalysisFailed  = "evolution:analysis-failed"

	EvtProjectCompleted = "project:completed"
	EvtProjectFailed    = "project:failed"

	EvtReviewRequested = "review:requested"
)

// EventHandler consumes events emitted by the coordinator.
type EventHandler func(Event)
