// Package pool implements the AgentPool: a bounded, typed worker pool
// that owns every agent's lifecycle, gating concurrency per role with a
// capacity counter rather than a single global limit.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/harrison/nexus/internal/models"
)

// Runner is the narrow capability the pool needs from an Agent Runner to
// execute one task end-to-end and report back a result.
type Runner interface {
	Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error)
}

// DefaultCapacity returns the built-in per-role capacity defaults.
func DefaultCapacity() map[models.AgentType]int {
	return map[models.AgentType]int{
		models.AgentCoder:    4,
		models.AgentTester:   2,
		models.AgentReviewer: 2,
		models.AgentMerger:   1,
		models.AgentPlanner:  1,
	}
}

// Pool is the AgentPool: bounded per-role capacity, idle-agent serving,
// per-agent metrics.
type Pool struct {
	mu       sync.Mutex
	capacity map[models.AgentType]int
	agents   map[string]*models.Agent
	runners  map[models.AgentType]func(worktreePath string) Runner
	onEvent  func(models.Event)
}

// New builds a Pool with the given per-role capacity (falls back to
// DefaultCapacity for any role left at zero) and runner factories. A
// factory is invoked once per RunTask call, scoped to that call's
// worktree path, so that stateful runners (the CoderRunner tracks a
// conversation transcript across FixIssues calls, and every runner's tool
// executor must be rooted at its own task's worktree) never share mutable
// state across two concurrently-running agents of the same role.
func New(capacity map[models.AgentType]int, runners map[models.AgentType]func(worktreePath string) Runner, onEvent func(models.Event)) *Pool {
	cap := DefaultCapacity()
	for t, n := range capacity {
		if n > 0 {
			cap[t] = n
		}
	}
	if onEvent == nil {
		onEvent = func(models.Event) {}
	}
	return &Pool{
		capacity: cap,
		agents:   make(map[string]*models.Agent),
		runners:  runners,
		onEvent:  onEvent,
	}
}

func (p *Pool) emit(typ string, data map[string]any) {
	p.onEvent(models.NewEvent(typ, "", data))
}

// activeCountLocked counts non-terminated agents of the given type.
// Caller must hold p.mu.
func (p *Pool) activeCountLocked(t models.AgentType) int {
	n := 0
	for _, a := range p.agents {
		if a.Type == t && a.Status != models.AgentTerminated {
			n++
		}
	}
	return n
}

// Spawn allocates a fresh agent of the given role. Fails with
// PoolCapacityError if the role is already at its configured cap:
// spawn succeeds iff active count < cap.
func (p *Pool) Spawn(t models.AgentType) (*models.Agent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cap := p.capacity[t]
	if p.activeCountLocked(t) >= cap {
		return nil, &models.PoolCapacityError{Type: t, Max: cap}
	}
	agent := models.NewAgent(t)
	p.agents[agent.ID] = agent
	p.emit(models.EvtAgentSpawned, map[string]any{"agent": agent})
	return agent, nil
}

// HasCapacity reports whether Spawn(t) would currently succeed.
func (p *Pool) HasCapacity(t models.AgentType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCountLocked(t) < p.capacity[t]
}

// Terminate marks an agent terminated and emits agent:terminated. The
// agent is not removed: it stays in GetAll, Size, and Stats (as
// terminated), but no longer counts toward its role's capacity.
func (p *Pool) Terminate(id, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[id]
	if !ok {
		return &models.AgentNotFoundError{ID: id}
	}
	a.Status = models.AgentTerminated
	p.emit(models.EvtAgentTerminated, map[string]any{"agentId": id, "reason": reason, "metrics": a.Metrics})
	return nil
}

// Assign transitions idle -> assigned.
func (p *Pool) Assign(id, taskID, worktreePath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.agents[id]
	if !ok {
		return &models.AgentNotFoundError{ID: id}
	}
	a.Status = models.AgentAssigned
	a.CurrentTaskID = taskID
	a.WorktreePath = worktreePath
	a.LastActiveAt = time.Now()
	return nil
}

// Release transitions to idle, clears the in-flight task/worktree, and
// emits an idle event.
func (p *Pool) Release(id string) error {
	p.mu.Lock()
	a, ok := p.agents[id]
	if !ok {
		p.mu.Unlock()
		return &models.AgentNotFoundError{ID: id}
	}
	a.Status = models.AgentIdle
	a.CurrentTaskID = ""
	a.WorktreePath = ""
	a.LastActiveAt = time.Now()
	p.mu.Unlock()

	p.emit(models.EvtAgentIdle, map[string]any{"agentId": id, "idleSince": a.LastActiveAt})
	return nil
}

// RunTask executes task via a freshly constructed instance of the role's
// runner; transitions assigned -> working -> idle; updates metrics on
// every exit path (success, failure, panic). A runner panic is counted as
// a failure, emitted as agent:error, and re-raised. The agent is still
// released in the finally path even when the runner errors. The
// constructed Runner instance is returned
// alongside the result so a caller driving a QA loop can keep using it
// (e.g. CoderRunner.FixIssues needs the same instance that ran Execute).
func (p *Pool) RunTask(ctx context.Context, agentID string, task *models.Task, worktreePath string) (result *models.TaskResult, usedRunner Runner, runErr error) {
	p.mu.Lock()
	a, ok := p.agents[agentID]
	if !ok {
		p.mu.Unlock()
		return nil, nil, &models.AgentNotFoundError{ID: agentID}
	}
	a.Status = models.AgentWorking
	factory, hasRunner := p.runners[a.Type]
	p.mu.Unlock()

	start := time.Now()
	defer func() {
		panicked := recover()
		p.mu.Lock()
		a.LastActiveAt = time.Now()
		a.Metrics.TotalTimeActive += time.Since(start)
		if result != nil {
			a.Metrics.TotalIterations += result.Metrics.Iterations
			a.Metrics.TotalTokensUsed += result.Metrics.TokensUsed
		}
		if runErr != nil || panicked != nil || (result != nil && !result.Success) {
			a.Metrics.TasksFailed++
		} else if result != nil {
			a.Metrics.TasksCompleted++
		}
		a.Status = models.AgentIdle
		a.CurrentTaskID = ""
		a.WorktreePath = ""
		p.mu.Unlock()

		if runErr != nil {
			recoverable := true
			if be, ok := runErr.(interface{ Recoverable() bool }); ok {
				recoverable = be.Recoverable()
			}
			p.emit(models.EvtAgentError, map[string]any{"agentId": agentID, "error": runErr, "recoverable": recoverable})
		}
		if panicked != nil {
			p.emit(models.EvtAgentError, map[string]any{"agentId": agentID, "error": panicked, "recoverable": false})
			panic(panicked)
		}
	}()

	if !hasRunner {
		return nil, nil, &models.NoRunnerError{Type: a.Type}
	}
	usedRunner = factory(worktreePath)
	result, runErr = usedRunner.Execute(ctx, task)
	return result, usedRunner, runErr
}

// GetAll, GetActive, GetAvailable, GetAvailableByType, GetByID inspect the
// pool's current membership.
func (p *Pool) GetAll() []*models.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.Agent, 0, len(p.agents))
	for _, a := range p.agents {
		out = append(out, a)
	}
	return out
}

func (p *Pool) GetActive() []*models.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.Agent
	for _, a := range p.agents {
		if a.Status != models.AgentIdle && a.Status != models.AgentTerminated {
			out = append(out, a)
		}
	}
	return out
}

func (p *Pool) GetAvailable() []*models.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.Agent
	for _, a := range p.agents {
		if a.Status == models.AgentIdle {
			out = append(out, a)
		}
	}
	return out
}

func (p *Pool) GetAvailableByType(t models.AgentType) []*models.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*models.Agent
	for _, a := range p.agents {
		if a.Status == models.AgentIdle && a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func (p *Pool) GetByID(id string) *models.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agents[id]
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.agents)
}

// AggregatedMetrics sums TasksCompleted/TasksFailed across every agent
// (callers compare this against total tasks ever assigned).
type AggregatedMetrics struct {
	TasksCompleted int
	TasksFailed    int
	TotalTokens    int64
}

func (p *Pool) GetAggregatedMetrics() AggregatedMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	var agg AggregatedMetrics
	for _, a := range p.agents {
		agg.TasksCompleted += a.Metrics.TasksCompleted
		agg.TasksFailed += a.Metrics.TasksFailed
		agg.TotalTokens += a.Metrics.TotalTokensUsed
	}
	return agg
}

// GetPoolStatus summarizes idle/active/terminated counts per role.
func (p *Pool) GetPoolStatus() map[models.AgentType]map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := make(map[models.AgentType]map[string]int)
	for _, a := range p.agents {
		s, ok := status[a.Type]
		if !ok {
			s = map[string]int{"idle": 0, "active": 0, "terminated": 0}
			status[a.Type] = s
		}
		switch a.Status {
		case models.AgentIdle:
			s["idle"]++
		case models.AgentTerminated:
			s["terminated"]++
		default:
			s["active"]++
		}
	}
	return status
}

// TerminateAll terminates every non-terminated agent, for shutdown.
func (p *Pool) TerminateAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.agents))
	for id, a := range p.agents {
		if a.Status != models.AgentTerminated {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()
	for _, id := range ids {
		_ = p.Terminate(id, "shutdown")
	}
}
