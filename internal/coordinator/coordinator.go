// Package coordinator implements the Coordinator: the single owner of
// project-wide orchestration state. It composes the TaskQueue, AgentPool,
// QA Loop Engine, Worktree Manager, and HumanReviewService, drives the
// wave loop, and fans events out to observers: a state machine with a
// graceful Stop wrapped around a bounded concurrent dispatch loop that
// checks a stop flag cooperatively between scan passes, extended here
// into a full wave-advance/QA/merge/escalation pipeline.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/nexus/internal/config"
	"github.com/harrison/nexus/internal/logger"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/pool"
	"github.com/harrison/nexus/internal/qaloop"
	"github.com/harrison/nexus/internal/queue"
	"github.com/harrison/nexus/internal/review"
	"github.com/harrison/nexus/internal/worktree"
)

// State is the coordinator's top-level lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopping State = "stopping"
)

// Phase is a secondary label describing progress within StateRunning.
type Phase string

const (
	PhasePlanning   Phase = "planning"
	PhaseExecution  Phase = "execution"
	PhaseCompletion Phase = "completion"
)

// scanInterval is the wave loop's cooperative sleep between dispatch
// passes.
const scanInterval = 50 * time.Millisecond

// stopGrace is how long Stop waits for in-flight tasks to reach a
// terminal status before force-terminating remaining agents.
const stopGrace = 1 * time.Second

// Decomposer is the ITaskDecomposer capability: expand a feature
// description into planning tasks. Decomposition intelligence itself is
// out of scope for the orchestration core; the coordinator only calls
// through this capability.
type Decomposer interface {
	Decompose(ctx context.Context, description string) ([]*models.Task, error)
}

// RepoMapper generates a bounded summary of an existing codebase for
// evolution-mode decomposition context. Failure is non-fatal.
type RepoMapper interface {
	GenerateRepoMap(ctx context.Context, projectPath string) (string, error)
}

// Merger is the narrow capability executeTask uses to merge a completed
// task's worktree back to trunk; satisfied by runner.MergerRunner.
type Merger interface {
	Merge(ctx context.Context, worktreePath, targetBranch string) (models.MergeResult, error)
}

// Deps bundles every collaborator the coordinator composes.
type Deps struct {
	Queue       *queue.TaskQueue
	Pool        *pool.Pool
	Worktrees   *worktree.Manager
	Reviews     *review.Service // optional
	Checkpoints CheckpointStore // optional
	QA          *qaloop.Engine
	// ReviewerFactory, when set, builds a review-stage capability scoped
	// to one task's worktree (an LLM-backed reviewer needs its own tool
	// executor per task); nil keeps QA.Review as configured, which is
	// safe only when Review holds no per-task mutable state.
	ReviewerFactory func(worktreePath string) qaloop.CodeReviewer
	Merger      Merger     // optional
	Decomposer  Decomposer // required only for Start (genesis/evolution)
	RepoMapper  RepoMapper // optional, evolution mode only
	Logger      logger.Logger
	TargetBranch string // defaults to "main"
}

// CheckpointStore is the CheckpointManager capability the coordinator
// depends on; satisfied by checkpoint.Manager.
type CheckpointStore interface {
	Create(ctx context.Context, cp *models.Checkpoint) error
}

type reviewMapping struct {
	task         *models.Task
	agentID      string
	worktreePath string
}

// Progress summarizes orchestration progress for getProgress().
type Progress struct {
	TotalTasks     int
	CompletedTasks int
	FailedTasks    int
	CurrentWave    int
}

// Coordinator is the single owner of project-wide orchestration state.
type Coordinator struct {
	mu sync.Mutex

	cfg  *config.ProjectConfig
	deps Deps

	state State
	phase Phase

	pauseReason   string
	stopRequested bool
	totalWaves    int
	totalTasks    int

	reviewMappings map[string]*reviewMapping

	handlers []models.EventHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New composes a Coordinator from its collaborators. cfg must already be
// validated (config.ProjectConfig.Validate).
func New(cfg *config.ProjectConfig, deps Deps) *Coordinator {
	if deps.TargetBranch == "" {
		deps.TargetBranch = "main"
	}
	return &Coordinator{
		cfg:            cfg,
		deps:           deps,
		state:          StateIdle,
		reviewMappings: make(map[string]*reviewMapping),
	}
}

// OnEvent registers an observer. Observers must be non-blocking; a
// handler panic is recovered and swallowed.
func (c *Coordinator) OnEvent(h models.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *Coordinator) emit(typ string, data map[string]any) {
	c.mu.Lock()
	handlers := append([]models.EventHandler(nil), c.handlers...)
	c.mu.Unlock()

	ev := models.NewEvent(typ, c.cfg.ProjectID, data)
	for _, h := range handlers {
		c.safeInvoke(h, ev)
	}
}

func (c *Coordinator) safeInvoke(h models.EventHandler, ev models.Event) {
	defer func() { _ = recover() }()
	h(ev)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// GetStatus returns the current top-level state.
func (c *Coordinator) GetStatus() (State, Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.phase
}

// GetProgress reports aggregate task counters.
func (c *Coordinator) GetProgress() Progress {
	return Progress{
		TotalTasks:     c.totalTasks,
		CompletedTasks: c.deps.Queue.CompletedCount(),
		FailedTasks:    c.deps.Queue.FailedCount(),
		CurrentWave:    c.deps.Queue.CurrentWave(),
	}
}

// GetActiveAgents returns every non-idle, non-terminated agent.
func (c *Coordinator) GetActiveAgents() []*models.Agent {
	return c.deps.Pool.GetActive()
}

// GetPendingTasks returns every task still ready or blocked in the queue.
func (c *Coordinator) GetPendingTasks() []*models.Task {
	c.mu.Lock()
	waves := c.totalWaves
	c.mu.Unlock()
	var out []*models.Task
	for w := 0; w < waves; w++ {
		for _, t := range c.deps.Queue.GetByWave(w) {
			if t.Status == models.TaskQueued {
				out = append(out, t)
			}
		}
	}
	return out
}

// Start begins orchestration from a feature list: decompose, calculate
// waves, enter the execution loop.
func (c *Coordinator) Start(ctx context.Context, projectID string) error {
	c.setPhase(PhasePlanning)

	var allTasks []*models.Task
	for _, f := range c.cfg.Features {
		description := f.Description
		if c.cfg.Mode == config.ModeEvolution && c.deps.RepoMapper != nil {
			c.emit(models.EvtEvolutionAnalyzing, map[string]any{"feature": f.Name})
			repoMap, err := c.deps.RepoMapper.GenerateRepoMap(ctx, c.cfg.ProjectPath)
			if err != nil {
				c.emit(models.EvtEvolutionAnalysisFailed, map[string]any{"feature": f.Name, "error": err.Error()})
			} else {
				description = repoMap + "\n\n" + description
				c.emit(models.EvtEvolutionAnalyzed, map[string]any{"feature": f.Name})
			}
		}

		tasks, err := c.deps.Decomposer.Decompose(ctx, description)
		if err != nil {
			return fmt.Errorf("coordinator: decompose feature %q: %w", f.Name, err)
		}
		if c.cfg.Mode == config.ModeEvolution {
			for _, t := range tasks {
				t.TestCriteria = append(t.TestCriteria, "Evolution: verify compatibility with existing code")
			}
		}
		allTasks = append(allTasks, tasks...)
	}

	return c.runFrom(ctx, allTasks)
}

// ExecuteExistingTasks skips decomposition and runs a prebuilt task list.
// A fresh worktree manager rooted at projectPath replaces the injected
// one, since worktrees must live under the target project's own path,
// not the coordinator's install path.
func (c *Coordinator) ExecuteExistingTasks(ctx context.Context, projectID string, tasks []*models.Task, projectPath string) error {
	c.deps.Worktrees = worktree.New(projectPath)
	c.setPhase(PhasePlanning)
	return c.runFrom(ctx, tasks)
}

func (c *Coordinator) runFrom(ctx context.Context, tasks []*models.Task) error {
	waves, err := queue.CalculateWaves(tasks)
	if err != nil {
		wrapped := fmt.Errorf("coordinator: %w", err)
		c.emit(models.EvtProjectFailed, map[string]any{"error": wrapped.Error()})
		c.setPhase(PhaseCompletion)
		c.setState(StateIdle)
		return wrapped
	}
	for _, wave := range waves {
		for _, t := range wave {
			t.Status = models.TaskQueued
			waveID := t.WaveID
			if err := c.deps.Queue.Enqueue(t, &waveID); err != nil {
				return fmt.Errorf("coordinator: enqueue %s: %w", t.ID, err)
			}
		}
	}

	c.mu.Lock()
	c.totalWaves = len(waves)
	c.totalTasks = len(tasks)
	c.stopRequested = false
	c.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	c.mu.Lock()
	if c.state != StatePaused {
		c.state = StateRunning
	}
	c.mu.Unlock()
	c.emit(models.EvtCoordinatorStarted, nil)

	err = c.runWaveLoop(runCtx)

	c.setState(StateIdle)
	return err
}

func (c *Coordinator) runWaveLoop(ctx context.Context) error {
	c.setPhase(PhaseExecution)

	for waveIndex := 0; waveIndex < c.totalWaves; waveIndex++ {
		if c.isStopRequested() {
			break
		}

		tasksInWave := c.deps.Queue.GetByWave(waveIndex)
		c.emit(models.EvtWaveStarted, map[string]any{"waveId": waveIndex, "taskCount": len(tasksInWave)})
		c.deps.Logger.LogWaveStart(waveIndex, len(tasksInWave))

		if err := c.processWave(ctx, waveIndex); err != nil {
			c.emit(models.EvtProjectFailed, map[string]any{"error": err.Error()})
			return err
		}

		if !c.isStopRequested() {
			c.emit(models.EvtWaveCompleted, map[string]any{"waveId": waveIndex})
			c.deps.Logger.LogWaveComplete(waveIndex)
			c.tryCreateWaveCheckpoint(ctx, waveIndex)
		}
	}

	completed := c.deps.Queue.CompletedCount()
	failed := c.deps.Queue.FailedCount()
	remaining := c.totalTasks - completed - failed
	c.setPhase(PhaseCompletion)
	if remaining == 0 && completed > 0 {
		c.emit(models.EvtProjectCompleted, map[string]any{"completed": completed, "failed": failed})
	} else if failed == c.totalTasks && c.totalTasks > 0 {
		c.emit(models.EvtProjectFailed, map[string]any{"failed": failed})
	}
	return nil
}

// processWave is the inner concurrent dispatch loop for a single wave. A
// panic in one task's goroutine is recovered, converted into a task
// failure, and halts further dispatch in this wave; other already-running
// tasks are still awaited before processWave returns the resulting error.
func (c *Coordinator) processWave(ctx context.Context, waveIndex int) error {
	running := 0
	var runningMu sync.Mutex
	done := make(chan struct{}, 64)

	var panicMu sync.Mutex
	var panicErr error

	for {
		if c.isStopRequested() {
			break
		}
		for c.isPaused() {
			time.Sleep(scanInterval)
			if c.isStopRequested() {
				break
			}
		}

		ready := c.readyTasksInWave(waveIndex)
		if len(ready) == 0 {
			runningMu.Lock()
			r := running
			runningMu.Unlock()
			if r == 0 {
				break
			}
			c.drainOne(done, &running, &runningMu)
			continue
		}

		dispatched := false
		for range ready {
			agent, spawned := c.acquireCoderAgent()
			if agent == nil {
				break
			}
			dispatched = true

			task, err := c.deps.Queue.Dequeue()
			if err != nil || task == nil {
				_ = c.deps.Pool.Release(agent.ID)
				break
			}

			wt, wtErr := c.deps.Worktrees.CreateWorktree(ctx, task.ID)
			worktreePath := ""
			if wtErr == nil {
				worktreePath = wt.Path
			}

			if err := c.deps.Pool.Assign(agent.ID, task.ID, worktreePath); err != nil {
				_ = c.deps.Pool.Release(agent.ID)
				continue
			}
			task.Agent = agent.ID
			task.WorktreePath = worktreePath
			c.emit(models.EvtTaskAssigned, map[string]any{"taskId": task.ID, "agentId": agent.ID})
			c.deps.Logger.LogTaskAssigned(task, agent.ID)

			runningMu.Lock()
			running++
			runningMu.Unlock()

			c.wg.Add(1)
			go func(t *models.Task, agentID, wtPath string, spawnedHere bool) {
				defer c.wg.Done()
				defer func() {
					if r := recover(); r != nil {
						err := fmt.Errorf("task %s panicked: %v", t.ID, r)
						c.deps.Logger.LogTaskFailed(t, err)
						c.emit(models.EvtTaskFailed, map[string]any{"taskId": t.ID, "error": err.Error()})
						panicMu.Lock()
						if panicErr == nil {
							panicErr = err
						}
						panicMu.Unlock()
						c.mu.Lock()
						c.stopRequested = true
						c.mu.Unlock()
					}
					runningMu.Lock()
					running--
					runningMu.Unlock()
					select {
					case done <- struct{}{}:
					default:
					}
				}()
				c.executeTask(ctx, t, agentID, wtPath)
			}(task, agent.ID, worktreePath, spawned)
		}

		if !dispatched {
			time.Sleep(scanInterval)
		}
	}

	c.wg.Wait()
	panicMu.Lock()
	defer panicMu.Unlock()
	return panicErr
}

func (c *Coordinator) drainOne(done chan struct{}, running *int, mu *sync.Mutex) {
	select {
	case <-done:
	case <-time.After(scanInterval):
	}
}

func (c *Coordinator) readyTasksInWave(waveIndex int) []*models.Task {
	var out []*models.Task
	for _, t := range c.deps.Queue.GetReadyTasks() {
		if t.WaveID == waveIndex {
			out = append(out, t)
		}
	}
	return out
}

// acquireCoderAgent serves an idle coder agent, spawning a fresh one if
// the pool has spare capacity.
func (c *Coordinator) acquireCoderAgent() (*models.Agent, bool) {
	idle := c.deps.Pool.GetAvailableByType(models.AgentCoder)
	if len(idle) > 0 {
		return idle[0], false
	}
	agent, err := c.deps.Pool.Spawn(models.AgentCoder)
	if err != nil {
		return nil, false
	}
	c.deps.Logger.LogAgentSpawned(agent)
	return agent, true
}

// executeTask runs one task to a terminal (or escalated) status.
func (c *Coordinator) executeTask(ctx context.Context, task *models.Task, agentID, worktreePath string) {
	start := time.Now()
	task.Status = models.TaskWorking
	c.emit(models.EvtTaskStarted, map[string]any{"taskId": task.ID})
	c.deps.Logger.LogTaskStart(task)

	defer func() {
		_ = c.deps.Pool.Release(agentID)
		c.emit(models.EvtAgentReleased, map[string]any{"agentId": agentID, "taskId": task.ID})
		if worktreePath != "" {
			_ = c.deps.Worktrees.RemoveWorktree(ctx, task.ID)
		}
	}()

	result, usedRunner, err := c.deps.Pool.RunTask(ctx, agentID, task, worktreePath)
	if err != nil {
		if be, ok := err.(*models.BackendError); ok && !be.Recoverable() {
			c.escalate(task, agentID, worktreePath, models.ReasonCLIMissing, map[string]any{"error": be.Error()})
			return
		}
		c.markFailed(task, err, start)
		return
	}
	if result == nil || !result.Success {
		c.markFailed(task, fmt.Errorf("task execution did not complete"), start)
		return
	}

	fixer, ok := usedRunner.(qaloop.CoderFixer)
	if !ok {
		c.markFailed(task, fmt.Errorf("runner for role coder does not support repair"), start)
		return
	}

	qa := c.deps.QA
	if c.deps.ReviewerFactory != nil {
		qa = qa.WithReview(c.deps.ReviewerFactory(worktreePath))
	}
	qaResult := qa.Run(ctx, task, worktreePath, fixer)
	for _, iter := range qaResult.Iterations {
		for _, stage := range iter.Stages {
			c.deps.Logger.LogQAIteration(task.ID, iter.Number, stage.Stage, stage)
		}
	}

	switch qaResult.Kind {
	case models.QASuccess:
		c.finishSuccessfulTask(ctx, task, agentID, worktreePath, start)
	case models.QAEscalated:
		reason := models.ReasonQAExhausted
		if qaResult.Reason == "backend_unavailable" {
			reason = models.ReasonOther
		}
		c.escalateOrFail(task, agentID, worktreePath, reason, map[string]any{"iterations": len(qaResult.Iterations)}, start)
	default:
		c.markFailed(task, fmt.Errorf("unknown QA outcome"), start)
	}
}

func (c *Coordinator) finishSuccessfulTask(ctx context.Context, task *models.Task, agentID, worktreePath string, start time.Time) {
	if worktreePath == "" || c.deps.Merger == nil {
		c.markComplete(task, start)
		return
	}

	mergeResult, err := c.deps.Merger.Merge(ctx, worktreePath, c.deps.TargetBranch)
	c.deps.Logger.LogMergeResult(task.ID, mergeResult)
	if err != nil || !mergeResult.Success {
		if len(mergeResult.ConflictFiles) > 0 {
			c.escalate(task, agentID, worktreePath, models.ReasonMergeConflict, map[string]any{"conflictFiles": mergeResult.ConflictFiles})
			return
		}
		c.emit(models.EvtTaskMergeFailed, map[string]any{"taskId": task.ID})
		c.markFailed(task, fmt.Errorf("merge failed"), start)
		return
	}

	c.emit(models.EvtTaskMerged, map[string]any{"taskId": task.ID, "commit": mergeResult.CommitHash})

	pushErr := c.deps.Worktrees.Push(ctx, c.deps.TargetBranch)
	c.deps.Logger.LogPushResult(task.ID, c.deps.TargetBranch, pushErr)
	if pushErr != nil {
		c.emit(models.EvtTaskPushFailed, map[string]any{"taskId": task.ID, "error": pushErr.Error()})
	} else {
		c.emit(models.EvtTaskPushed, map[string]any{"taskId": task.ID, "branch": c.deps.TargetBranch})
	}

	c.markComplete(task, start)
}

func (c *Coordinator) markComplete(task *models.Task, start time.Time) {
	task.Status = models.TaskCompleted
	_ = c.deps.Queue.MarkComplete(task.ID)
	c.emit(models.EvtTaskCompleted, map[string]any{"taskId": task.ID, "humanApproved": task.HumanApproved})
	c.deps.Logger.LogTaskComplete(task, time.Since(start))
}

func (c *Coordinator) markFailed(task *models.Task, err error, start time.Time) {
	task.Status = models.TaskFailed
	_ = c.deps.Queue.MarkFailed(task.ID)
	c.emit(models.EvtTaskFailed, map[string]any{"taskId": task.ID, "error": err.Error()})
	c.deps.Logger.LogTaskFailed(task, err)
}

// escalateOrFail opens a review when one is configured; otherwise marks
// the task failed outright.
func (c *Coordinator) escalateOrFail(task *models.Task, agentID, worktreePath string, reason models.ReviewReason, reviewContext map[string]any, start time.Time) {
	if c.deps.Reviews == nil {
		task.Status = models.TaskEscalated
		c.markFailed(task, fmt.Errorf("qa exhausted, no review service configured"), start)
		return
	}
	c.escalate(task, agentID, worktreePath, reason, reviewContext)
}

func (c *Coordinator) escalate(task *models.Task, agentID, worktreePath string, reason models.ReviewReason, reviewContext map[string]any) {
	task.Status = models.TaskEscalated
	c.emit(models.EvtTaskEscalated, map[string]any{"taskId": task.ID, "reason": reason})
	c.deps.Logger.LogTaskEscalated(task, reason)

	if c.deps.Reviews == nil {
		return
	}
	requestID, ch := c.deps.Reviews.RequestReview(task.ID, c.cfg.ProjectID, reason, reviewContext)

	c.mu.Lock()
	c.reviewMappings[requestID] = &reviewMapping{task: task, agentID: agentID, worktreePath: worktreePath}
	c.mu.Unlock()

	go c.watchReview(requestID, ch)
}

// watchReview is the dedicated drain goroutine for one escalation's
// decision channel (DESIGN.md open question: explicit channel, not a
// callback, so it composes with select alongside stop/pause signals).
func (c *Coordinator) watchReview(requestID string, ch <-chan models.ReviewDecision) {
	decision, ok := <-ch
	if !ok {
		return
	}

	c.mu.Lock()
	mapping, found := c.reviewMappings[requestID]
	delete(c.reviewMappings, requestID)
	c.mu.Unlock()
	if !found {
		return
	}

	if decision.Approved {
		mapping.task.HumanApproved = true
		c.markComplete(mapping.task, time.Now())
	} else {
		mapping.task.HumanRejected = true
		mapping.task.Feedback = decision.Feedback
		c.markFailed(mapping.task, fmt.Errorf("rejected by human review: %s", decision.Feedback), time.Now())
	}

	c.mu.Lock()
	pausedForThis := c.pauseReason == "review:"+requestID
	c.mu.Unlock()
	if pausedForThis {
		c.Resume()
	}
}

// HandleReviewApproved resolves a pending review as approved; the actual
// task bookkeeping happens in watchReview once the decision is delivered
// on its channel.
func (c *Coordinator) HandleReviewApproved(reviewID, resolution string) error {
	return c.deps.Reviews.Approve(reviewID, resolution, "")
}

// HandleReviewRejected resolves a pending review as rejected.
func (c *Coordinator) HandleReviewRejected(reviewID, feedback string) error {
	return c.deps.Reviews.Reject(reviewID, "", feedback)
}

// Pause halts new task dispatch; running tasks continue to completion.
func (c *Coordinator) Pause(reason string) {
	c.mu.Lock()
	c.pauseReason = reason
	c.state = StatePaused
	c.mu.Unlock()
	c.emit(models.EvtCoordinatorPaused, map[string]any{"reason": reason})
}

// Resume clears a pause and resumes dispatch.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	c.pauseReason = ""
	c.state = StateRunning
	c.mu.Unlock()
	c.emit(models.EvtCoordinatorResumed, nil)
}

func (c *Coordinator) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StatePaused
}

func (c *Coordinator) isStopRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRequested
}

// Stop requests a graceful shutdown: hot loops observe the flag at their
// next yield; in-flight tasks are awaited for up to stopGrace before
// remaining agents are force-terminated.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopRequested = true
	c.state = StateStopping
	cancel := c.cancel
	c.mu.Unlock()
	c.emit(models.EvtCoordinatorStopped, nil)

	finished := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(stopGrace):
		if cancel != nil {
			cancel()
		}
		c.deps.Pool.TerminateAll()
	}

	c.setState(StateIdle)
}

// CreateCheckpoint snapshots current progress. Failure is non-fatal: it
// is recorded and emitted as checkpoint:failed, never returned as a
// fatal error to the wave loop.
func (c *Coordinator) CreateCheckpoint(ctx context.Context, name string) (*models.Checkpoint, error) {
	cp := &models.Checkpoint{
		ID:               name,
		ProjectID:        c.cfg.ProjectID,
		WaveID:           c.deps.Queue.CurrentWave(),
		CompletedTasks:   c.deps.Queue.CompletedIDs(),
		PendingTasks:     c.deps.Queue.PendingIDs(),
		CoordinatorState: string(c.state),
		CreatedAt:        time.Now(),
	}
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("%s-wave-%d-%d", c.cfg.ProjectID, cp.WaveID, cp.CreatedAt.UnixNano())
	}

	if c.deps.Checkpoints == nil {
		return cp, nil
	}
	if err := c.deps.Checkpoints.Create(ctx, cp); err != nil {
		c.emit(models.EvtCheckpointFailed, map[string]any{"error": err.Error()})
		c.deps.Logger.LogCheckpoint(cp, err)
		return cp, err
	}
	c.emit(models.EvtCheckpointCreated, map[string]any{"checkpointId": cp.ID})
	c.deps.Logger.LogCheckpoint(cp, nil)
	return cp, nil
}

func (c *Coordinator) tryCreateWaveCheckpoint(ctx context.Context, waveIndex int) {
	_, _ = c.CreateCheckpoint(ctx, "")
}
