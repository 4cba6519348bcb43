package coordinator

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/nexus/internal/config"
	"github.com/harrison/nexus/internal/logger"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/pool"
	"github.com/harrison/nexus/internal/qaloop"
	"github.com/harrison/nexus/internal/queue"
	"github.com/harrison/nexus/internal/review"
	"github.com/harrison/nexus/internal/worktree"
)

// stubRunner satisfies both pool.Runner and qaloop.CoderFixer so the same
// stand-in can play the role the real CoderRunner does in production.
type stubRunner struct {
	executeResult *models.TaskResult
	executeErr    error
	fixResult     *models.TaskResult
	fixErr        error
}

func (s *stubRunner) Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	return s.executeResult, s.executeErr
}

func (s *stubRunner) FixIssues(ctx context.Context, errs []models.StageError) (*models.TaskResult, error) {
	if s.fixResult != nil || s.fixErr != nil {
		return s.fixResult, s.fixErr
	}
	return s.executeResult, s.executeErr
}

// gatedRunner blocks Execute until release is closed, letting a test pin
// a wave's task in flight while it asserts on coordinator state.
type gatedRunner struct {
	release chan struct{}
	result  *models.TaskResult
}

func (g *gatedRunner) Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	<-g.release
	return g.result, nil
}

func (g *gatedRunner) FixIssues(ctx context.Context, errs []models.StageError) (*models.TaskResult, error) {
	return g.result, nil
}

// panicRunner simulates a backend runner that panics mid-task, exercising
// processWave's panic recovery instead of crashing the test process.
type panicRunner struct{}

func (p *panicRunner) Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	panic("simulated runner panic")
}

func (p *panicRunner) FixIssues(ctx context.Context, errs []models.StageError) (*models.TaskResult, error) {
	panic("simulated runner panic")
}

type stageStub struct {
	success bool
}

func (s stageStub) Verify(ctx context.Context, worktreePath string) (models.StageResult, error) {
	return models.StageResult{Stage: models.StageBuild, Success: s.success}, nil
}
func (s stageStub) Lint(ctx context.Context, worktreePath string) (models.StageResult, error) {
	return models.StageResult{Stage: models.StageLint, Success: s.success}, nil
}
func (s stageStub) Test(ctx context.Context, worktreePath string, criteria []string) (qaloop.TestResult, error) {
	return qaloop.TestResult{Success: s.success}, nil
}
func (s stageStub) Review(ctx context.Context, task *models.Task) (models.ReviewResult, error) {
	return models.ReviewResult{Approved: s.success}, nil
}

type fakeDecomposer struct {
	tasks []*models.Task
}

func (f *fakeDecomposer) Decompose(ctx context.Context, description string) ([]*models.Task, error) {
	return f.tasks, nil
}

type fakeMerger struct {
	result models.MergeResult
	err    error
}

func (f *fakeMerger) Merge(ctx context.Context, worktreePath, targetBranch string) (models.MergeResult, error) {
	return f.result, f.err
}

func testConfig(id string) *config.ProjectConfig {
	cfg := config.Default()
	cfg.ProjectID = id
	cfg.ProjectPath = "/tmp/" + id
	cfg.Settings.QAMaxIterations = 3
	return cfg
}

// initRepo creates a git repository with one commit on main, so the
// coordinator's worktree manager can give each task a real worktree (the
// merge step only runs for a task that has one).
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("init", "-b", "main")
	run("-c", "user.email=test@example.com", "-c", "user.name=test", "commit", "--allow-empty", "-m", "initial commit")
	return dir
}

func newTestCoordinator(t *testing.T, stagesSucceed bool, tasks []*models.Task, merger Merger, reviews *review.Service) (*Coordinator, *events) {
	t.Helper()
	factory := func(worktreePath string) pool.Runner {
		return &stubRunner{executeResult: &models.TaskResult{Success: true}}
	}
	p := pool.New(map[models.AgentType]int{models.AgentCoder: 2}, map[models.AgentType]func(string) pool.Runner{models.AgentCoder: factory}, nil)
	stage := stageStub{success: stagesSucceed}
	qa := qaloop.NewEngine(stage, stage, stage, stage)
	qa.MaxIterations = 3

	cfg := testConfig("proj-1")
	ev := &events{}
	c := New(cfg, Deps{
		Queue:      queue.New(),
		Pool:       p,
		Worktrees:  worktree.New(initRepo(t)),
		Reviews:    reviews,
		QA:         qa,
		Merger:     merger,
		Decomposer: &fakeDecomposer{tasks: tasks},
		Logger:     logger.NewConsoleLogger(io.Discard),
	})
	c.OnEvent(ev.record)
	return c, ev
}

type events struct {
	mu  sync.Mutex
	all []models.Event
}

func (e *events) record(ev models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, ev)
}

func (e *events) has(typ string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.all {
		if ev.Type == typ {
			return true
		}
	}
	return false
}

func (e *events) count(typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.all {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestStartRunsWaveToCompletionWithoutMerger(t *testing.T) {
	task := models.NewTask("build the thing")
	c, ev := newTestCoordinator(t, true, []*models.Task{task}, nil, nil)

	err := c.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.True(t, ev.has(models.EvtProjectCompleted))
	assert.True(t, ev.has(models.EvtTaskCompleted))
	assert.Equal(t, models.TaskCompleted, task.Status)
}

func TestStartMergesSuccessfulTaskWhenMergerConfigured(t *testing.T) {
	task := models.NewTask("build the thing")
	merger := &fakeMerger{result: models.MergeResult{Success: true, CommitHash: "abc123"}}
	c, ev := newTestCoordinator(t, true, []*models.Task{task}, merger, nil)

	err := c.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.True(t, ev.has(models.EvtTaskMerged))
	assert.True(t, ev.has(models.EvtProjectCompleted))
}

func TestStartEscalatesOnMergeConflictAndAwaitsReview(t *testing.T) {
	task := models.NewTask("build the thing")
	merger := &fakeMerger{result: models.MergeResult{Success: false, ConflictFiles: []string{"main.go"}}}
	reviews := review.New(nil)
	c, ev := newTestCoordinator(t, true, []*models.Task{task}, merger, reviews)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), "proj-1") }()

	waitFor(t, func() bool { return ev.has(models.EvtTaskEscalated) })
	waitFor(t, func() bool { return len(reviews.Pending()) == 1 })

	pending := reviews.Pending()[0]
	require.Equal(t, models.ReasonMergeConflict, pending.Reason)
	require.NoError(t, reviews.Approve(pending.ID, "resolved manually", ""))

	require.NoError(t, <-done)
	waitFor(t, func() bool { return ev.has(models.EvtTaskCompleted) })
	assert.Equal(t, models.TaskCompleted, task.Status)
	assert.True(t, task.HumanApproved)
}

func TestStartEscalatesWhenQAExhaustsWithoutMerger(t *testing.T) {
	task := models.NewTask("build the thing")
	reviews := review.New(nil)
	c, ev := newTestCoordinator(t, false, []*models.Task{task}, nil, reviews)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), "proj-1") }()

	waitFor(t, func() bool { return ev.has(models.EvtTaskEscalated) })
	waitFor(t, func() bool { return len(reviews.Pending()) == 1 })

	pending := reviews.Pending()[0]
	require.Equal(t, models.ReasonQAExhausted, pending.Reason)
	require.NoError(t, reviews.Reject(pending.ID, "", "not good enough"))

	require.NoError(t, <-done)
	waitFor(t, func() bool { return ev.has(models.EvtTaskFailed) })
	assert.Equal(t, models.TaskFailed, task.Status)
	assert.True(t, task.HumanRejected)
}

func TestStartMarksFailedWhenQAExhaustsWithNoReviewService(t *testing.T) {
	task := models.NewTask("build the thing")
	c, ev := newTestCoordinator(t, false, []*models.Task{task}, nil, nil)

	err := c.Start(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.Equal(t, models.TaskFailed, task.Status)
	assert.True(t, ev.has(models.EvtTaskFailed))
}

func TestPauseThenResumeAllowsProgressToContinue(t *testing.T) {
	a := models.NewTask("a")
	c, ev := newTestCoordinator(t, true, []*models.Task{a}, nil, nil)

	c.Pause("manual")
	state, _ := c.GetStatus()
	assert.Equal(t, StatePaused, state)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), "proj-1") }()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, ev.has(models.EvtProjectCompleted), "paused coordinator should not dispatch")

	c.Resume()
	require.NoError(t, <-done)
	assert.True(t, ev.has(models.EvtProjectCompleted))
}

func TestStopPreventsLaterWaveFromStarting(t *testing.T) {
	a := models.NewTask("a")
	b := models.NewTask("b")
	b.DependsOn = []string{a.ID}

	release := make(chan struct{})
	factory := func(worktreePath string) pool.Runner {
		return &gatedRunner{release: release, result: &models.TaskResult{Success: true}}
	}
	p := pool.New(map[models.AgentType]int{models.AgentCoder: 2}, map[models.AgentType]func(string) pool.Runner{models.AgentCoder: factory}, nil)
	stage := stageStub{success: true}
	qa := qaloop.NewEngine(stage, stage, stage, stage)

	cfg := testConfig("proj-stop")
	ev := &events{}
	c := New(cfg, Deps{
		Queue:      queue.New(),
		Pool:       p,
		Worktrees:  worktree.New(t.TempDir()),
		QA:         qa,
		Decomposer: &fakeDecomposer{tasks: []*models.Task{a, b}},
		Logger:     logger.NewConsoleLogger(io.Discard),
	})
	c.OnEvent(ev.record)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), "proj-stop") }()

	waitFor(t, func() bool { return ev.has(models.EvtTaskStarted) })
	go c.Stop()
	time.Sleep(20 * time.Millisecond) // let Stop latch its flags before the gated task unblocks
	close(release)

	require.NoError(t, <-done)
	assert.Equal(t, models.TaskCompleted, a.Status)
	assert.NotEqual(t, models.TaskCompleted, b.Status, "second wave must not start once stop was requested")
}

func TestStartEmitsProjectFailedOnDependencyCycle(t *testing.T) {
	a := models.NewTask("a")
	b := models.NewTask("b")
	a.DependsOn = []string{b.ID}
	b.DependsOn = []string{a.ID}

	c, ev := newTestCoordinator(t, true, []*models.Task{a, b}, nil, nil)

	err := c.Start(context.Background(), "proj-1")
	require.Error(t, err)

	var cyc *models.DependencyCycleError
	require.ErrorAs(t, err, &cyc)
	assert.True(t, ev.has(models.EvtProjectFailed))
	state, _ := c.GetStatus()
	assert.Equal(t, StateIdle, state)
}

func TestProcessWaveRecoversPanicAndFailsTask(t *testing.T) {
	task := models.NewTask("a")
	factory := func(worktreePath string) pool.Runner {
		return &panicRunner{}
	}
	p := pool.New(map[models.AgentType]int{models.AgentCoder: 2}, map[models.AgentType]func(string) pool.Runner{models.AgentCoder: factory}, nil)
	stage := stageStub{success: true}
	qa := qaloop.NewEngine(stage, stage, stage, stage)

	cfg := testConfig("proj-panic")
	ev := &events{}
	c := New(cfg, Deps{
		Queue:      queue.New(),
		Pool:       p,
		Worktrees:  worktree.New(t.TempDir()),
		QA:         qa,
		Decomposer: &fakeDecomposer{tasks: []*models.Task{task}},
		Logger:     logger.NewConsoleLogger(io.Discard),
	})
	c.OnEvent(ev.record)

	err := c.Start(context.Background(), "proj-panic")
	require.Error(t, err, "a panic terminates the wave loop instead of crashing the process")
	assert.True(t, ev.has(models.EvtTaskFailed))
	assert.True(t, ev.has(models.EvtProjectFailed))
}

func TestGetProgressReflectsQueueCounters(t *testing.T) {
	task := models.NewTask("a")
	c, _ := newTestCoordinator(t, true, []*models.Task{task}, nil, nil)
	require.NoError(t, c.Start(context.Background(), "proj-1"))

	p := c.GetProgress()
	assert.Equal(t, 1, p.TotalTasks)
	assert.Equal(t, 1, p.CompletedTasks)
	assert.Equal(t, 0, p.FailedTasks)
}
