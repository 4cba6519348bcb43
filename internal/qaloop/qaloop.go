// Package qaloop implements the QA Loop Engine: given a task in a
// worktree and a coder runner, drive build→lint→test→review to a state
// where all four stages succeed, or escalate. A failing stage's errors
// feed back into the next repair prompt, and a fix attempt restarts the
// pipeline at build, bounded by a maximum iteration count.
package qaloop

import (
	"context"
	"time"

	"github.com/harrison/nexus/internal/models"
)

// BuildVerifier, LintRunner, TestRunner, CodeReviewer are the four
// verifier capabilities consumed by the engine.
type BuildVerifier interface {
	Verify(ctx context.Context, worktreePath string) (models.StageResult, error)
}

type LintRunner interface {
	Lint(ctx context.Context, worktreePath string) (models.StageResult, error)
}

type TestResult struct {
	Success  bool
	Passed   int
	Failed   int
	Skipped  int
	Failures []models.StageError
	Duration time.Duration
}

type TestRunner interface {
	Test(ctx context.Context, worktreePath string, criteria []string) (TestResult, error)
}

// CodeReviewer takes the full task (not just a path) because a reviewer
// runner needs task context (description, files, test criteria) to
// produce a useful review; its own tool executor is already scoped to the
// task's worktree by whoever constructs it.
type CodeReviewer interface {
	Review(ctx context.Context, task *models.Task) (models.ReviewResult, error)
}

// CoderFixer is the capability the engine uses to request a repair; it is
// satisfied by runner.CoderRunner.
type CoderFixer interface {
	FixIssues(ctx context.Context, errs []models.StageError) (*models.TaskResult, error)
}

// Engine drives the fixed four-stage QA pipeline.
type Engine struct {
	Build  BuildVerifier
	Lint   LintRunner
	Test   TestRunner
	Review CodeReviewer

	MaxIterations int // inclusive bound, default 50
}

// NewEngine builds an Engine with a default maxIterations of 50.
func NewEngine(build BuildVerifier, lint LintRunner, test TestRunner, review CodeReviewer) *Engine {
	return &Engine{Build: build, Lint: lint, Test: test, Review: review, MaxIterations: 50}
}

// WithReview returns a shallow copy of e with Review swapped out. A
// review stage backed by an LLM conversation needs a tool executor
// rooted at one task's worktree, so it cannot be a single long-lived
// instance shared across concurrently-running tasks the way the
// command-driven Build/Lint/Test stages can be; callers that drive
// several tasks concurrently build one reviewer per task and graft it
// onto the otherwise-shared Engine this way.
func (e *Engine) WithReview(review CodeReviewer) *Engine {
	cp := *e
	cp.Review = review
	return &cp
}

// Run drives the QA pipeline: stages always attempted in order; any
// stage failure short-circuits to repair and restarts at build;
// maxIterations is inclusive; a single stage's errors are passed to
// FixIssues in one batch.
func (e *Engine) Run(ctx context.Context, task *models.Task, worktreePath string, coder CoderFixer) models.QAResult {
	maxIter := e.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}

	var iterations []models.QAIteration

	for iteration := 1; ; iteration++ {
		if iteration > maxIter {
			return models.QAResult{Kind: models.QAEscalated, Iterations: iterations, Reason: "qa_exhausted"}
		}

		iter := models.QAIteration{Number: iteration}
		restart := false

		for _, stage := range []models.Stage{models.StageBuild, models.StageLint, models.StageTest, models.StageReview} {
			result, errs := e.runStageOnce(ctx, stage, task, worktreePath)
			iter.Stages = append(iter.Stages, result)

			if result.Success {
				continue
			}

			fixResult, fixErr := coder.FixIssues(ctx, errs)
			if fixErr != nil {
				if be, ok := fixErr.(*models.BackendError); ok && !be.Recoverable() {
					iterations = append(iterations, iter)
					return models.QAResult{Kind: models.QAEscalated, Iterations: iterations, Reason: "backend_unavailable"}
				}
				// A recoverable runner error is treated the same as a
				// failed fix attempt: try again next iteration.
			}
			_ = fixResult
			restart = true
			break // restart outer loop at build, per the fixed stage order
		}

		iterations = append(iterations, iter)
		if !restart {
			return models.QAResult{Kind: models.QASuccess, Iterations: iterations}
		}
	}
}

// runStageOnce runs a single stage and normalizes its result into
// (StageResult, blocking-errors). Transient errors inside a verifier
// (process crash, I/O) are caught and recorded as a synthetic stage
// failure, never propagated.
func (e *Engine) runStageOnce(ctx context.Context, stage models.Stage, task *models.Task, worktreePath string) (models.StageResult, []models.StageError) {
	switch stage {
	case models.StageBuild:
		r, err := e.Build.Verify(ctx, worktreePath)
		if err != nil {
			return synthesize(stage, err), []models.StageError{{Kind: models.ErrKindBuild, Message: err.Error()}}
		}
		return r, r.Errors
	case models.StageLint:
		r, err := e.Lint.Lint(ctx, worktreePath)
		if err != nil {
			return synthesize(stage, err), []models.StageError{{Kind: models.ErrKindLint, Message: err.Error()}}
		}
		return r, r.Errors
	case models.StageTest:
		tr, err := e.Test.Test(ctx, worktreePath, task.TestCriteria)
		if err != nil {
			sr := synthesize(stage, err)
			return sr, []models.StageError{{Kind: models.ErrKindTest, Message: err.Error()}}
		}
		sr := models.StageResult{Stage: models.StageTest, Success: tr.Success, Duration: tr.Duration, Errors: tr.Failures}
		return sr, tr.Failures
	case models.StageReview:
		rr, err := e.Review.Review(ctx, task)
		if err != nil {
			sr := synthesize(stage, err)
			return sr, []models.StageError{{Kind: models.ErrKindReview, Message: err.Error()}}
		}
		sr := models.StageResult{Stage: models.StageReview, Success: rr.Succeeded(), Errors: rr.Issues}
		return sr, rr.Issues
	default:
		return models.StageResult{Stage: stage, Success: false}, nil
	}
}

func synthesize(stage models.Stage, err error) models.StageResult {
	return models.StageResult{
		Stage:   stage,
		Success: false,
		Errors:  []models.StageError{{Message: err.Error()}},
	}
}

// RunStage is exposed for ad-hoc invocation; it carries no side effects
// on iteration counters.
func (e *Engine) RunStage(ctx context.Context, stage models.Stage, task *models.Task, worktreePath string) models.StageResult {
	r, _ := e.runStageOnce(ctx, stage, task, worktreePath)
	return r
}
