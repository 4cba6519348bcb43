// Package verify provides concrete, process-driven implementations of the
// QA loop's BuildVerifier/LintRunner/TestRunner capabilities. Each runs
// one configurable external command inside the worktree directory, via
// exec.CommandContext with cmd.Dir set to the target directory and
// combined stdout+stderr capture, folding its output into the QA loop's
// uniform StageResult shape.
package verify

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/qaloop"
)

// CommandRunner runs one shell command inside a directory and reports
// success by exit code; its combined output becomes the stage's single
// error message on failure. This is intentionally coarse: an agent-backed
// or structured variant can implement the same narrow interfaces for
// richer per-error diagnostics.
type CommandRunner struct {
	Shell   string // defaults to "sh"
	Command string // e.g. "go build ./..."
	Kind    models.ErrorKind
	Stage   models.Stage
}

func (c CommandRunner) shell() string {
	if c.Shell != "" {
		return c.Shell
	}
	return "sh"
}

func (c CommandRunner) run(ctx context.Context, dir string) (models.StageResult, time.Duration, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.shell(), "-c", c.Command)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	dur := time.Since(start)

	if runErr == nil {
		return models.StageResult{Stage: c.Stage, Success: true, Duration: dur}, dur, nil
	}
	return models.StageResult{
		Stage:    c.Stage,
		Success:  false,
		Duration: dur,
		Errors:   []models.StageError{{Kind: c.Kind, Message: out.String()}},
	}, dur, nil
}

// BuildVerifier runs a configured build command (e.g. "go build ./...").
type BuildVerifier struct{ CommandRunner }

func NewBuildVerifier(command string) *BuildVerifier {
	return &BuildVerifier{CommandRunner{Command: command, Kind: models.ErrKindBuild, Stage: models.StageBuild}}
}

func (v *BuildVerifier) Verify(ctx context.Context, worktreePath string) (models.StageResult, error) {
	r, _, err := v.run(ctx, worktreePath)
	return r, err
}

// LintRunner runs a configured lint command (e.g. "golangci-lint run").
type LintRunner struct{ CommandRunner }

func NewLintRunner(command string) *LintRunner {
	return &LintRunner{CommandRunner{Command: command, Kind: models.ErrKindLint, Stage: models.StageLint}}
}

func (v *LintRunner) Lint(ctx context.Context, worktreePath string) (models.StageResult, error) {
	r, _, err := v.run(ctx, worktreePath)
	return r, err
}

// TestRunner runs a configured test command (e.g. "go test ./...").
type TestRunner struct{ CommandRunner }

func NewTestRunner(command string) *TestRunner {
	return &TestRunner{CommandRunner{Command: command, Kind: models.ErrKindTest, Stage: models.StageTest}}
}

func (v *TestRunner) Test(ctx context.Context, worktreePath string, criteria []string) (qaloop.TestResult, error) {
	r, dur, err := v.run(ctx, worktreePath)
	if err != nil {
		return qaloop.TestResult{}, err
	}
	return qaloop.TestResult{Success: r.Success, Failures: r.Errors, Duration: dur}, nil
}
