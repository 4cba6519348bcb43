package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/nexus/internal/budget"
	"github.com/harrison/nexus/internal/checkpoint"
	"github.com/harrison/nexus/internal/config"
	"github.com/harrison/nexus/internal/coordinator"
	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/logger"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/pool"
	"github.com/harrison/nexus/internal/qaloop"
	"github.com/harrison/nexus/internal/queue"
	"github.com/harrison/nexus/internal/review"
	"github.com/harrison/nexus/internal/runner"
	"github.com/harrison/nexus/internal/tools"
	"github.com/harrison/nexus/internal/verify"
	"github.com/harrison/nexus/internal/worktree"
)

func newRunCommand() *cobra.Command {
	var configPath, planPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a coordinator against a plan file to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd.Context(), configPath, planPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the project config YAML (required)")
	cmd.Flags().StringVar(&planPath, "plan", "", "path to the pre-decomposed plan file (required)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func runProject(parentCtx context.Context, configPath, planPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	tasks, err := loadPlan(planPath)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(os.Stdout)
	client := llm.NewCLIClient(cfg.LLMBinary)
	client.Waiter = budget.NewRateLimitWaiter(24*time.Hour, 15*time.Second, 30*time.Second, log)
	client.StateManager = budget.NewStateManager(filepath.Join(cfg.ProjectPath, ".nexus", "state"))
	client.PlanFile = planPath
	wt := worktree.New(cfg.ProjectPath)

	coderCap := cfg.MaxAgentsByType.Coder
	if limit := cfg.Settings.MaxParallelAgents; limit > 0 && limit < coderCap {
		coderCap = limit
	}
	capacity := map[models.AgentType]int{
		models.AgentCoder:    coderCap,
		models.AgentTester:   cfg.MaxAgentsByType.Tester,
		models.AgentReviewer: cfg.MaxAgentsByType.Reviewer,
		models.AgentMerger:   cfg.MaxAgentsByType.Merger,
		models.AgentPlanner:  cfg.MaxAgentsByType.Planner,
	}
	runners := map[models.AgentType]func(string) pool.Runner{
		models.AgentCoder: func(worktreePath string) pool.Runner {
			return runner.NewCoderRunner(client, &tools.LocalExecutor{Dir: worktreePath})
		},
	}
	p := pool.New(capacity, runners, nil)

	qa := qaloop.NewEngine(
		verify.NewBuildVerifier(cfg.Settings.BuildCommand),
		verify.NewLintRunner(cfg.Settings.LintCommand),
		verify.NewTestRunner(cfg.Settings.TestCommand),
		nil, // replaced per-task by ReviewerFactory below
	)
	qa.MaxIterations = cfg.Settings.QAMaxIterations

	reviews := review.New(logReviewEscalation)

	dbPath := filepath.Join(cfg.ProjectPath, ".nexus", "checkpoints.db")
	snapshotDir := filepath.Join(cfg.ProjectPath, ".nexus", "snapshots")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cli: create state dir: %w", err)
	}
	checkpoints, err := checkpoint.Open(dbPath, snapshotDir)
	if err != nil {
		return fmt.Errorf("cli: open checkpoint store: %w", err)
	}
	defer checkpoints.Close()

	coord := coordinator.New(cfg, coordinator.Deps{
		Queue:       queue.New(),
		Pool:        p,
		Worktrees:   wt,
		Reviews:     reviews,
		Checkpoints: checkpoints,
		QA:          qa,
		Merger:      wt,
		Logger:      log,
		ReviewerFactory: func(worktreePath string) qaloop.CodeReviewer {
			return runner.NewReviewerRunner(client, &tools.LocalExecutor{Dir: worktreePath})
		},
	})
	coord.OnEvent(logReviewEscalation)

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			coord.Stop()
			cancel()
		}
	}()
	defer signal.Stop(sigCh)

	if err := coord.ExecuteExistingTasks(ctx, cfg.ProjectID, tasks, cfg.ProjectPath); err != nil {
		return err
	}

	progress := coord.GetProgress()
	fmt.Fprintf(os.Stdout, "completed=%d failed=%d total=%d\n", progress.CompletedTasks, progress.FailedTasks, progress.TotalTasks)
	return nil
}

// logReviewEscalation prints a markdown-rendered summary of every
// escalated review as it is requested, so a human watching the run has
// the task id, reason, and context without opening the review store.
func logReviewEscalation(ev models.Event) {
	if ev.Type != models.EvtReviewRequested {
		return
	}
	req, ok := ev.Data["request"].(*models.ReviewRequest)
	if !ok {
		return
	}
	rendered, err := review.FormatForDisplay(req)
	if err != nil {
		return
	}
	fmt.Fprintln(os.Stdout, rendered)
}
