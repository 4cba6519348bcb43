package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/nexus/internal/budget"
	"github.com/harrison/nexus/internal/checkpoint"
	"github.com/harrison/nexus/internal/config"
)

func newStatusCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the most recent checkpoint for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the project config YAML (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func printStatus(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbPath := filepath.Join(cfg.ProjectPath, ".nexus", "checkpoints.db")
	snapshotDir := filepath.Join(cfg.ProjectPath, ".nexus", "snapshots")
	store, err := checkpoint.Open(dbPath, snapshotDir)
	if err != nil {
		return fmt.Errorf("cli: open checkpoint store: %w", err)
	}
	defer store.Close()

	cp, err := store.Latest(ctx, cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("cli: read latest checkpoint: %w", err)
	}
	if cp == nil {
		fmt.Fprintln(os.Stdout, "no checkpoint found")
		return nil
	}

	fmt.Fprintf(os.Stdout, "project:    %s\n", cp.ProjectID)
	fmt.Fprintf(os.Stdout, "state:      %s\n", cp.CoordinatorState)
	fmt.Fprintf(os.Stdout, "wave:       %d\n", cp.WaveID)
	fmt.Fprintf(os.Stdout, "completed:  %d tasks\n", len(cp.CompletedTasks))
	fmt.Fprintf(os.Stdout, "pending:    %d tasks\n", len(cp.PendingTasks))
	fmt.Fprintf(os.Stdout, "created_at: %s\n", cp.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))

	printPausedStates(cfg)
	return nil
}

// printPausedStates reports any rate-limit pauses a prior run saved for
// this project (internal/llm.CLIClient.savePausedState), so an operator
// checking status also sees a run that is sitting out a rate limit.
func printPausedStates(cfg *config.ProjectConfig) {
	stateDir := filepath.Join(cfg.ProjectPath, ".nexus", "state")
	sm := budget.NewStateManager(stateDir)
	states, err := sm.GetPausedStates()
	if err != nil || len(states) == 0 {
		return
	}
	for _, st := range states {
		fmt.Fprintf(os.Stdout, "paused:     session=%s status=%s resume_at=%s\n",
			st.SessionID, st.Status, st.ResumeAt.Format("2006-01-02T15:04:05Z07:00"))
	}
}
