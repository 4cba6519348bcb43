package runner

import (
	"context"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

// VCS is the narrow slice of the worktree manager's capability the
// MergerRunner needs: merge a worktree branch into target and report
// conflicts as a typed result rather than an error.
type VCS interface {
	Merge(ctx context.Context, worktreePath, targetBranch string) (models.MergeResult, error)
}

const defaultMergerPrompt = "You resolve merge conflicts. Use read_file and write_file to edit conflicting files, then run_command to stage and commit."

// MergerRunner implements the Merger variant: read_file, run_command (for
// VCS), write_file for conflict resolution.
type MergerRunner struct {
	Base
	vcs VCS
}

func NewMergerRunner(client llm.Client, executor tools.Executor, vcs VCS) *MergerRunner {
	return &MergerRunner{
		Base: Base{
			Client:        client,
			Tools:         executor,
			RolePrompt:    defaultMergerPrompt,
			ToolWhitelist: tools.Whitelist("merger"),
		},
		vcs: vcs,
	}
}

// Merge merges the worktree's branch into targetBranch via the VCS
// capability; conflicts are reported in the result, never thrown.
func (r *MergerRunner) Merge(ctx context.Context, worktreePath, targetBranch string) (models.MergeResult, error) {
	return r.vcs.Merge(ctx, worktreePath, targetBranch)
}
