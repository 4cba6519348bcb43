package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	run("add", "README.md")
	run("commit", "-m", "initial commit")
	return dir
}

func TestCreateWorktreeIsIdempotent(t *testing.T) {
	repo := initRepo(t)
	m := New(repo)
	ctx := context.Background()

	wt1, err := m.CreateWorktree(ctx, "task-1")
	require.NoError(t, err)
	assert.DirExists(t, wt1.Path)
	assert.NotEmpty(t, wt1.Branch)
	assert.NotEmpty(t, wt1.BaseCommit)

	wt2, err := m.CreateWorktree(ctx, "task-1")
	require.NoError(t, err)
	assert.Same(t, wt1, wt2)
}

func TestRemoveWorktreeDeletesCheckout(t *testing.T) {
	repo := initRepo(t)
	m := New(repo)
	ctx := context.Background()

	wt, err := m.CreateWorktree(ctx, "task-2")
	require.NoError(t, err)

	require.NoError(t, m.RemoveWorktree(ctx, "task-2"))
	assert.NoDirExists(t, wt.Path)
	assert.Nil(t, m.GetWorktree("task-2"))
}

func TestRemoveWorktreeUnknownTaskIsNoop(t *testing.T) {
	m := New(t.TempDir())
	assert.NoError(t, m.RemoveWorktree(context.Background(), "ghost"))
}

func TestMergeSucceedsWithoutConflict(t *testing.T) {
	repo := initRepo(t)
	m := New(repo)
	ctx := context.Background()

	wt, err := m.CreateWorktree(ctx, "task-3")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(wt.Path, "feature.txt"), []byte("new feature"), 0o644))
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = wt.Path
		out, err := cmd.CombinedOutput()
		require.NoErrorf(t, err, "git %v: %s", args, out)
	}
	run("add", "feature.txt")
	run("commit", "-m", "add feature")

	result, err := m.Merge(ctx, wt.Path, "main")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.CommitHash)
	assert.FileExists(t, filepath.Join(repo, "feature.txt"))
}

func TestMergeUnknownWorktreePathFails(t *testing.T) {
	repo := initRepo(t)
	m := New(repo)

	result, err := m.Merge(context.Background(), "/nowhere", "main")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Error(t, result.Error)
}

func TestListWorktreesReturnsAllTracked(t *testing.T) {
	repo := initRepo(t)
	m := New(repo)
	ctx := context.Background()
	_, err := m.CreateWorktree(ctx, "a")
	require.NoError(t, err)
	_, err = m.CreateWorktree(ctx, "b")
	require.NoError(t, err)

	all := m.ListWorktrees()
	assert.Len(t, all, 2)
}
