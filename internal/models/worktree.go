package models

// Worktree is a per-task isolated checkout: a tuple of task id, filesystem
// path, branch name, and base commit. A worktree exists strictly between
// task assignment and task termination.
type Worktree struct {
	TaskID     string
	Path       string
	Branch     string
	BaseCommit string
}

// MergeResult is the outcome of merging a worktree branch into trunk.
type MergeResult struct {
	Success       bool
	CommitHash    string
	Error         error
	ConflictFiles []string
}
