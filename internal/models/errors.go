package models

import "fmt"

// PoolCapacityError reports that a role's agent pool is already at its
// configured cap.
type PoolCapacityError struct {
	Type AgentType
	Max  int
}

func (e *PoolCapacityError) Error() string {
	return fmt.Sprintf("agent pool at capacity for role %q (max %d)", e.Type, e.Max)
}

// DuplicateTaskError reports an enqueue of an id already present.
type DuplicateTaskError struct{ ID string }

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("duplicate task id %q", e.ID)
}

// AgentNotFoundError reports a lookup of an unknown agent id.
type AgentNotFoundError struct{ ID string }

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found", e.ID)
}

// UnknownTaskError reports a mark-complete/mark-failed of an unknown id.
type UnknownTaskError struct{ ID string }

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// NoRunnerError reports that the pool has no runner configured for a role.
type NoRunnerError struct{ Type AgentType }

func (e *NoRunnerError) Error() string {
	return fmt.Sprintf("no runner configured for role %q", e.Type)
}

// DependencyCycleError carries the offending task id chain.
type DependencyCycleError struct{ Chain []string }

func (e *DependencyCycleError) Error() string {
	msg := "dependency cycle detected:"
	for i, id := range e.Chain {
		if i > 0 {
			msg += " ->"
		}
		msg += " " + id
	}
	return msg
}

// BackendErrorKind enumerates the recoverable/terminal LLM backend error
// kinds propagated by Agent Runners.
type BackendErrorKind string

const (
	ErrCLINotFound       BackendErrorKind = "cli_not_found"
	ErrCLIAuth           BackendErrorKind = "cli_auth"
	ErrCLITimeout        BackendErrorKind = "cli_timeout"
	ErrAPIKeyMissing     BackendErrorKind = "api_key_missing"
	ErrRateLimit         BackendErrorKind = "rate_limit"
	ErrBackendUnavailable BackendErrorKind = "backend_unavailable"
)

// BackendError is the sum type for LLM/CLI backend failures. Every terminal
// error carries a remediation-oriented message.
type BackendError struct {
	Kind          BackendErrorKind
	Message       string
	RetryAfterMs  int64
	recoverable   bool
}

func NewBackendError(kind BackendErrorKind, message string, recoverable bool) *BackendError {
	return &BackendError{Kind: kind, Message: message, recoverable: recoverable}
}

func (e *BackendError) Error() string { return string(e.Kind) + ": " + e.Message }

// Recoverable reports whether the caller (QA loop or coordinator) should
// retry another backend rather than treat this as terminal.
func (e *BackendError) Recoverable() bool { return e.recoverable }

// MergeConflictError carries the conflicting file list for a failed merge.
type MergeConflictError struct{ ConflictFiles []string }

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict in %d file(s)", len(e.ConflictFiles))
}

// NoActiveTaskError is returned by CoderRunner.FixIssues when Execute has
// never been called in this runner's lifetime.
type NoActiveTaskError struct{}

func (e *NoActiveTaskError) Error() string { return "no active task: Execute was never called" }
