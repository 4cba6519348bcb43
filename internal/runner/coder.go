package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

// defaultCoderPrompt is a minimal literal default kept here so the runner
// is usable standalone and in tests; a full deployment would load prompts
// externally by name instead.
const defaultCoderPrompt = "You are a software engineer implementing a single task. Use the available tools to read, write, and edit files and run commands. Emit " + taskCompleteSentinel + " when finished."

// CoderRunner implements the Coder variant: read_file, write_file,
// edit_file, run_command, search_code, list_files.
type CoderRunner struct {
	Base
	lastMessages []llm.Message
	lastTaskID   string
	hasRun       bool
}

// NewCoderRunner builds a CoderRunner bound to client/executor.
func NewCoderRunner(client llm.Client, executor tools.Executor) *CoderRunner {
	return &CoderRunner{Base: Base{
		Client:        client,
		Tools:         executor,
		RolePrompt:    defaultCoderPrompt,
		ToolWhitelist: tools.Whitelist("coder"),
	}}
}

// Execute runs the conversation loop for task and remembers its
// transcript so FixIssues can resume it.
func (r *CoderRunner) Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	result, messages, err := r.conversation(ctx, taskPrompt(task))
	if err != nil {
		return nil, err
	}
	result.TaskID = task.ID
	r.lastMessages = messages
	r.lastTaskID = task.ID
	r.hasRun = true
	return result, nil
}

// FixIssues resumes the conversation of the most recent Execute call with
// a new user turn summarising the errors. Requires Execute to have run at
// least once; otherwise fails with NoActiveTaskError.
func (r *CoderRunner) FixIssues(ctx context.Context, errs []models.StageError) (*models.TaskResult, error) {
	if !r.hasRun {
		return nil, &models.NoActiveTaskError{}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The previous attempt failed. Fix the following issues:\n")
	for _, e := range errs {
		loc := ""
		if e.File != "" {
			loc = fmt.Sprintf(" (%s:%d)", e.File, e.Line)
		}
		fmt.Fprintf(&b, "  - [%s]%s %s\n", e.Kind, loc, e.Message)
	}

	messages := append(r.lastMessages, llm.Message{Role: llm.RoleUser, Content: b.String()})
	result, newMessages, err := continueLoop(ctx, &r.Base, messages)
	if err != nil {
		return nil, err
	}
	result.TaskID = r.lastTaskID
	r.lastMessages = newMessages
	return result, nil
}
