package runner

import (
	"context"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

const defaultTesterPrompt = "You are a test engineer. Write and run tests against the task's test criteria. Use the available tools. Emit " + taskCompleteSentinel + " when finished."

// TesterRunner implements the Tester variant: same tool whitelist as
// Coder, distinguished by role prompt.
type TesterRunner struct {
	Base
}

func NewTesterRunner(client llm.Client, executor tools.Executor) *TesterRunner {
	return &TesterRunner{Base: Base{
		Client:        client,
		Tools:         executor,
		RolePrompt:    defaultTesterPrompt,
		ToolWhitelist: tools.Whitelist("tester"),
	}}
}

func (r *TesterRunner) Execute(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	result, _, err := r.conversation(ctx, taskPrompt(task))
	if err != nil {
		return nil, err
	}
	result.TaskID = task.ID
	return result, nil
}
