// Package runner implements the role-specialised Agent Runners: Coder,
// Tester, Reviewer, Merger. Each wraps an llm.Client and a tools.Executor
// behind a shared bounded conversation loop with strict-JSON response
// instructions and a brace-extraction fallback when a response isn't
// valid JSON.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

// maxLLMCallsPerTask bounds a runner's conversation loop to a per-task
// default of at most 25 LLM calls.
const maxLLMCallsPerTask = 25

// taskCompleteSentinel is the exit substring a runner watches for to
// know a task is finished.
const taskCompleteSentinel = "[TASK_COMPLETE]"

// Base holds the fields every runner variant shares: the capability set
// (chat/chatStream/countTokens) plus a tool executor, a role system
// prompt, and a tool whitelist. Variants differ only in these four things.
type Base struct {
	Client        llm.Client
	Tools         tools.Executor
	RolePrompt    string
	ToolWhitelist []string
	Model         string
	ExtendedThink bool
}

// conversation is the bounded, tool-interleaving loop shared by every
// runner.
func (b *Base) conversation(ctx context.Context, taskPrompt string) (*models.TaskResult, []llm.Message, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: b.RolePrompt},
		{Role: llm.RoleUser, Content: taskPrompt},
	}
	return continueLoop(ctx, b, messages)
}

// continueLoop runs the bounded, tool-interleaving loop starting from an
// already-seeded transcript. conversation seeds a fresh system+user pair;
// CoderRunner.FixIssues seeds the prior transcript plus a new user turn —
// both paths share this one loop body.
func continueLoop(ctx context.Context, b *Base, messages []llm.Message) (*models.TaskResult, []llm.Message, error) {
	var totalTokens int64
	var filesModified []string
	calls := 0

	for {
		calls++
		if calls > maxLLMCallsPerTask {
			return &models.TaskResult{
				Success:       false,
				Output:        "exceeded per-task LLM call bound",
				FilesModified: filesModified,
				Metrics:       models.RunnerMetrics{Iterations: calls - 1, TokensUsed: totalTokens},
			}, messages, nil
		}

		resp, err := b.Client.Chat(ctx, messages, llm.Options{
			Model:            b.Model,
			ExtendedThinking: b.ExtendedThink,
			ToolWhitelist:    b.ToolWhitelist,
		})
		if err != nil {
			return nil, messages, err
		}
		totalTokens += int64(resp.Usage.TotalTokens)

		if len(resp.ToolCalls) == 0 || strings.Contains(resp.Content, taskCompleteSentinel) {
			return &models.TaskResult{
				Success:       true,
				Output:        resp.Content,
				FilesModified: filesModified,
				Metrics:       models.RunnerMetrics{Iterations: calls, TokensUsed: totalTokens},
			}, messages, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
		for _, call := range resp.ToolCalls {
			result, toolErr := b.Tools.Execute(ctx, call.Name, call.Args)
			outcome := result.Output
			if toolErr != nil {
				outcome = toolErr.Error()
			}
			if call.Name == tools.ToolWriteFile || call.Name == tools.ToolEditFile {
				if path, ok := call.Args["path"].(string); ok {
					filesModified = append(filesModified, path)
				}
			}
			messages = append(messages, llm.Message{
				Role:     llm.RoleTool,
				Content:  outcome,
				ToolName: call.Name,
				ToolArgs: call.Args,
			})
		}
	}
}

func taskPrompt(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n%s\n\n", task.Name, task.Description)
	if len(task.Files) > 0 {
		fmt.Fprintf(&b, "Files: %s\n", strings.Join(task.Files, ", "))
	}
	if len(task.TestCriteria) > 0 {
		fmt.Fprintf(&b, "Test criteria:\n")
		for _, c := range task.TestCriteria {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	return b.String()
}
