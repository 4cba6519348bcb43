package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/harrison/nexus/internal/budget"
	"github.com/harrison/nexus/internal/models"
)

// CLIClient is a vendor-CLI-backed LLMClient: it spawns the configured
// binary, writes the prompt to its standard input, and parses JSON or
// plain-text output, including a rate-limit-retry-once recovery path.
type CLIClient struct {
	BinaryPath   string
	Timeout      time.Duration
	Waiter       *budget.RateLimitWaiter // nil disables rate-limit waiting
	StateManager *budget.StateManager    // nil disables pause-state persistence
	PlanFile     string                  // recorded into ExecutionState on save
}

// NewCLIClient builds a CLIClient with a 300s default per-call timeout.
func NewCLIClient(binaryPath string) *CLIClient {
	return &CLIClient{BinaryPath: binaryPath, Timeout: 300 * time.Second}
}

func (c *CLIClient) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	resp, err := c.invoke(ctx, messages, opts)
	if err == nil {
		return resp, nil
	}

	info := budget.ParseRateLimitFromError(err.Error())
	if info == nil {
		return nil, c.classify(err)
	}
	if c.Waiter == nil || !c.Waiter.ShouldWait(info) {
		// Reset is too far out to wait in-process: persist a resumable
		// pause state before surfacing the rate-limit error.
		c.savePausedState(info)
		return nil, c.classify(err)
	}

	// Rate-limit retry-once: wait for reset then retry exactly once.
	if waitErr := c.Waiter.WaitForReset(ctx, info); waitErr != nil {
		return nil, fmt.Errorf("rate limit wait interrupted: %w", waitErr)
	}
	resp, err = c.invoke(ctx, messages, opts)
	if err != nil {
		return nil, c.classify(err)
	}
	return resp, nil
}

// savePausedState records a rate-limit pause so a later run can discover
// it (internal/cli status surfaces StateManager.GetPausedStates). Best
// effort: a save failure does not change the caller's rate-limit error.
func (c *CLIClient) savePausedState(info *budget.RateLimitInfo) {
	if c.StateManager == nil {
		return
	}
	state := &budget.ExecutionState{
		SessionID:     budget.GenerateSessionID(),
		PlanFile:      c.PlanFile,
		RateLimitInfo: info,
		PausedAt:      time.Now(),
		ResumeAt:      info.ResetAt,
		Status:        budget.StatusPaused,
	}
	_ = c.StateManager.Save(state)
}

func (c *CLIClient) ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan Chunk, error) {
	resp, err := c.Chat(ctx, messages, opts)
	ch := make(chan Chunk, 2)
	go func() {
		defer close(ch)
		if err != nil {
			ch <- Chunk{Type: ChunkError, Err: err}
			return
		}
		ch <- Chunk{Type: ChunkText, Content: resp.Content}
		ch <- Chunk{Type: ChunkDone}
	}()
	return ch, err
}

func (c *CLIClient) CountTokens(text string) int { return ApproxCountTokens(text) }

func (c *CLIClient) invoke(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := buildCommandArgs(opts)
	cmd := exec.CommandContext(cctx, c.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(renderPrompt(messages))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		combined := stdout.String() + "\n" + stderr.String()
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(combined))
	}

	return parseResponse(stdout.String())
}

// buildCommandArgs orders flags as: print and output format, then model
// selection, then extended thinking, then tool whitelist.
func buildCommandArgs(opts Options) []string {
	args := []string{"--print", "--output-format", "json"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.ExtendedThinking {
		args = append(args, "--thinking")
	}
	for _, tool := range opts.ToolWhitelist {
		args = append(args, "--allow-tool", tool)
	}
	return args
}

func renderPrompt(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	return b.String()
}

// cliEnvelope is the subset of the CLI's JSON output this client reads.
type cliEnvelope struct {
	StructuredOutput json.RawMessage `json:"structured_output"`
	Result           string          `json:"result"`
	Content          string          `json:"content"`
	SessionID        string          `json:"session_id"`
	Usage            struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// parseResponse unwraps structured_output > result > content, falling back
// to brace-extraction when the output is not valid JSON at all.
func parseResponse(raw string) (*Response, error) {
	raw = strings.TrimSpace(raw)
	var env cliEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err == nil {
		content := string(env.StructuredOutput)
		if content == "" {
			content = env.Result
		}
		if content == "" {
			content = env.Content
		}
		return &Response{
			Content:      content,
			FinishReason: FinishStop,
			Usage: Usage{
				InputTokens:  env.Usage.InputTokens,
				OutputTokens: env.Usage.OutputTokens,
				TotalTokens:  env.Usage.InputTokens + env.Usage.OutputTokens,
			},
		}, nil
	}

	if extracted := extractJSONObject(raw); extracted != "" {
		return &Response{Content: extracted, FinishReason: FinishStop}, nil
	}

	return &Response{Content: raw, FinishReason: FinishStop}, nil
}

// extractJSONObject finds the first balanced {...} substring, the
// brace-extraction fallback used when a CLI prints prose around its JSON.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// classify maps an exec/CLI failure into a typed backend error.
func (c *CLIClient) classify(err error) *models.BackendError {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such file") || strings.Contains(lower, "not found"):
		return models.NewBackendError(models.ErrCLINotFound, "claude CLI binary not found; install it and ensure it is on PATH: "+msg, false)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "not logged in"):
		return models.NewBackendError(models.ErrCLIAuth, "claude CLI is not authenticated; run `claude login`: "+msg, false)
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "context deadline"):
		return models.NewBackendError(models.ErrCLITimeout, "claude CLI call timed out: "+msg, true)
	case budget.ParseRateLimitFromError(msg) != nil:
		return models.NewBackendError(models.ErrRateLimit, "rate limited: "+msg, true)
	default:
		return models.NewBackendError(models.ErrBackendUnavailable, "claude CLI backend unavailable: "+msg, false)
	}
}
