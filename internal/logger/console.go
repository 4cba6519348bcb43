package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/harrison/nexus/internal/models"
)

// ConsoleLogger renders events as colored, box-drawn terminal output. Color
// and box-drawing are disabled automatically when stdout is not a
// terminal (piped output, CI), detected via isatty.
type ConsoleLogger struct {
	out       io.Writer
	useColor  bool
	boxWidth  int
}

// NewConsoleLogger builds a ConsoleLogger writing to out. isatty detection
// runs against os.Stdout regardless of out, since color/box-drawing is a
// property of the terminal the process is attached to.
func NewConsoleLogger(out io.Writer) *ConsoleLogger {
	useColor := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return &ConsoleLogger{out: out, useColor: useColor, boxWidth: 72}
}

func (c *ConsoleLogger) paint(col *color.Color, format string, a ...any) string {
	s := fmt.Sprintf(format, a...)
	if !c.useColor {
		return s
	}
	return col.Sprint(s)
}

func (c *ConsoleLogger) line(s string) {
	fmt.Fprintln(c.out, s)
}

// box renders a single-line, width-padded header, e.g.
// "┌─ wave 2 ──────────────────────────────────────┐".
func (c *ConsoleLogger) box(title string) string {
	inner := c.boxWidth - runewidth.StringWidth(title) - 4
	if inner < 0 {
		inner = 0
	}
	return fmt.Sprintf("┌─ %s %s┐", title, strings.Repeat("─", inner))
}

func (c *ConsoleLogger) LogWaveStart(waveID int, taskCount int) {
	c.line(c.box(fmt.Sprintf("wave %d (%d tasks)", waveID, taskCount)))
}

func (c *ConsoleLogger) LogWaveComplete(waveID int) {
	c.line(c.paint(color.New(color.FgGreen), "wave %d complete", waveID))
}

func (c *ConsoleLogger) LogTaskAssigned(task *models.Task, agentID string) {
	c.line(c.paint(color.New(color.FgCyan), "task %s assigned to agent %s", task.ID, agentID))
}

func (c *ConsoleLogger) LogTaskStart(task *models.Task) {
	c.line(c.paint(color.New(color.FgCyan), "task %s started: %s", task.ID, task.Name))
}

func (c *ConsoleLogger) LogTaskComplete(task *models.Task, duration time.Duration) {
	c.line(c.paint(color.New(color.FgGreen, color.Bold), "task %s completed in %s", task.ID, duration.Round(time.Millisecond)))
}

func (c *ConsoleLogger) LogTaskFailed(task *models.Task, err error) {
	c.line(c.paint(color.New(color.FgRed, color.Bold), "task %s failed: %v", task.ID, err))
}

func (c *ConsoleLogger) LogTaskEscalated(task *models.Task, reason models.ReviewReason) {
	c.line(c.paint(color.New(color.FgYellow, color.Bold), "task %s escalated: %s", task.ID, reason))
}

func (c *ConsoleLogger) LogQAIteration(taskID string, iteration int, stage models.Stage, result models.StageResult) {
	status := c.paint(color.New(color.FgGreen), "ok")
	if !result.Success {
		status = c.paint(color.New(color.FgRed), "fail (%d errors)", len(result.Errors))
	}
	c.line(fmt.Sprintf("  [%s #%d] %s: %s", taskID, iteration, stage, status))
}

func (c *ConsoleLogger) LogMergeResult(taskID string, result models.MergeResult) {
	if result.Success {
		c.line(c.paint(color.New(color.FgGreen), "task %s merged as %s", taskID, result.CommitHash))
		return
	}
	c.line(c.paint(color.New(color.FgRed), "task %s merge conflict: %s", taskID, strings.Join(result.ConflictFiles, ", ")))
}

func (c *ConsoleLogger) LogPushResult(taskID, branch string, err error) {
	if err != nil {
		c.line(c.paint(color.New(color.FgYellow), "task %s push to %s failed (non-fatal): %v", taskID, branch, err))
		return
	}
	c.line(c.paint(color.New(color.FgGreen), "task %s pushed to %s", taskID, branch))
}

func (c *ConsoleLogger) LogAgentSpawned(agent *models.Agent) {
	c.line(fmt.Sprintf("agent %s (%s) spawned", agent.ID, agent.Type))
}

func (c *ConsoleLogger) LogAgentTerminated(agentID string, reason string) {
	c.line(fmt.Sprintf("agent %s terminated: %s", agentID, reason))
}

func (c *ConsoleLogger) LogAgentError(agentID string, err error, recoverable bool) {
	c.line(c.paint(color.New(color.FgRed), "agent %s error (recoverable=%v): %v", agentID, recoverable, err))
}

func (c *ConsoleLogger) LogRateLimitCountdown(remaining, total time.Duration) {
	c.line(fmt.Sprintf("rate limit: resuming in %s (of %s)", remaining.Round(time.Second), total.Round(time.Second)))
}

func (c *ConsoleLogger) LogRateLimitAnnounce(remaining, total time.Duration) {
	c.line(c.paint(color.New(color.FgYellow), "rate limit: %s remaining", remaining.Round(time.Second)))
}

func (c *ConsoleLogger) LogCheckpoint(cp *models.Checkpoint, err error) {
	if err != nil {
		c.line(c.paint(color.New(color.FgRed), "checkpoint failed: %v", err))
		return
	}
	c.line(fmt.Sprintf("checkpoint %s created for wave %d", cp.ID, cp.WaveID))
}
