// Package logger provides the orchestration core's event-driven logging
// surface: a broad interface with one method per notable occurrence,
// implemented by a console logger with colored, box-drawn output.
package logger

import (
	"time"

	"github.com/harrison/nexus/internal/models"
)

// Logger is consumed throughout the core; observers never mutate state,
// they only receive notifications.
type Logger interface {
	LogWaveStart(waveID int, taskCount int)
	LogWaveComplete(waveID int)
	LogTaskAssigned(task *models.Task, agentID string)
	LogTaskStart(task *models.Task)
	LogTaskComplete(task *models.Task, duration time.Duration)
	LogTaskFailed(task *models.Task, err error)
	LogTaskEscalated(task *models.Task, reason models.ReviewReason)
	LogQAIteration(taskID string, iteration int, stage models.Stage, result models.StageResult)
	LogMergeResult(taskID string, result models.MergeResult)
	LogPushResult(taskID, branch string, err error)
	LogAgentSpawned(agent *models.Agent)
	LogAgentTerminated(agentID string, reason string)
	LogAgentError(agentID string, err error, recoverable bool)
	LogRateLimitCountdown(remaining, total time.Duration)
	LogRateLimitAnnounce(remaining, total time.Duration)
	LogCheckpoint(cp *models.Checkpoint, err error)
}
