package budget

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitFromErrorRetrySeconds(t *testing.T) {
	info := ParseRateLimitFromError("rate limited, retry in 42 seconds")
	require.NotNil(t, info)
	assert.Equal(t, int64(42), info.WaitSeconds)
}

func TestParseRateLimitFromErrorUnixTimestamp(t *testing.T) {
	future := time.Now().Add(10 * time.Minute).Unix()
	info := ParseRateLimitFromError("Claude AI usage limit reached|" + strconv.FormatInt(future, 10))
	require.NotNil(t, info)
	assert.WithinDuration(t, time.Unix(future, 0), info.ResetAt, time.Second)
}

func TestParseRateLimitFromErrorNoMatchReturnsNil(t *testing.T) {
	assert.Nil(t, ParseRateLimitFromError(""))
	assert.Nil(t, ParseRateLimitFromError("everything is fine"))
}

func TestRateLimitWaiterShouldWaitRespectsMaxWait(t *testing.T) {
	w := NewRateLimitWaiter(time.Hour, 15*time.Minute, time.Second, nil)
	soon := &RateLimitInfo{ResetAt: time.Now().Add(time.Minute)}
	far := &RateLimitInfo{ResetAt: time.Now().Add(2 * time.Hour)}

	assert.True(t, w.ShouldWait(soon))
	assert.False(t, w.ShouldWait(far))
	assert.False(t, w.ShouldWait(nil))
}

func TestRateLimitWaiterWaitForResetHonorsContextCancellation(t *testing.T) {
	w := NewRateLimitWaiter(time.Hour, 15*time.Minute, time.Second, nil)
	info := &RateLimitInfo{ResetAt: time.Now().Add(time.Hour)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WaitForReset(ctx, info)
	require.Error(t, err)
}

func TestStateManagerSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)

	state := &ExecutionState{
		SessionID:      "sess-1",
		PlanFile:       filepath.Join(dir, "plan.yaml"),
		CompletedTasks: []string{"t1", "t2"},
		CurrentWave:    3,
		PausedAt:       time.Now().Truncate(time.Second),
		ResumeAt:       time.Now().Add(time.Hour).Truncate(time.Second),
		Status:         StatusPaused,
	}
	require.NoError(t, sm.Save(state))

	loaded, err := sm.Load("sess-1")
	require.NoError(t, err)
	assert.Equal(t, state.SessionID, loaded.SessionID)
	assert.Equal(t, state.CompletedTasks, loaded.CompletedTasks)
	assert.Equal(t, state.CurrentWave, loaded.CurrentWave)
}

func TestGenerateSessionIDIsUnique(t *testing.T) {
	a := GenerateSessionID()
	b := GenerateSessionID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
