package checkpoint

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/nexus/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	m, err := Open(filepath.Join(dir, "checkpoints.db"), filepath.Join(dir, "snapshots"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	cp := &models.Checkpoint{
		ID:               "cp-1",
		ProjectID:        "proj-1",
		WaveID:           2,
		CompletedTasks:   []string{"t1", "t2"},
		PendingTasks:     []string{"t3"},
		CoordinatorState: "opaque-blob",
		CommitHandle:     "abc123",
		CreatedAt:        time.Now().Truncate(time.Second),
	}
	require.NoError(t, m.Create(ctx, cp))

	got, err := m.Get(ctx, "cp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cp.ProjectID, got.ProjectID)
	assert.Equal(t, cp.WaveID, got.WaveID)
	assert.ElementsMatch(t, cp.CompletedTasks, got.CompletedTasks)
	assert.ElementsMatch(t, cp.PendingTasks, got.PendingTasks)
	assert.Equal(t, cp.CommitHandle, got.CommitHandle)
}

func TestLatestReturnsMostRecent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	older := &models.Checkpoint{ID: "cp-a", ProjectID: "proj-2", WaveID: 1, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.Checkpoint{ID: "cp-b", ProjectID: "proj-2", WaveID: 2, CreatedAt: time.Now()}
	require.NoError(t, m.Create(ctx, older))
	require.NoError(t, m.Create(ctx, newer))

	latest, err := m.Latest(ctx, "proj-2")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "cp-b", latest.ID)
}

func TestListByProjectOrdersOldestFirst(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	first := &models.Checkpoint{ID: "cp-x", ProjectID: "proj-3", WaveID: 1, CreatedAt: time.Now().Add(-2 * time.Hour)}
	second := &models.Checkpoint{ID: "cp-y", ProjectID: "proj-3", WaveID: 2, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, m.Create(ctx, second))
	require.NoError(t, m.Create(ctx, first))

	list, err := m.ListByProject(ctx, "proj-3")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cp-x", list[0].ID)
	assert.Equal(t, "cp-y", list[1].ID)
}

func TestGetUnknownReturnsNil(t *testing.T) {
	m := newTestManager(t)
	got, err := m.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}
