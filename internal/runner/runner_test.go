package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

// fakeExecutor records every tool call and returns a scripted result per
// call name, cycling the last entry for a name once exhausted.
type fakeExecutor struct {
	results map[string][]tools.Result
	calls   []string
}

func (f *fakeExecutor) Execute(_ context.Context, name string, _ map[string]any) (tools.Result, error) {
	f.calls = append(f.calls, name)
	rs := f.results[name]
	if len(rs) == 0 {
		return tools.Result{Success: true}, nil
	}
	r := rs[0]
	if len(rs) > 1 {
		f.results[name] = rs[1:]
	}
	return r, nil
}

func taskFor(name string) *models.Task {
	t := models.NewTask(name)
	t.Description = "do the thing"
	return t
}

func TestCoderRunnerExecuteReturnsSuccessOnCompletionSentinel(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{
		{Content: "all done " + taskCompleteSentinel, FinishReason: llm.FinishStop, Usage: llm.Usage{TotalTokens: 7}},
	}}
	exec := &fakeExecutor{results: map[string][]tools.Result{}}
	r := NewCoderRunner(client, exec)

	result, err := r.Execute(context.Background(), taskFor("build a thing"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Metrics.Iterations)
	assert.EqualValues(t, 7, result.Metrics.TokensUsed)
}

func TestCoderRunnerExecuteStopsAtCallBound(t *testing.T) {
	responses := make([]llm.Response, 0, 30)
	for i := 0; i < 30; i++ {
		responses = append(responses, llm.Response{
			Content:   "still working",
			ToolCalls: []llm.ToolCall{{Name: tools.ToolReadFile, Args: map[string]any{"path": "x"}}},
		})
	}
	client := &llm.MockClient{Responses: responses}
	exec := &fakeExecutor{results: map[string][]tools.Result{}}
	r := NewCoderRunner(client, exec)

	result, err := r.Execute(context.Background(), taskFor("never finishes"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Output, "exceeded per-task LLM call bound")
}

func TestCoderRunnerFixIssuesRequiresPriorExecute(t *testing.T) {
	client := &llm.MockClient{}
	r := NewCoderRunner(client, &fakeExecutor{results: map[string][]tools.Result{}})

	_, err := r.FixIssues(context.Background(), []models.StageError{{Message: "boom"}})
	require.Error(t, err)
	var noActive *models.NoActiveTaskError
	assert.ErrorAs(t, err, &noActive)
}

func TestCoderRunnerFixIssuesResumesTranscript(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{
		{Content: "first pass " + taskCompleteSentinel},
		{Content: "fixed it " + taskCompleteSentinel},
	}}
	exec := &fakeExecutor{results: map[string][]tools.Result{}}
	r := NewCoderRunner(client, exec)

	_, err := r.Execute(context.Background(), taskFor("t"))
	require.NoError(t, err)

	result, err := r.FixIssues(context.Background(), []models.StageError{{Kind: models.ErrKindBuild, Message: "undefined symbol"}})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "fixed it "+taskCompleteSentinel, result.Output)
	assert.Len(t, client.Requests, 2)
	last := client.Requests[1]
	assert.Contains(t, last[len(last)-1].Content, "undefined symbol")
}

func TestCoderRunnerRecordsFilesModifiedFromToolCalls(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{
		{Content: "editing", ToolCalls: []llm.ToolCall{{Name: tools.ToolWriteFile, Args: map[string]any{"path": "a.go", "content": "package a"}}}},
		{Content: "done " + taskCompleteSentinel},
	}}
	exec := &fakeExecutor{results: map[string][]tools.Result{tools.ToolWriteFile: {{Success: true, Output: "wrote a.go"}}}}
	r := NewCoderRunner(client, exec)

	result, err := r.Execute(context.Background(), taskFor("t"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, result.FilesModified)
}

func TestReviewerRunnerParsesStructuredJSON(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{
		{Content: `{"approved": true, "hasBlockingIssues": false, "summary": "looks good"}`},
	}}
	r := NewReviewerRunner(client, &fakeExecutor{results: map[string][]tools.Result{}})

	result, err := r.Review(context.Background(), taskFor("t"))
	require.NoError(t, err)
	assert.True(t, result.Approved)
	assert.False(t, result.HasBlockingIssues)
	assert.Equal(t, "looks good", result.Summary)
}

func TestReviewerRunnerExtractsJSONFromProse(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{
		{Content: `Here is my review: {"approved": false, "hasBlockingIssues": true, "issues": [{"severity":"error","message":"nil deref","file":"x.go","line":10}]} thanks`},
	}}
	r := NewReviewerRunner(client, &fakeExecutor{results: map[string][]tools.Result{}})

	result, err := r.Review(context.Background(), taskFor("t"))
	require.NoError(t, err)
	assert.False(t, result.Approved)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "nil deref", result.Issues[0].Message)
}

func TestReviewerRunnerUnparsableResponseIsTreatedAsBlocking(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{{Content: "not json at all"}}}
	r := NewReviewerRunner(client, &fakeExecutor{results: map[string][]tools.Result{}})

	result, err := r.Review(context.Background(), taskFor("t"))
	require.NoError(t, err)
	assert.False(t, result.Approved)
	assert.True(t, result.HasBlockingIssues)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "unparsable review", result.Issues[0].Message)
}

type fakeVCS struct {
	result models.MergeResult
	err    error
}

func (f *fakeVCS) Merge(_ context.Context, _, _ string) (models.MergeResult, error) {
	return f.result, f.err
}

func TestMergerRunnerDelegatesToVCS(t *testing.T) {
	vcs := &fakeVCS{result: models.MergeResult{Success: true, CommitHash: "abc123"}}
	r := NewMergerRunner(&llm.MockClient{}, &fakeExecutor{results: map[string][]tools.Result{}}, vcs)

	result, err := r.Merge(context.Background(), "/wt/task-1", "main")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "abc123", result.CommitHash)
}

func TestTesterRunnerExecute(t *testing.T) {
	client := &llm.MockClient{Responses: []llm.Response{{Content: "tests pass " + taskCompleteSentinel}}}
	r := NewTesterRunner(client, &fakeExecutor{results: map[string][]tools.Result{}})

	result, err := r.Execute(context.Background(), taskFor("t"))
	require.NoError(t, err)
	assert.True(t, result.Success)
}
