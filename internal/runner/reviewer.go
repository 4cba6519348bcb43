package runner

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/harrison/nexus/internal/llm"
	"github.com/harrison/nexus/internal/models"
	"github.com/harrison/nexus/internal/tools"
)

const defaultReviewerPrompt = `You are a code reviewer. You have read-only access to the repository.
Respond with a single JSON object: {"approved": bool, "hasBlockingIssues": bool, "issues": [{"severity": str, "message": str, "file": str, "line": int}], "summary": str}.`

// ReviewerRunner is a read-only reviewer: read-only tool whitelist,
// structured JSON output. A Gemini-family backend is preferred in a full
// deployment; this runner is backend-agnostic and takes whatever
// llm.Client it is given.
type ReviewerRunner struct {
	Base
}

func NewReviewerRunner(client llm.Client, executor tools.Executor) *ReviewerRunner {
	return &ReviewerRunner{Base: Base{
		Client:        client,
		Tools:         executor,
		RolePrompt:    defaultReviewerPrompt,
		ToolWhitelist: tools.Whitelist("reviewer"),
	}}
}

// reviewJSON mirrors the wire shape requested in defaultReviewerPrompt.
type reviewJSON struct {
	Approved          bool   `json:"approved"`
	HasBlockingIssues bool   `json:"hasBlockingIssues"`
	Summary           string `json:"summary"`
	Issues            []struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
		File     string `json:"file"`
		Line     int    `json:"line"`
	} `json:"issues"`
}

// Review runs the conversation loop and parses the final response as
// structured JSON. A response that fails to parse is treated as
// approved=false, hasBlockingIssues=true, issues=[{severity: error,
// message: "unparsable review"}].
func (r *ReviewerRunner) Review(ctx context.Context, task *models.Task) (models.ReviewResult, error) {
	result, _, err := r.conversation(ctx, taskPrompt(task))
	if err != nil {
		return models.ReviewResult{}, err
	}

	content := strings.TrimSpace(result.Output)
	var parsed reviewJSON
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		if extracted := extractJSONObject(content); extracted != "" {
			if err2 := json.Unmarshal([]byte(extracted), &parsed); err2 == nil {
				return toReviewResult(parsed), nil
			}
		}
		return models.ReviewResult{
			Approved:          false,
			HasBlockingIssues: true,
			Issues:            []models.StageError{{Severity: "error", Message: "unparsable review"}},
		}, nil
	}
	return toReviewResult(parsed), nil
}

func toReviewResult(p reviewJSON) models.ReviewResult {
	rr := models.ReviewResult{
		Approved:          p.Approved,
		HasBlockingIssues: p.HasBlockingIssues,
		Summary:           p.Summary,
	}
	for _, i := range p.Issues {
		rr.Issues = append(rr.Issues, models.StageError{
			Kind:     models.ErrKindReview,
			File:     i.File,
			Line:     i.Line,
			Message:  i.Message,
			Severity: i.Severity,
		})
	}
	return rr
}

// extractJSONObject finds the first balanced {...} substring; duplicated
// in miniature from internal/llm/cli.go's brace-extraction fallback since
// that helper is unexported across package boundaries.
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
