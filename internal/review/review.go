// Package review implements the HumanReviewService: a registry of
// pending ReviewRequests and the approve/reject wakeup path that lets a
// paused task resume. Requests are tracked in a map guarded by a mutex,
// with decisions delivered over a channel so a coordinator select loop
// can wait on it alongside stop/pause signals.
package review

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/harrison/nexus/internal/models"
)

// Service owns every outstanding ReviewRequest and the channel each
// request's eventual decision is delivered on.
type Service struct {
	mu       sync.Mutex
	requests map[string]*models.ReviewRequest
	waiters  map[string]chan models.ReviewDecision
	onEvent  func(models.Event)
}

func New(onEvent func(models.Event)) *Service {
	if onEvent == nil {
		onEvent = func(models.Event) {}
	}
	return &Service{
		requests: make(map[string]*models.ReviewRequest),
		waiters:  make(map[string]chan models.ReviewDecision),
		onEvent:  onEvent,
	}
}

// RequestReview registers a new pending request and emits review:requested.
// It returns the request id and a channel that receives exactly one
// ReviewDecision when Approve or Reject is later called for this id.
func (s *Service) RequestReview(taskID, projectID string, reason models.ReviewReason, context map[string]any) (string, <-chan models.ReviewDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &models.ReviewRequest{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		ProjectID: projectID,
		Reason:    reason,
		Context:   context,
		Status:    models.ReviewPending,
	}
	ch := make(chan models.ReviewDecision, 1)
	s.requests[req.ID] = req
	s.waiters[req.ID] = ch

	s.onEvent(models.NewEvent(models.EvtReviewRequested, projectID, map[string]any{"request": req}))
	return req.ID, ch
}

// Approve resolves a pending request with approved=true and wakes its
// waiter. It is a no-op error (UnknownTaskError) if the id is unknown or
// already resolved.
func (s *Service) Approve(requestID, resolution, feedback string) error {
	return s.resolve(requestID, true, resolution, feedback)
}

// Reject resolves a pending request with approved=false.
func (s *Service) Reject(requestID, resolution, feedback string) error {
	return s.resolve(requestID, false, resolution, feedback)
}

func (s *Service) resolve(requestID string, approved bool, resolution, feedback string) error {
	s.mu.Lock()
	req, ok := s.requests[requestID]
	if !ok || req.Status != models.ReviewPending {
		s.mu.Unlock()
		return &models.UnknownTaskError{ID: requestID}
	}
	if approved {
		req.Status = models.ReviewApproved
	} else {
		req.Status = models.ReviewRejected
	}
	req.Resolution = resolution
	req.Feedback = feedback
	ch := s.waiters[requestID]
	delete(s.waiters, requestID)
	s.mu.Unlock()

	decision := models.ReviewDecision{ID: requestID, Approved: approved, Resolution: resolution, Feedback: feedback}
	ch <- decision
	close(ch)
	return nil
}

// Get returns the current state of a request, or nil if unknown.
func (s *Service) Get(requestID string) *models.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[requestID]
}

// Pending returns every request still awaiting a human decision.
func (s *Service) Pending() []*models.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReviewRequest
	for _, r := range s.requests {
		if r.Status == models.ReviewPending {
			out = append(out, r)
		}
	}
	return out
}

// RenderMarkdown renders a request's context/feedback markdown free text
// as HTML for a terminal-adjacent display surface.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("review: render markdown: %w", err)
	}
	return buf.String(), nil
}

// FormatForDisplay assembles a ReviewRequest's task id, reason, and
// context fields into one markdown document and renders it, for the
// CLI's escalation log line.
func FormatForDisplay(req *models.ReviewRequest) (string, error) {
	var md strings.Builder
	fmt.Fprintf(&md, "## Review requested: task `%s`\n\n", req.TaskID)
	fmt.Fprintf(&md, "**Reason:** %s\n\n", req.Reason)
	for k, v := range req.Context {
		fmt.Fprintf(&md, "- **%s**: %v\n", k, v)
	}
	return RenderMarkdown(md.String())
}
