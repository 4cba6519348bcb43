package models

// ReviewReason is why a task was escalated to a human.
type ReviewReason string

const (
	ReasonQAExhausted   ReviewReason = "qa_exhausted"
	ReasonMergeConflict ReviewReason = "merge_conflict"
	ReasonCLIMissing    ReviewReason = "cli_missing"
	ReasonOther         ReviewReason = "other"
)

// ReviewStatus is the lifecycle status of a ReviewRequest.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// ReviewRequest is created on escalation. A pending review blocks only its
// own task; other tasks continue.
type ReviewRequest struct {
	ID         string
	TaskID     string
	ProjectID  string
	Reason     ReviewReason
	Context    map[string]any
	Status     ReviewStatus
	Resolution string
	Feedback   string
}

// ReviewDecision carries a human decision back to the coordinator: the
// explicit wakeup mechanism a paused task resumes through.
type ReviewDecision struct {
	ID         string
	Approved   bool
	Resolution string
	Feedback   string
}
