package models

import "time"

// Stage is one of the four fixed QA pipeline stages.
type Stage string

const (
	StageBuild  Stage = "build"
	StageLint   Stage = "lint"
	StageTest   Stage = "test"
	StageReview Stage = "review"
)

// ErrorKind is the kind of a QA error, shared uniformly across stages.
type ErrorKind string

const (
	ErrKindBuild  ErrorKind = "build"
	ErrKindLint   ErrorKind = "lint"
	ErrKindTest   ErrorKind = "test"
	ErrKindReview ErrorKind = "review"
)

// StageError is a single finding produced by a stage.
type StageError struct {
	Kind     ErrorKind
	File     string
	Line     int
	Message  string
	Severity string // only meaningful for review
}

// StageResult is the outcome of running one QA stage once.
type StageResult struct {
	Stage    Stage
	Success  bool
	Errors   []StageError
	Warnings []StageError
	Duration time.Duration
}

// ReviewResult is the structured outcome of the review stage.
type ReviewResult struct {
	Approved          bool
	HasBlockingIssues bool
	Issues            []StageError
	Summary           string
}

// Succeeded reports whether the review stage counts as a pass: approved
// and free of blocking issues.
func (r ReviewResult) Succeeded() bool {
	return r.Approved && !r.HasBlockingIssues
}

// QAIteration is one monotonically numbered attempt within a task's QA
// loop, recording every stage result produced during that attempt.
type QAIteration struct {
	Number int
	Stages []StageResult
}

// QAOutcomeKind distinguishes the two terminal shapes a QA loop run can
// produce.
type QAOutcomeKind string

const (
	QASuccess   QAOutcomeKind = "success"
	QAEscalated QAOutcomeKind = "escalated"
)

// QAResult is the tagged result returned by the QA loop engine; it never
// throws, always resolving to either success or escalation.
type QAResult struct {
	Kind       QAOutcomeKind
	Iterations []QAIteration
	Reason     string // set when Kind == QAEscalated, e.g. "qa_exhausted", "backend_unavailable"
}
