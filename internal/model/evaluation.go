package model

import "time"

// JobStatus is the quiz-level lifecycle state of an evaluation job.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Terminal reports whether the job can no longer change state on its own.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ResultStatus classifies the outcome of a single question evaluation.
type ResultStatus string

const (
	ResultSuccess         ResultStatus = "success"
	ResultBusinessFailure ResultStatus = "business_failure"
	ResultSystemError     ResultStatus = "system_error"
	ResultNotImplemented  ResultStatus = "not_implemented"
)

// EvaluationJob is the durable per-quiz progress record. It is written by the
// orchestrator and corrected by the reconciler; reads come from the progress API.
type EvaluationJob struct {
	QuizID           string    `json:"quizId"`
	Status           JobStatus `json:"status"`
	TotalStudents    int       `json:"totalStudents"`
	GroupID          string    `json:"groupId,omitempty"`
	EvaluationTaskID string    `json:"evaluationTaskId"`
	FailureReason    string    `json:"failureReason,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// QuizSettings carries quiz-wide options forwarded verbatim to evaluators.
type QuizSettings map[string]any

// QuestionPayload is one question to evaluate, self-contained so workers need
// no further lookups. Answers are opaque; their shape depends on QuestionType.
type QuestionPayload struct {
	QuestionID        string       `json:"questionId"`
	QuestionType      string       `json:"questionType"`
	StudentAnswer     any          `json:"studentAnswer"`
	ExpectedAnswer    any          `json:"expectedAnswer"`
	GradingGuidelines string       `json:"gradingGuidelines,omitempty"`
	TotalScore        float64      `json:"totalScore"`
	QuizSettings      QuizSettings `json:"quizSettings,omitempty"`
}

// StudentPayload is one student's full submission for the quiz.
type StudentPayload struct {
	StudentID string            `json:"studentId"`
	Questions []QuestionPayload `json:"questions"`
}

// EvaluatorContext is the shared context handed to every evaluator.
type EvaluatorContext struct {
	QuizSettings QuizSettings `json:"quizSettings,omitempty"`
}

// EvaluatorResult is the standardized result produced by an evaluator.
type EvaluatorResult struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

// QuestionResult is the terminal outcome of one question task. Score is
// present iff Status is success (carried inside Result).
type QuestionResult struct {
	QuestionID string           `json:"questionId"`
	QuizID     string           `json:"quizId"`
	StudentID  string           `json:"studentId"`
	JobID      string           `json:"jobId"`
	Status     ResultStatus     `json:"status"`
	Result     *EvaluatorResult `json:"evaluatedResult,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// StudentResult aggregates one student's question results in submission order.
type StudentResult struct {
	QuizID    string           `json:"quizId"`
	StudentID string           `json:"studentId"`
	Results   []QuestionResult `json:"results"`
}

// TaskPayload is the envelope dispatched to a question worker.
type TaskPayload struct {
	QuizID       string          `json:"quizId"`
	StudentID    string          `json:"studentId"`
	QuestionData QuestionPayload `json:"questionData"`
}

// StudentTaskPayload is the envelope dispatched to a student aggregator.
type StudentTaskPayload struct {
	EvaluationID string         `json:"evaluationId"`
	QuizID       string         `json:"quizId"`
	Student      StudentPayload `json:"student"`
}

// QuizTaskPayload is the envelope dispatched to the quiz orchestrator task.
type QuizTaskPayload struct {
	EvaluationID string               `json:"evaluationId"`
	Request      EvaluationJobRequest `json:"request"`
}

// EvaluationJobRequest is the submit request body. Students may be supplied
// inline; when empty they are loaded from the retrieval service.
type EvaluationJobRequest struct {
	QuizID            string           `json:"quizId"`
	OverrideEvaluated bool             `json:"overrideEvaluated"`
	Students          []StudentPayload `json:"students,omitempty"`
}

// EvaluationAccepted confirms a queued evaluation job.
type EvaluationAccepted struct {
	QuizID      string    `json:"quizId"`
	Status      JobStatus `json:"status"`
	ProgressURL string    `json:"progressUrl"`
}

// ProgressSnapshot is the reconciled progress view returned to pollers.
type ProgressSnapshot struct {
	QuizID           string    `json:"quizId"`
	Status           JobStatus `json:"status"`
	StudentsFinished int       `json:"studentsFinished"`
	TotalStudents    int       `json:"totalStudents"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
