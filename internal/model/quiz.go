package model

import "time"

// EvaluationState tracks whether a stored response has already been graded.
type EvaluationState string

const (
	EvaluationPending   EvaluationState = "NOT_EVALUATED"
	EvaluationEvaluated EvaluationState = "EVALUATED"
	EvaluationFailed    EvaluationState = "FAILED"
)

// Quiz is the retrieval-service view of a quiz: identity plus the settings
// forwarded to evaluators.
type Quiz struct {
	ID        string       `bson:"_id" json:"id"`
	Name      string       `bson:"name" json:"name"`
	Settings  QuizSettings `bson:"settings" json:"settings"`
	StartTime time.Time    `bson:"startTime" json:"startTime"`
	EndTime   time.Time    `bson:"endTime" json:"endTime"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// Question is one quiz question with its solution, as stored by the backend.
type Question struct {
	ID                string  `bson:"_id" json:"id"`
	QuizID            string  `bson:"quizId" json:"quizId"`
	OrderIndex        int     `bson:"orderIndex" json:"orderIndex"`
	Type              string  `bson:"type" json:"type"`
	Marks             float64 `bson:"marks" json:"marks"`
	Text              string  `bson:"question" json:"question"`
	Solution          any     `bson:"solution" json:"solution"`
	GradingGuidelines string  `bson:"gradingGuidelines,omitempty" json:"gradingGuidelines,omitempty"`
}

// QuizResponse is one student's stored submission: a map of question id to
// the raw answer value, plus evaluation bookkeeping.
type QuizResponse struct {
	QuizID           string          `bson:"quizId" json:"quizId"`
	StudentID        string          `bson:"studentId" json:"studentId"`
	Answers          map[string]any  `bson:"response" json:"response"`
	Score            *float64        `bson:"score,omitempty" json:"score,omitempty"`
	SubmittedAt      *time.Time      `bson:"submissionTime,omitempty" json:"submissionTime,omitempty"`
	EvaluationStatus EvaluationState `bson:"evaluationStatus" json:"evaluationStatus"`
}
