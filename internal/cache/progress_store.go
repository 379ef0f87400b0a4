// Package cache holds the Redis-backed durable stores used by the
// evaluation engine.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evalify/evalify-evaluator/internal/model"
)

const progressKeyPrefix = "quiz-progress::"

// ErrNotFound signals that no progress record exists for the quiz.
var ErrNotFound = errors.New("progress: record not found")

// ProgressUpdate is a partial update applied to an existing record. Nil
// fields are left untouched, which keeps writes idempotent and auditable.
type ProgressUpdate struct {
	Status        *model.JobStatus
	GroupID       *string
	TotalStudents *int
	FailureReason *string
	UpdatedAt     *time.Time
}

// IsZero reports whether the update would change nothing.
func (u ProgressUpdate) IsZero() bool {
	return u.Status == nil && u.GroupID == nil && u.TotalStudents == nil &&
		u.FailureReason == nil && u.UpdatedAt == nil
}

// ProgressStore is the durable record of one quiz's evaluation progress.
// Update never creates a record implicitly; only Initialize does.
type ProgressStore interface {
	Initialize(ctx context.Context, quizID, evaluationTaskID string, totalStudents int) (*model.EvaluationJob, error)
	Get(ctx context.Context, quizID string) (*model.EvaluationJob, error)
	Update(ctx context.Context, quizID string, update ProgressUpdate) (*model.EvaluationJob, error)
}

type progressStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProgressStore creates a Redis-backed progress store. Records are JSON
// values under "quiz-progress::<quiz_id>" with the given expiry.
func NewProgressStore(client *redis.Client, ttl time.Duration) ProgressStore {
	return &progressStore{client: client, ttl: ttl}
}

func (s *progressStore) Initialize(ctx context.Context, quizID, evaluationTaskID string, totalStudents int) (*model.EvaluationJob, error) {
	now := time.Now().UTC()
	job := &model.EvaluationJob{
		QuizID:           quizID,
		Status:           model.JobQueued,
		TotalStudents:    totalStudents,
		EvaluationTaskID: evaluationTaskID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *progressStore) Get(ctx context.Context, quizID string) (*model.EvaluationJob, error) {
	data, err := s.client.Get(ctx, progressKeyPrefix+quizID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var job model.EvaluationJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *progressStore) Update(ctx context.Context, quizID string, update ProgressUpdate) (*model.EvaluationJob, error) {
	job, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	applyUpdate(job, update)
	if err := s.put(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *progressStore) put(ctx context.Context, job *model.EvaluationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, progressKeyPrefix+job.QuizID, data, s.ttl).Err()
}

func applyUpdate(job *model.EvaluationJob, update ProgressUpdate) {
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.GroupID != nil {
		job.GroupID = *update.GroupID
	}
	if update.TotalStudents != nil {
		job.TotalStudents = *update.TotalStudents
	}
	if update.FailureReason != nil {
		job.FailureReason = *update.FailureReason
	}
	if update.UpdatedAt != nil {
		job.UpdatedAt = *update.UpdatedAt
	} else {
		job.UpdatedAt = time.Now().UTC()
	}
}

// MarkRunning flips the record to RUNNING.
func MarkRunning(ctx context.Context, store ProgressStore, quizID string) (*model.EvaluationJob, error) {
	status := model.JobRunning
	return store.Update(ctx, quizID, ProgressUpdate{Status: &status})
}

// MarkFailed flips the record to FAILED with the captured reason.
func MarkFailed(ctx context.Context, store ProgressStore, quizID, reason string) (*model.EvaluationJob, error) {
	status := model.JobFailed
	update := ProgressUpdate{Status: &status}
	if reason != "" {
		update.FailureReason = &reason
	}
	return store.Update(ctx, quizID, update)
}
