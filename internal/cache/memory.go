package cache

import (
	"context"
	"sync"
	"time"

	"github.com/evalify/evalify-evaluator/internal/model"
)

type memoryProgressStore struct {
	mu   sync.RWMutex
	jobs map[string]model.EvaluationJob
}

// NewMemoryProgressStore keeps progress records in process memory. Intended
// for tests and single-node embedded runs.
func NewMemoryProgressStore() ProgressStore {
	return &memoryProgressStore{jobs: make(map[string]model.EvaluationJob)}
}

func (s *memoryProgressStore) Initialize(_ context.Context, quizID, evaluationTaskID string, totalStudents int) (*model.EvaluationJob, error) {
	now := time.Now().UTC()
	job := model.EvaluationJob{
		QuizID:           quizID,
		Status:           model.JobQueued,
		TotalStudents:    totalStudents,
		EvaluationTaskID: evaluationTaskID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.mu.Lock()
	s.jobs[quizID] = job
	s.mu.Unlock()
	return &job, nil
}

func (s *memoryProgressStore) Get(_ context.Context, quizID string) (*model.EvaluationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[quizID]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *memoryProgressStore) Update(_ context.Context, quizID string, update ProgressUpdate) (*model.EvaluationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[quizID]
	if !ok {
		return nil, ErrNotFound
	}
	applyUpdate(&job, update)
	s.jobs[quizID] = job
	return &job, nil
}
