package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/config"
	"github.com/evalify/evalify-evaluator/internal/evaluator"
	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := &config.Config{
		LaneWorkers: map[string]int{
			config.LaneChoice:        4,
			config.LaneOrchestration: 4,
		},
		DefaultLane:   config.LaneOrchestration,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
		MaxRetryWait:  5 * time.Millisecond,
		AggregateWait: 5 * time.Second,
		Lanes: map[string]string{
			"MCQ":        config.LaneChoice,
			"TRUE_FALSE": config.LaneChoice,
			"MATCHING":   config.LaneChoice,
		},
	}

	rt := queue.New(queue.NewMemoryBackend(), queue.Options{
		LaneWorkers:  cfg.LaneWorkers,
		DefaultLane:  cfg.DefaultLane,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		MaxRetryWait: cfg.MaxRetryWait,
	})

	registry, err := evaluator.NewDefaultRegistry()
	require.NoError(t, err)

	engine := NewEngine(rt, cache.NewMemoryProgressStore(), nil, registry, cfg, slog.Default())
	require.NoError(t, engine.RegisterTasks())

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		rt.Shutdown(shutdownCtx)
		cancel()
	})
	return engine
}

func awaitTerminal(t *testing.T, e *Engine, quizID string) *model.ProgressSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, err := e.Progress(context.Background(), quizID)
		require.NoError(t, err)
		if snapshot.Status.Terminal() {
			return snapshot
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("quiz %s never reached a terminal state", quizID)
	return nil
}

func mcqQuestion(id string, expected []any, marks float64) model.QuestionPayload {
	return model.QuestionPayload{
		QuestionID:     id,
		QuestionType:   "MCQ",
		ExpectedAnswer: expected,
		TotalScore:     marks,
	}
}

func TestEvaluationEndToEnd(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	correct := mcqQuestion("q1", []any{"opt-a"}, 10)
	correct.StudentAnswer = []any{"Opt-A"}
	wrong := mcqQuestion("q1", []any{"opt-a"}, 10)
	wrong.StudentAnswer = []any{"opt-b"}

	accepted, err := engine.Submit(ctx, model.EvaluationJobRequest{
		QuizID: "quiz-e2e",
		Students: []model.StudentPayload{
			{StudentID: "alice", Questions: []model.QuestionPayload{correct}},
			{StudentID: "bob", Questions: []model.QuestionPayload{wrong}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, accepted.Status)
	assert.Equal(t, "/v1/evaluations/quiz-e2e/progress", accepted.ProgressURL)

	snapshot := awaitTerminal(t, engine, "quiz-e2e")
	assert.Equal(t, model.JobCompleted, snapshot.Status)
	assert.Equal(t, 2, snapshot.StudentsFinished)
	assert.Equal(t, 2, snapshot.TotalStudents)

	results, err := engine.Results(ctx, "quiz-e2e")
	require.NoError(t, err)
	require.Len(t, results, 2)

	byStudent := make(map[string]model.StudentResult, len(results))
	for _, r := range results {
		byStudent[r.StudentID] = r
	}

	alice := byStudent["alice"]
	require.Len(t, alice.Results, 1)
	assert.Equal(t, model.ResultSuccess, alice.Results[0].Status)
	require.NotNil(t, alice.Results[0].Result)
	assert.Equal(t, 10.0, alice.Results[0].Result.Score)
	assert.Equal(t, "Correct", alice.Results[0].Result.Feedback)

	bob := byStudent["bob"]
	require.Len(t, bob.Results, 1)
	assert.Equal(t, model.ResultSuccess, bob.Results[0].Status)
	require.NotNil(t, bob.Results[0].Result)
	assert.Equal(t, 0.0, bob.Results[0].Result.Score)
	assert.Equal(t, "Incorrect", bob.Results[0].Result.Feedback)
}

func TestEvaluationMixedOutcomes(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	questions := []model.QuestionPayload{
		{
			QuestionID:     "q1",
			QuestionType:   "TRUE_FALSE",
			StudentAnswer:  nil, // business failure: empty submission
			ExpectedAnswer: true,
			TotalScore:     5,
		},
		{
			QuestionID:    "q2",
			QuestionType:  "DESCRIPTIVE", // no evaluator registered
			StudentAnswer: "an essay",
			TotalScore:    20,
		},
	}

	_, err := engine.Submit(ctx, model.EvaluationJobRequest{
		QuizID:   "quiz-mixed",
		Students: []model.StudentPayload{{StudentID: "carol", Questions: questions}},
	})
	require.NoError(t, err)

	snapshot := awaitTerminal(t, engine, "quiz-mixed")
	// Unimplemented and business-failed questions are terminal results,
	// not job failures.
	assert.Equal(t, model.JobCompleted, snapshot.Status)

	results, err := engine.Results(ctx, "quiz-mixed")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Results, 2)

	byQuestion := make(map[string]model.QuestionResult)
	for _, qr := range results[0].Results {
		byQuestion[qr.QuestionID] = qr
	}
	assert.Equal(t, model.ResultBusinessFailure, byQuestion["q1"].Status)
	assert.Contains(t, byQuestion["q1"].Error, "empty")
	assert.Equal(t, model.ResultNotImplemented, byQuestion["q2"].Status)
}

func TestEvaluationNoStudents(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Submit(ctx, model.EvaluationJobRequest{QuizID: "quiz-empty"})
	require.NoError(t, err)

	snapshot := awaitTerminal(t, engine, "quiz-empty")
	assert.Equal(t, model.JobCompleted, snapshot.Status)
	assert.Equal(t, 0, snapshot.TotalStudents)

	results, err := engine.Results(ctx, "quiz-empty")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProgressUnknownQuiz(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Progress(context.Background(), "never-submitted")
	require.ErrorIs(t, err, cache.ErrNotFound)

	_, err = engine.Results(context.Background(), "never-submitted")
	require.ErrorIs(t, err, cache.ErrNotFound)
}
