// Package service contains the evaluation engine: job submission, the
// quiz/student/question task handlers and progress reconciliation.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/config"
	"github.com/evalify/evalify-evaluator/internal/evaluator"
	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
	"github.com/evalify/evalify-evaluator/internal/repository"
)

// Engine wires the queue runtime, the progress store and the retrieval
// repository into the three-level evaluation pipeline.
type Engine struct {
	rt       *queue.Runtime
	progress cache.ProgressStore
	repo     repository.QuizRepository
	registry *evaluator.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// NewEngine creates the evaluation engine. The repository may be nil when
// all submissions arrive inline with the request.
func NewEngine(rt *queue.Runtime, progress cache.ProgressStore, repo repository.QuizRepository, registry *evaluator.Registry, cfg *config.Config, log *slog.Logger) *Engine {
	return &Engine{
		rt:       rt,
		progress: progress,
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		log:      log,
	}
}

// RegisterTasks registers the pipeline's task handlers with the runtime.
// The quiz and student jobs are not retried: rerunning them would dispatch
// duplicate children, and their failures are recorded in the progress store.
func (e *Engine) RegisterTasks() error {
	if err := e.rt.Register(TaskQuizJob, e.quizJob, queue.WithMaxRetries(0)); err != nil {
		return err
	}
	if err := e.rt.Register(TaskStudentJob, e.studentJob, queue.WithMaxRetries(0)); err != nil {
		return err
	}
	return e.rt.Register(TaskQuestionJob, e.questionJob)
}

// Submit initializes the progress record and queues the quiz job. The
// returned acceptance carries the URL the caller should poll for progress.
func (e *Engine) Submit(ctx context.Context, req model.EvaluationJobRequest) (*model.EvaluationAccepted, error) {
	evaluationID := uuid.NewString()

	if _, err := e.progress.Initialize(ctx, req.QuizID, evaluationID, len(req.Students)); err != nil {
		return nil, fmt.Errorf("initialize progress for quiz %s: %w", req.QuizID, err)
	}

	_, err := e.rt.Enqueue(ctx, queue.Signature{
		Name:    TaskQuizJob,
		Lane:    config.LaneOrchestration,
		TaskID:  evaluationID,
		Payload: model.QuizTaskPayload{EvaluationID: evaluationID, Request: req},
	})
	if err != nil {
		if _, markErr := cache.MarkFailed(ctx, e.progress, req.QuizID, err.Error()); markErr != nil {
			e.log.Error("failed to record dispatch failure", "quizId", req.QuizID, "error", markErr)
		}
		return nil, fmt.Errorf("dispatch quiz job for %s: %w", req.QuizID, err)
	}

	e.log.Info("evaluation queued", "quizId", req.QuizID, "evaluationId", evaluationID, "inlineStudents", len(req.Students))

	return &model.EvaluationAccepted{
		QuizID:      req.QuizID,
		Status:      model.JobQueued,
		ProgressURL: fmt.Sprintf("/v1/evaluations/%s/progress", req.QuizID),
	}, nil
}

// quizJob resolves the student submissions, fans them out as one group of
// student jobs and records the group on the progress record. Any failure
// before the fan-out marks the whole job FAILED.
func (e *Engine) quizJob(ctx context.Context, payload json.RawMessage) (any, error) {
	var p model.QuizTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode quiz task payload: %w", err)
	}
	quizID := p.Request.QuizID

	if _, err := cache.MarkRunning(ctx, e.progress, quizID); err != nil {
		e.log.Error("failed to mark quiz running", "quizId", quizID, "error", err)
	}

	students := p.Request.Students
	if len(students) == 0 && e.repo != nil {
		loaded, err := e.loadSubmissions(ctx, quizID, p.Request.OverrideEvaluated)
		if err != nil {
			if _, markErr := cache.MarkFailed(ctx, e.progress, quizID, err.Error()); markErr != nil {
				e.log.Error("failed to record quiz failure", "quizId", quizID, "error", markErr)
			}
			return nil, err
		}
		students = loaded
	}

	if len(students) == 0 {
		// Nothing to evaluate; completing here avoids a job that the
		// reconciler would otherwise report RUNNING forever.
		e.log.Info("no students to evaluate", "quizId", quizID)
		status := model.JobCompleted
		zero := 0
		if _, err := e.progress.Update(ctx, quizID, cache.ProgressUpdate{Status: &status, TotalStudents: &zero}); err != nil {
			e.log.Error("failed to complete empty quiz job", "quizId", quizID, "error", err)
		}
		return map[string]any{"quizId": quizID, "students": 0}, nil
	}

	sigs := make([]queue.Signature, 0, len(students))
	for _, student := range students {
		sigs = append(sigs, queue.Signature{
			Name: TaskStudentJob,
			Lane: config.LaneOrchestration,
			Payload: model.StudentTaskPayload{
				EvaluationID: p.EvaluationID,
				QuizID:       quizID,
				Student:      student,
			},
		})
	}

	group, err := e.rt.EnqueueGroup(ctx, sigs)
	if err != nil {
		if _, markErr := cache.MarkFailed(ctx, e.progress, quizID, err.Error()); markErr != nil {
			e.log.Error("failed to record quiz failure", "quizId", quizID, "error", markErr)
		}
		return nil, fmt.Errorf("dispatch student jobs for quiz %s: %w", quizID, err)
	}

	update := cache.ProgressUpdate{GroupID: &group.ID}
	total := len(students)
	update.TotalStudents = &total
	if _, err := e.progress.Update(ctx, quizID, update); err != nil {
		e.log.Error("failed to attach group to progress", "quizId", quizID, "groupId", group.ID, "error", err)
	}

	e.log.Info("student jobs dispatched", "quizId", quizID, "groupId", group.ID, "students", total)
	return map[string]any{"quizId": quizID, "groupId": group.ID, "students": total}, nil
}

// loadSubmissions builds student payloads from the stored quiz, questions
// and responses. Already-evaluated responses are skipped unless override
// is set.
func (e *Engine) loadSubmissions(ctx context.Context, quizID string, override bool) ([]model.StudentPayload, error) {
	quiz, err := e.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions, err := e.repo.GetQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	responses, err := e.repo.GetResponses(ctx, quizID)
	if err != nil {
		return nil, err
	}

	students := make([]model.StudentPayload, 0, len(responses))
	for _, resp := range responses {
		if resp.EvaluationStatus == model.EvaluationEvaluated && !override {
			e.log.Debug("skipping evaluated response", "quizId", quizID, "studentId", resp.StudentID)
			continue
		}

		payload := model.StudentPayload{
			StudentID: resp.StudentID,
			Questions: make([]model.QuestionPayload, 0, len(questions)),
		}
		for _, q := range questions {
			payload.Questions = append(payload.Questions, model.QuestionPayload{
				QuestionID:        q.ID,
				QuestionType:      q.Type,
				StudentAnswer:     resp.Answers[q.ID],
				ExpectedAnswer:    q.Solution,
				GradingGuidelines: q.GradingGuidelines,
				TotalScore:        q.Marks,
				QuizSettings:      quiz.Settings,
			})
		}
		students = append(students, payload)
	}
	return students, nil
}
