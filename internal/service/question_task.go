package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/evalify/evalify-evaluator/internal/evaluator"
	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

// Task names registered with the queue runtime.
const (
	TaskQuizJob     = "quiz.evaluate"
	TaskStudentJob  = "student.evaluate"
	TaskQuestionJob = "question.evaluate"
)

// questionJob is the single generic task for evaluating any question type.
// It resolves the evaluator from the registry and classifies the outcome:
// business failures and missing evaluators are terminal results, anything
// else propagates so the runtime retries it.
func (e *Engine) questionJob(ctx context.Context, payload json.RawMessage) (any, error) {
	var p model.TaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode question task payload: %w", err)
	}

	result := model.QuestionResult{
		QuestionID: p.QuestionData.QuestionID,
		QuizID:     p.QuizID,
		StudentID:  p.StudentID,
		JobID:      queue.TaskIDFromContext(ctx),
	}

	ev, err := e.registry.Resolve(p.QuestionData.QuestionType)
	if errors.Is(err, evaluator.ErrNotImplemented) {
		e.log.Warn("missing evaluator", "questionType", p.QuestionData.QuestionType, "questionId", p.QuestionData.QuestionID)
		result.Status = model.ResultNotImplemented
		result.Error = err.Error()
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	evalCtx := model.EvaluatorContext{QuizSettings: p.QuestionData.QuizSettings}
	evaluated, err := ev.Evaluate(p.QuestionData, evalCtx)

	var businessErr *evaluator.BusinessError
	switch {
	case errors.As(err, &businessErr):
		// The task succeeded in determining a failure; not a fault.
		e.log.Warn("business logic failure", "questionId", p.QuestionData.QuestionID, "student", p.StudentID, "reason", businessErr.Reason)
		result.Status = model.ResultBusinessFailure
		result.Error = businessErr.Reason
		return result, nil
	case err != nil:
		// Unexpected system error; propagating tells the runtime to retry.
		return nil, err
	default:
		result.Status = model.ResultSuccess
		result.Result = &evaluated
		return result, nil
	}
}
