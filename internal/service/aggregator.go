package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

// studentJob fans one student's questions out to question tasks, routed per
// type, and waits for all of them to reach a terminal state. It never fails
// because a child failed: runtime-level child failures become system_error
// entries in the aggregated result. Result order matches submission order.
func (e *Engine) studentJob(ctx context.Context, payload json.RawMessage) (any, error) {
	var p model.StudentTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode student task payload: %w", err)
	}

	student := p.Student
	e.log.Info("starting student evaluation",
		"evaluationId", p.EvaluationID, "quizId", p.QuizID, "studentId", student.StudentID)

	var (
		handles    []*queue.TaskHandle
		dispatched []model.QuestionPayload
	)
	for _, question := range student.Questions {
		lane := e.cfg.LaneFor(question.QuestionType)
		if lane == "" {
			e.log.Warn("no lane configured for question type, omitting",
				"questionType", question.QuestionType, "questionId", question.QuestionID, "studentId", student.StudentID)
			continue
		}

		handle, err := e.rt.Enqueue(ctx, queue.Signature{
			Name: TaskQuestionJob,
			Lane: lane,
			Payload: model.TaskPayload{
				QuizID:       p.QuizID,
				StudentID:    student.StudentID,
				QuestionData: question,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dispatch question %s: %w", question.QuestionID, err)
		}
		handles = append(handles, handle)
		dispatched = append(dispatched, question)
	}

	result := model.StudentResult{
		QuizID:    p.QuizID,
		StudentID: student.StudentID,
		Results:   make([]model.QuestionResult, 0, len(handles)),
	}
	if len(handles) == 0 {
		e.log.Warn("no valid tasks to process for student", "studentId", student.StudentID)
		return result, nil
	}

	// Blocking here occupies a worker slot for the whole wait, so the wait
	// is bounded: on timeout the remaining children are reported as
	// system errors instead of holding the slot forever.
	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.AggregateWait)
	defer cancel()

	for i, handle := range handles {
		meta, err := handle.Wait(waitCtx)
		if err != nil {
			result.Results = append(result.Results, model.QuestionResult{
				QuestionID: dispatched[i].QuestionID,
				QuizID:     p.QuizID,
				StudentID:  student.StudentID,
				JobID:      handle.ID,
				Status:     model.ResultSystemError,
				Error:      fmt.Sprintf("timed out waiting for question task: %v", err),
			})
			continue
		}
		if meta.Failed() {
			result.Results = append(result.Results, model.QuestionResult{
				QuestionID: dispatched[i].QuestionID,
				QuizID:     p.QuizID,
				StudentID:  student.StudentID,
				JobID:      handle.ID,
				Status:     model.ResultSystemError,
				Error:      meta.Error,
			})
			continue
		}

		var qr model.QuestionResult
		if err := json.Unmarshal(meta.Result, &qr); err != nil {
			return nil, fmt.Errorf("decode question result %s: %w", handle.ID, err)
		}
		result.Results = append(result.Results, qr)
	}

	return result, nil
}
