package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

// ErrResultsNotReady signals that the evaluation has not finished yet.
var ErrResultsNotReady = errors.New("evaluation results not ready")

// Progress reconciles and returns the live progress of a quiz evaluation.
// Missing records surface as cache.ErrNotFound. Corrections discovered
// during reconciliation are written back so later reads stay consistent.
func (e *Engine) Progress(ctx context.Context, quizID string) (*model.ProgressSnapshot, error) {
	job, err := e.progress.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	var group *queue.GroupState
	if job.GroupID != "" {
		group, err = e.rt.RestoreGroup(ctx, job.GroupID)
		if errors.Is(err, queue.ErrNotFound) {
			// Group bookkeeping expired; the stored record stands.
			group = nil
		} else if err != nil {
			return nil, fmt.Errorf("restore group %s: %w", job.GroupID, err)
		}
	}

	var dispatch *queue.TaskMeta
	if job.EvaluationTaskID != "" {
		meta, err := e.rt.Resolve(ctx, job.EvaluationTaskID)
		if err == nil {
			dispatch = &meta
		} else if !errors.Is(err, queue.ErrNotFound) {
			return nil, fmt.Errorf("resolve dispatch task %s: %w", job.EvaluationTaskID, err)
		}
	}

	rec := Reconcile(job, group, dispatch, time.Now())
	if rec.DriftDetected {
		e.log.Warn("data inconsistency detected, clamping finished count",
			"quizId", quizID, "totalStudents", rec.Snapshot.TotalStudents)
	}
	if !rec.Update.IsZero() {
		if _, err := e.progress.Update(ctx, quizID, rec.Update); err != nil {
			e.log.Error("failed to persist reconciled progress", "quizId", quizID, "error", err)
		}
	}

	return &rec.Snapshot, nil
}

// Results returns the per-student results of a finished evaluation. While
// any student job is still running it returns ErrResultsNotReady; an
// expired record surfaces as cache.ErrNotFound via the progress lookup.
func (e *Engine) Results(ctx context.Context, quizID string) ([]model.StudentResult, error) {
	job, err := e.progress.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if job.GroupID == "" {
		if job.Status == model.JobCompleted {
			// Completed without a fan-out: an empty quiz job.
			return []model.StudentResult{}, nil
		}
		return nil, ErrResultsNotReady
	}

	group, err := e.rt.RestoreGroup(ctx, job.GroupID)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore group %s: %w", job.GroupID, err)
	}
	if !group.AllDone() {
		return nil, ErrResultsNotReady
	}

	results := make([]model.StudentResult, 0, len(group.Children))
	for _, child := range group.Children {
		if child.Failed() {
			e.log.Warn("skipping failed student job in results",
				"quizId", quizID, "taskId", child.ID, "error", child.Error)
			continue
		}
		var sr model.StudentResult
		if err := json.Unmarshal(child.Result, &sr); err != nil {
			return nil, fmt.Errorf("decode student result %s: %w", child.ID, err)
		}
		results = append(results, sr)
	}
	return results, nil
}
