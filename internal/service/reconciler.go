package service

import (
	"time"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

// Reconciliation is the outcome of comparing the stored progress record
// against the live task state. Update holds only the fields that drifted;
// callers persist it when non-zero.
type Reconciliation struct {
	Snapshot      model.ProgressSnapshot
	Update        cache.ProgressUpdate
	DriftDetected bool
}

// Reconcile derives the authoritative progress view from the stored record,
// the restored fan-out group and the quiz dispatch task. group and dispatch
// may be nil when their backend state has expired; the stored record then
// stands as-is. Reconcile is pure: it never touches a store itself.
func Reconcile(job *model.EvaluationJob, group *queue.GroupState, dispatch *queue.TaskMeta, now time.Time) Reconciliation {
	status := job.Status
	total := job.TotalStudents
	finished := 0
	completedAt := (*time.Time)(nil)

	var update cache.ProgressUpdate
	drift := false

	if group != nil && len(group.Children) > 0 {
		// Repository-loaded submissions leave the stored total at zero
		// until the fan-out happened; the group width fills it in. A
		// nonzero stored total stands, even against a differing group.
		if total == 0 {
			total = len(group.Children)
			update.TotalStudents = &total
		}

		finished = group.CountDone()
		switch {
		case group.AnyFailed():
			status = model.JobFailed
		case group.AllDone() && finished >= total:
			status = model.JobCompleted
		default:
			// Covers in-flight children and a group narrower than the
			// stored total (students never dispatched).
			status = model.JobRunning
		}
		if status.Terminal() {
			completedAt = group.LatestDone()
		}
	} else if status == model.JobCompleted {
		finished = total
	}

	if dispatch != nil && dispatch.Failed() {
		status = model.JobFailed
		if update.FailureReason == nil && dispatch.Error != "" && job.FailureReason == "" {
			reason := dispatch.Error
			update.FailureReason = &reason
		}
		if dispatch.DateDone != nil {
			completedAt = dispatch.DateDone
		}
	}

	if total > 0 && finished > total {
		drift = true
		finished = total
	}

	updatedAt := job.UpdatedAt
	if status != job.Status {
		update.Status = &status
		ts := now.UTC()
		if completedAt != nil {
			ts = completedAt.UTC()
		}
		update.UpdatedAt = &ts
		updatedAt = ts
	}

	return Reconciliation{
		Snapshot: model.ProgressSnapshot{
			QuizID:           job.QuizID,
			Status:           status,
			StudentsFinished: finished,
			TotalStudents:    total,
			CreatedAt:        job.CreatedAt,
			UpdatedAt:        updatedAt,
		},
		Update:        update,
		DriftDetected: drift,
	}
}
