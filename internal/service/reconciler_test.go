package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
)

func storedJob(status model.JobStatus, total int) *model.EvaluationJob {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &model.EvaluationJob{
		QuizID:           "quiz-1",
		Status:           status,
		TotalStudents:    total,
		GroupID:          "group-1",
		EvaluationTaskID: "dispatch-1",
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func groupOf(states ...queue.State) *queue.GroupState {
	g := &queue.GroupState{ID: "group-1"}
	base := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	for i, s := range states {
		meta := queue.TaskMeta{ID: "child", State: s}
		if s == queue.StateSuccess || s == queue.StateFailure {
			done := base.Add(time.Duration(i) * time.Minute)
			meta.DateDone = &done
		}
		g.Children = append(g.Children, meta)
	}
	return g
}

func TestReconcileRunning(t *testing.T) {
	job := storedJob(model.JobRunning, 3)
	group := groupOf(queue.StateSuccess, queue.StateStarted, queue.StatePending)

	rec := Reconcile(job, group, nil, time.Now())

	assert.Equal(t, model.JobRunning, rec.Snapshot.Status)
	assert.Equal(t, 1, rec.Snapshot.StudentsFinished)
	assert.Equal(t, 3, rec.Snapshot.TotalStudents)
	assert.True(t, rec.Update.IsZero(), "nothing drifted, nothing to persist")
}

func TestReconcileCompleted(t *testing.T) {
	job := storedJob(model.JobRunning, 2)
	group := groupOf(queue.StateSuccess, queue.StateSuccess)

	rec := Reconcile(job, group, nil, time.Now())

	assert.Equal(t, model.JobCompleted, rec.Snapshot.Status)
	assert.Equal(t, 2, rec.Snapshot.StudentsFinished)
	require.NotNil(t, rec.Update.Status)
	assert.Equal(t, model.JobCompleted, *rec.Update.Status)
	// Completion timestamp comes from the last child to finish.
	require.NotNil(t, rec.Update.UpdatedAt)
	assert.Equal(t, group.LatestDone().UTC(), *rec.Update.UpdatedAt)
}

func TestReconcileChildFailureFailsJob(t *testing.T) {
	job := storedJob(model.JobRunning, 3)
	group := groupOf(queue.StateSuccess, queue.StateFailure, queue.StateStarted)

	rec := Reconcile(job, group, nil, time.Now())

	assert.Equal(t, model.JobFailed, rec.Snapshot.Status)
	// Failed children still count as finished.
	assert.Equal(t, 2, rec.Snapshot.StudentsFinished)
	require.NotNil(t, rec.Update.Status)
	assert.Equal(t, model.JobFailed, *rec.Update.Status)
}

func TestReconcileDispatchFailureWithoutGroup(t *testing.T) {
	job := storedJob(model.JobQueued, 0)
	job.GroupID = ""
	done := time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC)
	dispatch := &queue.TaskMeta{
		ID:       "dispatch-1",
		State:    queue.StateFailure,
		Error:    "mongo unavailable",
		DateDone: &done,
	}

	rec := Reconcile(job, nil, dispatch, time.Now())

	assert.Equal(t, model.JobFailed, rec.Snapshot.Status)
	require.NotNil(t, rec.Update.Status)
	require.NotNil(t, rec.Update.FailureReason)
	assert.Equal(t, "mongo unavailable", *rec.Update.FailureReason)
	require.NotNil(t, rec.Update.UpdatedAt)
	assert.Equal(t, done, *rec.Update.UpdatedAt)
}

func TestReconcileTotalCorrectedFromGroupWidth(t *testing.T) {
	// Repository-loaded submissions leave the stored total at zero until
	// the fan-out happens; the group width corrects it.
	job := storedJob(model.JobRunning, 0)
	group := groupOf(queue.StateStarted, queue.StatePending, queue.StatePending, queue.StatePending)

	rec := Reconcile(job, group, nil, time.Now())

	assert.Equal(t, 4, rec.Snapshot.TotalStudents)
	require.NotNil(t, rec.Update.TotalStudents)
	assert.Equal(t, 4, *rec.Update.TotalStudents)
	assert.Nil(t, rec.Update.Status)

	// A second pass with the corrected total persists nothing.
	job.TotalStudents = 4
	rec = Reconcile(job, group, nil, time.Now())
	assert.True(t, rec.Update.IsZero())
}

func TestReconcileExpiredGroupRetainsStoredState(t *testing.T) {
	job := storedJob(model.JobCompleted, 5)

	rec := Reconcile(job, nil, nil, time.Now())

	assert.Equal(t, model.JobCompleted, rec.Snapshot.Status)
	assert.Equal(t, 5, rec.Snapshot.StudentsFinished)
	assert.Equal(t, 5, rec.Snapshot.TotalStudents)
	assert.Equal(t, job.UpdatedAt, rec.Snapshot.UpdatedAt)
	assert.True(t, rec.Update.IsZero())
}

func TestReconcileClampsFinishedToTotal(t *testing.T) {
	// A nonzero stored total is authoritative; a group wider than it
	// means the bookkeeping drifted, so the finished count is clamped.
	job := storedJob(model.JobRunning, 2)
	group := groupOf(queue.StateSuccess, queue.StateSuccess, queue.StateSuccess)

	rec := Reconcile(job, group, nil, time.Now())

	assert.True(t, rec.DriftDetected)
	assert.Equal(t, 2, rec.Snapshot.StudentsFinished)
	assert.Equal(t, 2, rec.Snapshot.TotalStudents)
	assert.Nil(t, rec.Update.TotalStudents)
	assert.Equal(t, model.JobCompleted, rec.Snapshot.Status)
}

func TestReconcileNarrowGroupStaysRunning(t *testing.T) {
	// A group narrower than the stored total means some students were
	// never dispatched; finishing every dispatched child must not
	// complete the quiz.
	job := storedJob(model.JobRunning, 3)
	group := groupOf(queue.StateSuccess, queue.StateSuccess)

	rec := Reconcile(job, group, nil, time.Now())

	assert.Equal(t, model.JobRunning, rec.Snapshot.Status)
	assert.Equal(t, 2, rec.Snapshot.StudentsFinished)
	assert.Equal(t, 3, rec.Snapshot.TotalStudents)
	assert.True(t, rec.Update.IsZero())
}

func TestReconcileDispatchFailureOverridesGroupProgress(t *testing.T) {
	job := storedJob(model.JobRunning, 2)
	group := groupOf(queue.StateSuccess, queue.StateStarted)
	done := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	dispatch := &queue.TaskMeta{State: queue.StateFailure, Error: "dispatch blew up", DateDone: &done}

	rec := Reconcile(job, group, dispatch, time.Now())

	assert.Equal(t, model.JobFailed, rec.Snapshot.Status)
	require.NotNil(t, rec.Update.UpdatedAt)
	assert.Equal(t, done, *rec.Update.UpdatedAt)
}

func TestReconcileKeepsExistingFailureReason(t *testing.T) {
	job := storedJob(model.JobRunning, 2)
	job.FailureReason = "already recorded"
	dispatch := &queue.TaskMeta{State: queue.StateFailure, Error: "later error"}

	rec := Reconcile(job, nil, dispatch, time.Now())

	assert.Equal(t, model.JobFailed, rec.Snapshot.Status)
	assert.Nil(t, rec.Update.FailureReason)
}
