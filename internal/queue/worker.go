package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

func (r *Runtime) worker(ctx context.Context, lane string, ch chan *job) {
	defer r.wg.Done()
	for {
		select {
		case j := <-ch:
			r.execute(ctx, lane, j)
		case <-r.quit:
			return
		}
	}
}

// execute runs a job to a terminal state, applying the bounded retry policy
// for system faults. Retries happen inline on the same worker; the caller's
// ordering guarantees come from waiting on handles, not lane FIFO.
func (r *Runtime) execute(ctx context.Context, lane string, j *job) {
	meta := j.meta

	for attempt := 1; ; attempt++ {
		meta.State = StateStarted
		meta.Attempts = attempt
		r.storeMeta(ctx, meta)

		result, err := r.invoke(ctx, j, meta)
		now := time.Now().UTC()
		if err == nil {
			meta.State = StateSuccess
			meta.Error = ""
			meta.DateDone = &now
			meta.Result = result
			break
		}

		if attempt > j.reg.maxRetries {
			r.log.Error("task failed permanently",
				"task", meta.Name, "id", meta.ID, "lane", lane, "attempts", attempt, "err", err)
			meta.State = StateFailure
			meta.Error = err.Error()
			meta.DateDone = &now
			break
		}

		delay := r.backoff(attempt)
		r.log.Warn("task failed, retrying",
			"task", meta.Name, "id", meta.ID, "lane", lane, "attempt", attempt, "delay", delay, "err", err)
		meta.State = StateRetry
		meta.Error = err.Error()
		r.storeMeta(ctx, meta)

		select {
		case <-time.After(delay):
		case <-r.quit:
			// Leave the RETRY record behind; at-least-once semantics mean a
			// future run may pick the work item up again.
			return
		}
	}

	r.storeMeta(ctx, meta)
	j.handle.meta = meta
	close(j.handle.done)
}

// invoke runs the handler once, converting panics into system faults.
func (r *Runtime) invoke(ctx context.Context, j *job, meta TaskMeta) (result json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()

	taskCtx := withTaskID(ctx, meta.ID)
	out, err := j.reg.handler(taskCtx, j.payload)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal task result: %w", err)
	}
	return raw, nil
}

// backoff returns the exponential delay for the given attempt with random
// jitter, capped at MaxRetryWait.
func (r *Runtime) backoff(attempt int) time.Duration {
	delay := r.opts.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.opts.MaxRetryWait {
			delay = r.opts.MaxRetryWait
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

func (r *Runtime) storeMeta(ctx context.Context, meta TaskMeta) {
	if err := r.backend.StoreMeta(ctx, meta); err != nil {
		r.log.Error("failed to persist task meta", "task", meta.Name, "id", meta.ID, "err", err)
	}
}

type taskIDKey struct{}

func withTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskIDFromContext returns the id of the task currently executing, if the
// context originates from a runtime worker.
func TaskIDFromContext(ctx context.Context) string {
	if v := ctx.Value(taskIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}
