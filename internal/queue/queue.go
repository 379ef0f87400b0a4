// Package queue provides a lane-based task runtime with a durable result
// backend. Work items are dispatched onto named lanes served by worker
// pools, retried on unexpected faults with bounded backoff, and leave a
// restorable terminal record behind so progress can be reconciled later.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound signals that a task or group record is absent from the
	// backend (never stored, or expired).
	ErrNotFound = errors.New("queue: not found")

	// ErrShutdown is returned when work is submitted after Shutdown.
	ErrShutdown = errors.New("queue: runtime is shut down")
)

// State is the lifecycle state of one task.
type State string

const (
	StatePending State = "PENDING"
	StateStarted State = "STARTED"
	StateRetry   State = "RETRY"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// TaskMeta is the durable record of one task's state and result.
type TaskMeta struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	State    State           `json:"state"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Attempts int             `json:"attempts"`
	DateDone *time.Time      `json:"dateDone,omitempty"`
}

// Ready reports whether the task has reached a terminal state.
func (m TaskMeta) Ready() bool {
	return m.State == StateSuccess || m.State == StateFailure
}

// Failed reports whether the task terminated in failure.
func (m TaskMeta) Failed() bool {
	return m.State == StateFailure
}

// Handler executes one task. A returned error is treated as a system fault
// and triggers the bounded retry policy; business-level failures must be
// encoded in the returned result instead.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Signature describes one work item to dispatch.
type Signature struct {
	Name    string
	Lane    string
	Payload any

	// TaskID overrides the generated task id. Useful when the caller needs
	// to resolve the task later without storing the handle.
	TaskID string
}

// GroupState is the restored live state of a dispatched fan-out group.
type GroupState struct {
	ID       string
	Children []TaskMeta
}

// CountDone returns how many children reached a terminal state.
func (g *GroupState) CountDone() int {
	n := 0
	for _, c := range g.Children {
		if c.Ready() {
			n++
		}
	}
	return n
}

// AnyFailed reports whether at least one child terminated in failure.
func (g *GroupState) AnyFailed() bool {
	for _, c := range g.Children {
		if c.Failed() {
			return true
		}
	}
	return false
}

// AllDone reports whether every child reached a terminal state.
func (g *GroupState) AllDone() bool {
	return g.CountDone() == len(g.Children)
}

// LatestDone returns the most recent completion timestamp among terminal
// children, or nil if none finished yet.
func (g *GroupState) LatestDone() *time.Time {
	var latest *time.Time
	for _, c := range g.Children {
		if c.DateDone == nil {
			continue
		}
		if latest == nil || c.DateDone.After(*latest) {
			latest = c.DateDone
		}
	}
	return latest
}

// TaskHandle tracks one dispatched task until completion.
type TaskHandle struct {
	ID string

	done chan struct{}
	meta TaskMeta // valid once done is closed
}

// Wait blocks until the task reaches a terminal state or ctx expires. A
// task that finished before the context did is always reported, even when
// both channels are ready.
func (h *TaskHandle) Wait(ctx context.Context) (TaskMeta, error) {
	select {
	case <-h.done:
		return h.meta, nil
	case <-ctx.Done():
		select {
		case <-h.done:
			return h.meta, nil
		default:
		}
		return TaskMeta{}, ctx.Err()
	}
}

// GroupHandle tracks a dispatched fan-out group.
type GroupHandle struct {
	ID      string
	Handles []*TaskHandle
}

// Wait blocks until every child is terminal, collecting metas in dispatch
// order. Child failures do not fail the wait; inspect each meta instead.
func (g *GroupHandle) Wait(ctx context.Context) ([]TaskMeta, error) {
	metas := make([]TaskMeta, 0, len(g.Handles))
	for _, h := range g.Handles {
		meta, err := h.Wait(ctx)
		if err != nil {
			return metas, err
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

type registration struct {
	handler    Handler
	maxRetries int
}

// TaskOption tunes a registered task.
type TaskOption func(*registration)

// WithMaxRetries overrides the runtime-wide retry budget for one task.
func WithMaxRetries(n int) TaskOption {
	return func(r *registration) { r.maxRetries = n }
}

// Options configures a Runtime.
type Options struct {
	// LaneWorkers maps lane names to worker pool sizes. Lanes absent from
	// the map do not exist; dispatch to them falls back to DefaultLane.
	LaneWorkers map[string]int
	DefaultLane string

	MaxRetries   int
	RetryDelay   time.Duration
	MaxRetryWait time.Duration

	Logger *slog.Logger
}

// Runtime executes registered tasks on per-lane worker pools and persists
// task/group state through the backend.
type Runtime struct {
	backend Backend
	opts    Options
	log     *slog.Logger

	mu       sync.RWMutex
	handlers map[string]registration
	lanes    map[string]chan *job
	closed   bool

	wg   sync.WaitGroup
	quit chan struct{}
}

type job struct {
	meta    TaskMeta
	payload json.RawMessage
	reg     registration
	handle  *TaskHandle
}

// New creates a runtime over the given backend. Call Start before
// dispatching work.
func New(backend Backend, opts Options) *Runtime {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.MaxRetryWait == 0 {
		opts.MaxRetryWait = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runtime{
		backend:  backend,
		opts:     opts,
		log:      opts.Logger,
		handlers: make(map[string]registration),
		lanes:    make(map[string]chan *job),
		quit:     make(chan struct{}),
	}
}

// Register binds a task name to a handler. Registration is a startup-time,
// one-shot operation; rebinding an existing name is an error.
func (r *Runtime) Register(name string, h Handler, opts ...TaskOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("queue: task %q already registered", name)
	}
	reg := registration{handler: h, maxRetries: r.opts.MaxRetries}
	for _, o := range opts {
		o(&reg)
	}
	r.handlers[name] = reg
	return nil
}

// Start launches the worker pools. The context is handed to task handlers.
func (r *Runtime) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for lane, workers := range r.opts.LaneWorkers {
		if workers <= 0 {
			workers = 1
		}
		ch := make(chan *job, 256)
		r.lanes[lane] = ch
		for i := 0; i < workers; i++ {
			r.wg.Add(1)
			go r.worker(ctx, lane, ch)
		}
	}
	r.log.Info("queue runtime started", "lanes", len(r.lanes))
}

// Shutdown stops accepting work and waits for in-flight tasks, or until ctx
// expires. Queued-but-unstarted work is abandoned; dispatched tasks follow
// at-least-once semantics.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.quit)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue dispatches one task and returns its handle. Unknown lanes fall
// back to the default lane.
func (r *Runtime) Enqueue(ctx context.Context, sig Signature) (*TaskHandle, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, ErrShutdown
	}
	reg, ok := r.handlers[sig.Name]
	if !ok {
		r.mu.RUnlock()
		return nil, fmt.Errorf("queue: no handler registered for task %q", sig.Name)
	}
	ch, ok := r.lanes[sig.Lane]
	if !ok {
		ch, ok = r.lanes[r.opts.DefaultLane]
		if !ok {
			r.mu.RUnlock()
			return nil, fmt.Errorf("queue: no lane %q and no default lane", sig.Lane)
		}
	}
	r.mu.RUnlock()

	payload, err := json.Marshal(sig.Payload)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal payload for %q: %w", sig.Name, err)
	}

	id := sig.TaskID
	if id == "" {
		id = uuid.New().String()
	}
	meta := TaskMeta{ID: id, Name: sig.Name, State: StatePending}
	if err := r.backend.StoreMeta(ctx, meta); err != nil {
		return nil, fmt.Errorf("queue: store pending meta: %w", err)
	}

	handle := &TaskHandle{ID: id, done: make(chan struct{})}
	j := &job{meta: meta, payload: payload, reg: reg, handle: handle}

	select {
	case ch <- j:
		return handle, nil
	case <-r.quit:
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// EnqueueGroup dispatches the signatures as one fan-out unit and persists
// the group membership so it can be restored after the handles are gone.
func (r *Runtime) EnqueueGroup(ctx context.Context, sigs []Signature) (*GroupHandle, error) {
	group := &GroupHandle{ID: uuid.New().String()}
	ids := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		h, err := r.Enqueue(ctx, sig)
		if err != nil {
			return nil, err
		}
		group.Handles = append(group.Handles, h)
		ids = append(ids, h.ID)
	}
	if err := r.backend.SaveGroup(ctx, group.ID, ids); err != nil {
		return nil, fmt.Errorf("queue: save group: %w", err)
	}
	return group, nil
}

// Resolve returns the durable state of a task, or ErrNotFound when the
// record is absent or expired.
func (r *Runtime) Resolve(ctx context.Context, taskID string) (TaskMeta, error) {
	return r.backend.GetMeta(ctx, taskID)
}

// RestoreGroup rebuilds the live state of a previously dispatched group.
// Children whose individual records expired are reported as pending.
func (r *Runtime) RestoreGroup(ctx context.Context, groupID string) (*GroupState, error) {
	ids, err := r.backend.RestoreGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	state := &GroupState{ID: groupID, Children: make([]TaskMeta, 0, len(ids))}
	for _, id := range ids {
		meta, err := r.backend.GetMeta(ctx, id)
		if errors.Is(err, ErrNotFound) {
			meta = TaskMeta{ID: id, State: StatePending}
		} else if err != nil {
			return nil, err
		}
		state.Children = append(state.Children, meta)
	}
	return state, nil
}
