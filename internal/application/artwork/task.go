package artwork

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Stage membedakan task upload vs analysis
type Stage string

const (
	StageUpload  Stage = "upload"
	StageAnalyze Stage = "analyze"
)

// Progress is one snapshot of a running task. Done selalu sampai Total,
// item yang gagal tetap dihitung selesai.
type Progress struct {
	Stage Stage `json:"stage"`
	Done  int   `json:"done"`
	Total int   `json:"total"`
}

// Task is an explicit handle over a background pipeline run. Callers can
// subscribe to progress events, wait for completion, cancel between groups,
// or poll a snapshot. Ini pengganti pola fire-and-forget goroutine: error
// tidak hilang diam-diam lagi.
type Task struct {
	ID    string `json:"id"`
	Stage Stage  `json:"stage"`

	total  int
	done   int64
	events chan Progress
	closed chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newTask(stage Stage, total int, cancel context.CancelFunc) *Task {
	return &Task{
		ID:     uuid.New().String(),
		Stage:  stage,
		total:  total,
		events: make(chan Progress, 64),
		closed: make(chan struct{}),
		cancel: cancel,
	}
}

// Events streams progress; closed when the task finishes. Send tidak pernah
// blocking: kalau tidak ada yang dengar, event lama di-drop.
func (t *Task) Events() <-chan Progress {
	return t.events
}

// advance marks n more members complete and emits a progress event.
// Safe under concurrent calls from one group.
func (t *Task) advance(n int) {
	done := atomic.AddInt64(&t.done, int64(n))
	p := Progress{Stage: t.Stage, Done: int(done), Total: t.total}
	select {
	case t.events <- p:
	default:
		// subscriber lambat; snapshot tetap akurat lewat Snapshot()
	}
}

// Snapshot returns current progress without consuming the event stream.
func (t *Task) Snapshot() Progress {
	return Progress{Stage: t.Stage, Done: int(atomic.LoadInt64(&t.done)), Total: t.total}
}

// Cancel stops the run at the next group boundary; the in-flight group
// still settles (smallest non-cancellable unit is one group).
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
}

// finish records the terminal error (nil = success) and closes the stream.
func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.events)
	close(t.closed)
}

// Wait blocks until the task finishes or ctx expires.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.closed:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finished reports whether the task already terminated.
func (t *Task) Finished() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// Err returns the terminal error once the task finished.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Registry holds live tasks so the HTTP layer can answer status polls.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

func (r *Registry) Put(t *Task) {
	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}
