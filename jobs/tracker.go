package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/logger"
)

// Tracked is the latest known state of a job followed in the background.
type Tracked struct {
	Job       architex.Job `json:"job"`
	Done      bool         `json:"done"`
	Error     string       `json:"error,omitempty"`
	StartedAt time.Time    `json:"startedAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Tracker runs generations in the background so request handlers can
// answer immediately and report progress later.
type Tracker struct {
	gen *Generator
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retention time.Duration
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*Tracked
}

// DefaultRetention is how long a finished job stays readable.
const DefaultRetention = time.Hour

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithRetention sets how long finished jobs are kept. Non-positive values
// keep the default.
func WithRetention(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

// WithTrackerClock replaces time.Now.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a tracker whose background waits end when parent is
// canceled or Close is called.
func NewTracker(parent context.Context, gen *Generator, log *slog.Logger, opts ...TrackerOption) *Tracker {
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Tracker{
		gen:       gen,
		log:       log.With(logger.Scope("jobs.tracker")),
		ctx:       ctx,
		cancel:    cancel,
		retention: DefaultRetention,
		now:       time.Now,
		jobs:      make(map[string]*Tracked),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start submits spec using ctx and follows the job in the background.
func (t *Tracker) Start(ctx context.Context, spec architex.ArchitectureSpec) (string, error) {
	id, err := t.gen.Submit(ctx, spec)
	if err != nil {
		return "", err
	}

	now := t.now()
	t.mu.Lock()
	t.pruneLocked(now)
	t.jobs[id] = &Tracked{
		Job:       architex.Job{ID: id, Status: architex.JobPending},
		StartedAt: now,
		UpdatedAt: now,
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		job, err := t.gen.Wait(t.ctx, id, func(j architex.Job) { t.update(id, j) })
		t.finish(id, job, err)
	}()
	return id, nil
}

// Get returns a copy of the tracked job.
func (t *Tracker) Get(id string) (Tracked, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tr, ok := t.jobs[id]
	if !ok {
		return Tracked{}, false
	}
	return *tr, true
}

// Len reports how many jobs are currently held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// Prune drops finished jobs older than the retention window and returns
// how many were removed.
func (t *Tracker) Prune() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pruneLocked(t.now())
}

func (t *Tracker) pruneLocked(now time.Time) int {
	n := 0
	for id, tr := range t.jobs {
		if tr.Done && now.Sub(tr.UpdatedAt) > t.retention {
			delete(t.jobs, id)
			n++
		}
	}
	return n
}

// Close stops every background wait and blocks until they return.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

func (t *Tracker) update(id string, j architex.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.jobs[id]; ok {
		tr.Job = j
		tr.UpdatedAt = t.now()
	}
}

func (t *Tracker) finish(id string, job *architex.Job, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.jobs[id]
	if !ok {
		return
	}
	if job != nil {
		tr.Job = *job
	}
	tr.Done = true
	tr.UpdatedAt = t.now()
	if err != nil {
		tr.Error = err.Error()
		if !errors.Is(err, context.Canceled) {
			t.log.Warn("tracked job ended with error", slog.String("job_id", id), logger.Error(err))
		}
	}
}
