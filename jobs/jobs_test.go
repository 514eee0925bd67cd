package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers GetJob from a script; the last entry repeats.
type fakeBackend struct {
	mu       sync.Mutex
	script   []architex.JobStatus
	errs     map[int]error // call index -> transport error
	message  string
	calls    int
	delay    time.Duration
	inflight int32
	overlap  atomic.Bool
	created  []architex.ArchitectureSpec
}

func (f *fakeBackend) CreateJob(_ context.Context, spec architex.ArchitectureSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, spec)
	return fmt.Sprintf("job-%d", len(f.created)), nil
}

func (f *fakeBackend) GetJob(ctx context.Context, id string) (*architex.Job, error) {
	if atomic.AddInt32(&f.inflight, 1) > 1 {
		f.overlap.Store(true)
	}
	defer atomic.AddInt32(&f.inflight, -1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if err, ok := f.errs[i]; ok {
		return nil, err
	}
	status := f.script[len(f.script)-1]
	if i < len(f.script) {
		status = f.script[i]
	}
	job := &architex.Job{ID: id, Status: status}
	if status == architex.JobFailed {
		job.Error = f.message
	}
	return job, nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWaitCompleted(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending, architex.JobRunning, architex.JobCompleted}}
	p := NewPoller(b, time.Millisecond, 10, nil)

	var seen []architex.JobStatus
	job, err := p.Wait(context.Background(), "job-1", func(j architex.Job) { seen = append(seen, j.Status) })
	require.NoError(t, err)
	assert.Equal(t, architex.JobCompleted, job.Status)
	assert.Equal(t, []architex.JobStatus{architex.JobPending, architex.JobRunning, architex.JobCompleted}, seen)
	assert.Equal(t, 3, b.Calls())
}

func TestWaitCompletedWithWarningsIsSuccess(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobCompletedWithWarnings}}
	job, err := NewPoller(b, time.Millisecond, 3, nil).Wait(context.Background(), "job-1", nil)
	require.NoError(t, err)
	assert.Equal(t, architex.JobCompletedWithWarnings, job.Status)
}

func TestWaitFailed(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobRunning, architex.JobFailed}, message: "push rejected"}
	job, err := NewPoller(b, time.Millisecond, 10, nil).Wait(context.Background(), "job-1", nil)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "job-1", failed.JobID)
	assert.Equal(t, "push rejected", failed.Message)
	require.NotNil(t, job)
	assert.Equal(t, architex.JobFailed, job.Status)
}

func TestWaitTimesOutWithinBudget(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending}}
	_, err := NewPoller(b, time.Millisecond, 5, nil).Wait(context.Background(), "job-1", nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 5, b.Calls())
}

func TestWaitTransportErrorsConsumeAttempts(t *testing.T) {
	boom := errors.New("connection refused")
	b := &fakeBackend{
		script: []architex.JobStatus{architex.JobPending},
		errs:   map[int]error{0: boom, 1: boom, 2: boom},
	}
	_, err := NewPoller(b, time.Millisecond, 3, nil).Wait(context.Background(), "job-1", nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, b.Calls())
}

func TestWaitRecoversAfterTransportError(t *testing.T) {
	b := &fakeBackend{
		script: []architex.JobStatus{architex.JobPending, architex.JobCompleted},
		errs:   map[int]error{0: errors.New("502")},
	}
	job, err := NewPoller(b, time.Millisecond, 5, nil).Wait(context.Background(), "job-1", nil)
	require.NoError(t, err)
	assert.Equal(t, architex.JobCompleted, job.Status)
}

func TestWaitNeverOverlapsFetches(t *testing.T) {
	// Each fetch takes longer than the interval.
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending}, delay: 5 * time.Millisecond}
	_, err := NewPoller(b, time.Millisecond, 6, nil).Wait(context.Background(), "job-1", nil)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, b.overlap.Load())
	assert.Equal(t, 6, b.Calls())
}

func TestWaitHonoursCancel(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPoller(b, time.Hour, 60, nil).Wait(ctx, "job-1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.Calls())
}

func TestNewPollerDefaults(t *testing.T) {
	p := NewPoller(&fakeBackend{}, 0, 0, nil)
	assert.Equal(t, DefaultInterval, p.interval)
	assert.Equal(t, DefaultMaxAttempts, p.maxAttempts)
}

func sampleSpec() architex.ArchitectureSpec {
	st := architex.State{
		Nodes:  []architex.Node{{ID: "postgresql-1", Type: "component"}},
		Edges:  []architex.Edge{},
		Prompt: "todo app",
	}
	return architex.NewArchitectureSpec(st, time.Now())
}

func TestGenerate(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobRunning, architex.JobCompleted}}
	g := NewGenerator(b, time.Millisecond, 10, nil)

	var seen []architex.JobStatus
	job, err := g.Generate(context.Background(), sampleSpec(), func(j architex.Job) { seen = append(seen, j.Status) })
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, []architex.JobStatus{architex.JobPending, architex.JobRunning, architex.JobCompleted}, seen)
	require.Len(t, b.created, 1)
	assert.Equal(t, "todo app", b.created[0].Prompt)
}

func TestGenerateRejectsEmptySpec(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobCompleted}}
	_, err := NewGenerator(b, time.Millisecond, 1, nil).Generate(context.Background(), architex.ArchitectureSpec{}, nil)
	assert.Error(t, err)
	assert.Empty(t, b.created)
}

func TestTracker(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobRunning, architex.JobCompleted}}
	tr := NewTracker(context.Background(), NewGenerator(b, time.Millisecond, 10, nil), nil)
	defer tr.Close()

	id, err := tr.Start(context.Background(), sampleSpec())
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	got, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, got.Job.ID)

	require.Eventually(t, func() bool {
		got, _ := tr.Get(id)
		return got.Done
	}, time.Second, time.Millisecond)

	got, _ = tr.Get(id)
	assert.Equal(t, architex.JobCompleted, got.Job.Status)
	assert.Empty(t, got.Error)

	_, ok = tr.Get("missing")
	assert.False(t, ok)
}

func TestTrackerCloseStopsWaits(t *testing.T) {
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending}}
	tr := NewTracker(context.Background(), NewGenerator(b, time.Hour, 60, nil), nil)

	id, err := tr.Start(context.Background(), sampleSpec())
	require.NoError(t, err)
	tr.Close()

	got, ok := tr.Get(id)
	require.True(t, ok)
	assert.True(t, got.Done)
	assert.Contains(t, got.Error, context.Canceled.Error())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTrackerDropsExpiredJobs(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	b := &fakeBackend{script: []architex.JobStatus{architex.JobCompleted}}
	tr := NewTracker(context.Background(), NewGenerator(b, time.Millisecond, 10, nil), nil,
		WithRetention(10*time.Minute), WithTrackerClock(clock.Now))
	defer tr.Close()

	first, err := tr.Start(context.Background(), sampleSpec())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, _ := tr.Get(first)
		return got.Done
	}, time.Second, time.Millisecond)

	clock.Advance(5 * time.Minute)
	assert.Zero(t, tr.Prune())
	_, ok := tr.Get(first)
	assert.True(t, ok)

	clock.Advance(6 * time.Minute)
	second, err := tr.Start(context.Background(), sampleSpec())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, ok = tr.Get(first)
	assert.False(t, ok)
	_, ok = tr.Get(second)
	assert.True(t, ok)
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerKeepsRunningJobsPastRetention(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	b := &fakeBackend{script: []architex.JobStatus{architex.JobPending}}
	tr := NewTracker(context.Background(), NewGenerator(b, time.Hour, 60, nil), nil,
		WithRetention(time.Minute), WithTrackerClock(clock.Now))

	id, err := tr.Start(context.Background(), sampleSpec())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Zero(t, tr.Prune())
	_, ok := tr.Get(id)
	assert.True(t, ok)

	tr.Close()
}
