// Package workspace keeps live canvases in memory keyed by workspace id
// and writes every change through to a StateStore.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/canvas"
	"github.com/meikuraledutech/architex/logger"
	"github.com/meikuraledutech/architex/metrics"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidKey = errors.New("workspace: invalid key")

// Workspaces is a registry of canvases backed by a StateStore.
type Workspaces struct {
	store architex.StateStore
	log   *slog.Logger
	now   func() time.Time
	opts  []canvas.Option

	loads singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
}

// entry serializes mutate+save per key so saves land in mutation order.
// lastUsed is guarded by Workspaces.mu; dirty by entry.mu.
type entry struct {
	mu       sync.Mutex
	canvas   *canvas.Canvas
	dirty    bool
	lastUsed time.Time
}

// Option configures Workspaces.
type Option func(*Workspaces)

// WithClock sets the clock used for the persisted updatedAt stamp.
func WithClock(now func() time.Time) Option {
	return func(w *Workspaces) { w.now = now }
}

// WithCanvasOptions is applied to every canvas the registry creates.
func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(w *Workspaces) { w.opts = append(w.opts, opts...) }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspaces) { w.log = l }
}

// New returns an empty registry over store.
func New(store architex.StateStore, opts ...Option) *Workspaces {
	w := &Workspaces{
		store:   store,
		log:     logger.Discard(),
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(logger.Scope("workspace"))
	return w
}

func validKey(key string) bool {
	return strings.TrimSpace(key) != "" && !strings.ContainsAny(key, "/\\") && !strings.HasPrefix(key, ".")
}

// Create starts a new empty workspace under a random key and persists it.
func (w *Workspaces) Create(ctx context.Context) (string, *canvas.Canvas, error) {
	key := uuid.NewString()
	c := canvas.New(w.opts...)
	e := &entry{canvas: c}

	w.mu.Lock()
	e.lastUsed = w.now()
	w.entries[key] = e
	metrics.ActiveWorkspaces.Set(float64(len(w.entries)))
	w.mu.Unlock()

	if err := w.save(ctx, key, c); err != nil {
		e.mu.Lock()
		e.dirty = true
		e.mu.Unlock()
		return key, c, err
	}
	w.log.Info("workspace created", slog.String("key", key))
	return key, c, nil
}

// Get returns the canvas for key, loading it from the store on first
// access. A key with nothing stored yields an empty canvas.
func (w *Workspaces) Get(ctx context.Context, key string) (*canvas.Canvas, error) {
	e, err := w.entry(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.canvas, nil
}

func (w *Workspaces) entry(ctx context.Context, key string) (*entry, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if e, ok := w.lookup(key); ok {
		return e, nil
	}

	// The store round trip runs outside w.mu; concurrent first loads of
	// one key share a single Load.
	v, err, _ := w.loads.Do(key, func() (any, error) {
		if e, ok := w.lookup(key); ok {
			return e, nil
		}
		c, err := w.load(ctx, key)
		if err != nil {
			return nil, err
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if e, ok := w.entries[key]; ok {
			e.lastUsed = w.now()
			return e, nil
		}
		e := &entry{canvas: c, lastUsed: w.now()}
		w.entries[key] = e
		metrics.ActiveWorkspaces.Set(float64(len(w.entries)))
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

func (w *Workspaces) lookup(key string) (*entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[key]
	if ok {
		e.lastUsed = w.now()
	}
	return e, ok
}

func (w *Workspaces) load(ctx context.Context, key string) (*canvas.Canvas, error) {
	st, err := w.store.Load(ctx, key)
	switch {
	case errors.Is(err, architex.ErrStateNotFound):
		return canvas.New(w.opts...), nil
	case err != nil:
		return nil, fmt.Errorf("workspace: load %s: %w", key, err)
	}
	w.log.Debug("workspace restored",
		slog.String("key", key),
		slog.Int("nodes", len(st.Nodes)),
		slog.Int("edges", len(st.Edges)),
	)
	return canvas.FromState(*st, w.opts...), nil
}

// Mutate runs fn against the canvas for key and persists the result when
// fn reports a change. op labels the operation in metrics. A failed save
// is returned but the in-memory change stands.
func (w *Workspaces) Mutate(ctx context.Context, key, op string, fn func(c *canvas.Canvas) bool) (architex.State, error) {
	e, err := w.entry(ctx, key)
	if err != nil {
		return architex.State{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	applied := fn(e.canvas)
	metrics.CanvasOperations.WithLabelValues(op, metrics.Result(applied)).Inc()

	st := e.canvas.State()
	if !applied {
		return st, nil
	}
	st.UpdatedAt = w.now().UnixMilli()
	if err := w.store.Save(ctx, key, &st); err != nil {
		e.dirty = true
		metrics.StateSaves.WithLabelValues("error").Inc()
		w.log.Error("autosave failed", slog.String("key", key), slog.String("op", op), logger.Error(err))
		return st, fmt.Errorf("workspace: save %s: %w", key, err)
	}
	e.dirty = false
	metrics.StateSaves.WithLabelValues("ok").Inc()
	return st, nil
}

func (w *Workspaces) save(ctx context.Context, key string, c *canvas.Canvas) error {
	st := c.State()
	st.UpdatedAt = w.now().UnixMilli()
	if err := w.store.Save(ctx, key, &st); err != nil {
		metrics.StateSaves.WithLabelValues("error").Inc()
		return fmt.Errorf("workspace: save %s: %w", key, err)
	}
	metrics.StateSaves.WithLabelValues("ok").Inc()
	return nil
}

// Delete forgets key in memory and in the store.
func (w *Workspaces) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	w.mu.Lock()
	delete(w.entries, key)
	metrics.ActiveWorkspaces.Set(float64(len(w.entries)))
	w.mu.Unlock()

	if err := w.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("workspace: delete %s: %w", key, err)
	}
	return nil
}

// Evict drops the in-memory canvas for key. The stored state is kept and
// reloaded on next access.
func (w *Workspaces) Evict(key string) {
	w.mu.Lock()
	delete(w.entries, key)
	metrics.ActiveWorkspaces.Set(float64(len(w.entries)))
	w.mu.Unlock()
}

// EvictIdle drops canvases not touched for longer than maxIdle and returns
// how many were dropped. Canvases whose last autosave failed are saved
// first; one that still fails to save stays loaded. Canvases busy in a
// mutation are skipped until the next sweep.
func (w *Workspaces) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := w.now().Add(-maxIdle)

	type idle struct {
		key string
		e   *entry
	}
	var victims []idle
	w.mu.Lock()
	for key, e := range w.entries {
		if e.lastUsed.After(cutoff) || !e.mu.TryLock() {
			continue
		}
		delete(w.entries, key)
		victims = append(victims, idle{key, e})
	}
	w.mu.Unlock()

	var (
		errs    []error
		evicted int
	)
	for _, v := range victims {
		if v.e.dirty {
			if err := w.save(ctx, v.key, v.e.canvas); err != nil {
				errs = append(errs, err)
				w.mu.Lock()
				if _, ok := w.entries[v.key]; !ok {
					w.entries[v.key] = v.e
				}
				w.mu.Unlock()
				v.e.mu.Unlock()
				continue
			}
			v.e.dirty = false
		}
		v.e.mu.Unlock()
		evicted++
		w.log.Debug("workspace evicted", slog.String("key", v.key))
	}

	w.mu.Lock()
	metrics.ActiveWorkspaces.Set(float64(len(w.entries)))
	w.mu.Unlock()
	return evicted, errors.Join(errs...)
}

// Loaded reports how many canvases are held in memory.
func (w *Workspaces) Loaded() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Keys lists every persisted workspace.
func (w *Workspaces) Keys(ctx context.Context) ([]string, error) {
	keys, err := w.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("workspace: list keys: %w", err)
	}
	return keys, nil
}

// Flush saves every loaded canvas. It is used on shutdown.
func (w *Workspaces) Flush(ctx context.Context) error {
	w.mu.Lock()
	snapshot := make(map[string]*entry, len(w.entries))
	for k, e := range w.entries {
		snapshot[k] = e
	}
	w.mu.Unlock()

	var errs []error
	for key, e := range snapshot {
		e.mu.Lock()
		err := w.save(ctx, key, e.canvas)
		if err == nil {
			e.dirty = false
		}
		e.mu.Unlock()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
