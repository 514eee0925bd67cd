package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/logger"
)

// Backend creates jobs and reports their status. *client.Client
// satisfies it.
type Backend interface {
	Fetcher
	CreateJob(ctx context.Context, spec architex.ArchitectureSpec) (string, error)
}

// Generator turns an architecture spec into a finished generation job.
type Generator struct {
	backend Backend
	poller  *Poller
	log     *slog.Logger
}

// NewGenerator wires a backend to a poller built from the same backend.
func NewGenerator(b Backend, interval time.Duration, maxAttempts int, log *slog.Logger) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{
		backend: b,
		poller:  NewPoller(b, interval, maxAttempts, log),
		log:     log.With(logger.Scope("jobs.generator")),
	}
}

// Submit creates the job without waiting for it.
func (g *Generator) Submit(ctx context.Context, spec architex.ArchitectureSpec) (string, error) {
	if len(spec.Nodes) == 0 {
		return "", fmt.Errorf("jobs: spec has no nodes")
	}
	id, err := g.backend.CreateJob(ctx, spec)
	if err != nil {
		return "", fmt.Errorf("jobs: create job: %w", err)
	}
	g.log.Info("job created",
		slog.String("job_id", id),
		slog.Int("nodes", len(spec.Nodes)),
		slog.Int("edges", len(spec.Edges)),
	)
	return id, nil
}

// Wait follows a submitted job to its end. See Poller.Wait.
func (g *Generator) Wait(ctx context.Context, id string, onUpdate func(architex.Job)) (*architex.Job, error) {
	return g.poller.Wait(ctx, id, onUpdate)
}

// Generate submits spec and waits for the job. onUpdate may be nil.
func (g *Generator) Generate(ctx context.Context, spec architex.ArchitectureSpec, onUpdate func(architex.Job)) (*architex.Job, error) {
	id, err := g.Submit(ctx, spec)
	if err != nil {
		return nil, err
	}
	if onUpdate != nil {
		onUpdate(architex.Job{ID: id, Status: architex.JobPending})
	}
	return g.Wait(ctx, id, onUpdate)
}
