// Package jobs submits architecture specs to the backend and follows the
// resulting generation jobs until they finish.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/logger"
	"github.com/meikuraledutech/architex/metrics"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 60
)

// ErrTimeout is returned when the attempt budget runs out before the job
// reaches a terminal status.
var ErrTimeout = errors.New("jobs: timed out waiting for job")

// FailedError reports a job the backend marked as failed.
type FailedError struct {
	JobID   string
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("jobs: job %s failed", e.JobID)
	}
	return fmt.Sprintf("jobs: job %s failed: %s", e.JobID, e.Message)
}

// Fetcher reads the current status of a job.
type Fetcher interface {
	GetJob(ctx context.Context, id string) (*architex.Job, error)
}

// Poller waits for jobs by fetching their status on a fixed interval.
// Fetches never overlap: the next wait starts only after the previous
// fetch has returned.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	maxAttempts int
	log         *slog.Logger
}

// NewPoller returns a poller. Non-positive interval or attempts fall back
// to the defaults; a nil logger discards output.
func NewPoller(f Fetcher, interval time.Duration, maxAttempts int, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Poller{
		fetcher:     f,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log.With(logger.Scope("jobs.poller")),
	}
}

// Wait polls job id until it completes, fails, the attempt budget is
// spent, or ctx is done. onUpdate, when non-nil, sees every fetched job.
//
// A successful job (completed or completed_with_warnings) is returned with
// a nil error. A failed job is returned together with a *FailedError.
// Transport errors are logged and count against the budget.
func (p *Poller) Wait(ctx context.Context, id string, onUpdate func(architex.Job)) (*architex.Job, error) {
	log := p.log.With(slog.String("job_id", id))
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			metrics.JobOutcomes.WithLabelValues("canceled").Inc()
			return nil, ctx.Err()
		case <-timer.C:
		}

		job, err := p.fetcher.GetJob(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				metrics.JobOutcomes.WithLabelValues("canceled").Inc()
				return nil, ctx.Err()
			}
			metrics.JobPolls.WithLabelValues("error").Inc()
			log.Warn("poll failed", slog.Int("attempt", attempt), logger.Error(err))
			lastErr = err
			timer.Reset(p.interval)
			continue
		}
		metrics.JobPolls.WithLabelValues("ok").Inc()
		log.Debug("polled", slog.Int("attempt", attempt), slog.String("status", string(job.Status)))
		if onUpdate != nil {
			onUpdate(*job)
		}

		switch {
		case job.Status.Succeeded():
			metrics.JobOutcomes.WithLabelValues(string(job.Status)).Inc()
			log.Info("job finished", slog.String("status", string(job.Status)), slog.Int("attempts", attempt))
			return job, nil
		case job.Status == architex.JobFailed:
			metrics.JobOutcomes.WithLabelValues(string(job.Status)).Inc()
			log.Warn("job failed", slog.String("reason", job.Error))
			return job, &FailedError{JobID: id, Message: job.Error}
		}
		timer.Reset(p.interval)
	}

	metrics.JobOutcomes.WithLabelValues("timeout").Inc()
	log.Warn("gave up waiting", slog.Int("attempts", p.maxAttempts))
	if lastErr != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrTimeout, p.maxAttempts, lastErr)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrTimeout, p.maxAttempts)
}
