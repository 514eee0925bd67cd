package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/architex/canvas"
	"github.com/meikuraledutech/architex/jobs"
	"github.com/meikuraledutech/architex/logger"
	"github.com/meikuraledutech/architex/server"
	"github.com/meikuraledutech/architex/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve canvas workspaces over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ARCHITEX_ADDR)")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, a.cfg.Storage, a.log)
	if err != nil {
		return err
	}
	defer closeStore()

	ws := workspace.New(store,
		workspace.WithLogger(a.log),
		workspace.WithCanvasOptions(canvas.WithPalette(canvas.DefaultPalette())),
	)
	gen := jobs.NewGenerator(a.client(), a.cfg.Polling.Interval, a.cfg.Polling.MaxAttempts, a.log)
	tracker := jobs.NewTracker(ctx, gen, a.log, jobs.WithRetention(a.cfg.Polling.Retention))
	defer tracker.Close()

	srv := server.New(server.Deps{Workspaces: ws, Tracker: tracker, Log: a.log})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("listening", slog.String("addr", a.cfg.Addr), slog.String("store", a.cfg.Storage.Backend))
		return srv.Listen(a.cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	})
	if a.cfg.IdleTimeout > 0 {
		g.Go(func() error {
			sweep(gctx, max(a.cfg.IdleTimeout/2, time.Second), func() { a.sweepIdle(gctx, ws, tracker) })
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := ws.Flush(shutdownCtx); err != nil {
			a.log.Error("flush workspaces", logger.Error(err))
		}
		return srv.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sweep calls fn every interval until ctx is done.
func sweep(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (a *app) sweepIdle(ctx context.Context, ws *workspace.Workspaces, tracker *jobs.Tracker) {
	n, err := ws.EvictIdle(ctx, a.cfg.IdleTimeout)
	if err != nil {
		a.log.Warn("evict idle workspaces", logger.Error(err))
	}
	pruned := tracker.Prune()
	if n > 0 || pruned > 0 {
		a.log.Debug("idle sweep", slog.Int("workspaces", n), slog.Int("jobs", pruned))
	}
}
