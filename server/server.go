// Package server exposes canvas workspaces over HTTP. Each gesture the
// editor makes (drop, connect, change batches, undo, redo) has a route
// that forwards it to the workspace's canvas and autosaves the result.
package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/architex/jobs"
	"github.com/meikuraledutech/architex/logger"
	"github.com/meikuraledutech/architex/workspace"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the HTTP surface needs. Tracker may be nil,
// in which case generation routes answer 503.
type Deps struct {
	Workspaces *workspace.Workspaces
	Tracker    *jobs.Tracker
	Log        *slog.Logger
	Now        func() time.Time
}

type handlers struct {
	ws      *workspace.Workspaces
	tracker *jobs.Tracker
	log     *slog.Logger
	now     func() time.Time
}

// New builds the fiber app.
func New(d Deps) *fiber.App {
	log := d.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.With(logger.Scope("server"))
	now := d.Now
	if now == nil {
		now = time.Now
	}
	h := &handlers{ws: d.Workspaces, tracker: d.Tracker, log: log, now: now}

	onError := errorHandler(log)
	app := fiber.New(fiber.Config{
		AppName:      "architex",
		ErrorHandler: onError,
		Immutable:    true, // route params outlive the request as workspace keys
	})
	app.Use(requestLog(log, onError))
	app.Use(recoverer.New())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/palette", h.palette)

	// ── Workspaces ────────────────────────────────────────────────────
	app.Post("/canvas", h.createCanvas)
	app.Get("/canvas", h.listCanvases)
	app.Get("/canvas/:key", h.getCanvas)
	app.Delete("/canvas/:key", h.clearCanvas)
	app.Put("/canvas/:key/meta", h.setMeta)
	app.Get("/canvas/:key/spec", h.spec)

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/canvas/:key/nodes/changes", h.nodesChange)
	app.Post("/canvas/:key/nodes", h.addNode)
	app.Patch("/canvas/:key/nodes/:id", h.updateNode)
	app.Delete("/canvas/:key/nodes/:id", h.deleteNode)
	app.Post("/canvas/:key/drop", h.drop)

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/canvas/:key/connect", h.connect)
	app.Post("/canvas/:key/edges/changes", h.edgesChange)

	// ── History ───────────────────────────────────────────────────────
	app.Post("/canvas/:key/undo", h.undo)
	app.Post("/canvas/:key/redo", h.redo)

	// ── Jobs ──────────────────────────────────────────────────────────
	app.Post("/canvas/:key/generate", h.generate)
	app.Get("/jobs/:id", h.job)

	return app
}
