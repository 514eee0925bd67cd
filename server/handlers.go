package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/canvas"
	"github.com/meikuraledutech/architex/workspace"
	"gopkg.in/yaml.v3"
)

// canvasView is the response body of every canvas route.
type canvasView struct {
	Key        string         `json:"key"`
	State      architex.State `json:"state"`
	CanUndo    bool           `json:"canUndo"`
	CanRedo    bool           `json:"canRedo"`
	HistoryLen int            `json:"historyLen"`
}

// gestureResult reports whether a gesture changed the canvas.
type gestureResult struct {
	Applied bool       `json:"applied"`
	Canvas  canvasView `json:"canvas"`
}

func viewOf(key string, c *canvas.Canvas) canvasView {
	return canvasView{
		Key:        key,
		State:      c.State(),
		CanUndo:    c.CanUndo(),
		CanRedo:    c.CanRedo(),
		HistoryLen: c.HistoryLen(),
	}
}

// storeError maps workspace errors to API errors.
func storeError(err error) error {
	if errors.Is(err, workspace.ErrInvalidKey) {
		return ErrInvalidKey.WithInternal(err)
	}
	return ErrInternal.WithInternal(err)
}

// mutate runs fn on the workspace and answers with the resulting view. The
// view is read under the same lock as fn so it reflects this change only.
func (h *handlers) mutate(c fiber.Ctx, op string, fn func(cv *canvas.Canvas) bool) (bool, canvasView, error) {
	key := c.Params("key")
	var (
		applied bool
		view    canvasView
	)
	st, err := h.ws.Mutate(c.Context(), key, op, func(cv *canvas.Canvas) bool {
		applied = fn(cv)
		view = canvasView{
			Key:        key,
			CanUndo:    cv.CanUndo(),
			CanRedo:    cv.CanRedo(),
			HistoryLen: cv.HistoryLen(),
		}
		return applied
	})
	if err != nil {
		return applied, canvasView{}, storeError(err)
	}
	view.State = st
	return applied, view, nil
}

func (h *handlers) gesture(c fiber.Ctx, op string, fn func(cv *canvas.Canvas) bool) error {
	applied, view, err := h.mutate(c, op, fn)
	if err != nil {
		return err
	}
	return c.JSON(gestureResult{Applied: applied, Canvas: view})
}

func (h *handlers) palette(c fiber.Ctx) error {
	p := canvas.DefaultPalette()
	return c.JSON(fiber.Map{
		"components": p.Components(),
		"categories": p.Categories(),
	})
}

// ── Workspaces ────────────────────────────────────────────────────────

func (h *handlers) createCanvas(c fiber.Ctx) error {
	key, cv, err := h.ws.Create(c.Context())
	if err != nil {
		return storeError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(viewOf(key, cv))
}

func (h *handlers) listCanvases(c fiber.Ctx) error {
	keys, err := h.ws.Keys(c.Context())
	if err != nil {
		return storeError(err)
	}
	return c.JSON(fiber.Map{"keys": keys})
}

func (h *handlers) getCanvas(c fiber.Ctx) error {
	key := c.Params("key")
	cv, err := h.ws.Get(c.Context(), key)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(viewOf(key, cv))
}

// clearCanvas empties the diagram. With ?purge=true the workspace is
// removed from storage instead.
func (h *handlers) clearCanvas(c fiber.Ctx) error {
	if c.Query("purge") == "true" {
		if err := h.ws.Delete(c.Context(), c.Params("key")); err != nil {
			return storeError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
	return h.gesture(c, "clear", func(cv *canvas.Canvas) bool {
		cv.Clear()
		return true
	})
}

type metaRequest struct {
	ProjectName *string `json:"projectName"`
	ProjectID   *string `json:"projectId"`
	Prompt      *string `json:"prompt"`
}

func (h *handlers) setMeta(c fiber.Ctx) error {
	var req metaRequest
	if err := c.Bind().JSON(&req); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	if req.ProjectID != nil && *req.ProjectID != "" && !architex.ValidProjectID(*req.ProjectID) {
		return ErrInvalidProjectID
	}
	return h.gesture(c, "meta", func(cv *canvas.Canvas) bool {
		if req.ProjectName != nil {
			cv.SetProjectName(*req.ProjectName)
		}
		if req.ProjectID != nil {
			cv.SetProjectID(strings.TrimSpace(*req.ProjectID))
		}
		if req.Prompt != nil {
			cv.SetPrompt(*req.Prompt)
		}
		return req.ProjectName != nil || req.ProjectID != nil || req.Prompt != nil
	})
}

func (h *handlers) spec(c fiber.Ctx) error {
	cv, err := h.ws.Get(c.Context(), c.Params("key"))
	if err != nil {
		return storeError(err)
	}
	spec := cv.Spec(h.now())
	if c.Query("format") == "yaml" {
		out, err := yaml.Marshal(spec)
		if err != nil {
			return ErrInternal.WithInternal(err)
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(out)
	}
	return c.JSON(spec)
}

// ── Nodes ─────────────────────────────────────────────────────────────

func (h *handlers) addNode(c fiber.Ctx) error {
	var n architex.Node
	if err := c.Bind().JSON(&n); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	var created architex.Node
	applied, _, err := h.mutate(c, "add_node", func(cv *canvas.Canvas) bool {
		var ok bool
		created, ok = cv.AddNode(n)
		return ok
	})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNodeExists
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *handlers) updateNode(c fiber.Ctx) error {
	var patch canvas.NodeDataPatch
	if err := c.Bind().JSON(&patch); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	var updated architex.Node
	applied, _, err := h.mutate(c, "update_node", func(cv *canvas.Canvas) bool {
		var ok bool
		updated, ok = cv.UpdateNodeData(c.Params("id"), patch)
		return ok
	})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNodeNotFound
	}
	return c.JSON(updated)
}

func (h *handlers) deleteNode(c fiber.Ctx) error {
	applied, _, err := h.mutate(c, "delete_node", func(cv *canvas.Canvas) bool {
		return cv.DeleteNode(c.Params("id"))
	})
	if err != nil {
		return err
	}
	if !applied {
		return ErrNodeNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type dropRequest struct {
	ComponentID string            `json:"componentId"`
	Position    architex.Position `json:"position"`
}

// drop answers 204 when the payload names no known component; the
// gesture is ignored rather than rejected.
func (h *handlers) drop(c fiber.Ctx) error {
	var req dropRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrBadRequest.WithInternal(err)
		}
	}
	var created architex.Node
	applied, _, err := h.mutate(c, "drop", func(cv *canvas.Canvas) bool {
		var ok bool
		created, ok = cv.Drop(req.ComponentID, req.Position)
		return ok
	})
	if err != nil {
		return err
	}
	if !applied {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *handlers) nodesChange(c fiber.Ctx) error {
	var changes []canvas.NodeChange
	if err := c.Bind().JSON(&changes); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	return h.gesture(c, "nodes_change", func(cv *canvas.Canvas) bool {
		cv.OnNodesChange(changes)
		return len(changes) > 0
	})
}

// ── Edges ─────────────────────────────────────────────────────────────

func (h *handlers) connect(c fiber.Ctx) error {
	var conn architex.Connection
	if err := c.Bind().JSON(&conn); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	return h.gesture(c, "connect", func(cv *canvas.Canvas) bool {
		_, ok := cv.OnConnect(conn)
		return ok
	})
}

func (h *handlers) edgesChange(c fiber.Ctx) error {
	var changes []canvas.EdgeChange
	if err := c.Bind().JSON(&changes); err != nil {
		return ErrBadRequest.WithInternal(err)
	}
	return h.gesture(c, "edges_change", func(cv *canvas.Canvas) bool {
		cv.OnEdgesChange(changes)
		return len(changes) > 0
	})
}

// ── History ───────────────────────────────────────────────────────────

func (h *handlers) undo(c fiber.Ctx) error {
	return h.gesture(c, "undo", (*canvas.Canvas).Undo)
}

func (h *handlers) redo(c fiber.Ctx) error {
	return h.gesture(c, "redo", (*canvas.Canvas).Redo)
}

// ── Jobs ──────────────────────────────────────────────────────────────

type generateRequest struct {
	ProjectID string `json:"projectId"`
	Prompt    string `json:"prompt"`
}

// generate submits the canvas for code generation and returns the job id
// right away; progress is read from /jobs/:id.
func (h *handlers) generate(c fiber.Ctx) error {
	if h.tracker == nil {
		return ErrGenerationDisabled
	}
	var req generateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrBadRequest.WithInternal(err)
		}
	}

	key := c.Params("key")
	cv, err := h.ws.Get(c.Context(), key)
	if err != nil {
		return storeError(err)
	}
	spec := cv.Spec(h.now())
	if len(spec.Nodes) == 0 {
		return ErrEmptyCanvas
	}
	projectID, err := architex.ResolveProjectID(req.ProjectID, spec.Metadata.ProjectID)
	if err != nil {
		return ErrInvalidProjectID
	}
	spec.Metadata.ProjectID = projectID
	if req.Prompt != "" {
		spec.Prompt = req.Prompt
	}

	id, err := h.tracker.Start(c.Context(), spec)
	if err != nil {
		return ErrBackend.WithMessage(err.Error()).WithInternal(err)
	}
	h.log.Info("generation started",
		slog.String("key", key),
		slog.String("job_id", id),
		slog.String("project_id", projectID),
	)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": id})
}

func (h *handlers) job(c fiber.Ctx) error {
	if h.tracker == nil {
		return ErrGenerationDisabled
	}
	tr, ok := h.tracker.Get(c.Params("id"))
	if !ok {
		return ErrJobNotFound
	}
	return c.JSON(tr)
}
