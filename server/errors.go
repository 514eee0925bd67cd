package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/meikuraledutech/architex/logger"
)

// Error is an API error rendered as {"error": {"code", "message"}}.
type Error struct {
	Status   int
	Code     string
	Message  string
	Internal error
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// WithInternal returns a copy of e carrying the underlying cause.
func (e *Error) WithInternal(err error) *Error {
	return &Error{Status: e.Status, Code: e.Code, Message: e.Message, Internal: err}
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Status: e.Status, Code: e.Code, Message: msg, Internal: e.Internal}
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

var (
	ErrBadRequest         = newError(http.StatusBadRequest, "bad_request", "invalid request body")
	ErrInvalidKey         = newError(http.StatusBadRequest, "invalid_key", "invalid workspace key")
	ErrNodeNotFound       = newError(http.StatusNotFound, "not_found", "node not found")
	ErrJobNotFound        = newError(http.StatusNotFound, "not_found", "job not found")
	ErrNodeExists         = newError(http.StatusConflict, "conflict", "node id already exists")
	ErrInvalidProjectID   = newError(http.StatusUnprocessableEntity, "invalid_project_id", "a valid project id is required")
	ErrEmptyCanvas        = newError(http.StatusUnprocessableEntity, "empty_canvas", "add at least one component before generating")
	ErrBackend            = newError(http.StatusBadGateway, "backend_error", "the generation backend rejected the request")
	ErrGenerationDisabled = newError(http.StatusServiceUnavailable, "unavailable", "code generation is not configured")
	ErrInternal           = newError(http.StatusInternalServerError, "internal_error", "an internal error occurred")
)

// errorHandler renders every error returned by a handler.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		body := fiber.Map{"code": ErrInternal.Code, "message": ErrInternal.Message}

		var appErr *Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.Status
			body["code"] = appErr.Code
			body["message"] = appErr.Message
		case errors.As(err, &fe):
			status = fe.Code
			body["code"] = codeForStatus(fe.Code)
			body["message"] = fe.Message
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				logger.Error(err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": body})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_error"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if status >= http.StatusInternalServerError {
		return "internal_error"
	}
	return "error"
}
