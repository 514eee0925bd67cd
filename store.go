package architex

import (
	"context"
	"errors"
)

// DefaultStateKey is the key the canvas state is stored under when the
// caller does not name a workspace.
const DefaultStateKey = "architex-canvas"

var (
	ErrStateNotFound    = errors.New("architex: canvas state not found")
	ErrInvalidProjectID = errors.New("architex: invalid project id")
)

// StateStore persists canvas state across restarts.
type StateStore interface {
	// Load returns ErrStateNotFound when nothing is stored under key.
	Load(ctx context.Context, key string) (*State, error)
	// Save replaces whatever is stored under key.
	Save(ctx context.Context, key string, s *State) error
	// Delete is a no-op for unknown keys.
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
