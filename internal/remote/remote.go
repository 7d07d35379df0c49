// Package remote is the typed boundary between client surfaces and the
// backend that persists references.
package remote

import (
	"context"
	"errors"

	"github.com/itsbohara/anchor/internal/models"
)

// Operation names used in OpError.
const (
	OpLoad       = "load references"
	OpCreate     = "add reference"
	OpUpdate     = "update reference"
	OpDelete     = "delete reference"
	OpPathExists = "check path"
	OpAction     = "run action"
)

// Store is the backend command surface the cache depends on. Each call is a
// single round trip; there is no retry.
type Store interface {
	Load(ctx context.Context) ([]models.Reference, error)
	Create(ctx context.Context, d models.Draft) (models.Reference, error)
	Update(ctx context.Context, id string, d models.Draft) (models.Reference, error)
	Delete(ctx context.Context, id string) error
	PathExists(ctx context.Context, path string) (bool, error)
}

// Runner executes the fire-and-forget OS integration commands
// (open_in_finder, open_in_terminal, open_in_vscode, reveal_in_finder,
// copy_path_to_clipboard).
type Runner interface {
	Run(ctx context.Context, command, path string) error
}

// OpError is a failed backend call. Message carries the backend's own
// text when it supplied one.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Failed to " + e.Op
}

func (e *OpError) Unwrap() error { return e.Err }

// Message returns the human-readable text of err, preferring the backend
// message of an OpError.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var op *OpError
	if errors.As(err, &op) {
		return op.Error()
	}
	return err.Error()
}
