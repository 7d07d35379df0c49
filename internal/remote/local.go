package remote

import (
	"context"
	"errors"
	"strings"

	"github.com/itsbohara/anchor/internal/apperr"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/shell"
)

// Actions runs an OS integration command for a path.
type Actions interface {
	Do(command, path string) error
}

var (
	_ Store  = (*Local)(nil)
	_ Runner = (*Local)(nil)
	_ Store  = (*Client)(nil)
	_ Runner = (*Client)(nil)
)

// Local satisfies Store and Runner by calling the backend service in
// process. Errors are shaped the same way Client shapes HTTP failures.
type Local struct {
	svc     *refservice.Service
	actions Actions
}

// NewLocal wraps svc. actions may be nil, in which case Run fails.
func NewLocal(svc *refservice.Service, actions Actions) *Local {
	return &Local{svc: svc, actions: actions}
}

func (l *Local) Load(ctx context.Context) ([]models.Reference, error) {
	refs, err := l.svc.List(ctx)
	if err != nil {
		return nil, wrap(OpLoad, err)
	}
	return refs, nil
}

func (l *Local) Create(ctx context.Context, d models.Draft) (models.Reference, error) {
	ref, err := l.svc.Add(ctx, models.ToPayload("", d))
	if err != nil {
		return models.Reference{}, wrap(OpCreate, err)
	}
	return *ref, nil
}

func (l *Local) Update(ctx context.Context, id string, d models.Draft) (models.Reference, error) {
	ref, err := l.svc.Update(ctx, id, models.ToPayload(id, d))
	if err != nil {
		return models.Reference{}, wrap(OpUpdate, err)
	}
	return *ref, nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	if err := l.svc.Delete(ctx, id); err != nil {
		return wrap(OpDelete, err)
	}
	return nil
}

func (l *Local) PathExists(ctx context.Context, path string) (bool, error) {
	ok, err := l.svc.PathExists(ctx, path)
	if err != nil {
		return false, wrap(OpPathExists, err)
	}
	return ok, nil
}

// Run performs command and, for the open commands, stamps lastOpenedAt.
func (l *Local) Run(ctx context.Context, command, path string) error {
	if l.actions == nil {
		return &OpError{Op: OpAction, Message: "actions are not available"}
	}
	if err := l.actions.Do(command, path); err != nil {
		return wrap(OpAction, err)
	}
	if command != shell.CopyPath {
		if _, err := l.svc.Touch(ctx, path); err != nil {
			return wrap(OpAction, err)
		}
	}
	return nil
}

func wrap(op string, err error) error {
	e := &OpError{Op: op, Err: err}
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		e.Message = strings.TrimSuffix(err.Error(), ": "+apperr.ErrInvalid.Error())
	case errors.Is(err, apperr.ErrNotFound):
		e.Message = "Reference not found"
	}
	return e
}
