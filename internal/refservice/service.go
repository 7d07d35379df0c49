// Package refservice owns the canonical reference set: it assigns ids and
// timestamps, persists every mutation and reports changes.
package refservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsbohara/anchor/internal/apperr"
	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/storage"
)

// Change kinds passed to the OnChange callback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
	ChangeOpened  = "opened"
)

// ChangeFunc is called after a mutation has been persisted.
type ChangeFunc func(kind, id string)

// Service coordinates validation and storage for references.
type Service struct {
	store storage.Provider
	now   func() time.Time

	mu       sync.Mutex
	onChange ChangeFunc
}

// NewService creates a new reference service.
func NewService(store storage.Provider) *Service {
	return &Service{store: store, now: time.Now}
}

// OnChange registers the change callback. Passing nil removes it.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// List returns all references in persisted order.
func (s *Service) List(_ context.Context) ([]models.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Get returns the reference with id.
func (s *Service) Get(_ context.Context, id string) (*models.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(refs, id); i >= 0 {
		r := refs[i]
		return &r, nil
	}
	return nil, fmt.Errorf("reference %s: %w", id, apperr.ErrNotFound)
}

// Add validates the payload, assigns id and timestamps, and appends the new
// reference.
func (s *Service) Add(_ context.Context, p models.Payload) (*models.Reference, error) {
	d, err := validDraft(p)
	if err != nil {
		return nil, err
	}
	ts := s.timestamp()
	ref := models.Reference{
		ID:            uuid.New().String(),
		ReferenceName: d.ReferenceName,
		AbsolutePath:  d.AbsolutePath,
		Type:          d.Type,
		Status:        d.Status,
		Tags:          d.Tags,
		Description:   d.Description,
		CreatedAt:     ts,
		LastOpenedAt:  ts,
		Pinned:        d.Pinned,
	}

	s.mu.Lock()
	refs, err := s.store.Load()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if indexOf(refs, ref.ID) >= 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("reference %s: %w", ref.ID, apperr.ErrAlreadyExists)
	}
	if err := s.store.Save(append(refs, ref)); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cb := s.onChange
	s.mu.Unlock()

	notify(cb, ChangeCreated, ref.ID)
	return &ref, nil
}

// Update replaces the editable fields of an existing reference, keeping its
// id, createdAt and lastOpenedAt.
func (s *Service) Update(_ context.Context, id string, p models.Payload) (*models.Reference, error) {
	d, err := validDraft(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	refs, err := s.store.Load()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	i := indexOf(refs, id)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("reference %s: %w", id, apperr.ErrNotFound)
	}
	cur := refs[i]
	cur.ReferenceName = d.ReferenceName
	cur.AbsolutePath = d.AbsolutePath
	cur.Type = d.Type
	cur.Status = d.Status
	cur.Tags = d.Tags
	cur.Description = d.Description
	cur.Pinned = d.Pinned
	refs[i] = cur
	if err := s.store.Save(refs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cb := s.onChange
	s.mu.Unlock()

	notify(cb, ChangeUpdated, id)
	return &cur, nil
}

// Delete removes the reference with id. Unknown ids are an error.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	refs, err := s.store.Load()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	i := indexOf(refs, id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("reference %s: %w", id, apperr.ErrNotFound)
	}
	refs = append(refs[:i], refs[i+1:]...)
	if err := s.store.Save(refs); err != nil {
		s.mu.Unlock()
		return err
	}
	cb := s.onChange
	s.mu.Unlock()

	notify(cb, ChangeDeleted, id)
	return nil
}

// Touch stamps lastOpenedAt on every reference pointing at path and reports
// how many were updated.
func (s *Service) Touch(_ context.Context, path string) (int, error) {
	s.mu.Lock()
	refs, err := s.store.Load()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	ts := s.timestamp()
	var touched []string
	for i := range refs {
		if refs[i].AbsolutePath == path {
			refs[i].LastOpenedAt = ts
			touched = append(touched, refs[i].ID)
		}
	}
	if len(touched) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	if err := s.store.Save(refs); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	cb := s.onChange
	s.mu.Unlock()

	for _, id := range touched {
		notify(cb, ChangeOpened, id)
	}
	return len(touched), nil
}

// PathExists reports whether path exists on this machine.
func (s *Service) PathExists(_ context.Context, path string) (bool, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func validDraft(p models.Payload) (models.Draft, error) {
	d := p.Draft().Normalize()
	if res := models.ValidateForSave(d); !res.Valid {
		return models.Draft{}, fmt.Errorf("%s: %w", res.Error(), apperr.ErrInvalid)
	}
	return d, nil
}

func indexOf(refs []models.Reference, id string) int {
	for i := range refs {
		if refs[i].ID == id {
			return i
		}
	}
	return -1
}

func notify(cb ChangeFunc, kind, id string) {
	if cb != nil {
		cb(kind, id)
	}
}
