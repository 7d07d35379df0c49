// Package cache holds the client's in-memory copy of the reference set and
// reconciles backend results into it.
//
// A Store is constructed once by the host and passed to every surface that
// reads or mutates references. Mutations go through Load, Add, Update and
// Delete only; readers take a Snapshot.
package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/remote"
)

// Snapshot is an immutable view of the cache. Error is empty when the last
// operation succeeded.
type Snapshot struct {
	References []models.Reference
	IsLoading  bool
	Error      string
}

// Store is the reference cache.
type Store struct {
	remote remote.Store
	logger *slog.Logger

	mu       sync.Mutex
	refs     []models.Reference
	inFlight int
	err      string

	seq       uint64            // issue counter for mutations
	applied   map[string]uint64 // newest applied sequence per id, kept after delete
	mutations uint64            // count of mutations applied to refs
}

// New creates an empty cache backed by rs.
func New(rs remote.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote:  rs,
		logger:  logger,
		refs:    []models.Reference{},
		applied: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]models.Reference, len(s.refs))
	for i, r := range s.refs {
		refs[i] = r.Clone()
	}
	return Snapshot{References: refs, IsLoading: s.inFlight > 0, Error: s.err}
}

// Load replaces the reference set with the backend's. On failure the
// previous set is kept and Error is set. A load that was issued before a
// mutation that has since been applied does not overwrite the cache.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.begin()
	issuedAt := s.mutations
	s.mu.Unlock()

	refs, err := s.remote.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.fail(remote.OpLoad, err)
		return err
	}
	if s.mutations != issuedAt {
		s.logger.Debug("cache: superseded load discarded")
		return nil
	}
	s.refs = make([]models.Reference, len(refs))
	for i, r := range refs {
		s.refs[i] = r.Clone()
	}
	return nil
}

// Add creates a reference and appends the backend's canonical copy. Nothing
// is inserted before the round trip succeeds.
func (s *Store) Add(ctx context.Context, d models.Draft) (models.Reference, error) {
	s.mu.Lock()
	s.begin()
	seq := s.next()
	s.mu.Unlock()

	ref, err := s.remote.Create(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.fail(remote.OpCreate, err)
		return models.Reference{}, err
	}
	s.applied[ref.ID] = seq
	if i := s.indexOf(ref.ID); i >= 0 {
		s.refs[i] = ref.Clone()
	} else {
		s.refs = append(s.refs, ref.Clone())
	}
	s.mutations++
	return ref, nil
}

// Update replaces reference id in place with the backend's result. A result
// older than one already applied for the same id is returned to the caller
// but not applied.
func (s *Store) Update(ctx context.Context, id string, d models.Draft) (models.Reference, error) {
	s.mu.Lock()
	s.begin()
	seq := s.next()
	s.mu.Unlock()

	ref, err := s.remote.Update(ctx, id, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.fail(remote.OpUpdate, err)
		return models.Reference{}, err
	}
	if s.stale(id, seq) {
		s.logger.Debug("cache: stale update discarded", slog.String("id", id))
		return ref, nil
	}
	s.applied[id] = seq
	if i := s.indexOf(id); i >= 0 {
		s.refs[i] = ref.Clone()
		s.mutations++
	}
	return ref, nil
}

// Delete removes reference id after the backend confirms, even when an
// update issued later has already landed.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.begin()
	seq := s.next()
	s.mu.Unlock()

	err := s.remote.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.fail(remote.OpDelete, err)
		return err
	}
	// A confirmed delete always applies; the tombstone keeps the newest
	// sequence so late updates stay blocked.
	s.applied[id] = max(s.applied[id], seq)
	if i := s.indexOf(id); i >= 0 {
		s.refs = append(s.refs[:i:i], s.refs[i+1:]...)
		s.mutations++
	}
	return nil
}

// begin must be called with mu held.
func (s *Store) begin() {
	s.inFlight++
	s.err = ""
}

func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) stale(id string, seq uint64) bool {
	last, ok := s.applied[id]
	return ok && last > seq
}

func (s *Store) fail(op string, err error) {
	s.err = remote.Message(err)
	s.logger.Warn("cache: "+op+" failed", slog.String("error", err.Error()))
}

func (s *Store) indexOf(id string) int {
	for i := range s.refs {
		if s.refs[i].ID == id {
			return i
		}
	}
	return -1
}
