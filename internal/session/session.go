// Package session implements the public facade described in spec §4.5: CRUD
// on items, edge add/remove, status transitions, and queries, all
// serialized through one mutex so that, from the caller's point of view,
// every operation is atomic with respect to every other operation on the
// same store.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neuraphage/engram/internal/compact"
	"github.com/neuraphage/engram/internal/graph"
	"github.com/neuraphage/engram/internal/idgen"
	"github.com/neuraphage/engram/internal/index"
	"github.com/neuraphage/engram/internal/lockfile"
	"github.com/neuraphage/engram/internal/store"
	"github.com/neuraphage/engram/internal/types"
	"github.com/neuraphage/engram/internal/validation"
)

// UpdateFields carries the optional fields Update may change; a nil pointer
// (or nil slice) leaves the corresponding item field untouched.
type UpdateFields struct {
	Title       *string
	Description *string
	Priority    *int
	Labels      []string // nil means "leave unchanged"; non-nil (incl. empty) replaces
}

// Handle is the operation surface a caller drives a store through, whether
// that's a direct Session or an RPC client forwarding to a daemon.
type Handle interface {
	Create(title string, priority int, labels []string, description string) (*types.Item, error)
	Get(id string) (*types.Item, error)
	Update(id string, fields UpdateFields) (*types.Item, error)
	SetStatus(id string, status types.Status) (*types.Item, error)
	CloseItem(id string, reason string) (*types.Item, error)
	Reopen(id string) (*types.Item, error)
	AddEdge(from, to string, kind types.EdgeKind) (*types.Edge, error)
	RemoveEdge(from, to string, kind types.EdgeKind) error
	List(filter types.ListFilter) ([]*types.Item, error)
	Ready() ([]*types.Item, error)
	Blocked() ([]*types.Item, error)
	Children(id string) ([]string, error)
	Parents(id string) ([]string, error)
	Blockers(id string) ([]string, error)
	BlockedBy(id string) ([]string, error)
	Compact(cfg types.CompactConfig) (compact.Result, error)
	Vacuum() error
	Shutdown() error
}

// Session owns exclusive access to one store directory for its lifetime.
type Session struct {
	mu    sync.Mutex
	dir   string
	lock  *lockfile.Lock
	store *store.Store
	idx   *index.Index
}

var _ Handle = (*Session)(nil)

// Init creates the store directory skeleton under dir if absent. It fails
// with ErrAlreadyInitialized if a store already exists there.
func Init(dir string) error {
	st, err := store.OpenForInit(dir)
	if err != nil {
		return err
	}
	return st.Close()
}

// Open acquires the directory lock, replays the log into a fresh index, and
// returns a session with exclusive ownership of dir. It fails with
// lockfile.ErrLocked (translated to types.ErrLocked) if another process
// already holds the lock.
func Open(dir string) (*Session, error) {
	lock, err := lockfile.Acquire(dir)
	if err != nil {
		if lockfile.IsLocked(err) {
			return nil, types.ErrLocked
		}
		return nil, fmt.Errorf("%w: %v", types.ErrIO, err)
	}

	st, err := store.Open(dir)
	if err != nil {
		lock.Release()
		return nil, err
	}

	idx := index.New()
	if _, err := store.Replay(dir, idx); err != nil {
		st.Close()
		lock.Release()
		return nil, err
	}

	return &Session{dir: dir, lock: lock, store: st, idx: idx}, nil
}

// Shutdown releases the directory lock and closes the underlying log files.
// It is the session lifecycle teardown, distinct from the item-level
// CloseItem operation.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Close()
	if lockErr := s.lock.Release(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

func (s *Session) now() time.Time {
	return time.Now().UTC()
}

// Create validates fields, allocates an id, appends an item record, and
// updates the index.
func (s *Session) Create(title string, priority int, labels []string, description string) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validation.Title(title); err != nil {
		return nil, err
	}
	if err := validation.Priority(priority); err != nil {
		return nil, err
	}
	if err := validation.Description(description); err != nil {
		return nil, err
	}
	normLabels, err := validation.NormalizeLabels(labels)
	if err != nil {
		return nil, err
	}

	created := s.now()
	id, created := idgen.Unique(title, created, s.idx.Exists)

	item := &types.Item{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      types.StatusOpen,
		Priority:    priority,
		Labels:      normLabels,
		CreatedAt:   created,
		UpdatedAt:   created,
	}

	if err := s.store.AppendItem(item); err != nil {
		return nil, err
	}
	s.idx.Put(item)
	return item.Clone(), nil
}

// Get returns the item with id, or (nil, nil) if absent.
func (s *Session) Get(id string) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Get(id), nil
}

func (s *Session) mustGet(id string) (*types.Item, error) {
	it := s.idx.Get(id)
	if it == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownItem, id)
	}
	return it, nil
}

// Update mutates the optional fields of id; mutation of closed items is
// allowed, per spec §4.5.
func (s *Session) Update(id string, fields UpdateFields) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}

	next := it.Clone()
	if fields.Title != nil {
		if err := validation.Title(*fields.Title); err != nil {
			return nil, err
		}
		next.Title = *fields.Title
	}
	if fields.Description != nil {
		if err := validation.Description(*fields.Description); err != nil {
			return nil, err
		}
		next.Description = *fields.Description
	}
	if fields.Priority != nil {
		if err := validation.Priority(*fields.Priority); err != nil {
			return nil, err
		}
		next.Priority = *fields.Priority
	}
	if fields.Labels != nil {
		normLabels, err := validation.NormalizeLabels(fields.Labels)
		if err != nil {
			return nil, err
		}
		next.Labels = normLabels
	}
	next.UpdatedAt = s.now()

	if err := s.store.AppendItem(next); err != nil {
		return nil, err
	}
	s.idx.Put(next)
	return next.Clone(), nil
}

// SetStatus enforces the §4.3 status transition table.
func (s *Session) SetStatus(id string, newStatus types.Status) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStatusLocked(id, newStatus, "")
}

func (s *Session) setStatusLocked(id string, newStatus types.Status, reason string) (*types.Item, error) {
	it, err := s.mustGet(id)
	if err != nil {
		return nil, err
	}
	if err := graph.ValidateTransition(it.Status, newStatus); err != nil {
		return nil, err
	}

	next := it.Clone()
	next.Status = newStatus
	next.UpdatedAt = s.now()
	if newStatus == types.StatusClosed {
		closedAt := next.UpdatedAt
		next.ClosedAt = &closedAt
		next.CloseReason = reason
	} else {
		next.ClosedAt = nil
		next.CloseReason = ""
	}

	if err := s.store.AppendItem(next); err != nil {
		return nil, err
	}
	s.idx.Put(next)
	return next.Clone(), nil
}

// CloseItem is equivalent to SetStatus(id, Closed) plus recording reason.
func (s *Session) CloseItem(id string, reason string) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStatusLocked(id, types.StatusClosed, reason)
}

// Reopen is equivalent to SetStatus(id, Open); clears closed_at/close_reason.
func (s *Session) Reopen(id string) (*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStatusLocked(id, types.StatusOpen, "")
}

// AddEdge is idempotent; triggers a cycle check for Blocks edges.
func (s *Session) AddEdge(from, to string, kind types.EdgeKind) (*types.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := graph.ValidateEdgeEndpoints(from, to, kind); err != nil {
		return nil, err
	}
	if _, err := s.mustGet(from); err != nil {
		return nil, err
	}
	if _, err := s.mustGet(to); err != nil {
		return nil, err
	}

	if existing := s.idx.LiveEdge(from, to, kind); existing != nil {
		return existing, nil
	}

	if kind == types.EdgeBlocks {
		if err := graph.CheckCycle(s.idx.ReachableBlocks, from, to); err != nil {
			return nil, err
		}
	}

	edge := &types.Edge{From: from, To: to, Kind: kind, CreatedAt: s.now()}
	if err := s.store.AppendEdge(edge); err != nil {
		return nil, err
	}
	s.idx.PutEdge(edge)
	cp := *edge
	return &cp, nil
}

// RemoveEdge tombstones a live edge; a no-op if the edge is already absent
// or already tombstoned.
func (s *Session) RemoveEdge(from, to string, kind types.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx.LiveEdge(from, to, kind) == nil {
		return nil
	}

	edge := &types.Edge{From: from, To: to, Kind: kind, CreatedAt: s.now(), Deleted: true}
	if err := s.store.AppendEdge(edge); err != nil {
		return err
	}
	s.idx.PutEdge(edge)
	return nil
}

// List returns items matching filter.
func (s *Session) List(filter types.ListFilter) ([]*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.List(filter), nil
}

// Ready returns the ready set.
func (s *Session) Ready() ([]*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Ready(), nil
}

// Blocked returns the blocked set.
func (s *Session) Blocked() ([]*types.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx.Blocked(), nil
}

func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// Children enumerates items for which id is the Child-edge target's parent.
func (s *Session) Children(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopy(s.idx.Children(id)), nil
}

// Parents enumerates the parents of id via live Child edges.
func (s *Session) Parents(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopy(s.idx.Parents(id)), nil
}

// Blockers enumerates items that directly block id.
func (s *Session) Blockers(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopy(s.idx.Blockers(id)), nil
}

// BlockedBy enumerates items that id directly blocks.
func (s *Session) BlockedBy(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopy(s.idx.BlockedBy(id)), nil
}

// Compact runs the maintenance compaction operation (§4.6) and atomically
// rotates the logs.
func (s *Session) Compact(cfg types.CompactConfig) (compact.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return compact.Run(s.store, s.idx, cfg, s.now())
}

// Vacuum is a no-op performance hook in this implementation: the index has
// no auxiliary on-disk file to reclaim space in, but the
// operation is exposed so callers exercise the same surface a backed
// implementation would.
func (s *Session) Vacuum() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nil
}

// Dir returns the store's root directory.
func (s *Session) Dir() string { return s.dir }
