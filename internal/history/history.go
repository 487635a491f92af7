// Package history is the deduplicated, size-bounded clipboard history.
//
// Store holds the rules (timestamps, pin-exempt eviction, releasing image
// files) and delegates persistence to a Backend. Backends live under
// internal/store.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// ErrNotFound is returned when no entry has the requested id or hash.
var ErrNotFound = errors.New("history: entry not found")

// Backend persists entries. Every method is a single unit of work.
//
// List orders pinned entries first, then by CopiedAt descending, then by ID
// descending. A limit <= 0 means no limit.
type Backend interface {
	Insert(ctx context.Context, e *domain.Entry) (*domain.Entry, error)
	Get(ctx context.Context, id int64) (*domain.Entry, error)
	List(ctx context.Context, limit int) ([]*domain.Entry, error)
	FindByHash(ctx context.Context, hash string) (*domain.Entry, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	TogglePin(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (*domain.Entry, error)
	DeleteUnpinned(ctx context.Context) ([]*domain.Entry, error)
	DeleteUnpinnedBeyond(ctx context.Context, keep int) ([]*domain.Entry, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// ImageDeleter releases the archived file behind an Image entry.
type ImageDeleter interface {
	Delete(path string)
}

// Store is the history used by the pipeline and the control API.
type Store struct {
	backend Backend
	images  ImageDeleter
	log     logger.Logger

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time
}

// New wraps backend. images may be nil when no image files are managed.
func New(backend Backend, images ImageDeleter, log logger.Logger) *Store {
	return &Store{
		backend: backend,
		images:  images,
		log:     log,
		now:     time.Now,
	}
}

// stamp returns a UTC microsecond timestamp strictly after the previous one,
// so recency order is total even for copies within the same tick.
func (s *Store) stamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := s.now().UTC().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Add stamps e with the current time and persists it.
func (s *Store) Add(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entry", domain.ErrInvalidEntry)
	}

	row := e.Clone()
	row.ID = 0
	row.CopiedAt = s.stamp()
	if err := row.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.backend.Insert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return stored, nil
}

// GetRecent returns up to limit entries, pinned first, most recent first.
func (s *Store) GetRecent(ctx context.Context, limit int) ([]*domain.Entry, error) {
	return s.backend.List(ctx, limit)
}

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Entry, error) {
	return s.backend.Get(ctx, id)
}

// FindByHash returns the entry with the given content hash, or nil.
func (s *Store) FindByHash(ctx context.Context, hash string) (*domain.Entry, error) {
	e, err := s.backend.FindByHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// MoveToTop refreshes the entry's CopiedAt without touching its content.
func (s *Store) MoveToTop(ctx context.Context, id int64) error {
	return s.backend.Touch(ctx, id, s.stamp())
}

// TogglePin flips the pin flag and returns the new value.
func (s *Store) TogglePin(ctx context.Context, id int64) (bool, error) {
	return s.backend.TogglePin(ctx, id)
}

// Delete removes one entry and its image file, if any.
func (s *Store) Delete(ctx context.Context, id int64) error {
	e, err := s.backend.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.release(e)
	return nil
}

// ClearAll removes every unpinned entry and returns how many were removed.
func (s *Store) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.backend.DeleteUnpinned(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range removed {
		s.release(e)
	}
	return len(removed), nil
}

// EnforceLimit keeps the limit most recent unpinned entries and removes the
// rest. Pinned entries are not counted.
func (s *Store) EnforceLimit(ctx context.Context, limit int) (int, error) {
	if limit < 0 {
		limit = 0
	}

	removed, err := s.backend.DeleteUnpinnedBeyond(ctx, limit)
	if err != nil {
		return 0, err
	}
	for _, e := range removed {
		s.release(e)
	}
	if len(removed) > 0 {
		s.log.Debug("history limit enforced",
			logger.Int("limit", limit),
			logger.Int("evicted", len(removed)),
		)
	}
	return len(removed), nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.backend.Count(ctx)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) release(e *domain.Entry) {
	if e == nil || !e.IsImage() || s.images == nil {
		return
	}
	s.images.Delete(e.ImagePath)
}

// ─────────────────────────────────────────────────────────────────
// Ordering helpers shared by backends that sort in Go
// ─────────────────────────────────────────────────────────────────

// Less reports whether a sorts before b in history order.
func Less(a, b *domain.Entry) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	if !a.CopiedAt.Equal(b.CopiedAt) {
		return a.CopiedAt.After(b.CopiedAt)
	}
	return a.ID > b.ID
}

// SortRecent sorts entries in place in history order.
func SortRecent(entries []*domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
}

// Truncate applies the List limit convention.
func Truncate(entries []*domain.Entry, limit int) []*domain.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
