package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
)

// Backend provides in-memory storage for history entries.
// Used for tests and when the daemon runs with CLIPFLOW_STORE=memory.
type Backend struct {
	mu      sync.RWMutex
	entries map[int64]*domain.Entry // ID -> Entry
	hashes  map[string]int64        // ContentHash -> ID
	nextID  int64
}

// New creates an empty backend
func New() *Backend {
	return &Backend{
		entries: make(map[int64]*domain.Entry),
		hashes:  make(map[string]int64),
	}
}

// Insert stores a copy of e under a fresh ID
func (b *Backend) Insert(_ context.Context, e *domain.Entry) (*domain.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	row := e.Clone()
	row.ID = b.nextID
	b.entries[row.ID] = row
	if row.ContentHash != "" {
		b.hashes[row.ContentHash] = row.ID
	}
	return row.Clone(), nil
}

// Get retrieves an entry by ID
func (b *Backend) Get(_ context.Context, id int64) (*domain.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return e.Clone(), nil
}

// List returns entries in history order
func (b *Backend) List(_ context.Context, limit int) ([]*domain.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return history.Truncate(b.sorted(), limit), nil
}

// FindByHash retrieves an entry by content hash
func (b *Backend) FindByHash(_ context.Context, hash string) (*domain.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	id, ok := b.hashes[hash]
	if !ok {
		return nil, history.ErrNotFound
	}
	return b.entries[id].Clone(), nil
}

// Touch sets CopiedAt
func (b *Backend) Touch(_ context.Context, id int64, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return history.ErrNotFound
	}
	e.CopiedAt = at
	return nil
}

// TogglePin flips IsPinned and returns the new value
func (b *Backend) TogglePin(_ context.Context, id int64) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return false, history.ErrNotFound
	}
	e.IsPinned = !e.IsPinned
	return e.IsPinned, nil
}

// Delete removes an entry and returns it
func (b *Backend) Delete(_ context.Context, id int64) (*domain.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	b.remove(e)
	return e, nil
}

// DeleteUnpinned removes every unpinned entry
func (b *Backend) DeleteUnpinned(_ context.Context) ([]*domain.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []*domain.Entry
	for _, e := range b.entries {
		if !e.IsPinned {
			removed = append(removed, e)
		}
	}
	for _, e := range removed {
		b.remove(e)
	}
	return removed, nil
}

// DeleteUnpinnedBeyond keeps the keep most recent unpinned entries
func (b *Backend) DeleteUnpinnedBeyond(_ context.Context, keep int) ([]*domain.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var removed []*domain.Entry
	kept := 0
	for _, e := range b.sortedLocked() {
		if e.IsPinned {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		removed = append(removed, e)
	}
	for _, e := range removed {
		b.remove(e)
	}
	return removed, nil
}

// Count returns the number of entries
func (b *Backend) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries), nil
}

// Close is a no-op
func (b *Backend) Close() error { return nil }

// sorted returns clones in history order. Caller holds at least a read lock.
func (b *Backend) sorted() []*domain.Entry {
	out := make([]*domain.Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.Clone())
	}
	history.SortRecent(out)
	return out
}

// sortedLocked returns the stored pointers in history order.
func (b *Backend) sortedLocked() []*domain.Entry {
	out := make([]*domain.Entry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	history.SortRecent(out)
	return out
}

func (b *Backend) remove(e *domain.Entry) {
	delete(b.entries, e.ID)
	if id, ok := b.hashes[e.ContentHash]; ok && id == e.ID {
		delete(b.hashes, e.ContentHash)
	}
}

var _ history.Backend = (*Backend)(nil)
