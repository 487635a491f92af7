// Package redis is the networked history backend.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
)

// Store handles Redis operations for history entries
type Store struct {
	client *redis.Client
	keys   Keys
}

// NewStore creates a new Redis store under prefix
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{
		client: client,
		keys:   NewKeys(prefix),
	}
}

func score(t time.Time) float64 {
	return float64(t.UTC().UnixMicro())
}

// Insert stores an entry under the next sequence id
func (s *Store) Insert(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	id, err := s.client.Incr(ctx, s.keys.Seq()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate entry id: %w", err)
	}

	row := e.Clone()
	row.ID = id
	row.CopiedAt = row.CopiedAt.UTC()

	if err := s.save(ctx, row, true); err != nil {
		return nil, err
	}
	return row, nil
}

// save writes the entry document and its indexes in one transaction.
func (s *Store) save(ctx context.Context, e *domain.Entry, indexHash bool) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.Entry(e.ID), data, 0)
		pipe.ZAdd(ctx, s.keys.Recent(), redis.Z{Score: score(e.CopiedAt), Member: e.ID})
		if indexHash && e.ContentHash != "" {
			pipe.Set(ctx, s.keys.Hash(e.ContentHash), e.ID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save entry %d: %w", e.ID, err)
	}
	return nil
}

// Get retrieves an entry by ID
func (s *Store) Get(ctx context.Context, id int64) (*domain.Entry, error) {
	data, err := s.client.Get(ctx, s.keys.Entry(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, history.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var e domain.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}

// List returns entries in history order
func (s *Store) List(ctx context.Context, limit int) ([]*domain.Entry, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	history.SortRecent(all)
	return history.Truncate(all, limit), nil
}

// all loads every indexed entry, skipping ids whose document is gone.
func (s *Store) all(ctx context.Context) ([]*domain.Entry, error) {
	ids, err := s.client.ZRevRange(ctx, s.keys.Recent(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entry ids: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Entry{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, s.keys.Entry(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	entries := make([]*domain.Entry, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// Skip entries that couldn't be retrieved
			continue
		}
		var e domain.Entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// FindByHash retrieves the entry holding a content hash
func (s *Store) FindByHash(ctx context.Context, hash string) (*domain.Entry, error) {
	id, err := s.client.Get(ctx, s.keys.Hash(hash)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, history.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up hash: %w", err)
	}
	return s.Get(ctx, id)
}

// Touch refreshes CopiedAt and the recency score
func (s *Store) Touch(ctx context.Context, id int64, at time.Time) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.CopiedAt = at.UTC()
	return s.save(ctx, e, false)
}

// TogglePin flips IsPinned and returns the new value
func (s *Store) TogglePin(ctx context.Context, id int64) (bool, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	e.IsPinned = !e.IsPinned
	if err := s.save(ctx, e, false); err != nil {
		return false, err
	}
	return e.IsPinned, nil
}

// Delete removes an entry and returns it
func (s *Store) Delete(ctx context.Context, id int64) (*domain.Entry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.remove(ctx, []*domain.Entry{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteUnpinned removes every unpinned entry
func (s *Store) DeleteUnpinned(ctx context.Context) ([]*domain.Entry, error) {
	return s.DeleteUnpinnedBeyond(ctx, 0)
}

// DeleteUnpinnedBeyond keeps the keep most recent unpinned entries
func (s *Store) DeleteUnpinnedBeyond(ctx context.Context, keep int) ([]*domain.Entry, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	history.SortRecent(all)

	var victims []*domain.Entry
	kept := 0
	for _, e := range all {
		if e.IsPinned {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		victims = append(victims, e)
	}

	if err := s.remove(ctx, victims); err != nil {
		return nil, err
	}
	return victims, nil
}

// remove deletes documents, recency members and hash pointers that still
// point at the removed rows.
func (s *Store) remove(ctx context.Context, entries []*domain.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	owners := make(map[string]*redis.StringCmd, len(entries))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			if e.ContentHash != "" {
				owners[e.ContentHash] = pipe.Get(ctx, s.keys.Hash(e.ContentHash))
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read hash owners: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Del(ctx, s.keys.Entry(e.ID))
			pipe.ZRem(ctx, s.keys.Recent(), e.ID)
			if cmd, ok := owners[e.ContentHash]; ok {
				if owner, err := cmd.Int64(); err == nil && owner == e.ID {
					pipe.Del(ctx, s.keys.Hash(e.ContentHash))
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete entries: %w", err)
	}
	return nil
}

// Count returns the number of indexed entries
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.keys.Recent()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(n), nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

var _ history.Backend = (*Store)(nil)
