package redis

import (
	"context"
	"fmt"
)

// Flush removes every key under the store's prefix, pinned entries included.
// Used by tests to drop a throwaway prefix.
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keys.Pattern(), 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	return nil
}
