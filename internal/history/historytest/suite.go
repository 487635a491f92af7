// Package historytest holds the behaviour every history.Backend must share.
package historytest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
)

// Factory returns an empty backend. Cleanup is registered on t.
type Factory func(t *testing.T) history.Backend

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// TextEntry builds a valid text row copied at base+offset seconds.
func TextEntry(content string, offset int) *domain.Entry {
	return &domain.Entry{
		Content:     content,
		ContentType: domain.TypeText,
		Preview:     content,
		ContentHash: fmt.Sprintf("hash-%s", content),
		CopiedAt:    base.Add(time.Duration(offset) * time.Second),
	}
}

// Run exercises newBackend against the shared contract.
func Run(t *testing.T, newBackend Factory) {
	t.Helper()

	t.Run("InsertAssignsIDs", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		a, err := b.Insert(ctx, TextEntry("a", 0))
		require.NoError(t, err)
		c, err := b.Insert(ctx, TextEntry("c", 1))
		require.NoError(t, err)

		assert.NotZero(t, a.ID)
		assert.Greater(t, c.ID, a.ID)

		got, err := b.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Content)
		assert.Equal(t, domain.TypeText, got.ContentType)
		assert.True(t, got.CopiedAt.Equal(base), "copied_at round trip: %s", got.CopiedAt)

		_, err = b.Get(ctx, 9999)
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("RoundTripsAllFields", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		in := &domain.Entry{
			Content:     "/data/images/clip_1.png",
			ContentType: domain.TypeImage,
			Preview:     "Image (10x20)",
			ImagePath:   "/data/images/clip_1.png",
			ContentHash: "abc",
			CopiedAt:    base.Add(1500 * time.Microsecond),
		}
		stored, err := b.Insert(ctx, in)
		require.NoError(t, err)

		got, err := b.Get(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Content, got.Content)
		assert.Equal(t, in.ContentType, got.ContentType)
		assert.Equal(t, in.Preview, got.Preview)
		assert.Equal(t, in.ImagePath, got.ImagePath)
		assert.Equal(t, in.ContentHash, got.ContentHash)
		assert.True(t, in.CopiedAt.Equal(got.CopiedAt), "want %s got %s", in.CopiedAt, got.CopiedAt)
		assert.False(t, got.IsPinned)
	})

	t.Run("ListOrdersPinnedThenRecent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		old, _ := b.Insert(ctx, TextEntry("old", 0))
		_, _ = b.Insert(ctx, TextEntry("mid", 1))
		_, _ = b.Insert(ctx, TextEntry("new", 2))

		pinned, err := b.TogglePin(ctx, old.ID)
		require.NoError(t, err)
		require.True(t, pinned)

		list, err := b.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "new", "mid"}, contents(list))

		limited, err := b.List(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"old", "new"}, contents(limited))
	})

	t.Run("FindByHash", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		stored, _ := b.Insert(ctx, TextEntry("x", 0))

		got, err := b.FindByHash(ctx, "hash-x")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)

		_, err = b.FindByHash(ctx, "missing")
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("TouchReorders", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		first, _ := b.Insert(ctx, TextEntry("first", 0))
		_, _ = b.Insert(ctx, TextEntry("second", 1))

		require.NoError(t, b.Touch(ctx, first.ID, base.Add(10*time.Second)))

		list, err := b.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, contents(list))
		assert.Equal(t, first.ID, list[0].ID)

		assert.ErrorIs(t, b.Touch(ctx, 9999, base), history.ErrNotFound)
	})

	t.Run("TogglePinTwice", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		e, _ := b.Insert(ctx, TextEntry("p", 0))

		on, err := b.TogglePin(ctx, e.ID)
		require.NoError(t, err)
		off, err := b.TogglePin(ctx, e.ID)
		require.NoError(t, err)

		assert.True(t, on)
		assert.False(t, off)

		_, err = b.TogglePin(ctx, 9999)
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("DeleteReturnsRow", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		e, _ := b.Insert(ctx, TextEntry("gone", 0))

		removed, err := b.Delete(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "gone", removed.Content)

		_, err = b.FindByHash(ctx, "hash-gone")
		assert.ErrorIs(t, err, history.ErrNotFound)

		_, err = b.Delete(ctx, e.ID)
		assert.ErrorIs(t, err, history.ErrNotFound)
	})

	t.Run("DeleteUnpinnedSparesPins", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		keep, _ := b.Insert(ctx, TextEntry("keep", 0))
		_, _ = b.Insert(ctx, TextEntry("a", 1))
		_, _ = b.Insert(ctx, TextEntry("b", 2))
		_, _ = b.TogglePin(ctx, keep.ID)

		removed, err := b.DeleteUnpinned(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, contents(removed))

		n, err := b.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("DeleteUnpinnedBeyond", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		pin, _ := b.Insert(ctx, TextEntry("pin", 0))
		_, _ = b.TogglePin(ctx, pin.ID)
		for i := 1; i <= 5; i++ {
			_, err := b.Insert(ctx, TextEntry(fmt.Sprintf("e%d", i), i))
			require.NoError(t, err)
		}

		removed, err := b.DeleteUnpinnedBeyond(ctx, 2)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"e1", "e2", "e3"}, contents(removed))

		list, err := b.List(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"pin", "e5", "e4"}, contents(list))

		removed, err = b.DeleteUnpinnedBeyond(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, removed)
	})
}

func contents(entries []*domain.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}
