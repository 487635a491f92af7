package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/clipflow/internal/archive"
	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/metrics"
	"github.com/MrSnakeDoc/clipflow/internal/store/memory"
	"github.com/MrSnakeDoc/clipflow/internal/watcher"
	"github.com/MrSnakeDoc/clipflow/internal/watcher/watchertest"
)

type harness struct {
	orch    *Orchestrator
	watcher *watcher.Watcher
	fake    *watchertest.Fake
	store   *history.Store
	archive *archive.Archive
}

func newHarness(t *testing.T, backend history.Backend, limit int) *harness {
	t.Helper()
	log := logger.NewNop()

	arc, err := archive.New(filepath.Join(t.TempDir(), "images"), log)
	require.NoError(t, err)

	if backend == nil {
		backend = memory.New()
	}
	store := history.New(backend, arc, log)

	fake := watchertest.New()
	w := watcher.New(fake, log)

	orch := New(Deps{
		Source:      w,
		Clipboard:   w,
		Store:       store,
		Images:      arc,
		Limits:      FixedLimit(limit),
		Metrics:     metrics.New(),
		Logger:      log,
		SettleDelay: 50 * time.Millisecond,
	})

	return &harness{orch: orch, watcher: w, fake: fake, store: store, archive: arc}
}

// run starts the watcher and the pipeline loop.
func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.watcher.Start(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.orch.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		h.watcher.Stop()
		<-done
	})
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	n, err := h.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

// stored is count without assertions, for use inside Eventually.
func (h *harness) stored() int {
	n, _ := h.store.Count(context.Background())
	return n
}

func textChange(s string) watcher.Change {
	return watcher.Change{Text: s, At: time.Now()}
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.Black)
	return img
}

func TestProcessStoresClassifiedText(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	res := h.orch.Process(ctx, textChange("#ff5733"))
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeStored, res.Outcome)

	e := res.Entry
	assert.Equal(t, domain.TypeColor, e.ContentType)
	assert.Equal(t, "#FF5733", e.ColorHex)
	assert.Equal(t, "#ff5733", e.Preview)
	assert.Len(t, e.ContentHash, 64)
	assert.Equal(t, StateIdle, h.orch.State())
}

func TestProcessDeduplicates(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	first := h.orch.Process(ctx, textChange("hello world"))
	require.Equal(t, OutcomeStored, first.Outcome)
	_ = h.orch.Process(ctx, textChange("something else"))

	again := h.orch.Process(ctx, textChange("hello world"))
	require.Equal(t, OutcomeBumped, again.Outcome)
	assert.Equal(t, first.Entry.ID, again.Entry.ID)
	assert.Equal(t, 2, h.count(t))

	list, err := h.orch.Entries(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Entry.ID, list[0].ID)
	assert.True(t, list[0].CopiedAt.After(first.Entry.CopiedAt))
}

func TestProcessDiscardsSensitiveAndBlank(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	for _, s := range []string{"Tr0ub4dor&3", "4111-1111-1111-1111", "   \n\t"} {
		res := h.orch.Process(ctx, textChange(s))
		assert.Equal(t, OutcomeDiscarded, res.Outcome, s)
	}
	assert.Equal(t, 0, h.count(t))
}

func TestProcessEnforcesLimit(t *testing.T) {
	h := newHarness(t, nil, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res := h.orch.Process(ctx, textChange(fmt.Sprintf("entry %d", i)))
		require.Equal(t, OutcomeStored, res.Outcome)
	}

	list, err := h.orch.Entries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "entry 4", list[0].Content)
	assert.Equal(t, "entry 2", list[2].Content)
}

func TestProcessImage(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	res := h.orch.Process(ctx, watcher.Change{Image: testImage(3, 2)})
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeStored, res.Outcome)

	e := res.Entry
	assert.Equal(t, domain.TypeImage, e.ContentType)
	assert.Equal(t, "Image (3x2)", e.Preview)
	assert.Equal(t, e.ImagePath, e.Content)
	assert.Equal(t, h.archive.Dir(), filepath.Dir(e.ImagePath))

	_, err := os.Stat(e.ImagePath)
	require.NoError(t, err)

	require.NoError(t, h.orch.Delete(ctx, e.ID))
	_, err = os.Stat(e.ImagePath)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteTextLeavesFilesAlone(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	img := h.orch.Process(ctx, watcher.Change{Image: testImage(2, 2)})
	txt := h.orch.Process(ctx, textChange("plain"))

	require.NoError(t, h.orch.Delete(ctx, txt.Entry.ID))

	files, err := os.ReadDir(h.archive.Dir())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Base(img.Entry.ImagePath), files[0].Name())

	assert.ErrorIs(t, h.orch.Delete(ctx, txt.Entry.ID), history.ErrNotFound)
}

func TestPinnedSurviveClearAll(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	keep := h.orch.Process(ctx, textChange("keep me"))
	_ = h.orch.Process(ctx, textChange("drop me"))

	pinned, err := h.orch.TogglePin(ctx, keep.Entry.ID)
	require.NoError(t, err)
	require.True(t, pinned)

	n, err := h.orch.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := h.orch.Entries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.Entry.ID, list[0].ID)
}

type failingBackend struct {
	*memory.Backend
	insertErr error
	panicOn   string
}

func (b *failingBackend) Insert(ctx context.Context, e *domain.Entry) (*domain.Entry, error) {
	if b.insertErr != nil {
		return nil, b.insertErr
	}
	return b.Backend.Insert(ctx, e)
}

func (b *failingBackend) FindByHash(ctx context.Context, hash string) (*domain.Entry, error) {
	if b.panicOn == "find" {
		panic("backend exploded")
	}
	return b.Backend.FindByHash(ctx, hash)
}

func TestProcessRecoversFromPanics(t *testing.T) {
	h := newHarness(t, &failingBackend{Backend: memory.New(), panicOn: "find"}, 50)

	res := h.orch.Process(context.Background(), textChange("boom"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, StateIdle, h.orch.State())
}

func TestPersistFailureLeavesNoRow(t *testing.T) {
	h := newHarness(t, &failingBackend{Backend: memory.New(), insertErr: errors.New("disk full")}, 50)
	ctx := context.Background()

	res := h.orch.Process(ctx, textChange("lost"))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 0, h.count(t))

	// the archived file is kept when its row cannot be written
	res = h.orch.Process(ctx, watcher.Change{Image: testImage(1, 1)})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	files, err := os.ReadDir(h.archive.Dir())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestPausedNotificationsAreIgnored(t *testing.T) {
	h := newHarness(t, nil, 50)
	h.run(t)

	h.orch.PauseMonitoring()
	require.True(t, h.orch.Paused())
	h.fake.EmitText("while paused")

	require.Eventually(t, func() bool { return h.watcher.Dropped() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.count(t))

	h.orch.ResumeMonitoring()
	h.fake.EmitText("after resume")

	require.Eventually(t, func() bool { return h.stored() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.count(t))
}

func TestCopyEntryIsNotRecapturedAndBumps(t *testing.T) {
	h := newHarness(t, nil, 50)
	h.fake.Echo = true
	h.run(t)
	ctx := context.Background()

	old := h.orch.Process(ctx, textChange("copy me back"))
	_ = h.orch.Process(ctx, textChange("newer"))

	require.NoError(t, h.orch.CopyEntry(ctx, old.Entry.ID))
	assert.False(t, h.orch.Paused())
	require.Eventually(t, func() bool { return h.watcher.Echoes() == 1 }, 2*time.Second, 10*time.Millisecond)

	writes := h.fake.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "copy me back", string(writes[0].Data))

	list, err := h.orch.Entries(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, old.Entry.ID, list[0].ID)
}

func TestCopyEntryKeepsUserPause(t *testing.T) {
	h := newHarness(t, nil, 50)
	h.run(t)
	ctx := context.Background()

	e := h.orch.Process(ctx, textChange("x marks"))
	h.orch.PauseMonitoring()

	require.NoError(t, h.orch.CopyEntry(ctx, e.Entry.ID))
	assert.True(t, h.orch.Paused())

	assert.ErrorIs(t, h.orch.CopyEntry(ctx, 999), history.ErrNotFound)
}

func TestCopyImageEntry(t *testing.T) {
	h := newHarness(t, nil, 50)
	h.run(t)
	ctx := context.Background()

	e := h.orch.Process(ctx, watcher.Change{Image: testImage(4, 4)})
	require.Equal(t, OutcomeStored, e.Outcome)

	require.NoError(t, h.orch.CopyEntry(ctx, e.Entry.ID))

	writes := h.fake.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, watcher.FormatImage, writes[0].Format)
}

// The OS clipboard polls, so the notification for our own write usually
// lands after the settle delay, once capture is running again.
func TestLateCopyBackNotificationIsSkipped(t *testing.T) {
	tests := []struct {
		name   string
		change watcher.Change
		again  Kind
	}{
		{"text", textChange("late echo"), KindBumped},
		// image identity includes the archive path, so a fresh copy is new
		{"image", watcher.Change{Image: testImage(4, 4)}, KindAdded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, 50)
			h.run(t)
			ctx := context.Background()

			e := h.orch.Process(ctx, tt.change)
			require.Equal(t, OutcomeStored, e.Outcome)
			events, cancel := h.orch.Subscribe()
			defer cancel()

			require.NoError(t, h.orch.CopyEntry(ctx, e.Entry.ID))
			require.False(t, h.orch.Paused())
			<-events // bumped by the copy itself

			writes := h.fake.Writes()
			require.Len(t, writes, 1)
			h.fake.Emit(writes[0].Format, writes[0].Data)

			require.Eventually(t, func() bool { return h.watcher.Echoes() == 1 }, 2*time.Second, 10*time.Millisecond)
			assert.Equal(t, 1, h.count(t))

			files, err := os.ReadDir(h.archive.Dir())
			require.NoError(t, err)
			if e.Entry.IsImage() {
				assert.Len(t, files, 1)
			} else {
				assert.Empty(t, files)
			}

			select {
			case ev := <-events:
				t.Fatalf("unexpected %s event after copy-back", ev.Kind)
			case <-time.After(100 * time.Millisecond):
			}

			// the same content copied again by someone else is a real change
			h.fake.Emit(writes[0].Format, writes[0].Data)
			select {
			case ev := <-events:
				assert.Equal(t, tt.again, ev.Kind)
			case <-time.After(2 * time.Second):
				t.Fatal("second copy was not captured")
			}
		})
	}
}

func TestFeedPublishesChanges(t *testing.T) {
	h := newHarness(t, nil, 1)
	ctx := context.Background()

	events, cancel := h.orch.Subscribe()
	defer cancel()

	first := h.orch.Process(ctx, textChange("one"))
	_, err := h.orch.TogglePin(ctx, first.Entry.ID)
	require.NoError(t, err)
	_ = h.orch.Process(ctx, textChange("two"))
	_ = h.orch.Process(ctx, textChange("three"))

	want := []Kind{KindAdded, KindPinned, KindAdded, KindAdded, KindEvicted}
	var kinds []Kind
	for len(kinds) < len(want) {
		select {
		case ev := <-events:
			assert.NotEqual(t, uuid.Nil, ev.ID)
			assert.False(t, ev.At.IsZero())
			kinds = append(kinds, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("got %v, want %v", kinds, want)
		}
	}
	assert.Equal(t, want, kinds)
}

func TestEnforceLimitCommand(t *testing.T) {
	h := newHarness(t, nil, 50)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = h.orch.Process(ctx, textChange(fmt.Sprintf("n%d", i)))
	}

	h.orch.limits = FixedLimit(2)
	n, err := h.orch.EnforceLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, h.count(t))
}

func TestStateAndOutcomeNames(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dedup_check", StateDedupCheck.String())
	assert.Equal(t, "evicting", StateEvicting.String())
	assert.Equal(t, "stored", OutcomeStored.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}

func TestCollaboratorNotifications(t *testing.T) {
	h := newHarness(t, nil, 50)

	events, cancel := h.orch.Subscribe()
	defer cancel()

	h.orch.NotifyVisibility()
	h.orch.NotifySettings()
	h.orch.PauseMonitoring()
	h.orch.PauseMonitoring() // already paused, no event
	h.orch.ResumeMonitoring()

	want := []Kind{KindVisibility, KindSettings, KindPaused, KindResumed}
	for _, k := range want {
		select {
		case ev := <-events:
			assert.Equal(t, k, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", k)
		}
	}
	assert.Equal(t, 0, h.count(t))
}
