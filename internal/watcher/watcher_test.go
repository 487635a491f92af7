package watcher_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/watcher"
	"github.com/MrSnakeDoc/clipflow/internal/watcher/watchertest"
)

func start(t *testing.T) (*watcher.Watcher, *watchertest.Fake) {
	t.Helper()
	fake := watchertest.New()
	w := watcher.New(fake, logger.NewNop())
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w, fake
}

func next(t *testing.T, w *watcher.Watcher) watcher.Change {
	t.Helper()
	select {
	case c := <-w.Events():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return watcher.Change{}
	}
}

func none(t *testing.T, w *watcher.Watcher) {
	t.Helper()
	select {
	case c := <-w.Events():
		t.Fatalf("unexpected change: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextChange(t *testing.T) {
	w, fake := start(t)

	fake.EmitText("hello")

	c := next(t, w)
	assert.Equal(t, "hello", c.Text)
	assert.False(t, c.IsImage())
	assert.False(t, c.At.IsZero())
}

func TestImageChange(t *testing.T) {
	w, fake := start(t)

	fake.Emit(watcher.FormatImage, pngBytes(t, 3, 2))

	c := next(t, w)
	require.True(t, c.IsImage())
	assert.Equal(t, 3, c.Image.Bounds().Dx())
	assert.Equal(t, 2, c.Image.Bounds().Dy())
}

func TestUndecodableImageIsIgnored(t *testing.T) {
	w, fake := start(t)

	fake.Emit(watcher.FormatImage, []byte("not a png"))
	none(t, w)
}

func TestEmptyNotificationFallsBackToRead(t *testing.T) {
	w, fake := start(t)

	fake.EmitText("first")
	assert.Equal(t, "first", next(t, w).Text)

	fake.EmitEmpty(watcher.FormatText)
	assert.Equal(t, "first", next(t, w).Text)
}

func TestEmptyClipboardProducesNothing(t *testing.T) {
	w, fake := start(t)

	fake.EmitEmpty(watcher.FormatText)
	none(t, w)
}

func TestPauseDropsNotifications(t *testing.T) {
	w, fake := start(t)

	w.Pause()
	assert.True(t, w.Paused())
	fake.EmitText("while paused")
	none(t, w)
	assert.Equal(t, uint64(1), w.Dropped())

	w.Resume()
	assert.False(t, w.Paused())
	fake.EmitText("after resume")
	assert.Equal(t, "after resume", next(t, w).Text)
	none(t, w)
}

func TestWriteTextAndImage(t *testing.T) {
	w, fake := start(t)

	require.NoError(t, w.WriteText("copied back"))
	require.NoError(t, w.WriteImage(image.NewRGBA(image.Rect(0, 0, 1, 1))))
	assert.Error(t, w.WriteImage(nil))

	writes := fake.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, watcher.FormatText, writes[0].Format)
	assert.Equal(t, "copied back", string(writes[0].Data))
	assert.Equal(t, watcher.FormatImage, writes[1].Format)

	_, err := png.Decode(bytes.NewReader(writes[1].Data))
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	fake := watchertest.New()
	w := watcher.New(fake, logger.NewNop())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Running())

	w.Stop()
	w.Stop()
	assert.False(t, w.Running())

	require.NoError(t, w.Start(context.Background()))
	fake.EmitText("again")
	assert.Equal(t, "again", next(t, w).Text)
	w.Stop()
}

func TestStartFailsWhenPlatformUnavailable(t *testing.T) {
	fake := watchertest.New()
	fake.InitErr = errors.New("no display")
	w := watcher.New(fake, logger.NewNop())

	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.Running())
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "text", watcher.FormatText.String())
	assert.Equal(t, "image", watcher.FormatImage.String())
}

func TestOwnWriteIsSkippedWhenReportedLate(t *testing.T) {
	w, fake := start(t)

	require.NoError(t, w.WriteText("copied back"))
	fake.EmitText("copied back")
	none(t, w)
	assert.Equal(t, uint64(1), w.Echoes())
	assert.Zero(t, w.Dropped())

	// only the first matching notification is ours
	fake.EmitText("copied back")
	assert.Equal(t, "copied back", next(t, w).Text)
}

func TestOwnWriteSupersededByOtherContent(t *testing.T) {
	w, fake := start(t)

	require.NoError(t, w.WriteText("ours"))
	fake.EmitText("theirs")
	assert.Equal(t, "theirs", next(t, w).Text)

	fake.EmitText("ours")
	assert.Equal(t, "ours", next(t, w).Text)
	assert.Zero(t, w.Echoes())
}

func TestOwnWriteReportedWhilePaused(t *testing.T) {
	w, fake := start(t)

	w.Pause()
	require.NoError(t, w.WriteText("during pause"))
	fake.EmitText("during pause")
	none(t, w)
	assert.Equal(t, uint64(1), w.Echoes())
	assert.Zero(t, w.Dropped())

	fake.EmitText("someone else")
	none(t, w)
	assert.Equal(t, uint64(1), w.Dropped())
}

func TestFailedWriteExpectsNothing(t *testing.T) {
	w, fake := start(t)

	fake.WriteErr = errors.New("clipboard locked")
	assert.Error(t, w.WriteText("lost"))
	fake.WriteErr = nil

	fake.EmitText("lost")
	assert.Equal(t, "lost", next(t, w).Text)
}

func TestOwnImageWriteMatchesReencodedEcho(t *testing.T) {
	w, fake := start(t)

	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	gray := image.NewGray(src.Bounds())
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			v := uint8(40 * (x + y))
			src.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 0xff})
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}
	require.NoError(t, w.WriteImage(src))

	// the OS hands back the same pixels in another PNG encoding
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray))
	require.NotEqual(t, fake.Writes()[0].Data, buf.Bytes())

	fake.Emit(watcher.FormatImage, buf.Bytes())
	none(t, w)
	assert.Equal(t, uint64(1), w.Echoes())

	fake.Emit(watcher.FormatImage, pngBytes(t, 3, 3))
	assert.True(t, next(t, w).IsImage())
}
