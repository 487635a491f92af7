// Package watcher turns OS clipboard notifications into Change events.
//
// Pause and Resume form a cooperative flag: while paused, notifications
// still arrive but are dropped before anything downstream sees them.
//
// The OS reports our own writes like any other change, and it may do so
// well after the write returned. Every WriteText/WriteImage therefore
// records a fingerprint of what it put on the clipboard, and the next
// notification of that format carrying the same content is skipped
// whether or not capture is paused.
package watcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

const eventBuffer = 16

// Change is one captured clipboard payload. Exactly one of Text and Image
// is set.
type Change struct {
	Text  string
	Image image.Image
	At    time.Time
}

// IsImage reports whether the change carries an image.
func (c Change) IsImage() bool { return c.Image != nil }

// Source is what the pipeline consumes.
type Source interface {
	Events() <-chan Change
}

// Writer puts content back on the clipboard while capture is suppressed.
type Writer interface {
	Pause()
	Resume()
	Paused() bool
	WriteText(text string) error
	WriteImage(img image.Image) error
}

// Watcher listens to a Platform and publishes Change events.
type Watcher struct {
	platform Platform
	log      logger.Logger
	events   chan Change
	now      func() time.Time

	paused  atomic.Bool
	dropped atomic.Uint64
	echoes  atomic.Uint64

	// written holds the fingerprint of our last write per format until
	// its notification comes back
	wmu     sync.Mutex
	written map[Format][sha256.Size]byte

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped watcher.
func New(platform Platform, log logger.Logger) *Watcher {
	return &Watcher{
		platform: platform,
		log:      log,
		events:   make(chan Change, eventBuffer),
		now:      time.Now,
		written:  make(map[Format][sha256.Size]byte),
	}
}

// Events returns the change stream. It is never closed; consumers select on
// their own context.
func (w *Watcher) Events() <-chan Change { return w.events }

// Start initializes the platform and begins listening. Calling Start on a
// running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.platform.Init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	text := w.platform.Watch(ctx, FormatText)
	img := w.platform.Watch(ctx, FormatImage)

	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.loop(ctx, text, img, w.done)

	w.log.Info("clipboard watcher started")
	return nil
}

// Stop stops listening and waits for the listener goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.running = false
	w.mu.Unlock()

	cancel()
	<-done
	w.log.Info("clipboard watcher stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) Pause()       { w.paused.Store(true) }
func (w *Watcher) Resume()      { w.paused.Store(false) }
func (w *Watcher) Paused() bool { return w.paused.Load() }

// Dropped returns how many notifications were discarded while paused.
func (w *Watcher) Dropped() uint64 { return w.dropped.Load() }

// Echoes returns how many notifications were recognized as our own writes.
func (w *Watcher) Echoes() uint64 { return w.echoes.Load() }

func (w *Watcher) loop(ctx context.Context, text, img <-chan []byte, done chan struct{}) {
	defer close(done)

	for text != nil || img != nil {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-text:
			if !ok {
				text = nil
				continue
			}
			w.notify(ctx, FormatText, data)
		case data, ok := <-img:
			if !ok {
				img = nil
				continue
			}
			w.notify(ctx, FormatImage, data)
		}
	}
}

func (w *Watcher) notify(ctx context.Context, f Format, data []byte) {
	if w.paused.Load() && !w.expecting(f) {
		w.drop(f)
		return
	}

	change, ok := w.read(f, data)
	if !ok {
		return
	}
	if w.isEcho(f, fingerprint(change)) {
		w.echoes.Add(1)
		w.log.Debug("own clipboard write skipped", logger.String("format", f.String()))
		return
	}
	if w.paused.Load() {
		w.drop(f)
		return
	}

	select {
	case w.events <- change:
	case <-ctx.Done():
	}
}

func (w *Watcher) drop(f Format) {
	w.dropped.Add(1)
	w.log.Debug("clipboard change dropped while paused", logger.String("format", f.String()))
}

func (w *Watcher) expect(f Format, sum [sha256.Size]byte) {
	w.wmu.Lock()
	w.written[f] = sum
	w.wmu.Unlock()
}

func (w *Watcher) expecting(f Format) bool {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	_, ok := w.written[f]
	return ok
}

// isEcho consumes the pending fingerprint for f. Different content means
// someone else copied after our write, so the fingerprint is dropped too.
func (w *Watcher) isEcho(f Format, sum [sha256.Size]byte) bool {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	want, ok := w.written[f]
	if !ok {
		return false
	}
	delete(w.written, f)
	return want == sum
}

func (w *Watcher) forget(f Format) {
	w.wmu.Lock()
	delete(w.written, f)
	w.wmu.Unlock()
}

// fingerprint hashes text bytes, or image bounds and NRGBA pixels so an
// image re-encoded by the OS still matches.
func fingerprint(c Change) [sha256.Size]byte {
	if c.Image == nil {
		return sha256.Sum256([]byte(c.Text))
	}

	b := c.Image.Bounds()
	px, ok := c.Image.(*image.NRGBA)
	if !ok || px.Rect.Min != (image.Point{}) || px.Stride != 4*b.Dx() {
		px = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(px, px.Bounds(), c.Image, b.Min, draw.Src)
	}

	h := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(b.Dx()))
	binary.BigEndian.PutUint32(dims[4:], uint32(b.Dy()))
	h.Write(dims[:])
	h.Write(px.Pix[:4*b.Dx()*b.Dy()])

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// read builds a Change from the notified payload, falling back to reading
// the clipboard when the notification carried nothing.
func (w *Watcher) read(f Format, data []byte) (Change, bool) {
	if len(data) == 0 {
		data = w.platform.Read(f)
	}
	if len(data) == 0 {
		w.log.Debug("clipboard read returned nothing", logger.String("format", f.String()))
		return Change{}, false
	}

	change := Change{At: w.now().UTC()}
	switch f {
	case FormatImage:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			w.log.Warn("failed to decode clipboard image", logger.Error(err))
			return Change{}, false
		}
		change.Image = img
	default:
		change.Text = string(data)
	}
	return change, true
}

// WriteText places text on the clipboard. Its notification is not
// reported as a change.
func (w *Watcher) WriteText(text string) error {
	return w.write(FormatText, []byte(text), fingerprint(Change{Text: text}))
}

// WriteImage places img on the clipboard as PNG. Its notification is not
// reported as a change.
func (w *Watcher) WriteImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("watcher: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode clipboard image: %w", err)
	}
	// fingerprint what a reader decodes, not the source image
	decoded, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("encode clipboard image: %w", err)
	}
	return w.write(FormatImage, buf.Bytes(), fingerprint(Change{Image: decoded}))
}

func (w *Watcher) write(f Format, data []byte, sum [sha256.Size]byte) error {
	w.expect(f, sum)
	if err := w.platform.Write(f, data); err != nil {
		w.forget(f)
		return err
	}
	return nil
}

var (
	_ Source = (*Watcher)(nil)
	_ Writer = (*Watcher)(nil)
)
