// Package watchertest provides an in-memory clipboard for tests.
package watchertest

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/clipflow/internal/watcher"
)

// Fake is an in-memory watcher.Platform.
//
// Emit simulates a copy by another application. With Echo set, Write also
// raises a notification for our own write before returning; a polling OS
// clipboard reports it later, which tests model by Emit-ing the written
// bytes after the fact.
type Fake struct {
	mu       sync.Mutex
	current  map[watcher.Format][]byte
	watchers map[watcher.Format][]chan []byte
	writes   []Write

	Echo     bool
	InitErr  error
	WriteErr error
}

// Write records one call to Platform.Write.
type Write struct {
	Format watcher.Format
	Data   []byte
}

// New returns an empty fake clipboard.
func New() *Fake {
	return &Fake{
		current:  make(map[watcher.Format][]byte),
		watchers: make(map[watcher.Format][]chan []byte),
	}
}

func (f *Fake) Init() error { return f.InitErr }

func (f *Fake) Watch(ctx context.Context, format watcher.Format) <-chan []byte {
	ch := make(chan []byte, 16)

	f.mu.Lock()
	f.watchers[format] = append(f.watchers[format], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.watchers[format]
		for i, c := range list {
			if c == ch {
				f.watchers[format] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (f *Fake) Read(format watcher.Format) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current[format]
}

func (f *Fake) Write(format watcher.Format, data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}

	f.mu.Lock()
	f.writes = append(f.writes, Write{Format: format, Data: data})
	echo := f.Echo
	f.mu.Unlock()

	if echo {
		return f.emit(format, data)
	}
	f.set(format, data)
	return nil
}

// Emit simulates another application copying data.
func (f *Fake) Emit(format watcher.Format, data []byte) {
	_ = f.emit(format, data)
}

// EmitText is Emit for text.
func (f *Fake) EmitText(text string) { f.Emit(watcher.FormatText, []byte(text)) }

// EmitEmpty raises a notification without a payload, as a locked clipboard
// would.
func (f *Fake) EmitEmpty(format watcher.Format) { f.Emit(format, nil) }

// Writes returns every recorded Write.
func (f *Fake) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

var errNoWatcher = errors.New("watchertest: no active watcher")

func (f *Fake) emit(format watcher.Format, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data != nil {
		f.current[format] = data
	}
	list := f.watchers[format]
	if len(list) == 0 {
		return errNoWatcher
	}
	for _, ch := range list {
		ch <- data
	}
	return nil
}

func (f *Fake) set(format watcher.Format, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current[format] = data
}

var _ watcher.Platform = (*Fake)(nil)
