// Package collab defines the contracts of the external collaborators that
// drive the daemon: a global hotkey and a tray icon. Neither is implemented
// here; both only raise signals.
package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// Signal is a request raised by a collaborator.
type Signal int

const (
	// SignalToggle toggles the history window (hotkey).
	SignalToggle Signal = iota + 1
	// SignalShow shows the history window (tray).
	SignalShow
	// SignalSettings opens the settings screen (tray).
	SignalSettings
	// SignalExit shuts the daemon down (tray).
	SignalExit
)

var signalNames = map[Signal]string{
	SignalToggle:   "toggle",
	SignalShow:     "show",
	SignalSettings: "settings",
	SignalExit:     "exit",
}

func (s Signal) String() string {
	if n, ok := signalNames[s]; ok {
		return n
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// ParseSignal maps a signal name back to its value.
func ParseSignal(name string) (Signal, bool) {
	for s, n := range signalNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Source raises collaborator signals.
type Source interface {
	Signals() <-chan Signal
}

// Hotkey is the global-hotkey collaborator. It raises SignalToggle.
type Hotkey interface {
	Signals() <-chan Signal
}

// Tray is the tray-icon collaborator. It raises SignalShow, SignalSettings
// and SignalExit.
type Tray interface {
	Signals() <-chan Signal
}

// Handler reacts to collaborator signals.
type Handler interface {
	OnVisibility()
	OnSettings()
	OnExit()
}

// Emitter is a channel-backed Hotkey and Tray. External helpers reach it
// through the control API.
type Emitter struct {
	name    string
	allowed map[Signal]bool
	ch      chan Signal
}

// NewHotkey returns an emitter accepting the hotkey's signals.
func NewHotkey() *Emitter {
	return newEmitter("hotkey", SignalToggle)
}

// NewTray returns an emitter accepting the tray's signals.
func NewTray() *Emitter {
	return newEmitter("tray", SignalShow, SignalSettings, SignalExit)
}

func newEmitter(name string, allowed ...Signal) *Emitter {
	e := &Emitter{
		name:    name,
		allowed: make(map[Signal]bool, len(allowed)),
		ch:      make(chan Signal, 8),
	}
	for _, s := range allowed {
		e.allowed[s] = true
	}
	return e
}

// Name identifies the collaborator in logs.
func (e *Emitter) Name() string { return e.name }

// Accepts reports whether this collaborator can raise s.
func (e *Emitter) Accepts(s Signal) bool { return e.allowed[s] }

// Raise queues a signal. It returns false if the collaborator cannot raise
// s or the queue is full.
func (e *Emitter) Raise(s Signal) bool {
	if !e.allowed[s] {
		return false
	}
	select {
	case e.ch <- s:
		return true
	default:
		return false
	}
}

// Signals implements Hotkey and Tray.
func (e *Emitter) Signals() <-chan Signal { return e.ch }

// Dispatch forwards signals from every source to h until ctx is done. It
// blocks; run it in its own goroutine.
func Dispatch(ctx context.Context, h Handler, log logger.Logger, sources ...Source) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(ch <-chan Signal) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case s, ok := <-ch:
					if !ok {
						return
					}
					log.Debug("collaborator signal", logger.String("signal", s.String()))
					switch s {
					case SignalToggle, SignalShow:
						h.OnVisibility()
					case SignalSettings:
						h.OnSettings()
					case SignalExit:
						h.OnExit()
					}
				}
			}
		}(src.Signals())
	}
	wg.Wait()
}
