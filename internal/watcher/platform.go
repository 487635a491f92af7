package watcher

import (
	"context"
	"fmt"

	"golang.design/x/clipboard"
)

// Format is a clipboard payload kind.
type Format int

const (
	FormatText Format = iota
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Platform is the OS clipboard. Implementations are swappable without
// touching the pipeline; tests use an in-memory fake.
type Platform interface {
	Init() error
	// Watch emits the new payload each time the clipboard changes to f.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, f Format) <-chan []byte
	// Read returns the current payload, or nil when the clipboard is
	// empty, holds another format, or is locked.
	Read(f Format) []byte
	Write(f Format, data []byte) error
}

// System is the Platform backed by the OS clipboard.
type System struct{}

func toFmt(f Format) clipboard.Format {
	if f == FormatImage {
		return clipboard.FmtImage
	}
	return clipboard.FmtText
}

func (System) Init() error {
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("failed to init clipboard: %w", err)
	}
	return nil
}

func (System) Watch(ctx context.Context, f Format) <-chan []byte {
	return clipboard.Watch(ctx, toFmt(f))
}

func (System) Read(f Format) (data []byte) {
	// the native read can panic while another process holds the clipboard
	defer func() {
		if r := recover(); r != nil {
			data = nil
		}
	}()
	return clipboard.Read(toFmt(f))
}

func (System) Write(f Format, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clipboard write %s: %v", f, r)
		}
	}()
	clipboard.Write(toFmt(f), data)
	return nil
}
