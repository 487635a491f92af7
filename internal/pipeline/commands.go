package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// ErrNoClipboard is returned by CopyEntry when no clipboard writer is wired.
var ErrNoClipboard = errors.New("pipeline: no clipboard writer")

// Entries returns up to limit entries, pinned first. limit <= 0 returns all.
func (o *Orchestrator) Entries(ctx context.Context, limit int) ([]*domain.Entry, error) {
	return o.store.GetRecent(ctx, limit)
}

// Entry returns one entry.
func (o *Orchestrator) Entry(ctx context.Context, id int64) (*domain.Entry, error) {
	return o.store.Get(ctx, id)
}

// CopyEntry puts an entry back on the clipboard and moves it to the top.
//
// Capture is paused around the write so the change is not recorded again,
// and resumed only after the settle delay. If monitoring was already
// paused by the user it stays paused.
func (o *Orchestrator) CopyEntry(ctx context.Context, id int64) (err error) {
	defer func() { o.metrics.RecordCommand("copy", err) }()

	if o.clip == nil {
		return ErrNoClipboard
	}

	o.work.Lock()
	defer o.work.Unlock()

	e, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !o.clip.Paused() {
		o.clip.Pause()
		defer func() {
			o.sleep(o.settle)
			o.clip.Resume()
		}()
	}

	if e.IsImage() {
		if o.images == nil {
			return fmt.Errorf("copy entry %d: no image archive", id)
		}
		img, err := o.images.Load(e.ImagePath)
		if err != nil {
			return fmt.Errorf("copy entry %d: %w", id, err)
		}
		if err := o.clip.WriteImage(img); err != nil {
			return fmt.Errorf("copy entry %d: %w", id, err)
		}
	} else if err := o.clip.WriteText(e.Content); err != nil {
		return fmt.Errorf("copy entry %d: %w", id, err)
	}

	if err := o.store.MoveToTop(ctx, id); err != nil {
		return err
	}
	o.feed.Publish(KindBumped, id, 0)
	return nil
}

// TogglePin flips the pin flag and returns the new value.
func (o *Orchestrator) TogglePin(ctx context.Context, id int64) (pinned bool, err error) {
	defer func() { o.metrics.RecordCommand("pin", err) }()

	o.work.Lock()
	defer o.work.Unlock()

	pinned, err = o.store.TogglePin(ctx, id)
	if err != nil {
		return false, err
	}
	if pinned {
		o.feed.Publish(KindPinned, id, 0)
	} else {
		o.feed.Publish(KindUnpinned, id, 0)
	}
	return pinned, nil
}

// Delete removes one entry and its image file.
func (o *Orchestrator) Delete(ctx context.Context, id int64) (err error) {
	defer func() { o.metrics.RecordCommand("delete", err) }()

	o.work.Lock()
	defer o.work.Unlock()

	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	o.feed.Publish(KindDeleted, id, 0)
	o.refreshSize(ctx)
	return nil
}

// ClearAll removes every unpinned entry and returns how many were removed.
func (o *Orchestrator) ClearAll(ctx context.Context) (n int, err error) {
	defer func() { o.metrics.RecordCommand("clear", err) }()

	o.work.Lock()
	defer o.work.Unlock()

	n, err = o.store.ClearAll(ctx)
	if err != nil {
		return 0, err
	}
	o.feed.Publish(KindCleared, 0, n)
	o.refreshSize(ctx)
	o.log.Info("history cleared", logger.Int("removed", n))
	return n, nil
}

// EnforceLimit applies the configured history limit outside of a capture,
// for example after the limit was lowered.
func (o *Orchestrator) EnforceLimit(ctx context.Context) (int, error) {
	o.work.Lock()
	defer o.work.Unlock()

	n, err := o.evictLocked(ctx)
	if err != nil {
		return 0, err
	}
	o.refreshSize(ctx)
	return n, nil
}

// PauseMonitoring stops recording clipboard changes until resumed.
func (o *Orchestrator) PauseMonitoring() {
	if o.clip == nil || o.clip.Paused() {
		return
	}
	o.clip.Pause()
	o.feed.Publish(KindPaused, 0, 0)
	o.log.Info("clipboard monitoring paused")
}

// ResumeMonitoring resumes recording clipboard changes.
func (o *Orchestrator) ResumeMonitoring() {
	if o.clip == nil || !o.clip.Paused() {
		return
	}
	o.clip.Resume()
	o.feed.Publish(KindResumed, 0, 0)
	o.log.Info("clipboard monitoring resumed")
}

// Paused reports whether monitoring is paused.
func (o *Orchestrator) Paused() bool {
	return o.clip != nil && o.clip.Paused()
}

// NotifyVisibility forwards a show/toggle request from a collaborator to
// feed subscribers.
func (o *Orchestrator) NotifyVisibility() {
	o.feed.Publish(KindVisibility, 0, 0)
}

// NotifySettings asks feed subscribers to open the settings screen.
func (o *Orchestrator) NotifySettings() {
	o.feed.Publish(KindSettings, 0, 0)
}
