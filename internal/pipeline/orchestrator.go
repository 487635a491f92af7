// Package pipeline runs the capture pipeline: clipboard change → classify →
// dedup check → persist or bump → evict. It also carries the commands the
// host UI issues and publishes a change feed.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/classifier"
	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/history"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/metrics"
	"github.com/MrSnakeDoc/clipflow/internal/watcher"
)

// DefaultSettleDelay absorbs the OS write-propagation race after copying an
// entry back to the clipboard.
const DefaultSettleDelay = 100 * time.Millisecond

// ImageArchive is the part of the archive the pipeline needs.
type ImageArchive interface {
	NewPath() (string, error)
	SaveAt(path string, img image.Image) error
	Load(path string) (image.Image, error)
}

// LimitProvider returns the configured history limit.
type LimitProvider interface {
	HistoryLimit() int
}

// FixedLimit is a LimitProvider with a constant value.
type FixedLimit int

func (l FixedLimit) HistoryLimit() int { return int(l) }

// Deps holds everything the orchestrator is wired to.
type Deps struct {
	Source      watcher.Source
	Clipboard   watcher.Writer
	Store       *history.Store
	Images      ImageArchive
	Limits      LimitProvider
	Feed        *Feed
	Metrics     *metrics.Metrics
	Logger      logger.Logger
	SettleDelay time.Duration
}

// Result reports how one clipboard change was handled.
type Result struct {
	Outcome Outcome
	Entry   *domain.Entry
	Evicted int
	Err     error
}

// Orchestrator serializes clipboard changes and user commands over the
// history store.
type Orchestrator struct {
	source  watcher.Source
	clip    watcher.Writer
	store   *history.Store
	images  ImageArchive
	limits  LimitProvider
	feed    *Feed
	metrics *metrics.Metrics
	log     logger.Logger
	settle  time.Duration
	sleep   func(time.Duration)

	// work is held for one change end-to-end and for every mutating command
	work  sync.Mutex
	state atomic.Int32
}

// New creates an orchestrator. A nil Feed gets a private one; a zero
// SettleDelay uses DefaultSettleDelay.
func New(d Deps) *Orchestrator {
	if d.Feed == nil {
		d.Feed = NewFeed(d.Metrics)
	}
	if d.SettleDelay <= 0 {
		d.SettleDelay = DefaultSettleDelay
	}
	if d.Limits == nil {
		d.Limits = FixedLimit(domain.DefaultHistoryLimit)
	}
	return &Orchestrator{
		source:  d.Source,
		clip:    d.Clipboard,
		store:   d.Store,
		images:  d.Images,
		limits:  d.Limits,
		feed:    d.Feed,
		metrics: d.Metrics,
		log:     d.Logger,
		settle:  d.SettleDelay,
		sleep:   time.Sleep,
	}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) { o.state.Store(int32(s)) }

// Feed returns the change feed.
func (o *Orchestrator) Feed() *Feed { return o.feed }

// Subscribe is a shortcut for Feed().Subscribe().
func (o *Orchestrator) Subscribe() (<-chan ChangeEvent, func()) { return o.feed.Subscribe() }

// Run consumes clipboard changes until ctx is done. Changes are handled one
// at a time.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.log.Info("capture pipeline started")
	defer o.log.Info("capture pipeline stopped")

	events := o.source.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-events:
			res := o.Process(ctx, change)
			if res.Err != nil {
				o.log.Warn("clipboard change not recorded",
					logger.String("outcome", res.Outcome.String()),
					logger.Error(res.Err))
			}
		}
	}
}

// Process runs one change through the pipeline. It never panics; any
// failure leaves the history as it was and the pipeline Idle.
func (o *Orchestrator) Process(ctx context.Context, change watcher.Change) (res Result) {
	o.work.Lock()
	defer o.work.Unlock()

	start := time.Now()
	kind := "text"
	if change.IsImage() {
		kind = "image"
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Outcome: OutcomeFailed, Err: fmt.Errorf("pipeline panic: %v", r)}
		}
		o.setState(StateIdle)
		o.metrics.RecordCapture(kind, res.Outcome.String(), time.Since(start))
	}()

	o.setState(StateReading)
	if change.IsImage() {
		return o.processImage(ctx, change.Image)
	}
	return o.processText(ctx, change.Text)
}

func (o *Orchestrator) processText(ctx context.Context, text string) Result {
	o.setState(StateClassifying)

	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeDiscarded}
	}
	if classifier.IsSensitiveData(text) {
		o.log.Debug("sensitive clipboard content discarded")
		return Result{Outcome: OutcomeDiscarded}
	}

	a := classifier.Analyze(text)

	o.setState(StateDedupCheck)
	existing, err := o.store.FindByHash(ctx, a.ContentHash)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("dedup check: %w", err)}
	}
	if existing != nil {
		return o.bump(ctx, existing)
	}

	return o.persist(ctx, &domain.Entry{
		Content:     text,
		ContentType: a.ContentType,
		Preview:     a.Preview,
		ColorHex:    a.ColorHex,
		ContentHash: a.ContentHash,
	})
}

func (o *Orchestrator) processImage(ctx context.Context, img image.Image) Result {
	o.setState(StateClassifying)

	if o.images == nil {
		return Result{Outcome: OutcomeDiscarded}
	}

	path, err := o.images.NewPath()
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("reserve image path: %w", err)}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	hash := classifier.ComputeHash(fmt.Sprintf("%s%d%d", path, w, h))

	o.setState(StateDedupCheck)
	existing, err := o.store.FindByHash(ctx, hash)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("dedup check: %w", err)}
	}
	if existing != nil {
		return o.bump(ctx, existing)
	}

	o.setState(StatePersisting)
	if err := o.images.SaveAt(path, img); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("archive image: %w", err)}
	}

	return o.persist(ctx, &domain.Entry{
		Content:     path,
		ContentType: domain.TypeImage,
		Preview:     fmt.Sprintf("Image (%dx%d)", w, h),
		ImagePath:   path,
		ContentHash: hash,
	})
}

func (o *Orchestrator) bump(ctx context.Context, e *domain.Entry) Result {
	o.setState(StateBumping)
	if err := o.store.MoveToTop(ctx, e.ID); err != nil {
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("bump entry %d: %w", e.ID, err)}
	}
	o.feed.Publish(KindBumped, e.ID, 0)
	return Result{Outcome: OutcomeBumped, Entry: e}
}

func (o *Orchestrator) persist(ctx context.Context, e *domain.Entry) Result {
	o.setState(StatePersisting)
	stored, err := o.store.Add(ctx, e)
	if err != nil {
		// an archived image stays on disk when its row cannot be written
		return Result{Outcome: OutcomeFailed, Err: fmt.Errorf("persist entry: %w", err)}
	}
	o.feed.Publish(KindAdded, stored.ID, 0)
	o.log.Debug("clipboard entry stored",
		logger.Int64("id", stored.ID),
		logger.String("type", stored.ContentType.String()))

	o.setState(StateEvicting)
	evicted, err := o.evictLocked(ctx)
	if err != nil {
		o.log.Warn("failed to enforce history limit", logger.Error(err))
	}
	o.refreshSize(ctx)

	return Result{Outcome: OutcomeStored, Entry: stored, Evicted: evicted}
}

func (o *Orchestrator) evictLocked(ctx context.Context) (int, error) {
	n, err := o.store.EnforceLimit(ctx, o.limits.HistoryLimit())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.metrics.RecordEvictions(n)
		o.feed.Publish(KindEvicted, 0, n)
	}
	return n, nil
}

func (o *Orchestrator) refreshSize(ctx context.Context) {
	if o.metrics == nil {
		return
	}
	if n, err := o.store.Count(ctx); err == nil {
		o.metrics.SetHistorySize(n)
	}
}
