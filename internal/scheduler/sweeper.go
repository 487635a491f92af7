package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

// DefaultSweepInterval is how often the history limit is re-applied when no
// interval is configured.
const DefaultSweepInterval = 5 * time.Minute

// Enforcer applies the history limit and reports how many entries it removed.
type Enforcer interface {
	EnforceLimit(ctx context.Context) (int, error)
}

// Sweeper periodically re-applies the history limit. Captures already
// evict as they go; the sweeper catches up after the limit is lowered or
// after entries were written by another process sharing the store.
type Sweeper struct {
	enforcer      Enforcer
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger <-chan struct{}
	started       atomic.Bool
	done          chan struct{}
}

// NewSweeper creates a sweeper. manualTrigger may be nil.
func NewSweeper(
	enforcer Enforcer,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Sweeper{
		enforcer:      enforcer,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		done:          make(chan struct{}),
	}
}

// Start runs one sweep immediately and then sweeps on every tick or
// manual trigger until Stop is called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	s.started.Store(true)
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Warn("initial history sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweepLogged(ctx)
			case _, ok := <-s.manualTrigger:
				if !ok {
					s.manualTrigger = nil
					continue
				}
				s.logger.Debug("manual history sweep triggered")
				s.sweepLogged(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the sweeper and waits for its goroutine to exit. It is safe to
// call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started.Load() {
		<-s.done
	}
}

// Sweep applies the history limit once.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	n, err := s.enforcer.EnforceLimit(ctx)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		s.logger.Info("history sweep completed",
			logger.Int("evicted", n))
	} else {
		s.logger.Debug("no entries to evict")
	}
	return n, nil
}

func (s *Sweeper) sweepLogged(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("history sweep failed",
			logger.Error(err))
	}
}
