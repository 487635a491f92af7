// Package app wires the clipboard daemon together and runs it until a
// signal or the tray's exit request.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/collab"
	"github.com/MrSnakeDoc/clipflow/internal/config"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver"
	"github.com/MrSnakeDoc/clipflow/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/metrics"
	"github.com/MrSnakeDoc/clipflow/internal/pipeline"
	"github.com/MrSnakeDoc/clipflow/internal/scheduler"
	"github.com/MrSnakeDoc/clipflow/internal/settings"
	"github.com/MrSnakeDoc/clipflow/internal/utils"
	"github.com/MrSnakeDoc/clipflow/internal/version"
	"github.com/MrSnakeDoc/clipflow/internal/watcher"
)

// ErrWatcherNotRunning is reported by the readiness probe while the
// clipboard watcher is stopped.
var ErrWatcherNotRunning = errors.New("clipboard watcher not running")

type App struct {
	cfg      *config.Config
	logger   logger.Logger
	storage  *Storage
	settings *settings.Service
	metrics  *metrics.Metrics
	watcher  *watcher.Watcher
	orch     *pipeline.Orchestrator
	sweeper  *scheduler.Sweeper
	server   *httpserver.Server
	hotkey   *collab.Emitter
	tray     *collab.Emitter

	sweepTrigger chan struct{}
	exit         chan struct{}
	exitOnce     sync.Once
}

// New opens storage and settings and wires every component. platform is
// the clipboard implementation, usually watcher.System{}.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, platform watcher.Platform) (*App, error) {
	storage, err := OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	svc := settings.New(cfg.SettingsFile, log.Named("settings"))
	if _, err := svc.Load(); err != nil {
		utils.CloseLogged(storage, "history store", log)
		return nil, fmt.Errorf("load settings: %w", err)
	}

	m := metrics.New()
	w := watcher.New(platform, log.Named("watcher"))
	m.RegisterDropped(w.Dropped)
	m.RegisterEchoes(w.Echoes)

	orch := pipeline.New(pipeline.Deps{
		Source:      w,
		Clipboard:   w,
		Store:       storage.Store,
		Images:      storage.Archive,
		Limits:      svc,
		Metrics:     m,
		Logger:      log.Named("pipeline"),
		SettleDelay: cfg.SettleDelay,
	})

	sweepTrigger := make(chan struct{}, 1)

	a := &App{
		cfg:          cfg,
		logger:       log,
		storage:      storage,
		settings:     svc,
		metrics:      m,
		watcher:      w,
		orch:         orch,
		sweeper:      scheduler.NewSweeper(orch, log.Named("sweeper"), cfg.SweepInterval, sweepTrigger),
		hotkey:       collab.NewHotkey(),
		tray:         collab.NewTray(),
		sweepTrigger: sweepTrigger,
		exit:         make(chan struct{}),
	}

	httpLog := log.Named("http")
	a.server = httpserver.New(cfg, httpLog, deps.Deps{
		Logger:        httpLog,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		History:       orch,
		Images:        storage.Archive,
		ThumbnailSize: cfg.ThumbnailSize,
		Settings:      svc,
		Collaborators: []*collab.Emitter{a.hotkey, a.tray},
		Checks: []deps.Check{
			{Name: storage.Kind, Ping: storage.Ping},
			{Name: "watcher", Ping: a.watcherReady},
		},
		Gatherer:  m.Registry,
		Heartbeat: cfg.SSEHeartbeat,
	})

	return a, nil
}

func (a *App) Run() error {
	a.logger.Info("starting clipflow",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("built", version.BuildDate),
		logger.String("go", version.GoVersion),
		logger.String("store", a.storage.Kind),
		logger.String("addr", a.server.Addr()))

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if err := a.settings.Watch(ctx); err != nil {
		a.logger.Warn("settings hot reload disabled", logger.Error(err))
	}

	if err := a.watcher.Start(ctx); err != nil {
		a.shutdownStorage()
		return fmt.Errorf("failed to start clipboard watcher: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_ = a.orch.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.forwardSettings(ctx)
	}()
	go func() {
		defer wg.Done()
		collab.Dispatch(ctx, a, a.logger, a.hotkey, a.tray)
	}()

	if err := a.sweeper.Start(ctx); err != nil {
		cancel()
		wg.Wait()
		a.watcher.Stop()
		a.shutdownStorage()
		return fmt.Errorf("failed to start history sweeper: %w", err)
	}
	a.logger.Info("history sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case <-a.exit:
		a.logger.Info("exit requested, shutting down")
	case runErr = <-errCh:
		a.logger.Error("control API failed", logger.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("failed to stop control API", logger.Error(err))
	}

	a.sweeper.Stop()
	a.settings.Stop()
	cancel()
	a.watcher.Stop()
	wg.Wait()
	a.shutdownStorage()

	a.logger.Info("clipflow stopped cleanly")
	_ = a.logger.Sync()
	return runErr
}

// forwardSettings turns settings changes into immediate sweeps so a lowered
// history limit applies without waiting for the next tick.
func (a *App) forwardSettings(ctx context.Context) {
	changes := a.settings.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-changes:
			a.logger.Info("settings changed",
				logger.Int("history_limit", s.HistoryLimit))
			select {
			case a.sweepTrigger <- struct{}{}:
			default:
			}
		}
	}
}

func (a *App) watcherReady(context.Context) error {
	if !a.watcher.Running() {
		return ErrWatcherNotRunning
	}
	return nil
}

func (a *App) shutdownStorage() {
	utils.CloseLogged(a.storage, "history store", a.logger)
}

// OnVisibility implements collab.Handler.
func (a *App) OnVisibility() { a.orch.NotifyVisibility() }

// OnSettings implements collab.Handler.
func (a *App) OnSettings() { a.orch.NotifySettings() }

// OnExit implements collab.Handler.
func (a *App) OnExit() {
	a.exitOnce.Do(func() { close(a.exit) })
}
