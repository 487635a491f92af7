// Package settings persists AppSettings as a YAML document and reloads it
// when the file changes on disk.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/clipflow/internal/domain"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
)

var (
	// ErrInvalid is returned by Save for settings that cannot be applied.
	ErrInvalid = errors.New("settings: invalid")

	// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
	ErrWatcherFailed = errors.New("settings: failed to initialize filesystem watcher")
)

// Validate checks the fields the core depends on.
func Validate(s domain.AppSettings) error {
	if s.HistoryLimit < 1 {
		return fmt.Errorf("%w: history_limit must be >= 1, got %d", ErrInvalid, s.HistoryLimit)
	}
	if s.Hotkey.Key < 0 || s.Hotkey.Modifiers < 0 {
		return fmt.Errorf("%w: hotkey must not be negative", ErrInvalid)
	}
	return nil
}

// Service owns the settings file.
type Service struct {
	path string
	log  logger.Logger

	mu      sync.RWMutex
	current domain.AppSettings

	changes chan domain.AppSettings

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
}

// New creates a service for the file at path. Call Load before use.
func New(path string, log logger.Logger) *Service {
	return &Service{
		path:    path,
		log:     log,
		current: domain.DefaultSettings(),
		changes: make(chan domain.AppSettings, 1),
	}
}

// Path returns the settings file path.
func (s *Service) Path() string { return s.path }

// Load reads the file, creating it with defaults on first run.
func (s *Service) Load() (domain.AppSettings, error) {
	loaded, err := s.read()
	if errors.Is(err, fs.ErrNotExist) {
		def := domain.DefaultSettings()
		if err := s.write(def); err != nil {
			return def, err
		}
		s.set(def)
		s.log.Info("settings file created", logger.String("path", s.path))
		return def, nil
	}
	if err != nil {
		return s.Get(), err
	}

	s.set(loaded)
	return loaded, nil
}

// read parses the file over the defaults so missing keys keep their
// default value.
func (s *Service) read() (domain.AppSettings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.AppSettings{}, err
	}

	out := domain.DefaultSettings()
	if err := yaml.Unmarshal(data, &out); err != nil {
		return domain.AppSettings{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if err := Validate(out); err != nil {
		s.log.Warn("settings file has invalid values, using defaults for them",
			logger.String("path", s.path),
			logger.Error(err))
		def := domain.DefaultSettings()
		if out.HistoryLimit < 1 {
			out.HistoryLimit = def.HistoryLimit
		}
		if out.Hotkey.Key < 0 || out.Hotkey.Modifiers < 0 {
			out.Hotkey = def.Hotkey
		}
	}
	return out, nil
}

func (s *Service) write(v domain.AppSettings) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// Get returns the current settings.
func (s *Service) Get() domain.AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// HistoryLimit returns the configured number of unpinned entries to keep.
func (s *Service) HistoryLimit() int {
	return s.Get().HistoryLimit
}

// Save validates v, writes it and publishes it on Changes.
func (s *Service) Save(v domain.AppSettings) error {
	if err := Validate(v); err != nil {
		return err
	}
	if err := s.write(v); err != nil {
		return err
	}
	s.set(v)
	return nil
}

// Changes delivers the latest settings after each effective change.
// Only the most recent value is buffered.
func (s *Service) Changes() <-chan domain.AppSettings { return s.changes }

func (s *Service) set(v domain.AppSettings) {
	s.mu.Lock()
	changed := !reflect.DeepEqual(s.current, v)
	s.current = v.Clone()
	s.mu.Unlock()

	if !changed {
		return
	}

	// keep only the newest value
	select {
	case <-s.changes:
	default:
	}
	select {
	case s.changes <- v.Clone():
	default:
	}
}

// Watch reloads the file whenever it is written, created or renamed into
// place. It returns once the watcher is installed.
func (s *Service) Watch(ctx context.Context) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	// editors replace files, so watch the directory rather than the file
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch settings dir: %w", err)
	}

	s.watcher = w
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.processEvents(ctx, w, s.stop, s.done)
	return nil
}

// Stop stops watching. Safe to call more than once.
func (s *Service) Stop() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher == nil {
		return
	}
	close(s.stop)
	_ = s.watcher.Close()
	<-s.done
	s.watcher = nil
}

func (s *Service) processEvents(ctx context.Context, w *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)

	target := filepath.Clean(s.path)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.reload()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("settings watcher error", logger.Error(err))
		}
	}
}

func (s *Service) reload() {
	v, err := s.read()
	if err != nil {
		// half-written or removed file: keep the last good settings
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("failed to reload settings", logger.String("path", s.path), logger.Error(err))
		}
		return
	}

	before := s.HistoryLimit()
	s.set(v)
	if v.HistoryLimit != before {
		s.log.Info("settings reloaded",
			logger.Int("history_limit", v.HistoryLimit),
			logger.Int("previous_history_limit", before))
	}
}
