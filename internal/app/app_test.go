package app

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/clipflow/internal/collab"
	"github.com/MrSnakeDoc/clipflow/internal/config"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/watcher/watchertest"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ListenAddr:      "127.0.0.1:0",
		ShutdownTimeout: 2 * time.Second,
		Store:           store,
		DBPath:          filepath.Join(dir, "clipboard.db"),
		ImagesDir:       filepath.Join(dir, "images"),
		SettingsFile:    filepath.Join(dir, "settings.yaml"),
		SweepInterval:   time.Hour,
		SettleDelay:     time.Millisecond,
		SSEHeartbeat:    time.Hour,
	}
}

func TestOpenStorage(t *testing.T) {
	tests := []struct {
		store   string
		wantErr bool
	}{
		{store: config.StoreSQLite},
		{store: config.StoreMemory},
		{store: "postgres", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			ctx := context.Background()
			s, err := OpenStorage(ctx, testConfig(t, tt.store), logger.NewNop())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.store, s.Kind)
			assert.NoError(t, s.Ping(ctx))

			n, err := s.Store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestRunCapturesAndExitsOnTraySignal(t *testing.T) {
	fake := watchertest.New()
	a, err := New(context.Background(), testConfig(t, config.StoreMemory), logger.NewNop(), fake)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, a.watcher.Running, 2*time.Second, 5*time.Millisecond)

	count := func() int {
		n, _ := a.storage.Store.Count(context.Background())
		return n
	}

	for i := 0; i < 3; i++ {
		fake.EmitText(fmt.Sprintf("entry %d", i))
	}
	require.Eventually(t, func() bool { return count() == 3 }, 2*time.Second, 5*time.Millisecond)

	// lowering the limit triggers an immediate sweep
	s := a.settings.Get()
	s.HistoryLimit = 1
	require.NoError(t, a.settings.Save(s))
	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, a.tray.Raise(collab.SignalExit))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after exit signal")
	}
	assert.False(t, a.watcher.Running())
}

func TestCollaboratorSignalsReachFeed(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.StoreMemory), logger.NewNop(), watchertest.New())
	require.NoError(t, err)
	defer a.shutdownStorage()

	events, cancel := a.orch.Subscribe()
	defer cancel()

	a.OnVisibility()
	a.OnSettings()

	for _, want := range []string{"visibility", "settings"} {
		select {
		case ev := <-events:
			assert.Equal(t, want, string(ev.Kind))
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", want)
		}
	}

	a.OnExit()
	a.OnExit()
	_, open := <-a.exit
	assert.False(t, open)
}

func TestWatcherReadiness(t *testing.T) {
	a, err := New(context.Background(), testConfig(t, config.StoreMemory), logger.NewNop(), watchertest.New())
	require.NoError(t, err)
	defer a.shutdownStorage()

	assert.ErrorIs(t, a.watcherReady(context.Background()), ErrWatcherNotRunning)
}
