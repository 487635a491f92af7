package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/clipflow/internal/archive"
	"github.com/MrSnakeDoc/clipflow/internal/config"
	"github.com/MrSnakeDoc/clipflow/internal/history"
	"github.com/MrSnakeDoc/clipflow/internal/logger"
	"github.com/MrSnakeDoc/clipflow/internal/redis"
	"github.com/MrSnakeDoc/clipflow/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/clipflow/internal/store/redis"
	"github.com/MrSnakeDoc/clipflow/internal/store/sqlite"
)

// Storage is the history store together with its image archive.
type Storage struct {
	Store   *history.Store
	Archive *archive.Archive
	Kind    string

	ping func(ctx context.Context) error
}

// OpenStorage opens the configured history backend and image archive.
func OpenStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*Storage, error) {
	arc, err := archive.New(cfg.ImagesDir, log)
	if err != nil {
		return nil, fmt.Errorf("open image archive: %w", err)
	}

	var (
		backend history.Backend
		ping    func(ctx context.Context) error
	)

	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		backend, ping = db, db.Ping
		log.Info("sqlite history opened", logger.String("path", cfg.DBPath))

	case config.StoreRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis history: %w", err)
		}
		rs := redisstore.NewStore(client, cfg.RedisPrefix)
		backend, ping = rs, rs.Ping

	case config.StoreMemory:
		backend = memory.New()
		ping = func(context.Context) error { return nil }
		log.Warn("in-memory history: entries are lost on exit")

	default:
		return nil, fmt.Errorf("unknown history store %q", cfg.Store)
	}

	return &Storage{
		Store:   history.New(backend, arc, log),
		Archive: arc,
		Kind:    cfg.Store,
		ping:    ping,
	}, nil
}

// Ping checks the backend is reachable.
func (s *Storage) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close closes the backend.
func (s *Storage) Close() error { return s.Store.Close() }
