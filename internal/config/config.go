// Package config reads the daemon configuration from CLIPFLOW_* environment
// variables.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/clipflow/internal/utils"
)

// History backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// listOff disables an allow-list entirely.
const listOff = "off"

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:7878"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Storage
	DataDir      string // base directory for the database, images and settings
	Store        string // "sqlite" | "redis" | "memory"
	DBPath       string // sqlite database file
	ImagesDir    string // archived clipboard images
	SettingsFile string // settings.yaml

	// Pipeline
	SweepInterval time.Duration // periodic history-limit enforcement (default: 5m)
	SettleDelay   time.Duration // wait after copying an entry back before capture resumes
	ThumbnailSize int           // longest thumbnail edge in pixels
	SSEHeartbeat  time.Duration // keep-alive interval of the event stream

	// Redis (only when Store == "redis")
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisPrefix           string        // key prefix, ex: "clipflow"
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AllowedHosts    []string // Host headers accepted by the API ("off" disables the check)
	AllowedCIDRS    []string // client IPs/CIDRs accepted by the API ("off" disables the check)
	TrustProxy      bool     // true => trust X-Forwarded-For headers
	RateLimitBurst  int      // per-client burst, 0 disables rate limiting
	RateLimitPerMin int      // per-client refill per minute
}

func Load() *Config {
	dataDir := getenv("CLIPFLOW_DATA_DIR", defaultDataDir())

	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("CLIPFLOW_LISTEN_ADDR", "127.0.0.1:7878"),
		ShutdownTimeout: mustDuration("CLIPFLOW_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("CLIPFLOW_LOG_LEVEL", "info"),
		PrettyLog: mustBool("CLIPFLOW_PRETTY_LOG", false),

		// Storage
		DataDir:      dataDir,
		Store:        strings.ToLower(getenv("CLIPFLOW_STORE", StoreSQLite)),
		DBPath:       getenv("CLIPFLOW_DB_PATH", filepath.Join(dataDir, "clipboard.db")),
		ImagesDir:    getenv("CLIPFLOW_IMAGES_DIR", filepath.Join(dataDir, "images")),
		SettingsFile: getenv("CLIPFLOW_SETTINGS_FILE", filepath.Join(dataDir, "settings.yaml")),

		// Pipeline
		SweepInterval: mustDuration("CLIPFLOW_SWEEP_INTERVAL", 5*time.Minute),
		SettleDelay:   mustDuration("CLIPFLOW_SETTLE_DELAY", 100*time.Millisecond),
		ThumbnailSize: getenvInt("CLIPFLOW_THUMBNAIL_SIZE", 150),
		SSEHeartbeat:  mustDuration("CLIPFLOW_SSE_HEARTBEAT", 30*time.Second),

		// Access restrictions
		AllowedHosts:    parseList("CLIPFLOW_ALLOWED_HOSTS", []string{"127.0.0.1", "localhost", "[::1]"}),
		AllowedCIDRS:    parseList("CLIPFLOW_ALLOWED_CIDRS", utils.LoopbackCIDRS),
		TrustProxy:      mustBool("CLIPFLOW_TRUST_PROXY", false),
		RateLimitBurst:  getenvInt("CLIPFLOW_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("CLIPFLOW_RATE_LIMIT_PER_MIN", 600),
	}

	switch cfg.Store {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		loadRedis(cfg)
	default:
		panic(fmt.Sprintf("❌ FATAL: CLIPFLOW_STORE must be sqlite, redis or memory, got %q", cfg.Store))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("CLIPFLOW_REDIS_ADDR")
	cfg.RedisUser = getenv("CLIPFLOW_REDIS_USERNAME", "")
	cfg.RedisPasswordRequired = mustBool("CLIPFLOW_REDIS_PASSWORD_REQUIRED", false)
	cfg.RedisPassword = getenv("CLIPFLOW_REDIS_PASSWORD", "")
	cfg.RedisDB = requireEnvInt("CLIPFLOW_REDIS_DB")
	cfg.RedisPrefix = getenv("CLIPFLOW_REDIS_PREFIX", "clipflow")
	cfg.RedisDT = mustDuration("CLIPFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("CLIPFLOW_REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("CLIPFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("CLIPFLOW_REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("CLIPFLOW_REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("CLIPFLOW_REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("CLIPFLOW_REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("CLIPFLOW_REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("CLIPFLOW_REDIS_WARN_THRESHOLD", 3)

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: CLIPFLOW_REDIS_PASSWORD is required when CLIPFLOW_REDIS_PASSWORD_REQUIRED=true")
	}
}

// defaultDataDir is <user config dir>/clipflow, or ./.clipflow when the
// platform has none.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "clipflow")
	}
	return ".clipflow"
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseList reads a comma-separated list. Unset keeps def; "off" yields nil.
func parseList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	switch {
	case v == "":
		return append([]string(nil), def...)
	case strings.EqualFold(v, listOff):
		return nil
	}
	return splitAndTrim(v)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
