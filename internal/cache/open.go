package cache

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"streamtap/internal/config"
)

// Open returns the store selected by cfg. dataDir holds the SQLite file when
// cfg.Path is empty.
func Open(ctx context.Context, cfg config.CacheConfig, dataDir string, log *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "cache.db")
		}
		return NewSQLiteStore(ctx, path, log)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend redis needs redis_url")
		}
		return NewRedisStore(ctx, cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// TTL converts the configured seconds, falling back to DefaultTTL.
func TTL(cfg config.CacheConfig) time.Duration {
	if cfg.TTLSecs <= 0 {
		return DefaultTTL
	}
	return time.Duration(cfg.TTLSecs) * time.Second
}
