// Package kvstore is the thin handle to the shared TTL-capable key-value store.
//
// Every backend reports failures to the caller unchanged: there are no retries
// or fallbacks at this layer. Callers decide whether a failure is fatal
// (admission control, verification codes) or degrades to a miss (cache).
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/event-snap/internal/config"
)

var (
	// ErrNotFound is returned by Get when the key is absent or has expired.
	ErrNotFound = errors.New("kvstore: not found")
	// ErrNotInteger is returned when incrementing a value that is not a base-10 integer.
	ErrNotInteger = errors.New("kvstore: value is not an integer")
)

// TTL sentinels, matching the values the Redis TTL command reports.
const (
	NoExpiry   time.Duration = -1
	KeyMissing time.Duration = -2
)

// Store is the contract every backend satisfies. Implementations must be safe
// for concurrent use by multiple goroutines.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. ttl <= 0 stores it without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	// DelPattern enumerates keys matching a glob-style pattern and deletes
	// them in one batch. No match is not an error.
	DelPattern(ctx context.Context, pattern string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	// IncrWindow increments key and, only when the result is 1, attaches
	// window as its expiry. Both steps happen atomically.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining lifetime, NoExpiry, or KeyMissing.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Backend. The caller owns the
// returned handle and must Close it on shutdown.
func Open(ctx context.Context, cfg config.KVConfig) (Store, error) {
	switch cfg.Backend {
	case "", "redis":
		s := NewRedis(RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: cfg.DialTimeout,
			OpTimeout:   cfg.OpTimeout,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return s, nil
	case "memory":
		return NewMemory(time.Minute), nil
	case "bolt":
		return OpenBolt(cfg.BoltPath, BoltOptions{})
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.Backend)
	}
}
