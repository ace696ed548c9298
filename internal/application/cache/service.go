// Package cache is the read-through cache over the shared key-value store.
//
// Every operation is fail-open: a store or serialization failure is logged
// and turned into a miss or a no-op, never returned. The cache is advisory;
// callers always have the system of record to fall back on.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/event-snap/internal/infrastructure/kvstore"
)

// factoryTimeout bounds a shared GetOrSet factory call.
const factoryTimeout = 30 * time.Second

// Service wraps a kvstore.Store with typed, fail-open operations.
// The typed operations are package functions because Go methods cannot
// take type parameters: Get, Set and GetOrSet.
type Service struct {
	store  kvstore.Store
	log    *slog.Logger
	flight singleflight.Group
	tracer trace.Tracer
}

// NewService builds a Service. A nil logger falls back to slog.Default().
func NewService(store kvstore.Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		log:    log.With("component", "cache"),
		tracer: otel.Tracer("github.com/event-snap/internal/application/cache"),
	}
}

// Get returns the value cached under key. A miss, a store error and a
// payload that does not decode into T all report false.
func Get[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.log.Error("cache get failed", "key", key, "err", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Error("cache decode failed", "key", key, "err", err)
		return zero, false
	}
	return v, true
}

// Set stores value under key. ttl <= 0 means no expiry. Failures are logged only.
func Set[T any](ctx context.Context, s *Service, key string, value T, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Error("cache encode failed", "key", key, "err", err)
		return
	}
	if err := s.store.Set(ctx, key, raw, ttl); err != nil {
		s.log.Error("cache set failed", "key", key, "err", err)
	}
}

// GetOrSet returns the cached value for key or, on a miss, the result of
// factory, which is then cached for ttl. Concurrent misses inside this process
// share one factory call; misses in other processes may still each run their
// own and the last write wins, which is fine while factories are idempotent
// reads of the system of record. A factory error is returned and nothing is
// cached.
//
// The shared call runs detached from the caller that started it, bounded by
// factoryTimeout. Each caller stops waiting when its own ctx ends.
func GetOrSet[T any](ctx context.Context, s *Service, key string, factory func(context.Context) (T, error), ttl time.Duration) (T, error) {
	var zero T
	ctx, span := s.tracer.Start(ctx, "cache.GetOrSet", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if v, ok := Get[T](ctx, s, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	ch := s.flight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), factoryTimeout)
		defer cancel()
		v, err := factory(fctx)
		if err != nil {
			return nil, err
		}
		Set(fctx, s, key, v, ttl)
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		return zero, res.Err
	}
	if res.Val == nil {
		return zero, nil
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cache %s: shared result has type %T", key, res.Val)
	}
	return v, nil
}

// Del removes key, best effort.
func (s *Service) Del(ctx context.Context, key string) {
	if _, err := s.store.Del(ctx, key); err != nil {
		s.log.Error("cache delete failed", "key", key, "err", err)
	}
}

// DelMany removes several keys in one round trip, best effort.
func (s *Service) DelMany(ctx context.Context, keys ...string) {
	if _, err := s.store.Del(ctx, keys...); err != nil {
		s.log.Error("cache delete failed", "keys", keys, "err", err)
	}
}

// DelByPattern removes every key matching a glob pattern, best effort.
func (s *Service) DelByPattern(ctx context.Context, pattern string) {
	n, err := s.store.DelPattern(ctx, pattern)
	if err != nil {
		s.log.Error("cache delete by pattern failed", "pattern", pattern, "err", err)
		return
	}
	if n > 0 {
		s.log.Debug("cache keys deleted", "pattern", pattern, "count", n)
	}
}

// Exists reports whether key is present; false on error.
func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.log.Error("cache exists failed", "key", key, "err", err)
		return false
	}
	return ok
}

// TTL returns the remaining lifetime of key, or kvstore.NoExpiry on error.
func (s *Service) TTL(ctx context.Context, key string) time.Duration {
	d, err := s.store.TTL(ctx, key)
	if err != nil {
		s.log.Error("cache ttl failed", "key", key, "err", err)
		return kvstore.NoExpiry
	}
	return d
}

// Increment adds one to the counter at key and returns the new value. When
// ttl > 0 the increment that creates the counter also gives it that expiry;
// later increments leave it alone. Returns 0 when the store fails.
func (s *Service) Increment(ctx context.Context, key string, ttl time.Duration) int64 {
	var (
		n   int64
		err error
	)
	if ttl > 0 {
		n, err = s.store.IncrWindow(ctx, key, ttl)
	} else {
		n, err = s.store.Incr(ctx, key)
	}
	if err != nil {
		s.log.Error("cache increment failed", "key", key, "err", err)
		return 0
	}
	return n
}
