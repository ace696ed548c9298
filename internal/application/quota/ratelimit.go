// Package quota holds the admission checks run before a write is accepted:
// a fixed-window request limiter and a per-event upload ceiling.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/infrastructure/kvstore"
)

// Decision describes the window a request was counted in.
type Decision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
	// ResetAfter is only filled in when the request was rejected.
	ResetAfter time.Duration
}

// RateLimiter counts requests per route and client in fixed windows that
// start at the first request. Unlike the cache, it never fails open.
type RateLimiter struct {
	store  kvstore.Store
	limit  int64
	window time.Duration
	log    *slog.Logger
}

func NewRateLimiter(store kvstore.Store, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{store: store, limit: int64(limit), window: window, log: log}
}

func rateLimitKey(route, clientAddr string) string {
	return "rate-limit:" + route + ":" + clientAddr
}

// Allow counts one request. It returns domain.ErrRateLimited once the window
// is over its limit and domain.ErrStoreUnavailable when the count could not
// be taken.
func (l *RateLimiter) Allow(ctx context.Context, route, clientAddr string) (Decision, error) {
	key := rateLimitKey(route, clientAddr)
	n, err := l.store.IncrWindow(ctx, key, l.window)
	if err != nil {
		return Decision{Limit: l.limit}, fmt.Errorf("rate limit %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	d := Decision{
		Allowed:   n <= l.limit,
		Count:     n,
		Limit:     l.limit,
		Remaining: max(l.limit-n, 0),
	}
	if d.Allowed {
		return d, nil
	}
	d.ResetAfter = l.window
	if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
		d.ResetAfter = ttl
	}
	l.log.Warn("rate limit exceeded", "route", route, "client", clientAddr, "count", n)
	return d, fmt.Errorf("%s: %w", key, domain.ErrRateLimited)
}
