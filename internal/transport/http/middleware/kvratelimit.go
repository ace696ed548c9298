package middleware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/event-snap/internal/application/quota"
	"github.com/event-snap/internal/domain"
)

type windowLimiter interface {
	Allow(ctx context.Context, route, clientAddr string) (quota.Decision, error)
}

// KVRateLimit counts every request against the shared fixed window for route,
// keyed by client IP. Rejected requests get 429 with Retry-After; when the
// counter cannot be reached the request is refused with 503 rather than let through.
func KVRateLimit(limiter windowLimiter, route string, ips *ClientIP, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Allow(r.Context(), route, ips.Of(r))
			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			}
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, domain.ErrRateLimited):
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.ResetAfter.Seconds()))))
				writeJSONError(w, r, http.StatusTooManyRequests, "too many requests")
			default:
				log.Error("rate limit check failed", "route", route, "err", err)
				writeJSONError(w, r, http.StatusServiceUnavailable, "service unavailable")
			}
		})
	}
}
