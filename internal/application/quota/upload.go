package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/domain"
)

type uploadCounter interface {
	CountByQRCode(ctx context.Context, qrCodeID string) (int, error)
}

func uploadCountKey(qrCodeID string) string { return "upload:count:" + qrCodeID }

// QuotaGuard enforces the per-event upload ceiling. The check reads the
// current count and does not reserve a slot, so concurrent uploads can
// overshoot the ceiling by a few.
type QuotaGuard struct {
	counter  uploadCounter
	cache    *cache.Service
	ceiling  int
	countTTL time.Duration
}

func NewQuotaGuard(counter uploadCounter, c *cache.Service, ceiling int, countTTL time.Duration) *QuotaGuard {
	return &QuotaGuard{counter: counter, cache: c, ceiling: ceiling, countTTL: countTTL}
}

// CheckUpload returns domain.ErrQuotaExceeded when the event already holds
// ceiling uploads.
func (g *QuotaGuard) CheckUpload(ctx context.Context, qrCodeID string) error {
	n, err := g.Count(ctx, qrCodeID)
	if err != nil {
		return fmt.Errorf("count uploads for %s: %w", qrCodeID, err)
	}
	if n >= g.ceiling {
		return fmt.Errorf("event %s has %d of %d uploads: %w", qrCodeID, n, g.ceiling, domain.ErrQuotaExceeded)
	}
	return nil
}

// Count returns the number of uploads held by the event, cached briefly.
func (g *QuotaGuard) Count(ctx context.Context, qrCodeID string) (int, error) {
	return cache.GetOrSet(ctx, g.cache, uploadCountKey(qrCodeID), func(ctx context.Context) (int, error) {
		return g.counter.CountByQRCode(ctx, qrCodeID)
	}, g.countTTL)
}

// Forget drops the cached count after the event gained or lost an upload.
func (g *QuotaGuard) Forget(ctx context.Context, qrCodeID string) {
	g.cache.Del(ctx, uploadCountKey(qrCodeID))
}
