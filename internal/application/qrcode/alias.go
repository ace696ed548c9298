package qrcode

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/domain"
)

const (
	keyPrefix    = "qrcode"
	statsPattern = keyPrefix + ":stats:*"
)

func idKey(id string) string       { return keyPrefix + ":id:" + id }
func tokenKey(token string) string { return keyPrefix + ":token:" + token }

// statsKey is order-independent: the same owner set always maps to one key.
func statsKey(ownerIDs []string) string {
	ids := slices.Clone(ownerIDs)
	slices.Sort(ids)
	return keyPrefix + ":stats:" + strings.Join(slices.Compact(ids), ",")
}

// AliasCache keeps one QR code cached under both its id and its token.
// The two entries are always written and removed together.
type AliasCache struct {
	cache  *cache.Service
	policy TTLPolicy
	now    func() time.Time
}

func NewAliasCache(c *cache.Service, policy TTLPolicy) *AliasCache {
	return &AliasCache{cache: c, policy: policy, now: time.Now}
}

// Put caches q under both aliases with a lifetime derived from q.ExpiresAt.
func (a *AliasCache) Put(ctx context.Context, q *domain.QRCode) {
	ttl := a.policy.For(q.ExpiresAt, a.now())
	cache.Set(ctx, a.cache, idKey(q.QRCodeID), q, ttl)
	cache.Set(ctx, a.cache, tokenKey(q.Token), q, ttl)
}

func (a *AliasCache) ByID(ctx context.Context, id string) (*domain.QRCode, bool) {
	return cache.Get[*domain.QRCode](ctx, a.cache, idKey(id))
}

func (a *AliasCache) ByToken(ctx context.Context, token string) (*domain.QRCode, bool) {
	return cache.Get[*domain.QRCode](ctx, a.cache, tokenKey(token))
}

// Lookup treats ref as an id first and a token second.
func (a *AliasCache) Lookup(ctx context.Context, ref string) (*domain.QRCode, bool) {
	if q, ok := a.ByID(ctx, ref); ok {
		return q, true
	}
	return a.ByToken(ctx, ref)
}

// Invalidate drops both aliases of q and every cached owner aggregate,
// since any of them may count q.
func (a *AliasCache) Invalidate(ctx context.Context, q *domain.QRCode) {
	a.cache.DelMany(ctx, idKey(q.QRCodeID), tokenKey(q.Token))
	a.cache.DelByPattern(ctx, statsPattern)
}

// Stats returns the cached aggregate for ownerIDs, computing it on a miss.
func (a *AliasCache) Stats(ctx context.Context, ownerIDs []string, ttl time.Duration, load func(context.Context) (domain.QRStatusCounts, error)) (domain.QRStatusCounts, error) {
	return cache.GetOrSet(ctx, a.cache, statsKey(ownerIDs), load, ttl)
}
