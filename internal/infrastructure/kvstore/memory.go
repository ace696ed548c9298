package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Store. It is not shared between processes, so it
// only suits single-instance deployments and local development.
type Memory struct {
	// mu serialises read-modify-write sequences; go-cache guards single calls.
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewMemory creates a Memory store whose expired entries are purged every
// cleanupInterval.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.([]byte)...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Set(key, append([]byte(nil), value...), expiration(ttl))
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.cache.Get(k); ok {
			m.cache.Delete(k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DelPattern(ctx context.Context, pattern string) (int64, error) {
	g, err := compilePattern(pattern)
	if err != nil {
		return 0, err
	}
	var keys []string
	for k := range m.cache.Items() {
		if g.Match(k) {
			keys = append(keys, k)
		}
	}
	return m.Del(ctx, keys...)
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _, err := m.incrLocked(key)
	return n, err
}

func (m *Memory) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, exp, err := m.incrLocked(key)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		exp = window
	}
	m.cache.Set(key, []byte(strconv.FormatInt(n, 10)), expiration(exp))
	return n, nil
}

// incrLocked computes the incremented value and stores it with the key's
// current expiry. It returns that expiry so callers can re-set it.
func (m *Memory) incrLocked(key string) (int64, time.Duration, error) {
	var (
		n   int64
		ttl time.Duration
	)
	if v, exp, ok := m.cache.GetWithExpiration(key); ok {
		cur, err := strconv.ParseInt(string(v.([]byte)), 10, 64)
		if err != nil {
			return 0, 0, ErrNotInteger
		}
		n = cur
		if !exp.IsZero() {
			if ttl = time.Until(exp); ttl <= 0 {
				n, ttl = 0, 0 // expired between the lookup and now
			}
		}
	}
	n++
	m.cache.Set(key, []byte(strconv.FormatInt(n, 10)), expiration(ttl))
	return n, ttl, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cache.Get(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		m.cache.Delete(key)
		return true, nil
	}
	m.cache.Set(key, v, ttl)
	return true, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.cache.Get(key)
	return ok, nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	_, exp, ok := m.cache.GetWithExpiration(key)
	if !ok {
		return KeyMissing, nil
	}
	if exp.IsZero() {
		return NoExpiry, nil
	}
	return time.Until(exp), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}

// expiration maps a Store ttl onto go-cache, where 0 would mean "default".
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}
