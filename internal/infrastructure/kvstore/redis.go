package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindowScript increments KEYS[1] and attaches ARGV[1] milliseconds of
// expiry only on the increment that created the key.
var incrWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// scanCount is the COUNT hint passed to SCAN while enumerating a pattern.
const scanCount = 500

type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	// OpTimeout bounds each read and write on the connection.
	OpTimeout time.Duration
}

// Redis is a Store backed by a Redis server. It is the only backend that can
// be shared between processes.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a client; no connection is made until the first command.
func NewRedis(opts RedisOptions) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
	})}
}

// NewRedisFromClient wraps an existing client. Close closes it.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // a negative expiration means KEEPTTL to go-redis
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	return r.client.Del(ctx, keys...).Result()
}

func (r *Redis) DelPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		page, next, err := r.client.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return 0, err
		}
		keys = append(keys, page...)
		if next == 0 {
			break
		}
		cursor = next
	}
	return r.Del(ctx, dedupe(keys)...)
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *Redis) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrWindowScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64()
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.client.Expire(ctx, key, ttl).Result()
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n == 1, err
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis passes the -1/-2 replies through unscaled.
	switch d {
	case -1:
		return NoExpiry, nil
	case -2:
		return KeyMissing, nil
	}
	return d, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// dedupe drops the repeats SCAN is allowed to return across iterations.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
