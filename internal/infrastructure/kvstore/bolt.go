package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltOptions tunes OpenBolt.
type BoltOptions struct {
	// Bucket is the name of the Bolt bucket to use. Defaults to "kv".
	Bucket string
	// Now overrides the clock used for expiry; tests drive it forward.
	Now func() time.Time
}

// Bolt is a persistent single-node Store on top of bbolt. Each value is laid
// out as an 8-byte big-endian expiry (unix milliseconds, 0 = never) followed
// by the raw payload. Expired entries read as absent and are removed the next
// time a write transaction touches them.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// OpenBolt initializes or opens a Bolt store at path.
func OpenBolt(path string, opts BoltOptions) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("kv")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bolt{db: db, bucket: bucket, now: now}, nil
}

type boltEntry struct {
	expiresAt int64 // unix ms, 0 = never
	value     []byte
}

func decodeEntry(raw []byte) boltEntry {
	return boltEntry{
		expiresAt: int64(binary.BigEndian.Uint64(raw[:8])),
		value:     raw[8:],
	}
}

func (e boltEntry) encode() []byte {
	buf := make([]byte, 8+len(e.value))
	binary.BigEndian.PutUint64(buf[:8], uint64(e.expiresAt))
	copy(buf[8:], e.value)
	return buf
}

func (b *Bolt) live(e boltEntry) bool {
	return e.expiresAt == 0 || b.now().UnixMilli() < e.expiresAt
}

func (b *Bolt) expiryFor(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return b.now().Add(ttl).UnixMilli()
}

// lookup returns the live entry for key, deleting it when expired and the
// transaction is writable.
func (b *Bolt) lookup(bk *bolt.Bucket, key string) (boltEntry, bool, error) {
	raw := bk.Get([]byte(key))
	if raw == nil {
		return boltEntry{}, false, nil
	}
	e := decodeEntry(raw)
	if b.live(e) {
		return e, true, nil
	}
	if bk.Writable() {
		if err := bk.Delete([]byte(key)); err != nil {
			return boltEntry{}, false, err
		}
	}
	return boltEntry{}, false, nil
}

func (b *Bolt) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		e, ok, err := b.lookup(tx.Bucket(b.bucket), key)
		if err != nil || !ok {
			return err
		}
		out = append([]byte{}, e.value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (b *Bolt) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := boltEntry{expiresAt: b.expiryFor(ttl), value: value}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), e.encode())
	})
}

func (b *Bolt) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		for _, k := range keys {
			_, ok, err := b.lookup(bk, k)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := bk.Delete([]byte(k)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (b *Bolt) DelPattern(ctx context.Context, pattern string) (int64, error) {
	g, err := compilePattern(pattern)
	if err != nil {
		return 0, err
	}
	var keys []string
	err = b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).ForEach(func(k, v []byte) error {
			if g.Match(string(k)) && b.live(decodeEntry(v)) {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	return b.Del(ctx, keys...)
}

func (b *Bolt) Incr(ctx context.Context, key string) (int64, error) {
	return b.incr(key, 0)
}

func (b *Bolt) IncrWindow(_ context.Context, key string, window time.Duration) (int64, error) {
	return b.incr(key, window)
}

// incr adds one to key inside a single write transaction. window, when
// positive, becomes the expiry of a key this call creates.
func (b *Bolt) incr(key string, window time.Duration) (int64, error) {
	var n int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		e, ok, err := b.lookup(bk, key)
		if err != nil {
			return err
		}
		if ok {
			cur, err := strconv.ParseInt(string(bytes.TrimSpace(e.value)), 10, 64)
			if err != nil {
				return ErrNotInteger
			}
			n = cur
		}
		n++
		if n == 1 {
			e.expiresAt = b.expiryFor(window)
		}
		e.value = []byte(strconv.FormatInt(n, 10))
		return bk.Put([]byte(key), e.encode())
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *Bolt) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	var found bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bk := tx.Bucket(b.bucket)
		e, ok, err := b.lookup(bk, key)
		if err != nil || !ok {
			return err
		}
		found = true
		if ttl <= 0 {
			return bk.Delete([]byte(key))
		}
		e.expiresAt = b.expiryFor(ttl)
		return bk.Put([]byte(key), e.encode())
	})
	return found, err
}

func (b *Bolt) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		_, ok, err := b.lookup(tx.Bucket(b.bucket), key)
		found = ok
		return err
	})
	return found, err
}

func (b *Bolt) TTL(_ context.Context, key string) (time.Duration, error) {
	ttl := KeyMissing
	err := b.db.View(func(tx *bolt.Tx) error {
		e, ok, err := b.lookup(tx.Bucket(b.bucket), key)
		if err != nil || !ok {
			return err
		}
		if e.expiresAt == 0 {
			ttl = NoExpiry
			return nil
		}
		ttl = time.UnixMilli(e.expiresAt).Sub(b.now())
		return nil
	})
	return ttl, err
}

func (b *Bolt) Ping(context.Context) error {
	return b.db.View(func(*bolt.Tx) error { return nil })
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
