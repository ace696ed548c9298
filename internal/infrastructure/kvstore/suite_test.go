package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness is one backend under test plus a way to move its clock forward.
type harness struct {
	store   Store
	advance func(time.Duration)
}

// runStoreSuite exercises the Store contract identically on every backend.
func runStoreSuite(t *testing.T, newHarness func(t *testing.T) harness) {
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(ctx, "k", []byte("v"), 10*time.Second))
		got, err := h.store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})

	t.Run("GetMissing_ReturnsErrNotFound", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.store.Get(ctx, "absent")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(ctx, "k", []byte("v"), time.Second))
		h.advance(1500 * time.Millisecond)
		_, err := h.store.Get(ctx, "k")
		assert.True(t, errors.Is(err, ErrNotFound))
		ok, err := h.store.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetWithoutTTL_NeverExpires", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(ctx, "k", []byte("v"), 0))
		ttl, err := h.store.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, NoExpiry, ttl)
	})

	t.Run("TTLMissingKey", func(t *testing.T) {
		h := newHarness(t)
		ttl, err := h.store.TTL(ctx, "absent")
		require.NoError(t, err)
		assert.Equal(t, KeyMissing, ttl)
	})

	t.Run("Del", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, h.store.Set(ctx, "b", []byte("2"), 0))
		n, err := h.store.Del(ctx, "a", "b", "c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		ok, err := h.store.Exists(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DelPattern_DeletesOnlyMatches", func(t *testing.T) {
		h := newHarness(t)
		for _, k := range []string{"qrcode:stats:a", "qrcode:stats:a,b", "qrcode:id:1"} {
			require.NoError(t, h.store.Set(ctx, k, []byte("x"), time.Minute))
		}
		n, err := h.store.DelPattern(ctx, "qrcode:stats:*")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		ok, err := h.store.Exists(ctx, "qrcode:id:1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("DelPattern_NoMatchIsNoop", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(ctx, "other", []byte("x"), 0))
		n, err := h.store.DelPattern(ctx, "nothing:*")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		ok, err := h.store.Exists(ctx, "other")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Incr", func(t *testing.T) {
		h := newHarness(t)
		n, err := h.store.Incr(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = h.store.Incr(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		got, err := h.store.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), got)
	})

	t.Run("IncrWindow_ExpirySetOnceNotRefreshed", func(t *testing.T) {
		h := newHarness(t)
		n, err := h.store.IncrWindow(ctx, "rl", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		first, err := h.store.TTL(ctx, "rl")
		require.NoError(t, err)
		assert.Greater(t, first, 8*time.Second)
		assert.LessOrEqual(t, first, 10*time.Second)

		h.advance(1500 * time.Millisecond)
		n, err = h.store.IncrWindow(ctx, "rl", 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		second, err := h.store.TTL(ctx, "rl")
		require.NoError(t, err)
		assert.Less(t, second, first)
	})

	t.Run("IncrWindow_RestartsAfterWindow", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.store.IncrWindow(ctx, "rl", time.Second)
		require.NoError(t, err)
		_, err = h.store.IncrWindow(ctx, "rl", time.Second)
		require.NoError(t, err)
		h.advance(1500 * time.Millisecond)
		n, err := h.store.IncrWindow(ctx, "rl", time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Expire", func(t *testing.T) {
		h := newHarness(t)
		ok, err := h.store.Expire(ctx, "absent", time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, h.store.Set(ctx, "k", []byte("v"), 0))
		ok, err = h.store.Expire(ctx, "k", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		h.advance(1500 * time.Millisecond)
		_, err = h.store.Get(ctx, "k")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("Ping", func(t *testing.T) {
		h := newHarness(t)
		assert.NoError(t, h.store.Ping(ctx))
	})
}
