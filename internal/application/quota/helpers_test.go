package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"

	"github.com/event-snap/internal/infrastructure/kvstore"
)

func newRedisStore(t *testing.T) (*kvstore.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kvstore.NewRedis(kvstore.RedisOptions{Addr: mr.Addr(), DialTimeout: time.Second, OpTimeout: time.Second})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

type mockUploadCounter struct{ mock.Mock }

func (m *mockUploadCounter) CountByQRCode(ctx context.Context, qrCodeID string) (int, error) {
	args := m.Called(ctx, qrCodeID)
	return args.Int(0), args.Error(1)
}
