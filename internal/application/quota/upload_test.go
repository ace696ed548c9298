package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/domain"
)

func newGuard(t *testing.T, counter *mockUploadCounter) *QuotaGuard {
	t.Helper()
	store, _ := newRedisStore(t)
	return NewQuotaGuard(counter, cache.NewService(store, nil), 10, time.Minute)
}

func TestCheckUpload_EleventhRejected(t *testing.T) {
	counter := &mockUploadCounter{}
	counter.On("CountByQRCode", mock.Anything, "qr-1").Return(10, nil)
	g := newGuard(t, counter)

	err := g.CheckUpload(context.Background(), "qr-1")
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestCheckUpload_BelowCeilingAllowed(t *testing.T) {
	counter := &mockUploadCounter{}
	counter.On("CountByQRCode", mock.Anything, "qr-1").Return(9, nil)
	g := newGuard(t, counter)

	assert.NoError(t, g.CheckUpload(context.Background(), "qr-1"))
}

func TestCheckUpload_CountIsCachedUntilForgotten(t *testing.T) {
	counter := &mockUploadCounter{}
	counter.On("CountByQRCode", mock.Anything, "qr-1").Return(3, nil).Once()
	g := newGuard(t, counter)
	ctx := context.Background()

	require.NoError(t, g.CheckUpload(ctx, "qr-1"))
	require.NoError(t, g.CheckUpload(ctx, "qr-1"))
	counter.AssertNumberOfCalls(t, "CountByQRCode", 1)

	counter.On("CountByQRCode", mock.Anything, "qr-1").Return(10, nil).Once()
	g.Forget(ctx, "qr-1")
	assert.ErrorIs(t, g.CheckUpload(ctx, "qr-1"), domain.ErrQuotaExceeded)
}

func TestCheckUpload_CounterErrorSurfaces(t *testing.T) {
	boom := errors.New("dynamo down")
	counter := &mockUploadCounter{}
	counter.On("CountByQRCode", mock.Anything, "qr-1").Return(0, boom)
	g := newGuard(t, counter)

	err := g.CheckUpload(context.Background(), "qr-1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrQuotaExceeded)
}
