package qrcode

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/mock"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/infrastructure/kvstore"
)

type mockQRCodeStore struct{ mock.Mock }

func (m *mockQRCodeStore) Put(ctx context.Context, q *domain.QRCode) error {
	return m.Called(ctx, q).Error(0)
}
func (m *mockQRCodeStore) Get(ctx context.Context, qrCodeID string) (*domain.QRCode, error) {
	args := m.Called(ctx, qrCodeID)
	if q, _ := args.Get(0).(*domain.QRCode); q != nil {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockQRCodeStore) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	args := m.Called(ctx, token)
	if q, _ := args.Get(0).(*domain.QRCode); q != nil {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockQRCodeStore) Update(ctx context.Context, qrCodeID string, updates map[string]interface{}) error {
	return m.Called(ctx, qrCodeID, updates).Error(0)
}
func (m *mockQRCodeStore) SoftDelete(ctx context.Context, qrCodeID string) error {
	return m.Called(ctx, qrCodeID).Error(0)
}
func (m *mockQRCodeStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.QRCode, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.QRCode), args.Error(1)
}
func (m *mockQRCodeStore) ListByOwners(ctx context.Context, ownerIDs []string) ([]domain.QRCode, error) {
	args := m.Called(ctx, ownerIDs)
	return args.Get(0).([]domain.QRCode), args.Error(1)
}

func newAliasCache(t *testing.T) (*AliasCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := kvstore.NewRedis(kvstore.RedisOptions{Addr: mr.Addr(), DialTimeout: time.Second, OpTimeout: time.Second})
	t.Cleanup(func() { _ = store.Close() })
	return NewAliasCache(cache.NewService(store, nil), DefaultTTLPolicy), mr
}

func newTestService(t *testing.T, repo *mockQRCodeStore) (*service, *AliasCache, *miniredis.Miniredis) {
	t.Helper()
	aliases, mr := newAliasCache(t)
	svc := NewService(ServiceDeps{Repo: repo, Aliases: aliases}).(*service)
	return svc, aliases, mr
}

func ptr[T any](v T) *T { return &v }

func sampleQR() *domain.QRCode {
	exp := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	return &domain.QRCode{
		QRCodeID:  "01HQR",
		Token:     "tok123",
		OwnerID:   "owner-1",
		EventName: "wedding",
		ExpiresAt: &exp,
		Active:    true,
	}
}
