package qrcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-snap/internal/domain"
)

func TestCreate_CachesUnderBothAliases(t *testing.T) {
	repo := &mockQRCodeStore{}
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.QRCode")).Return(nil)
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()

	q, err := svc.Create(ctx, domain.CreateQRCodeRequest{OwnerID: "owner-1", EventName: "party"})
	require.NoError(t, err)
	assert.NotEmpty(t, q.QRCodeID)
	assert.Len(t, q.Token, 32)
	assert.True(t, q.Active)

	_, ok := aliases.ByID(ctx, q.QRCodeID)
	assert.True(t, ok)
	_, ok = aliases.ByToken(ctx, q.Token)
	assert.True(t, ok)
	repo.AssertExpectations(t)
}

func TestCreate_PastExpiryRejected(t *testing.T) {
	repo := &mockQRCodeStore{}
	svc, _, _ := newTestService(t, repo)
	past := time.Now().Add(-time.Minute)

	_, err := svc.Create(context.Background(), domain.CreateQRCodeRequest{OwnerID: "o", ExpiresAt: &past})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestGetByToken_MissLoadsAndBackfills(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("GetByToken", mock.Anything, q.Token).Return(q, nil).Once()
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()

	got, err := svc.GetByToken(ctx, q.Token)
	require.NoError(t, err)
	assert.Equal(t, q.QRCodeID, got.QRCodeID)

	// second read is served from cache; the mock would fail on another call
	got, err = svc.GetByToken(ctx, q.Token)
	require.NoError(t, err)
	assert.Equal(t, q.QRCodeID, got.QRCodeID)

	_, ok := aliases.ByID(ctx, q.QRCodeID)
	assert.True(t, ok, "id alias backfilled from a token lookup")
	repo.AssertExpectations(t)
}

func TestResolve_TokenReferenceFallsBackToTokenIndex(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("Get", mock.Anything, q.Token).Return(nil, domain.ErrNotFound).Once()
	repo.On("GetByToken", mock.Anything, q.Token).Return(q, nil).Once()
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()

	got, err := svc.Resolve(ctx, q.Token)
	require.NoError(t, err)
	assert.Equal(t, q.QRCodeID, got.QRCodeID)

	_, ok := aliases.ByID(ctx, q.QRCodeID)
	assert.True(t, ok)
	repo.AssertExpectations(t)
}

func TestResolve_CachedUnderEitherReference(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()
	aliases.Put(ctx, q)

	byID, err := svc.Resolve(ctx, q.QRCodeID)
	require.NoError(t, err)
	byToken, err := svc.Resolve(ctx, q.Token)
	require.NoError(t, err)
	assert.Equal(t, byID, byToken)
	repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "GetByToken", mock.Anything, mock.Anything)
}

func TestGetByID_NotFoundPropagates(t *testing.T) {
	repo := &mockQRCodeStore{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	svc, _, _ := newTestService(t, repo)

	_, err := svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByID_SoftDeletedIsNotFound(t *testing.T) {
	q := sampleQR()
	q.DeletedAt = ptr(time.Now())
	repo := &mockQRCodeStore{}
	repo.On("Get", mock.Anything, q.QRCodeID).Return(q, nil)
	svc, aliases, _ := newTestService(t, repo)

	_, err := svc.GetByID(context.Background(), q.QRCodeID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, ok := aliases.ByID(context.Background(), q.QRCodeID)
	assert.False(t, ok)
}

func TestUpdate_RefreshesBothAliases(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("Update", mock.Anything, q.QRCodeID, mock.Anything).Return(nil)
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()
	aliases.Put(ctx, q)

	updated, err := svc.Update(ctx, q.QRCodeID, domain.UpdateQRCodeRequest{EventName: ptr("renamed")}, q.OwnerID, false)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.EventName)

	byToken, ok := aliases.ByToken(ctx, q.Token)
	require.True(t, ok)
	assert.Equal(t, "renamed", byToken.EventName, "token alias must not keep the old name")
	byID, ok := aliases.ByID(ctx, q.QRCodeID)
	require.True(t, ok)
	assert.Equal(t, "renamed", byID.EventName)
}

func TestUpdate_NotOwnerForbidden(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("Get", mock.Anything, q.QRCodeID).Return(q, nil)
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Update(context.Background(), q.QRCodeID, domain.UpdateQRCodeRequest{EventName: ptr("x")}, "someone-else", false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_AdminMayEditAnyCode(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("Get", mock.Anything, q.QRCodeID).Return(q, nil)
	repo.On("Update", mock.Anything, q.QRCodeID, mock.Anything).Return(nil)
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Update(context.Background(), q.QRCodeID, domain.UpdateQRCodeRequest{Description: ptr("d")}, "admin-1", true)
	assert.NoError(t, err)
}

func TestDelete_InvalidatesAliasesAndStats(t *testing.T) {
	q := sampleQR()
	repo := &mockQRCodeStore{}
	repo.On("SoftDelete", mock.Anything, q.QRCodeID).Return(nil)
	repo.On("ListByOwners", mock.Anything, []string{q.OwnerID}).Return([]domain.QRCode{*q}, nil)
	svc, aliases, mr := newTestService(t, repo)
	ctx := context.Background()
	aliases.Put(ctx, q)
	_, err := svc.Stats(ctx, []string{q.OwnerID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, q.QRCodeID, q.OwnerID, false))

	_, ok := aliases.ByID(ctx, q.QRCodeID)
	assert.False(t, ok)
	_, ok = aliases.ByToken(ctx, q.Token)
	assert.False(t, ok)
	assert.False(t, mr.Exists("qrcode:stats:owner-1"))
}

func TestDelete_RepoErrorKeepsCache(t *testing.T) {
	q := sampleQR()
	boom := errors.New("dynamo down")
	repo := &mockQRCodeStore{}
	repo.On("SoftDelete", mock.Anything, q.QRCodeID).Return(boom)
	svc, aliases, _ := newTestService(t, repo)
	ctx := context.Background()
	aliases.Put(ctx, q)

	assert.ErrorIs(t, svc.Delete(ctx, q.QRCodeID, q.OwnerID, false), boom)
	_, ok := aliases.ByID(ctx, q.QRCodeID)
	assert.True(t, ok)
}

func TestStats_ClassifiesOwnersAndCaches(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	codes := []domain.QRCode{
		{QRCodeID: "1", OwnerID: "a", ExpiresAt: &future},
		{QRCodeID: "2", OwnerID: "a", ExpiresAt: &past},
		{QRCodeID: "3", OwnerID: "b", ExpiresAt: &past},
		{QRCodeID: "4", OwnerID: "d", ExpiresAt: &future, DeletedAt: &past},
	}
	repo := &mockQRCodeStore{}
	repo.On("ListByOwners", mock.Anything, []string{"a", "b", "c", "d"}).Return(codes, nil).Once()
	svc, _, _ := newTestService(t, repo)
	ctx := context.Background()

	got, err := svc.Stats(ctx, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, domain.QRStatusCounts{Active: 1, Expired: 1, None: 2}, got)

	got, err = svc.Stats(ctx, []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Active)
	repo.AssertExpectations(t)
}

func TestStats_EmptyOwnerSet(t *testing.T) {
	svc, _, _ := newTestService(t, &mockQRCodeStore{})
	got, err := svc.Stats(context.Background(), []string{"", ""})
	require.NoError(t, err)
	assert.Equal(t, domain.QRStatusCounts{}, got)
}

func TestListByOwner_SkipsDeletedAndPages(t *testing.T) {
	deleted := time.Now()
	repo := &mockQRCodeStore{}
	repo.On("ListByOwner", mock.Anything, "o").Return([]domain.QRCode{
		{QRCodeID: "1"}, {QRCodeID: "2", DeletedAt: &deleted}, {QRCodeID: "3"}, {QRCodeID: "4"},
	}, nil)
	svc, _, _ := newTestService(t, repo)

	page, err := svc.ListByOwner(context.Background(), "o", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "3", page.Items[1].QRCodeID)
	require.NotNil(t, page.Skip)
	assert.Equal(t, 2, *page.Skip)

	page, err = svc.ListByOwner(context.Background(), "o", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Nil(t, page.Skip)
}
