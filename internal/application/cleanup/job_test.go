package cleanup

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

type mockQRCodeStore struct{ mock.Mock }

func (m *mockQRCodeStore) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.QRCode, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]domain.QRCode), args.Error(1)
}
func (m *mockQRCodeStore) SoftDelete(ctx context.Context, qrCodeID string) error {
	return m.Called(ctx, qrCodeID).Error(0)
}

type mockUploadStore struct{ mock.Mock }

func (m *mockUploadStore) SoftDeleteByQRCode(ctx context.Context, qrCodeID string) (int, error) {
	args := m.Called(ctx, qrCodeID)
	return args.Int(0), args.Error(1)
}

type mockAliases struct{ mock.Mock }

func (m *mockAliases) Invalidate(ctx context.Context, q *domain.QRCode) { m.Called(ctx, q.QRCodeID) }

type mockListings struct{ mock.Mock }

func (m *mockListings) Invalidate(ctx context.Context, token, qrCodeID string) {
	m.Called(ctx, token, qrCodeID)
}

func newJob(qs *mockQRCodeStore, us *mockUploadStore, al *mockAliases, ls *mockListings, now time.Time) *Job {
	j := NewJob(JobDeps{QRCodes: qs, Uploads: us, Aliases: al, Listings: ls, After: 30 * 24 * time.Hour})
	j.now = func() time.Time { return now }
	return j
}

func TestRun_RetiresExpiredCodesAndUploads(t *testing.T) {
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * 24 * time.Hour)
	qs := &mockQRCodeStore{}
	qs.On("ListExpiredBefore", mock.Anything, cutoff).Return([]domain.QRCode{
		{QRCodeID: "a", Token: "ta"},
		{QRCodeID: "b", Token: "tb"},
	}, nil)
	qs.On("SoftDelete", mock.Anything, "a").Return(nil)
	qs.On("SoftDelete", mock.Anything, "b").Return(nil)
	us := &mockUploadStore{}
	us.On("SoftDeleteByQRCode", mock.Anything, "a").Return(3, nil)
	us.On("SoftDeleteByQRCode", mock.Anything, "b").Return(0, nil)
	al := &mockAliases{}
	al.On("Invalidate", mock.Anything, "a").Return()
	al.On("Invalidate", mock.Anything, "b").Return()
	ls := &mockListings{}
	ls.On("Invalidate", mock.Anything, "ta", "a").Return()
	ls.On("Invalidate", mock.Anything, "tb", "b").Return()

	res, err := newJob(qs, us, al, ls, now).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{QRCodes: 2, Uploads: 3}, res)
	al.AssertExpectations(t)
	ls.AssertExpectations(t)
}

func TestRun_FailedSoftDeleteKeepsCache(t *testing.T) {
	now := time.Now()
	qs := &mockQRCodeStore{}
	qs.On("ListExpiredBefore", mock.Anything, mock.Anything).Return([]domain.QRCode{{QRCodeID: "a", Token: "ta"}}, nil)
	qs.On("SoftDelete", mock.Anything, "a").Return(errors.New("throttled"))
	al := &mockAliases{}
	ls := &mockListings{}

	res, err := newJob(qs, &mockUploadStore{}, al, ls, now).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.QRCodes)
	al.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestRun_ListErrorReturned(t *testing.T) {
	boom := errors.New("scan failed")
	qs := &mockQRCodeStore{}
	qs.On("ListExpiredBefore", mock.Anything, mock.Anything).Return([]domain.QRCode(nil), boom)

	_, err := newJob(qs, nil, nil, nil, time.Now()).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStart_StopsOnCancel(t *testing.T) {
	qs := &mockQRCodeStore{}
	qs.On("ListExpiredBefore", mock.Anything, mock.Anything).Return([]domain.QRCode{}, nil)
	j := newJob(qs, &mockUploadStore{}, &mockAliases{}, &mockListings{}, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Start(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	qs.AssertCalled(t, "ListExpiredBefore", mock.Anything, mock.Anything)
}
