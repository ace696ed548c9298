// Package upload accepts guest photos for an event and serves the owner's
// listings of them.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/pkg/id"
)

// SignedURLTTL is how long a presigned photo link stays valid.
const SignedURLTTL = 30 * 24 * time.Hour

// presignConcurrency bounds parallel presign calls for one listing.
const presignConcurrency = 8

type UploadInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

type uploadStore interface {
	Put(ctx context.Context, u *domain.Upload) error
	Get(ctx context.Context, uploadID string) (*domain.Upload, error)
	ListByQRCode(ctx context.Context, qrCodeID string) ([]domain.Upload, error)
	SoftDelete(ctx context.Context, uploadID string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

type qrCodeResolver interface {
	GetByToken(ctx context.Context, token string) (*domain.QRCode, error)
}

type quotaGuard interface {
	CheckUpload(ctx context.Context, qrCodeID string) error
	Forget(ctx context.Context, qrCodeID string)
}

type Service interface {
	Upload(ctx context.Context, token string, in UploadInput) (*domain.Upload, error)
	List(ctx context.Context, token, ownerID string, take, skip int) (domain.Page[domain.Upload], error)
	SignedURLs(ctx context.Context, token, ownerID string) ([]string, error)
	Delete(ctx context.Context, token, ownerID string, uploadIDs []string) (int, error)
	Invalidate(ctx context.Context, token, qrCodeID string)
}

type ServiceDeps struct {
	Repo       uploadStore
	Objects    objectStore
	QRCodes    qrCodeResolver
	Quota      quotaGuard
	Cache      *cache.Service
	ListingTTL time.Duration
	Logger     *slog.Logger
}

type service struct {
	repo       uploadStore
	objects    objectStore
	qrcodes    qrCodeResolver
	quota      quotaGuard
	cache      *cache.Service
	listingTTL time.Duration
	log        *slog.Logger
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{
		repo:       deps.Repo,
		objects:    deps.Objects,
		qrcodes:    deps.QRCodes,
		quota:      deps.Quota,
		cache:      deps.Cache,
		listingTTL: deps.ListingTTL,
		log:        log,
		now:        time.Now,
	}
}

// versionKey holds the listing generation for a token. Bumping it orphans
// every cached page at once; the orphans age out on their own TTL.
func versionKey(token string) string { return "upload:" + token + ":version" }

func pageKey(token string, version int64, take, skip int) string {
	return fmt.Sprintf("upload:%s:v%d:page:%d:%d", token, version, take, skip)
}

func (s *service) Upload(ctx context.Context, token string, in UploadInput) (*domain.Upload, error) {
	q, err := s.qrcodes.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if q.Expired(now) {
		return nil, fmt.Errorf("event %s has ended: %w", q.QRCodeID, domain.ErrForbidden)
	}
	if in.Reader == nil || in.Size == 0 {
		return nil, fmt.Errorf("file is empty: %w", domain.ErrBadRequest)
	}
	if err := s.quota.CheckUpload(ctx, q.QRCodeID); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := objectKey(token, in.Filename, now)
	url, err := s.objects.Upload(ctx, key, in.Reader, contentType)
	if err != nil {
		return nil, err
	}
	u := &domain.Upload{
		UploadID:    id.New(),
		QRCodeID:    q.QRCodeID,
		Object:      key,
		ImageURL:    url,
		ContentType: contentType,
		Size:        in.Size,
		CreatedAt:   now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	s.Invalidate(ctx, token, q.QRCodeID)
	return u, nil
}

// List pages the event's uploads for its owner. Pages are cached under the
// token's current listing version.
func (s *service) List(ctx context.Context, token, ownerID string, take, skip int) (domain.Page[domain.Upload], error) {
	q, err := s.owned(ctx, token, ownerID)
	if err != nil {
		return domain.Page[domain.Upload]{}, err
	}
	version, _ := cache.Get[int64](ctx, s.cache, versionKey(token))
	return cache.GetOrSet(ctx, s.cache, pageKey(token, version, take, skip), func(ctx context.Context) (domain.Page[domain.Upload], error) {
		all, err := s.repo.ListByQRCode(ctx, q.QRCodeID)
		if err != nil {
			return domain.Page[domain.Upload]{}, err
		}
		return domain.NewPage(all, take, skip), nil
	}, s.listingTTL)
}

// SignedURLs returns a presigned link for every live upload of the event.
func (s *service) SignedURLs(ctx context.Context, token, ownerID string) ([]string, error) {
	q, err := s.owned(ctx, token, ownerID)
	if err != nil {
		return nil, err
	}
	uploads, err := s.repo.ListByQRCode(ctx, q.QRCodeID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(presignConcurrency)
	for i := range uploads {
		g.Go(func() error {
			u, err := s.objects.PresignedURL(gctx, uploads[i].Object, SignedURLTTL)
			if err != nil {
				return fmt.Errorf("sign %s: %w", uploads[i].UploadID, err)
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// Delete removes the listed uploads of the owner's event. IDs that belong to
// another event are ignored. It returns how many were removed.
func (s *service) Delete(ctx context.Context, token, ownerID string, uploadIDs []string) (int, error) {
	q, err := s.owned(ctx, token, ownerID)
	if err != nil {
		return 0, err
	}
	var keys []string
	for _, uploadID := range uploadIDs {
		u, err := s.repo.Get(ctx, uploadID)
		if err != nil {
			return 0, err
		}
		if u.QRCodeID != q.QRCodeID || u.DeletedAt != nil {
			continue
		}
		if err := s.repo.SoftDelete(ctx, uploadID); err != nil {
			return 0, err
		}
		keys = append(keys, u.Object)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	s.Invalidate(ctx, token, q.QRCodeID)
	if err := s.objects.DeleteObjects(ctx, keys); err != nil {
		// the rows are already soft-deleted; the objects stay orphaned
		s.log.Error("delete upload objects failed", "token", token, "count", len(keys), "err", err)
	}
	return len(keys), nil
}

// Invalidate drops every cached listing and the cached count for an event.
func (s *service) Invalidate(ctx context.Context, token, qrCodeID string) {
	s.cache.Increment(ctx, versionKey(token), 0)
	s.quota.Forget(ctx, qrCodeID)
}

func (s *service) owned(ctx context.Context, token, ownerID string) (*domain.QRCode, error) {
	q, err := s.qrcodes.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q.OwnerID != ownerID {
		return nil, fmt.Errorf("not the owner of %s: %w", q.QRCodeID, domain.ErrForbidden)
	}
	return q, nil
}

func objectKey(token, filename string, at time.Time) string {
	return token + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + sanitizeFilename(filename)
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	if name == "" {
		name = "upload.bin"
	}
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
