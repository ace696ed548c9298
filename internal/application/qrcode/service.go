// Package qrcode manages events and keeps their lookups cached under every
// alias a caller might use.
package qrcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/pkg/id"
	"github.com/event-snap/internal/pkg/token"
)

type qrCodeStore interface {
	Put(ctx context.Context, q *domain.QRCode) error
	Get(ctx context.Context, qrCodeID string) (*domain.QRCode, error)
	GetByToken(ctx context.Context, token string) (*domain.QRCode, error)
	Update(ctx context.Context, qrCodeID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, qrCodeID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.QRCode, error)
	ListByOwners(ctx context.Context, ownerIDs []string) ([]domain.QRCode, error)
}

type Service interface {
	Create(ctx context.Context, req domain.CreateQRCodeRequest) (*domain.QRCode, error)
	Update(ctx context.Context, qrCodeID string, req domain.UpdateQRCodeRequest, requesterID string, isAdmin bool) (*domain.QRCode, error)
	Delete(ctx context.Context, qrCodeID, requesterID string, isAdmin bool) error
	GetByID(ctx context.Context, qrCodeID string) (*domain.QRCode, error)
	GetByToken(ctx context.Context, token string) (*domain.QRCode, error)
	Resolve(ctx context.Context, ref string) (*domain.QRCode, error)
	ListByOwner(ctx context.Context, ownerID string, take, skip int) (domain.Page[domain.QRCode], error)
	Stats(ctx context.Context, ownerIDs []string) (domain.QRStatusCounts, error)
}

type ServiceDeps struct {
	Repo     qrCodeStore
	Aliases  *AliasCache
	StatsTTL time.Duration
	Logger   *slog.Logger
}

type service struct {
	repo     qrCodeStore
	aliases  *AliasCache
	statsTTL time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	statsTTL := deps.StatsTTL
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &service{
		repo:     deps.Repo,
		aliases:  deps.Aliases,
		statsTTL: statsTTL,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateQRCodeRequest) (*domain.QRCode, error) {
	now := s.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, fmt.Errorf("expiration_date must be in the future: %w", domain.ErrBadRequest)
	}
	tok, err := token.NewPublicToken()
	if err != nil {
		return nil, err
	}
	q := &domain.QRCode{
		QRCodeID:    id.New(),
		Token:       tok,
		OwnerID:     req.OwnerID,
		EventName:   req.EventName,
		Description: req.Description,
		ExpiresAt:   utcPtr(req.ExpiresAt),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, q); err != nil {
		return nil, err
	}
	s.aliases.Invalidate(ctx, q)
	s.aliases.Put(ctx, q)
	s.log.Info("qrcode created", "qrcode_id", q.QRCodeID, "owner_id", q.OwnerID)
	return q, nil
}

func (s *service) Update(ctx context.Context, qrCodeID string, req domain.UpdateQRCodeRequest, requesterID string, isAdmin bool) (*domain.QRCode, error) {
	q, err := s.load(ctx, qrCodeID)
	if err != nil {
		return nil, err
	}
	if q.OwnerID != requesterID && !isAdmin {
		return nil, fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	now := s.now().UTC()
	updates := map[string]interface{}{}
	if req.EventName != nil {
		updates["event_name"] = *req.EventName
		q.EventName = *req.EventName
	}
	if req.Description != nil {
		updates["description_event"] = *req.Description
		q.Description = *req.Description
	}
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return nil, fmt.Errorf("expiration_date must be in the future: %w", domain.ErrBadRequest)
		}
		updates["expires_at"] = req.ExpiresAt.UTC()
		q.ExpiresAt = utcPtr(req.ExpiresAt)
	}
	if len(updates) == 0 {
		return q, nil
	}
	if err := s.repo.Update(ctx, qrCodeID, updates); err != nil {
		return nil, err
	}
	q.UpdatedAt = now
	s.aliases.Invalidate(ctx, q)
	s.aliases.Put(ctx, q)
	return q, nil
}

func (s *service) Delete(ctx context.Context, qrCodeID, requesterID string, isAdmin bool) error {
	q, err := s.load(ctx, qrCodeID)
	if err != nil {
		return err
	}
	if q.OwnerID != requesterID && !isAdmin {
		return fmt.Errorf("access denied: %w", domain.ErrForbidden)
	}
	if err := s.repo.SoftDelete(ctx, qrCodeID); err != nil {
		return err
	}
	s.aliases.Invalidate(ctx, q)
	s.log.Info("qrcode deleted", "qrcode_id", qrCodeID, "by", requesterID)
	return nil
}

func (s *service) GetByID(ctx context.Context, qrCodeID string) (*domain.QRCode, error) {
	return s.load(ctx, qrCodeID)
}

// GetByToken is the hot path for guest uploads: token alias first, then
// the system of record, backfilling both aliases on the way out.
func (s *service) GetByToken(ctx context.Context, token string) (*domain.QRCode, error) {
	if q, ok := s.aliases.ByToken(ctx, token); ok {
		return q, nil
	}
	q, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if q.DeletedAt != nil {
		return nil, fmt.Errorf("qrcode not found: %w", domain.ErrNotFound)
	}
	s.aliases.Put(ctx, q)
	return q, nil
}

// Resolve finds a code from either of its references: the id alias, then
// the token alias, then the system of record in the same order.
func (s *service) Resolve(ctx context.Context, ref string) (*domain.QRCode, error) {
	if q, ok := s.aliases.Lookup(ctx, ref); ok {
		return q, nil
	}
	q, err := s.repo.Get(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		q, err = s.repo.GetByToken(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if q.DeletedAt != nil {
		return nil, fmt.Errorf("qrcode not found: %w", domain.ErrNotFound)
	}
	s.aliases.Put(ctx, q)
	return q, nil
}

func (s *service) load(ctx context.Context, qrCodeID string) (*domain.QRCode, error) {
	if q, ok := s.aliases.ByID(ctx, qrCodeID); ok {
		return q, nil
	}
	q, err := s.repo.Get(ctx, qrCodeID)
	if err != nil {
		return nil, err
	}
	if q.DeletedAt != nil {
		return nil, fmt.Errorf("qrcode not found: %w", domain.ErrNotFound)
	}
	s.aliases.Put(ctx, q)
	return q, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string, take, skip int) (domain.Page[domain.QRCode], error) {
	all, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return domain.Page[domain.QRCode]{}, err
	}
	live := all[:0]
	for _, q := range all {
		if q.DeletedAt == nil {
			live = append(live, q)
		}
	}
	return domain.NewPage(live, take, skip), nil
}

// Stats classifies every owner by its codes: at least one unexpired code
// counts as active, only expired codes as expired, no codes as none.
func (s *service) Stats(ctx context.Context, ownerIDs []string) (domain.QRStatusCounts, error) {
	ids := make([]string, 0, len(ownerIDs))
	for _, o := range ownerIDs {
		if o != "" {
			ids = append(ids, o)
		}
	}
	if len(ids) == 0 {
		return domain.QRStatusCounts{}, nil
	}
	return s.aliases.Stats(ctx, ids, s.statsTTL, func(ctx context.Context) (domain.QRStatusCounts, error) {
		codes, err := s.repo.ListByOwners(ctx, ids)
		if err != nil {
			return domain.QRStatusCounts{}, err
		}
		return countStatuses(ids, codes, s.now()), nil
	})
}

func countStatuses(ownerIDs []string, codes []domain.QRCode, now time.Time) domain.QRStatusCounts {
	type status struct{ any, active bool }
	byOwner := make(map[string]*status, len(ownerIDs))
	for _, o := range ownerIDs {
		byOwner[o] = &status{}
	}
	for i := range codes {
		st, ok := byOwner[codes[i].OwnerID]
		if !ok || codes[i].DeletedAt != nil {
			continue
		}
		st.any = true
		if codes[i].ExpiresAt != nil && codes[i].ExpiresAt.After(now) {
			st.active = true
		}
	}
	var c domain.QRStatusCounts
	for _, st := range byOwner {
		switch {
		case st.active:
			c.Active++
		case st.any:
			c.Expired++
		default:
			c.None++
		}
	}
	return c
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
