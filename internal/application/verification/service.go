// Package verification issues and checks the six-digit codes that confirm
// signup, password reset and profile update requests.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/infrastructure/kvstore"
)

const DefaultTTL = 10 * time.Minute

// codeSpace is the number of distinct codes, 000000 through 999999.
var codeSpace = big.NewInt(1_000_000)

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

var subjects = map[domain.Purpose]string{
	domain.PurposeSignup: "Your signup verification code",
	domain.PurposeReset:  "Your password reset code",
	domain.PurposeUpdate: "Your account update code",
}

type Service interface {
	Issue(ctx context.Context, principal string, purpose domain.Purpose) (string, error)
	Send(ctx context.Context, principal string, purpose domain.Purpose) error
	Validate(ctx context.Context, principal, code string, purpose domain.Purpose) error
	Consume(ctx context.Context, principal, code string, purpose domain.Purpose) error
}

type ServiceDeps struct {
	Store  kvstore.Store
	Mailer mailer
	TTL    time.Duration
	Logger *slog.Logger
}

type service struct {
	store  kvstore.Store
	mailer mailer
	ttl    time.Duration
	log    *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &service{store: deps.Store, mailer: deps.Mailer, ttl: ttl, log: log}
}

// key normalises the principal so "A@B.com " and "a@b.com" share one code.
func key(purpose domain.Purpose, principal string) string {
	return "verification:" + string(purpose) + ":" + strings.ToLower(strings.TrimSpace(principal))
}

// Issue stores a fresh code for the pair, replacing any earlier one.
func (s *service) Issue(ctx context.Context, principal string, purpose domain.Purpose) (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.store.Set(ctx, key(purpose, principal), []byte(code), s.ttl); err != nil {
		return "", fmt.Errorf("store %s code: %w: %w", purpose, domain.ErrStoreUnavailable, err)
	}
	return code, nil
}

// Send issues a code and mails it to the principal.
func (s *service) Send(ctx context.Context, principal string, purpose domain.Purpose) error {
	code, err := s.Issue(ctx, principal, purpose)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.mailer.SendEmail(ctx, principal, subjects[purpose], body); err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}
	s.log.Info("verification code sent", "purpose", purpose)
	return nil
}

// Validate checks code against the stored one. It leaves the code in
// place, so it stays usable until it expires or is reissued.
func (s *service) Validate(ctx context.Context, principal, code string, purpose domain.Purpose) error {
	_, err := s.check(ctx, principal, code, purpose)
	return err
}

// Consume validates code and then deletes it so it cannot be used again.
func (s *service) Consume(ctx context.Context, principal, code string, purpose domain.Purpose) error {
	k, err := s.check(ctx, principal, code, purpose)
	if err != nil {
		return err
	}
	n, err := s.store.Del(ctx, k)
	if err != nil {
		return fmt.Errorf("consume %s code: %w: %w", purpose, domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		// a concurrent Consume got there first
		return fmt.Errorf("%s code: %w", purpose, domain.ErrInvalidOrExpiredCode)
	}
	return nil
}

func (s *service) check(ctx context.Context, principal, code string, purpose domain.Purpose) (string, error) {
	k := key(purpose, principal)
	stored, err := s.store.Get(ctx, k)
	if errors.Is(err, kvstore.ErrNotFound) {
		return k, fmt.Errorf("%s code: %w", purpose, domain.ErrInvalidOrExpiredCode)
	}
	if err != nil {
		return k, fmt.Errorf("read %s code: %w: %w", purpose, domain.ErrStoreUnavailable, err)
	}
	if subtle.ConstantTimeCompare(stored, []byte(code)) != 1 {
		return k, fmt.Errorf("%s code: %w", purpose, domain.ErrInvalidOrExpiredCode)
	}
	return k, nil
}
