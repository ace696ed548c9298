// Package cleanup retires events long after they expired.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/event-snap/internal/domain"
)

type qrCodeStore interface {
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]domain.QRCode, error)
	SoftDelete(ctx context.Context, qrCodeID string) error
}

type uploadStore interface {
	SoftDeleteByQRCode(ctx context.Context, qrCodeID string) (int, error)
}

type aliasInvalidator interface {
	Invalidate(ctx context.Context, q *domain.QRCode)
}

type listingInvalidator interface {
	Invalidate(ctx context.Context, token, qrCodeID string)
}

// Result reports what one pass removed.
type Result struct {
	QRCodes int
	Uploads int
}

type JobDeps struct {
	QRCodes  qrCodeStore
	Uploads  uploadStore
	Aliases  aliasInvalidator
	Listings listingInvalidator
	// After is how long past its expiry an event is kept.
	After  time.Duration
	Logger *slog.Logger
}

// Job soft-deletes events that expired more than After ago, together with
// their uploads, and drops everything cached about them.
type Job struct {
	qrcodes  qrCodeStore
	uploads  uploadStore
	aliases  aliasInvalidator
	listings listingInvalidator
	after    time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewJob(deps JobDeps) *Job {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Job{
		qrcodes:  deps.QRCodes,
		uploads:  deps.Uploads,
		aliases:  deps.Aliases,
		listings: deps.Listings,
		after:    deps.After,
		log:      log.With("component", "cleanup"),
		now:      time.Now,
	}
}

// Run performs one pass. A failure on one event is logged and the pass
// moves on to the next.
func (j *Job) Run(ctx context.Context) (Result, error) {
	cutoff := j.now().UTC().Add(-j.after)
	expired, err := j.qrcodes.ListExpiredBefore(ctx, cutoff)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for i := range expired {
		q := &expired[i]
		if err := j.qrcodes.SoftDelete(ctx, q.QRCodeID); err != nil {
			j.log.Error("retire qrcode failed", "qrcode_id", q.QRCodeID, "err", err)
			continue
		}
		res.QRCodes++
		j.aliases.Invalidate(ctx, q)

		n, err := j.uploads.SoftDeleteByQRCode(ctx, q.QRCodeID)
		if err != nil {
			j.log.Error("retire uploads failed", "qrcode_id", q.QRCodeID, "err", err)
		}
		res.Uploads += n
		j.listings.Invalidate(ctx, q.Token, q.QRCodeID)
	}
	j.log.Info("cleanup pass finished", "cutoff", cutoff, "qrcodes", res.QRCodes, "uploads", res.Uploads)
	return res, nil
}

// Start runs a pass every interval until ctx is cancelled.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				j.log.Error("cleanup pass failed", "err", err)
			}
		}
	}
}
