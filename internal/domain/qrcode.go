package domain

import "time"

// QRCode is an event. Guests upload photos against its public Token until ExpiresAt.
type QRCode struct {
	QRCodeID    string     `json:"id" dynamodbav:"qrcode_id"`
	Token       string     `json:"token" dynamodbav:"token"`
	OwnerID     string     `json:"owner_id" dynamodbav:"owner_id"`
	EventName   string     `json:"event_name,omitempty" dynamodbav:"event_name"`
	Description string     `json:"description_event,omitempty" dynamodbav:"description_event"`
	ExpiresAt   *time.Time `json:"expiration_date,omitempty" dynamodbav:"expires_at,omitempty"`
	Active      bool       `json:"active" dynamodbav:"active"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Expired reports whether the code's expiry is at or before now.
func (q *QRCode) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && !q.ExpiresAt.After(now)
}

type CreateQRCodeRequest struct {
	OwnerID     string     `json:"owner_id" validate:"required"`
	EventName   string     `json:"event_name" validate:"max=120"`
	Description string     `json:"description_event" validate:"max=500"`
	ExpiresAt   *time.Time `json:"expiration_date" validate:"omitempty,future"`
}

type UpdateQRCodeRequest struct {
	EventName   *string    `json:"event_name" validate:"omitempty,max=120"`
	Description *string    `json:"description_event" validate:"omitempty,max=500"`
	ExpiresAt   *time.Time `json:"expiration_date" validate:"omitempty,future"`
}

// QRStatusCounts summarises, for a set of owners, how many have at least one
// live code, only expired codes, or no codes at all.
type QRStatusCounts struct {
	Active  int `json:"qrcode_active"`
	Expired int `json:"qrcode_expired"`
	None    int `json:"qrcode_none"`
}

// Page is a window over a listing. Skip is nil when there is nothing after it.
type Page[T any] struct {
	Items []T  `json:"items"`
	Total int  `json:"total"`
	Skip  *int `json:"skip"`
}

// NewPage cuts the [skip, skip+take) window out of all. The returned Skip
// points at the next window, or is nil when the listing is exhausted.
func NewPage[T any](all []T, take, skip int) Page[T] {
	total := len(all)
	if skip < 0 {
		skip = 0
	}
	if take <= 0 || skip >= total {
		return Page[T]{Items: []T{}, Total: total}
	}
	end := min(skip+take, total)
	p := Page[T]{Items: all[skip:end], Total: total}
	if end < total {
		p.Skip = &end
	}
	return p
}
