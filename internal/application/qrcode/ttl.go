package qrcode

import "time"

// TTLPolicy derives how long a QR code may stay cached from its own expiry.
type TTLPolicy struct {
	// Default is used when the code never expires, and caps every other result.
	Default time.Duration
	// Short is used once the code has expired, so a hot expired token is still
	// served from cache without a stale "valid" entry lingering for long.
	Short time.Duration
}

var DefaultTTLPolicy = TTLPolicy{Default: time.Hour, Short: 5 * time.Minute}

// CalculateTTL applies DefaultTTLPolicy.
func CalculateTTL(expiresAt *time.Time, now time.Time) time.Duration {
	return DefaultTTLPolicy.For(expiresAt, now)
}

// For returns the cache lifetime for a resource expiring at expiresAt.
// Remaining lifetime is counted in whole seconds; a cached entry never
// outlives the resource's expiry unless the resource already expired.
func (p TTLPolicy) For(expiresAt *time.Time, now time.Time) time.Duration {
	if expiresAt == nil {
		return p.Default
	}
	remaining := expiresAt.Sub(now).Truncate(time.Second)
	if remaining <= 0 {
		return p.Short
	}
	return min(remaining, p.Default)
}
