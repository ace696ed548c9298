package qrcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      time.Duration
	}{
		{"no expiry uses default", nil, time.Hour},
		{"remaining below ceiling", at(10 * time.Second), 10 * time.Second},
		{"remaining above ceiling is capped", at(7200 * time.Second), time.Hour},
		{"already expired uses short", at(-5 * time.Second), 5 * time.Minute},
		{"expiring right now uses short", at(0), 5 * time.Minute},
		{"sub-second remainder floors to short", at(900 * time.Millisecond), 5 * time.Minute},
		{"fractional seconds are floored", at(10*time.Second + 700*time.Millisecond), 10 * time.Second},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateTTL(tc.expiresAt, now))
		})
	}
}

func TestTTLPolicy_Custom(t *testing.T) {
	now := time.Now()
	p := TTLPolicy{Default: 10 * time.Minute, Short: 30 * time.Second}
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	assert.Equal(t, 10*time.Minute, p.For(nil, now))
	assert.Equal(t, 10*time.Minute, p.For(&later, now))
	assert.Equal(t, 30*time.Second, p.For(&earlier, now))
}
