package http

import (
	"context"
	"log/slog"

	"github.com/event-snap/internal/application/qrcode"
	"github.com/event-snap/internal/application/quota"
	"github.com/event-snap/internal/application/upload"
	"github.com/event-snap/internal/application/verification"
	jwtinfra "github.com/event-snap/internal/infrastructure/jwt"
	appmiddleware "github.com/event-snap/internal/transport/http/middleware"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	QRCodes      qrcode.Service
	Uploads      upload.Service
	Verification verification.Service
	RateLimiter  *quota.RateLimiter
	KV           Pinger
	JWTProvider  *jwtinfra.Provider
	// ClientIP identifies callers for rate limiting; nil keys on the socket peer.
	ClientIP *appmiddleware.ClientIP
	Logger       *slog.Logger
}
