package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/event-snap/internal/config"
	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/transport/http/handler"
	appmiddleware "github.com/event-snap/internal/transport/http/middleware"
)

// routeUpload names the shared rate-limit window guest uploads are counted in.
const routeUpload = "upload"

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 1 request/second, burst of 3, per IP on the code-mailing endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(1), 3, deps.ClientIP)
	uploadRL := appmiddleware.KVRateLimit(deps.RateLimiter, routeUpload, deps.ClientIP, log)

	healthH := handler.NewHealthHandler(deps.KV)
	qrH := handler.NewQRCodeHandler(deps.QRCodes, log)
	uploadH := handler.NewUploadHandler(deps.Uploads, cfg.MaxUploadBytes, log)
	verifyH := handler.NewVerificationHandler(deps.Verification, log)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/qrcodes/public/{ref}", qrH.Resolve)
		r.With(uploadRL).Post("/uploads/{token}", uploadH.Upload)
		r.With(sensitiveRL.Limit).Post("/verification/{purpose}/send", verifyH.Send)
		r.With(sensitiveRL.Limit).Post("/verification/{purpose}/validate", verifyH.Validate)
		r.With(sensitiveRL.Limit).Post("/verification/{purpose}/consume", verifyH.Consume)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Post("/qrcodes", qrH.Create)
			r.Get("/qrcodes", qrH.List)
			r.Get("/qrcodes/{id}", qrH.Get)
			r.Put("/qrcodes/{id}", qrH.Update)
			r.Delete("/qrcodes/{id}", qrH.Delete)

			r.Get("/uploads/{token}", uploadH.List)
			r.Get("/uploads/{token}/urls", uploadH.SignedURLs)
			r.Delete("/uploads/{token}", uploadH.Delete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/admin/stats", qrH.Stats)
			})
		})
	})

	return otelhttp.NewHandler(r, "event-snap.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}
