package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/event-snap/internal/application/cache"
	"github.com/event-snap/internal/application/cleanup"
	"github.com/event-snap/internal/application/qrcode"
	"github.com/event-snap/internal/application/quota"
	"github.com/event-snap/internal/application/upload"
	"github.com/event-snap/internal/application/verification"
	"github.com/event-snap/internal/config"
	"github.com/event-snap/internal/infrastructure/awsconf"
	"github.com/event-snap/internal/infrastructure/dynamo"
	jwtinfra "github.com/event-snap/internal/infrastructure/jwt"
	"github.com/event-snap/internal/infrastructure/kvstore"
	otelinfra "github.com/event-snap/internal/infrastructure/otel"
	s3infra "github.com/event-snap/internal/infrastructure/s3"
	"github.com/event-snap/internal/infrastructure/smtp"
	transporthttp "github.com/event-snap/internal/transport/http"
	appmiddleware "github.com/event-snap/internal/transport/http/middleware"
)

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg.AppEnv)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otelinfra.Setup(ctx, "event-snap", cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	kv, err := kvstore.Open(ctx, cfg.KV)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	defer kv.Close()
	logger.Info("kv store ready", "backend", cfg.KV.Backend)

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return err
	}
	dynamoClient := dynamo.NewClient(awsCfg, cfg.AWSEndpointURL)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	qrRepo := dynamo.NewQRCodeRepo(dynamoClient, cfg.DynamoTables.QRCodes)
	uploadRepo := dynamo.NewUploadRepo(dynamoClient, cfg.DynamoTables.Uploads)

	s3Store := s3infra.NewStore(s3infra.NewClient(awsCfg, cfg.AWSEndpointURL), cfg.S3BucketName)

	// JWT provider is optional; without keys every authenticated route is open.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		logger.Warn("JWT provider not available", "err", err)
	}

	cacheSvc := cache.NewService(kv, logger)
	aliases := qrcode.NewAliasCache(cacheSvc, qrcode.TTLPolicy{Default: cfg.Cache.DefaultTTL, Short: cfg.Cache.ShortTTL})
	qrSvc := qrcode.NewService(qrcode.ServiceDeps{
		Repo:     qrRepo,
		Aliases:  aliases,
		StatsTTL: cfg.Cache.StatsTTL,
		Logger:   logger,
	})
	guard := quota.NewQuotaGuard(uploadRepo, cacheSvc, cfg.UploadQuota, cfg.Cache.CountTTL)
	uploadSvc := upload.NewService(upload.ServiceDeps{
		Repo:       uploadRepo,
		Objects:    s3Store,
		QRCodes:    qrSvc,
		Quota:      guard,
		Cache:      cacheSvc,
		ListingTTL: cfg.Cache.ListingTTL,
		Logger:     logger,
	})
	verifySvc := verification.NewService(verification.ServiceDeps{
		Store:  kv,
		Mailer: smtp.NewMailer(cfg, logger),
		TTL:    cfg.VerificationTTL,
		Logger: logger,
	})

	job := cleanup.NewJob(cleanup.JobDeps{
		QRCodes:  qrRepo,
		Uploads:  uploadRepo,
		Aliases:  aliases,
		Listings: uploadSvc,
		After:    cfg.CleanupAfter,
		Logger:   logger,
	})
	go job.Start(ctx, cfg.CleanupInterval)

	clientIP, err := appmiddleware.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		QRCodes:      qrSvc,
		Uploads:      uploadSvc,
		Verification: verifySvc,
		RateLimiter:  quota.NewRateLimiter(kv, cfg.RateLimitUpload, cfg.RateLimitWindow, logger),
		KV:           kv,
		JWTProvider:  jwtProvider,
		ClientIP:     clientIP,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
