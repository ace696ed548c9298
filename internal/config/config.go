package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	KV    KVConfig
	Cache CacheConfig

	RateLimitUpload int
	RateLimitWindow time.Duration
	UploadQuota     int
	MaxUploadBytes  int64

	// TrustedProxies are the CIDRs or addresses whose X-Forwarded-For and
	// X-Real-Ip headers are believed. Empty means clients connect directly.
	TrustedProxies []string

	VerificationTTL time.Duration

	CleanupInterval time.Duration
	CleanupAfter    time.Duration

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	OTelEndpoint   string
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	QRCodes string
	Uploads string
}

// KVConfig selects and configures the shared key-value store.
type KVConfig struct {
	Backend       string // "redis" | "memory" | "bolt"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DialTimeout   time.Duration
	OpTimeout     time.Duration
	BoltPath      string
}

// CacheConfig holds the lifetimes used by the cache layer.
type CacheConfig struct {
	DefaultTTL time.Duration // ceiling for domain-derived TTLs
	ShortTTL   time.Duration // for entries whose resource already expired
	StatsTTL   time.Duration
	ListingTTL time.Duration
	CountTTL   time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			QRCodes: getEnv("DYNAMO_TABLE_QRCODES", "qrcodes"),
			Uploads: getEnv("DYNAMO_TABLE_UPLOADS", "uploads"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "event-snap"),
		KV: KVConfig{
			Backend:       getEnv("KV_BACKEND", "redis"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			OpTimeout:     getEnvDuration("REDIS_OP_TIMEOUT", 500*time.Millisecond),
			BoltPath:      getEnv("BOLT_PATH", "./event-snap.bbolt"),
		},
		Cache: CacheConfig{
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", time.Hour),
			ShortTTL:   getEnvDuration("CACHE_SHORT_TTL", 5*time.Minute),
			StatsTTL:   getEnvDuration("CACHE_STATS_TTL", 5*time.Minute),
			ListingTTL: getEnvDuration("CACHE_LISTING_TTL", 10*time.Minute),
			CountTTL:   getEnvDuration("CACHE_COUNT_TTL", time.Minute),
		},
		RateLimitUpload:   getEnvInt("RATE_LIMIT_UPLOAD", 10),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		UploadQuota:       getEnvInt("UPLOAD_QUOTA", 10),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		TrustedProxies:    getEnvList("TRUSTED_PROXIES"),
		VerificationTTL:   getEnvDuration("VERIFICATION_TTL", 10*time.Minute),
		CleanupInterval:   getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),
		CleanupAfter:      getEnvDuration("CLEANUP_AFTER", 30*24*time.Hour),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		OTelEndpoint:      getEnv("OTEL_ENDPOINT", ""),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "1h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
