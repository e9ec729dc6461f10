package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress      string
	DatabaseURI     string
	ShutdownTimeout time.Duration

	JWTSecret      string
	TokenStrategy  string
	TokenTTL       time.Duration
	PasswordHasher string

	MatchThreshold      float64
	EmbeddingServiceURL string
	EmbedTimeout        time.Duration
	EmbedWorkers        int

	AssetBackend          string
	AssetDir              string
	RetainRejectedSelfies bool
	MaxUploadBytes        int64
	S3                    S3Config
	GCS                   GCSConfig

	Redis           RedisConfig
	RateLimitMax    int
	RateLimitWindow time.Duration
	LockTTL         time.Duration

	AMQPURL   string
	AMQPQueue string

	CORSOrigins []string
	LogLevel    string
	LogFormat   string
}

// S3Config configures the S3 compatible asset backend.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// GCSConfig configures the Google Cloud Storage asset backend.
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

// RedisConfig configures the shared Redis instance. Empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	TokenStrategyJWT  = "jwt"
	TokenStrategyHMAC = "hmac"

	HasherBcrypt = "bcrypt"
	HasherArgon2 = "argon2"

	AssetBackendLocal = "local"
	AssetBackendS3    = "s3"
	AssetBackendGCS   = "gcs"
)

const (
	defaultRunAddress      = ":8080"
	defaultJWTSecret       = "change-me-in-production"
	defaultTokenTTL        = 2 * time.Hour
	defaultMatchThreshold  = 0.6
	defaultEmbedTimeout    = 15 * time.Second
	defaultEmbedWorkers    = 4
	defaultAssetDir        = "./uploads"
	defaultMaxUploadBytes  = 10 << 20
	defaultS3Region        = "us-east-1"
	defaultRateLimitMax    = 10
	defaultRateLimitWindow = time.Minute
	defaultLockTTL         = 30 * time.Second
	defaultAMQPQueue       = "identity.events"
	defaultShutdownTimeout = 10 * time.Second
	defaultDotenvFile      = ".env"
)

// Load parses configuration from an optional .env file, environment variables and flags.
func Load() (*Config, error) {
	dotenv := getString(os.LookupEnv, "DOTENV_FILE", defaultDotenvFile)
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:      getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:     getString(lookup, "DATABASE_URI", ""),
		ShutdownTimeout: getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),

		JWTSecret:      getString(lookup, "JWT_SECRET", defaultJWTSecret),
		TokenStrategy:  getString(lookup, "TOKEN_STRATEGY", TokenStrategyJWT),
		TokenTTL:       getDuration(lookup, "TOKEN_TTL", defaultTokenTTL),
		PasswordHasher: getString(lookup, "PASSWORD_HASHER", HasherBcrypt),

		MatchThreshold:      getFloat(lookup, "MATCH_THRESHOLD", defaultMatchThreshold),
		EmbeddingServiceURL: getString(lookup, "EMBEDDING_SERVICE_URL", ""),
		EmbedTimeout:        getDuration(lookup, "EMBED_TIMEOUT", defaultEmbedTimeout),
		EmbedWorkers:        getInt(lookup, "EMBED_WORKERS", defaultEmbedWorkers),

		AssetBackend:          getString(lookup, "ASSET_BACKEND", AssetBackendLocal),
		AssetDir:              getString(lookup, "ASSET_DIR", defaultAssetDir),
		RetainRejectedSelfies: getBool(lookup, "RETAIN_REJECTED_SELFIES", false),
		MaxUploadBytes:        int64(getInt(lookup, "MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		S3: S3Config{
			Endpoint:  getString(lookup, "S3_ENDPOINT", ""),
			Region:    getString(lookup, "S3_REGION", defaultS3Region),
			Bucket:    getString(lookup, "S3_BUCKET", ""),
			AccessKey: getString(lookup, "S3_ACCESS_KEY", ""),
			SecretKey: getString(lookup, "S3_SECRET_KEY", ""),
		},
		GCS: GCSConfig{
			Bucket:          getString(lookup, "GCS_BUCKET", ""),
			CredentialsFile: getString(lookup, "GCS_CREDENTIALS_FILE", ""),
		},

		Redis: RedisConfig{
			Addr:     getString(lookup, "REDIS_ADDR", ""),
			Password: getString(lookup, "REDIS_PASSWORD", ""),
			DB:       getInt(lookup, "REDIS_DB", 0),
		},
		RateLimitMax:    getInt(lookup, "RATE_LIMIT_MAX", defaultRateLimitMax),
		RateLimitWindow: getDuration(lookup, "RATE_LIMIT_WINDOW", defaultRateLimitWindow),
		LockTTL:         getDuration(lookup, "LOCK_TTL", defaultLockTTL),

		AMQPURL:   getString(lookup, "AMQP_URL", ""),
		AMQPQueue: getString(lookup, "AMQP_QUEUE", defaultAMQPQueue),

		CORSOrigins: getList(lookup, "CORS_ORIGINS", []string{"*"}),
		LogLevel:    getString(lookup, "LOG_LEVEL", "info"),
		LogFormat:   getString(lookup, "LOG_FORMAT", "json"),
	}

	fs := flag.NewFlagSet("facecheck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		tokenTTLStr        = cfg.TokenTTL.String()
		embedTimeoutStr    = cfg.EmbedTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.EmbeddingServiceURL, "e", cfg.EmbeddingServiceURL, "Face embedding service base URL")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing session tokens")
	fs.StringVar(&cfg.TokenStrategy, "token-strategy", cfg.TokenStrategy, "Session token format: jwt or hmac")
	fs.StringVar(&tokenTTLStr, "token-ttl", tokenTTLStr, "Session token lifetime")
	fs.StringVar(&cfg.PasswordHasher, "password-hasher", cfg.PasswordHasher, "Password hashing scheme: bcrypt or argon2")
	fs.Float64Var(&cfg.MatchThreshold, "match-threshold", cfg.MatchThreshold, "Maximum embedding distance accepted as a match")
	fs.StringVar(&embedTimeoutStr, "embed-timeout", embedTimeoutStr, "Timeout for a single embedding computation")
	fs.IntVar(&cfg.EmbedWorkers, "embed-workers", cfg.EmbedWorkers, "Number of concurrent embedding workers")
	fs.StringVar(&cfg.AssetBackend, "asset-backend", cfg.AssetBackend, "Asset storage backend: local, s3 or gcs")
	fs.StringVar(&cfg.AssetDir, "asset-dir", cfg.AssetDir, "Content root for the local asset backend")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.TokenTTL, err = time.ParseDuration(tokenTTLStr); err != nil {
		return nil, fmt.Errorf("invalid token ttl: %w", err)
	}

	if cfg.EmbedTimeout, err = time.ParseDuration(embedTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid embed timeout: %w", err)
	}

	secrets := []struct {
		env    string
		target *string
	}{
		{"JWT_SECRET_FILE", &cfg.JWTSecret},
		{"S3_SECRET_KEY_FILE", &cfg.S3.SecretKey},
		{"REDIS_PASSWORD_FILE", &cfg.Redis.Password},
	}
	for _, s := range secrets {
		if path, ok := lookup(s.env); ok && path != "" {
			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", strings.ToLower(s.env), err)
			}
			*s.target = strings.TrimSpace(string(content))
		}
	}

	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = defaultEmbedWorkers
	}

	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = defaultEmbedTimeout
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = defaultMatchThreshold
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.EmbeddingServiceURL == "" {
		return nil, fmt.Errorf("embedding service URL must be provided")
	}

	switch cfg.TokenStrategy {
	case TokenStrategyJWT, TokenStrategyHMAC:
	default:
		return nil, fmt.Errorf("unknown token strategy %q", cfg.TokenStrategy)
	}

	switch cfg.PasswordHasher {
	case HasherBcrypt, HasherArgon2:
	default:
		return nil, fmt.Errorf("unknown password hasher %q", cfg.PasswordHasher)
	}

	switch cfg.AssetBackend {
	case AssetBackendLocal:
	case AssetBackendS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 bucket must be provided")
		}
	case AssetBackendGCS:
		if cfg.GCS.Bucket == "" {
			return nil, fmt.Errorf("gcs bucket must be provided")
		}
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.AssetBackend)
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getList(lookup envLookup, key string, def []string) []string {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
