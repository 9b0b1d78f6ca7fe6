// Package config builds one injected configuration struct from the
// environment so handlers and services never read env vars ad hoc.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs at construction time.
type Config struct {
	Addr        string
	MetricsAddr string
	LogLevel    string
	// AppOrigin is the public origin embedded in magic-link URLs
	// (<AppOrigin>/u/<token>).
	AppOrigin string

	DatabaseURL string
	Redis       RedisConfig
	S3          S3Config
	Email       EmailConfig
	Analysis    AnalysisConfig

	JWTSigningKey string
	JWTIssuer     string
	// JobCredentialHash is the bcrypt hash of the shared secret that
	// authenticates the scheduled expiration sweep.
	JobCredentialHash string

	Intake IntakeConfig
	Notify NotifyConfig
}

// RedisConfig configures the optional shared rate-limit counter store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// S3Config configures the evidence object store.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// EmailConfig configures the transactional email provider.
type EmailConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
}

// AnalysisConfig configures the vision-LM extraction gateway.
type AnalysisConfig struct {
	BaseURL string
	APIKey  string
}

// IntakeConfig bounds the public upload portal.
type IntakeConfig struct {
	MaxUploadBytes int64
	RateLimit      int
	RateWindow     time.Duration
}

// NotifyConfig tunes the dispatcher drain step of the sweep.
type NotifyConfig struct {
	DrainBatch int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        envOr("PREUVIO_ADDR", ":8080"),
		MetricsAddr: envOr("PREUVIO_METRICS_ADDR", ":9090"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		AppOrigin:   envOr("PREUVIO_APP_ORIGIN", "http://localhost:3000"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		S3: S3Config{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    envOr("S3_REGION", "eu-west-3"),
			Bucket:    envOr("S3_BUCKET", "preuvio-evidences"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Email: EmailConfig{
			BaseURL: envOr("EMAIL_API_BASE_URL", "https://api.resend.com"),
			APIKey:  os.Getenv("EMAIL_API_KEY"),
			Sender:  envOr("EMAIL_SENDER", "Preuvio <notifications@preuvio.example>"),
		},
		Analysis: AnalysisConfig{
			BaseURL: os.Getenv("ANALYSIS_GATEWAY_URL"),
			APIKey:  os.Getenv("ANALYSIS_GATEWAY_KEY"),
		},
		JWTSigningKey:     envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:         envOr("JWT_ISSUER", "preuvio"),
		JobCredentialHash: os.Getenv("JOB_CREDENTIAL_HASH"),
		Intake: IntakeConfig{
			MaxUploadBytes: envInt64Or("INTAKE_MAX_UPLOAD_BYTES", 10<<20),
			RateLimit:      envIntOr("INTAKE_RATE_LIMIT", 20),
			RateWindow:     60 * time.Second,
		},
		Notify: NotifyConfig{
			DrainBatch: envIntOr("NOTIFY_DRAIN_BATCH", 50),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
