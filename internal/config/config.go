// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Minimum secret lengths in bytes.
const (
	minJWTSecretLen     = 32
	minEncryptionKeyLen = 32
)

// Supported mail providers.
const (
	MailProviderLog      = "log"
	MailProviderSMTP     = "smtp"
	MailProviderPostmark = "postmark"
)

var (
	// ErrWeakJWTSecret is returned when JWT_SECRET is shorter than required.
	ErrWeakJWTSecret = errors.New("JWT_SECRET must be at least 32 bytes")
	// ErrWeakEncryptionKey is returned when ENCRYPTION_KEY is shorter than required.
	ErrWeakEncryptionKey = errors.New("ENCRYPTION_KEY must be at least 32 bytes")
	// ErrInvalidMailProvider is returned for an unknown MAIL_PROVIDER value.
	ErrInvalidMailProvider = errors.New("MAIL_PROVIDER must be one of log, smtp, postmark")
	// ErrMissingMailSettings is returned when the selected provider lacks settings.
	ErrMissingMailSettings = errors.New("mail provider settings are incomplete")
	// ErrLogMailOutsideDevelopment is returned when MAIL_PROVIDER=log is set
	// for any APP_ENV other than development.
	ErrLogMailOutsideDevelopment = errors.New("MAIL_PROVIDER=log is only allowed with APP_ENV=development")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Cache and mail queue (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public URL of the web panel, used to build links in emails.
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Secrets. Loaded once here and injected into the token issuer and sealer.
	JWTSecret     string `env:"JWT_SECRET,required,unset"`
	EncryptionKey string `env:"ENCRYPTION_KEY,required,unset"`

	// Token lifetimes
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"15m"`
	VerifyTokenTTL time.Duration `env:"VERIFY_TOKEN_TTL" envDefault:"24h"`

	// Mail delivery
	MailProvider    string `env:"MAIL_PROVIDER" envDefault:"log"`
	MailFrom        string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser        string `env:"SMTP_USER"`
	SMTPPassword    string `env:"SMTP_PASSWORD,unset"`
	PostmarkToken   string `env:"POSTMARK_TOKEN,unset"`
	MailMaxAttempts int    `env:"MAIL_MAX_ATTEMPTS" envDefault:"5"`

	// Rate limiting
	RateLimitAuthEnabled bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPS     int  `env:"RATE_LIMIT_AUTH_RPS" envDefault:"5"`
	RateLimitAuthBurst   int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"10"`
	RateLimitAPIEnabled  bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM      int  `env:"RATE_LIMIT_API_RPM" envDefault:"600"`
	RateLimitAPIBurst    int  `env:"RATE_LIMIT_API_BURST" envDefault:"60"`
	// Per-account login attempts, applied on top of the per-IP limit.
	LoginAttemptsPerHour int `env:"LOGIN_ATTEMPTS_PER_HOUR" envDefault:"20"`
	LoginBurst           int `env:"LOGIN_BURST" envDefault:"5"`

	// TrustProxy makes the client IP come from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// MetricsEnabled serves in-memory counters on /metrics.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"false"`

	// Dashboard stats cache lifetime
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretLen {
		return ErrWeakJWTSecret
	}
	if len(c.EncryptionKey) < minEncryptionKeyLen {
		return ErrWeakEncryptionKey
	}

	switch c.MailProvider {
	case MailProviderLog:
		if !c.IsDevelopment() {
			return ErrLogMailOutsideDevelopment
		}
	case MailProviderSMTP:
		if c.SMTPHost == "" || c.MailFrom == "" {
			return fmt.Errorf("%w: SMTP_HOST and MAIL_FROM are required", ErrMissingMailSettings)
		}
	case MailProviderPostmark:
		if c.PostmarkToken == "" || c.MailFrom == "" {
			return fmt.Errorf("%w: POSTMARK_TOKEN and MAIL_FROM are required", ErrMissingMailSettings)
		}
	default:
		return ErrInvalidMailProvider
	}

	if c.MailMaxAttempts < 1 {
		c.MailMaxAttempts = 1
	}

	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
