// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// MinJWTSecretLength is the shortest signing secret accepted for HS256.
const MinJWTSecretLength = 32

// Metrics backends.
const (
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendMemory     = "memory"
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

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Session tokens
	JWTSecret   string        `env:"JWT_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"360h"`
	TokenIssuer string        `env:"TOKEN_ISSUER" envDefault:"shelfmark"`

	// Default profile images are generated from this base, seeded by username.
	AvatarBaseURL string `env:"AVATAR_BASE_URL" envDefault:"https://api.dicebear.com/9.x/avataaars/svg"`

	// Media host (S3-compatible)
	MediaBucket       string `env:"MEDIA_BUCKET,required"`
	MediaRegion       string `env:"MEDIA_REGION" envDefault:"us-east-1"`
	MediaEndpoint     string `env:"MEDIA_ENDPOINT"`
	MediaAccessKey    string `env:"MEDIA_ACCESS_KEY"`
	MediaSecretKey    string `env:"MEDIA_SECRET_KEY"`
	MediaPublicURL    string `env:"MEDIA_PUBLIC_URL,required"`
	MediaUsePathStyle bool   `env:"MEDIA_USE_PATH_STYLE" envDefault:"false"`
	MaxImageBytes     int64  `env:"MAX_IMAGE_BYTES" envDefault:"5242880"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Metrics
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"false"`
	MetricsBackend string `env:"METRICS_BACKEND" envDefault:"prometheus"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes. Large enough for a base64 encoded image.
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"8388608"`
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

// Validate checks constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinJWTSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES must be positive"))
	}
	if c.MaxRequestBodySize < c.MaxImageBytes {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must not be smaller than MAX_IMAGE_BYTES"))
	}
	switch c.MetricsBackend {
	case MetricsBackendPrometheus, MetricsBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("METRICS_BACKEND %q is not one of prometheus, memory", c.MetricsBackend))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file, parses environment variables and
// validates the result. Variables already set in the environment win over
// the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
