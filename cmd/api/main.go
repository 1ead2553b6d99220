// Package main is the entrypoint for the Shelfmark API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/cache"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/handler"
	"github.com/shelfmark/shelfmark/internal/media"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/middleware"
	"github.com/shelfmark/shelfmark/internal/repository"
	"github.com/shelfmark/shelfmark/internal/router"
	"github.com/shelfmark/shelfmark/internal/server"
	"github.com/shelfmark/shelfmark/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration (.env is optional)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Apply schema migrations
	if cfg.RunMigrations {
		if err := repository.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Error("failed to run migrations", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			os.Exit(1)
		}
	}

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	// Initialize media host
	mediaStore, err := media.NewS3Store(ctx, media.Config{
		Bucket:       cfg.MediaBucket,
		Region:       cfg.MediaRegion,
		Endpoint:     cfg.MediaEndpoint,
		AccessKey:    cfg.MediaAccessKey,
		SecretKey:    cfg.MediaSecretKey,
		UsePathStyle: cfg.MediaUsePathStyle,
		PublicURL:    cfg.MediaPublicURL,
		MaxBytes:     cfg.MaxImageBytes,
	})
	if err != nil {
		_ = cacheClient.Close()
		repo.Close()
		logger.Error("failed to initialize media store", "error", err, "bucket", cfg.MediaBucket)
		os.Exit(1)
	}

	// Initialize auth primitives
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: cfg.JWTSecret,
		TTL:    cfg.TokenTTL,
		Issuer: cfg.TokenIssuer,
	})
	if err != nil {
		_ = cacheClient.Close()
		repo.Close()
		logger.Error("failed to initialize token service", "error", err)
		os.Exit(1)
	}
	hasher := auth.NewPasswordHasher(auth.DefaultArgon2Params)

	// Initialize services
	metricsRecorder, metricsHandler := initMetrics(cfg)
	authService := service.NewAuthService(repo, hasher, tokens, cfg.AvatarBaseURL, metricsRecorder, logger)
	bookService := service.NewBookService(repo, mediaStore, metricsRecorder, logger)

	// Setup router
	r := router.New(router.Config{
		Logger:         logger,
		Metrics:        metricsRecorder,
		Info:           handler.New(),
		Health:         handler.NewHealthHandler(repo, cacheClient, mediaStore, logger),
		Auth:           handler.NewAuthHandler(authService, logger),
		Books:          handler.NewBookHandler(bookService, logger),
		MetricsHandler: metricsHandler,
		AuthConfig: middleware.AuthConfig{
			Logger:  logger,
			Tokens:  tokens,
			Users:   repo,
			Cache:   cacheClient,
			Metrics: metricsRecorder,
		},
		CORSOrigins:   cfg.GetCORSAllowedOrigins(),
		MaxBodyBytes:  cfg.MaxRequestBodySize,
		IsDevelopment: cfg.IsDevelopment(),
	})

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"metrics", cfg.MetricsEnabled,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
// "json" writes structured JSON; anything else writes colored text via tint.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		h = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  cfg.IsDevelopment(),
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initMetrics picks the recorder and the /metrics handler. A nil handler
// leaves /metrics unmounted.
func initMetrics(cfg *config.Config) (metrics.Recorder, http.Handler) {
	if !cfg.MetricsEnabled {
		return metrics.NewNoop(), nil
	}
	if cfg.MetricsBackend == config.MetricsBackendMemory {
		recorder := metrics.NewInMemory()
		return recorder, http.HandlerFunc(handler.NewMetricsHandler(recorder).Metrics)
	}
	recorder := metrics.NewPrometheus()
	return recorder, recorder.Handler()
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
