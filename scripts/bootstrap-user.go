// Command bootstrap-user registers a user directly against the database and
// prints a session token for it. Useful for seeding local environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/repository"
	"github.com/shelfmark/shelfmark/internal/service"
)

type output struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "Token signing secret")
		issuer      = flag.String("issuer", envOr("TOKEN_ISSUER", "shelfmark"), "Token issuer")
		email       = flag.String("email", "demo@shelfmark.local", "User email")
		username    = flag.String("username", "demo", "Username")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password (at least 6 characters)")
		migrate     = flag.Bool("migrate", false, "Apply schema migrations first")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if *jwtSecret == "" {
		fail("JWT_SECRET is required")
	}
	if *password == "" {
		fail("password is required (-password or BOOTSTRAP_PASSWORD)")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *migrate {
		if err := repository.Migrate(*databaseURL, logger); err != nil {
			fail("migrate:", err)
		}
	}

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail("connect database:", err)
	}
	defer repo.Close()

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: *jwtSecret, Issuer: *issuer})
	if err != nil {
		fail("token service:", err)
	}

	svc := service.NewAuthService(
		repo,
		auth.NewPasswordHasher(auth.DefaultArgon2Params),
		tokens,
		os.Getenv("AVATAR_BASE_URL"),
		metrics.NewNoop(),
		logger,
	)

	result, err := svc.Register(ctx, service.RegisterInput{
		Email:    *email,
		Username: *username,
		Password: *password,
	})
	if err != nil {
		fail("register:", err)
	}

	out := output{
		UserID:       result.User.ID,
		Email:        result.User.Email,
		Username:     result.User.Username,
		ProfileImage: result.User.ProfileImage,
		Token:        result.Token,
		ExpiresAt:    time.Now().UTC().Add(tokens.TTL()),
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Token)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(args ...any) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
