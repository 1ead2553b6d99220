package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/model"
	"github.com/shelfmark/shelfmark/internal/repository"
)

// Rejection reasons. They are logged and counted, never sent to clients.
const (
	ReasonMissingToken    = "missing_token"
	ReasonMalformedHeader = "malformed_header"
	ReasonInvalidToken    = "invalid_token"
	ReasonUnknownUser     = "unknown_user"
)

// TokenVerifier validates a session token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLookup resolves a user ID against the credential store.
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// IdentityCache is an optional cache of identity projections. It never
// decides whether a user exists.
type IdentityCache interface {
	GetIdentity(ctx context.Context, userID string) (*model.Identity, error)
	SetIdentity(ctx context.Context, id *model.Identity) error
	DeleteIdentity(ctx context.Context, userID string) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  TokenVerifier
	Users   UserLookup
	Cache   IdentityCache // optional
	Metrics metrics.Recorder
}

// rejection ends the pipeline with a 401.
type rejection struct {
	reason string
	err    error
}

// Auth returns a middleware that authenticates requests with a bearer token.
// It runs extract, verify and resolve in order, and only on success attaches
// the caller identity to the request context. Every rejection gets the same
// 401 body; a store failure while resolving is a 500.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, rej, err := authenticate(ctx, cfg, r)
			if err != nil {
				cfg.Logger.Error("identity lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(ctx)),
				)
				writeInternalError(w)
				return
			}
			if rej == nil {
				next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(ctx, identity)))
				return
			}

			attrs := []any{
				slog.String("reason", rej.reason),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(ctx)),
			}
			if rej.err != nil {
				attrs = append(attrs, slog.String("error", rej.err.Error()))
			}
			cfg.Logger.Warn("authentication failed", attrs...)
			cfg.Metrics.IncAuthRejected(rej.reason)
			writeAuthError(w)
		})
	}
}

// authenticate runs the pipeline stages in order and stops at the first
// rejection.
func authenticate(ctx context.Context, cfg AuthConfig, r *http.Request) (*model.Identity, *rejection, error) {
	token, rej := extractBearer(r)
	if rej != nil {
		return nil, rej, nil
	}
	claims, rej := verifyToken(cfg.Tokens, token)
	if rej != nil {
		return nil, rej, nil
	}
	return resolveIdentity(ctx, cfg, claims.UserID())
}

// extractBearer reads the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func extractBearer(r *http.Request) (string, *rejection) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", &rejection{reason: ReasonMissingToken}
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", &rejection{reason: ReasonMalformedHeader}
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", &rejection{reason: ReasonMalformedHeader}
	}

	return token, nil
}

func verifyToken(tokens TokenVerifier, token string) (*auth.Claims, *rejection) {
	claims, err := tokens.Verify(token)
	if err != nil {
		return nil, &rejection{reason: ReasonInvalidToken, err: err}
	}
	return claims, nil
}

// resolveIdentity maps the token subject to a current user. Existence is
// always checked against the store; the cache only saves loading the
// projection. A user that no longer exists is a rejection and its cached
// projection is evicted. Any other store error is returned as err.
func resolveIdentity(ctx context.Context, cfg AuthConfig, userID string) (*model.Identity, *rejection, error) {
	if cfg.Cache != nil {
		if cached, _ := cfg.Cache.GetIdentity(ctx, userID); cached != nil {
			exists, err := cfg.Users.UserExists(ctx, userID)
			if err != nil {
				return nil, nil, err
			}
			if exists {
				return cached, nil, nil
			}
			evictIdentity(ctx, cfg, userID)
			return nil, &rejection{reason: ReasonUnknownUser}, nil
		}
	}

	user, err := cfg.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, &rejection{reason: ReasonUnknownUser}, nil
		}
		return nil, nil, err
	}

	identity := user.Identity()
	if cfg.Cache != nil {
		if err := cfg.Cache.SetIdentity(ctx, identity); err != nil {
			cfg.Logger.Warn("failed to cache identity",
				slog.String("user_id", identity.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return identity, nil, nil
}

func evictIdentity(ctx context.Context, cfg AuthConfig, userID string) {
	if err := cfg.Cache.DeleteIdentity(ctx, userID); err != nil {
		cfg.Logger.Warn("failed to evict cached identity",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing authentication token"}}`))
}

// writeInternalError writes a 500 response without any detail.
func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`))
}
