package auth

import (
	"context"

	"github.com/shelfmark/shelfmark/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// ContextWithIdentity attaches the authenticated caller to ctx.
func ContextWithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the authenticated caller.
// Returns nil if the request did not pass the auth middleware.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok {
		return nil
	}
	return id
}

// UserIDFromContext is a convenience function to get the caller's user ID.
// Returns empty string if not authenticated.
func UserIDFromContext(ctx context.Context) string {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ""
	}
	return id.UserID
}
