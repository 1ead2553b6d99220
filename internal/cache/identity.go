package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shelfmark/shelfmark/internal/model"
)

const (
	// identityCachePrefix is the Redis key prefix for resolved identities.
	identityCachePrefix = "auth:identity:"
	// identityCacheTTL is the time-to-live for cached identities.
	identityCacheTTL = 5 * time.Minute
)

// cachedIdentity is the identity projection stored in Redis. It never holds
// the password hash.
type cachedIdentity struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// GetIdentity retrieves a cached identity by user ID.
// Returns nil if not found (cache miss).
func (c *Cache) GetIdentity(ctx context.Context, userID string) (*model.Identity, error) {
	data, err := c.client.Get(ctx, identityCachePrefix+userID).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedIdentity
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Identity{
		UserID:       cached.UserID,
		Email:        cached.Email,
		Username:     cached.Username,
		ProfileImage: cached.ProfileImage,
	}, nil
}

// SetIdentity caches an identity for identityCacheTTL.
func (c *Cache) SetIdentity(ctx context.Context, id *model.Identity) error {
	data, err := json.Marshal(cachedIdentity{
		UserID:       id.UserID,
		Email:        id.Email,
		Username:     id.Username,
		ProfileImage: id.ProfileImage,
	})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	return c.client.Set(ctx, identityCachePrefix+id.UserID, data, identityCacheTTL).Err()
}

// DeleteIdentity removes a cached identity.
func (c *Cache) DeleteIdentity(ctx context.Context, userID string) error {
	return c.client.Del(ctx, identityCachePrefix+userID).Err()
}
