// Package model defines domain entities for the application.
package model

import (
	"net/url"
	"strings"
	"time"
)

// DefaultAvatarBaseURL generates deterministic avatars seeded by username.
const DefaultAvatarBaseURL = "https://api.dicebear.com/9.x/avataaars/svg"

// Registration policy.
const (
	MinPasswordLength = 6
	MinUsernameLength = 3
)

// User is a registered identity. Email and username are unique across all users.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the authenticated projection of the user.
func (u *User) Identity() *Identity {
	return &Identity{
		UserID:       u.ID,
		Email:        u.Email,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}

// NormalizeEmail applies the email comparison policy: emails are
// case-insensitive and surrounding whitespace is ignored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AvatarURL returns the default profile image for a username.
func AvatarURL(baseURL, username string) string {
	if baseURL == "" {
		baseURL = DefaultAvatarBaseURL
	}
	return baseURL + "?seed=" + url.QueryEscape(username)
}

// Identity is the caller resolved by the auth middleware and stored in the
// request context. It never carries the password hash.
type Identity struct {
	UserID       string
	Email        string
	Username     string
	ProfileImage string
}
