package testutil

import (
	"encoding/base64"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfmark/shelfmark/internal/model"
)

// PlaceholderHash is a well-formed argon2id hash that matches no password.
const PlaceholderHash = "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

// NewUser creates a test user with sensible defaults.
func NewUser(email, username string) *model.User {
	now := time.Now().UTC()
	return &model.User{
		ID:           ulid.Make().String(),
		Email:        model.NormalizeEmail(email),
		Username:     username,
		PasswordHash: PlaceholderHash,
		ProfileImage: model.AvatarURL("", username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewBook creates a test book owned by userID.
func NewBook(userID, title string) *model.Book {
	now := time.Now().UTC()
	id := ulid.Make().String()
	return &model.Book{
		ID:        id,
		Title:     title,
		Caption:   "A caption for " + title,
		Image:     MemoryMediaBaseURL + id + ".png",
		Rating:    4,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PNGBytes is a PNG signature followed by an IHDR chunk header, enough for
// content sniffing.
var PNGBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte("\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")...)

// PNGDataURI returns PNGBytes as a base64 data URI.
func PNGDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(PNGBytes)
}
