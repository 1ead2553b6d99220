// Package model defines domain entities for the application.
package model

import "time"

// Rating bounds for a book.
const (
	MinRating = 1
	MaxRating = 5
)

// Book is a user-owned recommendation. UserID is set once at creation and
// only that user may delete the book.
type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	Image     string    `json:"image"`
	Rating    int       `json:"rating"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is the public projection of a book owner shown in the feed.
type Author struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// BookWithAuthor is a feed entry: the book joined with its owner.
type BookWithAuthor struct {
	Book
	Author Author `json:"author"`
}

// ValidRating reports whether r is within the allowed range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
