// Package service provides business logic for the application.
package service

import (
	"context"

	"github.com/shelfmark/shelfmark/internal/model"
)

// UserStore persists user identities.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// BookStore persists books.
type BookStore interface {
	CreateBook(ctx context.Context, book *model.Book) error
	GetBookByID(ctx context.Context, id string) (*model.Book, error)
	ListBooks(ctx context.Context, offset, limit int) ([]model.BookWithAuthor, error)
	CountBooks(ctx context.Context) (int, error)
	ListBooksByUser(ctx context.Context, userID string) ([]model.Book, error)
	DeleteBook(ctx context.Context, id, ownerID string) error
}

// MediaStore hosts book images.
type MediaStore interface {
	Upload(ctx context.Context, payload string) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TokenIssuer issues session tokens bound to a user ID.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}
