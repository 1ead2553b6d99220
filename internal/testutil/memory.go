package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/shelfmark/shelfmark/internal/model"
	"github.com/shelfmark/shelfmark/internal/repository"
)

// MemoryStore is an in-memory user and book store with the same uniqueness
// and delete semantics as the PostgreSQL repository.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]model.User
	books map[string]model.Book

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]model.User),
		books: make(map[string]model.Book),
	}
}

// CreateUser stores u, reporting an email collision before a username one.
func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	usernameTaken := false
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailExists
		}
		if existing.Username == u.Username {
			usernameTaken = true
		}
	}
	if usernameTaken {
		return repository.ErrUsernameExists
	}

	s.users[u.ID] = *u
	return nil
}

// GetUserByEmail returns the user with email, including the password hash.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// GetUserByID returns the user projection without the password hash.
func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.PasswordHash = ""
	return &u, nil
}

// UserExists reports whether a user with id is stored.
func (s *MemoryStore) UserExists(_ context.Context, id string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

// DeleteUser removes the user with id. The service has no account removal;
// tests use it to model a user disappearing from the store.
func (s *MemoryStore) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// CreateBook stores b.
func (s *MemoryStore) CreateBook(_ context.Context, b *model.Book) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books[b.ID] = *b
	return nil
}

// GetBookByID returns the book with id.
func (s *MemoryStore) GetBookByID(_ context.Context, id string) (*model.Book, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &b, nil
}

// ListBooks returns a page of books newest first, joined with their authors.
func (s *MemoryStore) ListBooks(_ context.Context, offset, limit int) ([]model.BookWithAuthor, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sorted := s.sortedBooks(func(model.Book) bool { return true })
	page := []model.BookWithAuthor{}
	for i := offset; i < len(sorted) && i < offset+limit; i++ {
		b := sorted[i]
		owner := s.users[b.UserID]
		page = append(page, model.BookWithAuthor{
			Book:   b,
			Author: model.Author{ID: owner.ID, Username: owner.Username, ProfileImage: owner.ProfileImage},
		})
	}
	return page, nil
}

// CountBooks returns the number of stored books.
func (s *MemoryStore) CountBooks(_ context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

// ListBooksByUser returns the books owned by userID, newest first.
func (s *MemoryStore) ListBooksByUser(_ context.Context, userID string) ([]model.Book, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedBooks(func(b model.Book) bool { return b.UserID == userID }), nil
}

// DeleteBook removes the book only when ownerID owns it.
func (s *MemoryStore) DeleteBook(_ context.Context, id, ownerID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok || b.UserID != ownerID {
		return repository.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *MemoryStore) sortedBooks(keep func(model.Book) bool) []model.Book {
	out := []model.Book{}
	for _, b := range s.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
