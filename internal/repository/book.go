package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shelfmark/shelfmark/internal/model"
)

// ErrBookNotFound is returned when no book matches, including a delete that
// lost a race with another delete of the same book.
var ErrBookNotFound = errors.New("book not found")

// CreateBook inserts a new book.
func (r *Repository) CreateBook(ctx context.Context, book *model.Book) error {
	query := `
		INSERT INTO books (id, title, caption, image, rating, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		book.ID,
		book.Title,
		book.Caption,
		book.Image,
		book.Rating,
		book.UserID,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id string) (*model.Book, error) {
	query := `
		SELECT id, title, caption, image, rating, user_id, created_at, updated_at
		FROM books
		WHERE id = $1
	`

	book, err := scanBook(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// ListBooks returns one page of the feed, newest first, joined with each
// book's author.
func (r *Repository) ListBooks(ctx context.Context, offset, limit int) ([]model.BookWithAuthor, error) {
	query := `
		SELECT b.id, b.title, b.caption, b.image, b.rating, b.user_id, b.created_at, b.updated_at,
		       u.username, u.profile_image
		FROM books b
		JOIN users u ON u.id = b.user_id
		ORDER BY b.created_at DESC, b.id DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := make([]model.BookWithAuthor, 0, limit)
	for rows.Next() {
		var b model.BookWithAuthor
		if err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Caption,
			&b.Image,
			&b.Rating,
			&b.UserID,
			&b.CreatedAt,
			&b.UpdatedAt,
			&b.Author.Username,
			&b.Author.ProfileImage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		b.Author.ID = b.UserID
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}

	return books, nil
}

// CountBooks returns the total number of books.
func (r *Repository) CountBooks(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return total, nil
}

// ListBooksByUser returns every book owned by userID, newest first.
func (r *Repository) ListBooksByUser(ctx context.Context, userID string) ([]model.Book, error) {
	query := `
		SELECT id, title, caption, image, rating, user_id, created_at, updated_at
		FROM books
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user books: %w", err)
	}
	defer rows.Close()

	books := []model.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user books: %w", err)
	}

	return books, nil
}

// DeleteBook removes a book owned by ownerID. Zero affected rows means the
// book is gone or owned by someone else, and yields ErrBookNotFound, so of
// two concurrent deletes only one succeeds.
func (r *Repository) DeleteBook(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var book model.Book
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Caption,
		&book.Image,
		&book.Rating,
		&book.UserID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	return &book, err
}
