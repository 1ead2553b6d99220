package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shelfmark/shelfmark/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("email already exists")
	ErrUsernameExists = errors.New("username already exists")
)

const emailConstraint = "users_email_key"

// CreateUser inserts a new user. Uniqueness of email and username is enforced
// by the database, so concurrent registrations of the same identity produce
// exactly one row. When both email and username collide, ErrEmailExists wins.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.ProfileImage,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	constraint, ok := uniqueViolation(err)
	if !ok {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if constraint == emailConstraint {
		return ErrEmailExists
	}

	// PostgreSQL reports whichever index it checked first; look again so
	// an email collision is always the one reported.
	exists, checkErr := r.EmailExists(ctx, user.Email)
	if checkErr != nil {
		return fmt.Errorf("failed to classify duplicate user: %w", checkErr)
	}
	if exists {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

// EmailExists reports whether a user with email is registered.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UserExists reports whether a user with id is registered.
func (r *Repository) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

// GetUserByID retrieves a user by their ID. The password hash is not selected.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, username, profile_image, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// GetUserByEmail retrieves a user, including the password hash, by email.
// Only the login path should call it.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, username, password_hash, profile_image, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var user model.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}
