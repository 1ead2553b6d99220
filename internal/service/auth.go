package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/shelfmark/shelfmark/internal/apperr"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/model"
	"github.com/shelfmark/shelfmark/internal/repository"
)

// AuthService registers users and exchanges credentials for tokens.
type AuthService struct {
	users         UserStore
	hasher        PasswordHasher
	tokens        TokenIssuer
	avatarBaseURL string
	metrics       metrics.Recorder
	logger        *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, avatarBaseURL string, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:         users,
		hasher:        hasher,
		tokens:        tokens,
		avatarBaseURL: avatarBaseURL,
		metrics:       recorder,
		logger:        logger,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is a freshly issued token and the user it is bound to.
// User never carries the password hash.
type AuthResult struct {
	Token string
	User  *model.User
}

// Register validates input, creates the user and issues a token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := model.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)

	if email == "" || username == "" || in.Password == "" {
		return nil, apperr.Validation("MISSING_FIELDS", "All fields are required")
	}
	if utf8.RuneCountInString(in.Password) < model.MinPasswordLength {
		return nil, apperr.Validation("PASSWORD_TOO_SHORT",
			fmt.Sprintf("Password should be at least %d characters long", model.MinPasswordLength))
	}
	if utf8.RuneCountInString(username) < model.MinUsernameLength {
		return nil, apperr.Validation("USERNAME_TOO_SHORT",
			fmt.Sprintf("Username should be at least %d characters long", model.MinUsernameLength))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		ProfileImage: model.AvatarURL(s.avatarBaseURL, username),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, apperr.Conflict("EMAIL_EXISTS", "Email already exists", err)
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, apperr.Conflict("USERNAME_EXISTS", "Username already exists", err)
		default:
			return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue token: %w", err))
	}

	s.metrics.IncUserRegistered()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	user.PasswordHash = ""
	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. An unknown email is a
// NotFound error and a wrong password an Authentication error; both share the
// same client message.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("MISSING_FIELDS", "All fields are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.LoginFailure)
			return nil, apperr.NotFound("INVALID_CREDENTIALS", "Invalid credentials", err)
		}
		return nil, apperr.Internal(fmt.Errorf("get user: %w", err))
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored password hash is malformed", "user_id", user.ID, "error", err)
		return nil, apperr.Internal(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginFailure)
		return nil, apperr.Authentication("INVALID_CREDENTIALS", "Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue token: %w", err))
	}

	s.metrics.IncLogin(metrics.LoginSuccess)

	user.PasswordHash = ""
	return &AuthResult{Token: token, User: user}, nil
}
