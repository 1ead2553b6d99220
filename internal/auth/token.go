package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 15 * 24 * time.Hour

var (
	// ErrTokenInvalid covers malformed, tampered, expired or foreign tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrMissingSecret is returned when the token service has no signing secret.
	ErrMissingSecret = errors.New("token signing secret is empty")
)

// TokenConfig configures the token service. Secret is loaded once at startup.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims is the signed payload of a session token. Subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the user the token is bound to.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenService issues and verifies stateless HS256 session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService from cfg.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}

	s := &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)

	return s, nil
}

// TTL returns the validity window of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token bound to userID that expires after the configured TTL.
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm, issuer and expiry of token and
// returns its claims. It does not check that the subject still exists.
func (s *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	claims := &Claims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
