package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

func newTestTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: DefaultTokenTTL, Issuer: "shelfmark"}, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService(TokenConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	t.Parallel()

	svc, err := NewTokenService(TokenConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, 15*24*time.Hour, svc.TTL())
}

func TestTokenService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)

	for _, userID := range []string{"01HZX3J9Q0N6W7Y8Z9A0B1C2D3", "u-1", "deleted-user"} {
		token, err := svc.Issue(userID)
		require.NoError(t, err)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID())
		assert.Equal(t, "shelfmark", claims.Issuer)
	}
}

func TestTokenService_ExpiryWindow(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, WithClock(func() time.Time { return issuedAt }))

	token, err := svc.Issue("user-1")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(15*24*time.Hour), claims.ExpiresAt.Time.UTC())
	assert.Equal(t, issuedAt, claims.IssuedAt.Time.UTC())
}

func TestTokenService_ExpiredTokenFails(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now().Add(-16 * 24 * time.Hour)
	issuer := newTestTokenService(t, WithClock(func() time.Time { return issuedAt }))
	token, err := issuer.Issue("user-1")
	require.NoError(t, err)

	// Same secret, so the signature is valid; only the expiry is in the past.
	verifier := newTestTokenService(t)
	_, err = verifier.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenService_RejectsInvalidTokens(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService(t)
	valid, err := svc.Issue("user-1")
	require.NoError(t, err)

	otherSecret, err := NewTokenService(TokenConfig{Secret: "another-secret-another-secret-0000", Issuer: "shelfmark"})
	require.NoError(t, err)
	forged, err := otherSecret.Issue("user-1")
	require.NoError(t, err)

	otherIssuer, err := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)
	foreign, err := otherIssuer.Issue("user-1")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "shelfmark",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "shelfmark",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
		Issuer:  "shelfmark",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "shelfmark",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"truncated", valid[:len(valid)-10]},
		{"tampered payload", tamperPayload(valid)},
		{"wrong secret", forged},
		{"wrong issuer", foreign},
		{"alg none", noneAlg},
		{"unexpected alg", hs512},
		{"missing exp", noExpiry},
		{"missing subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestTokenService_IssueRequiresUserID(t *testing.T) {
	t.Parallel()

	_, err := newTestTokenService(t).Issue("")
	assert.Error(t, err)
}

// tamperPayload flips one character in the payload segment so the
// signature no longer matches.
func tamperPayload(token string) string {
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}
