package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/auth"
)

var cheapArgon2 = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: "service-test-secret-0123456789abcdef",
		Issuer: "shelfmark",
	})
	require.NoError(t, err)
	return tokens
}

type mockMediaStore struct {
	mock.Mock
}

func (m *mockMediaStore) Upload(ctx context.Context, payload string) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func (m *mockMediaStore) Delete(ctx context.Context, imageURL string) error {
	args := m.Called(ctx, imageURL)
	return args.Error(0)
}
