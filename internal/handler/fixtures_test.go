package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/model"
	"github.com/shelfmark/shelfmark/internal/service"
	"github.com/shelfmark/shelfmark/internal/testutil"
)

type fixture struct {
	store   *testutil.MemoryStore
	media   *testutil.MemoryMedia
	metrics *metrics.InMemoryRecorder
	auth    *AuthHandler
	books   *BookHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: "handler-test-secret-0123456789abcdef",
		Issuer: "shelfmark",
	})
	require.NoError(t, err)

	f := &fixture{
		store:   testutil.NewMemoryStore(),
		media:   testutil.NewMemoryMedia(),
		metrics: metrics.NewInMemory(),
	}
	hasher := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	authSvc := service.NewAuthService(f.store, hasher, tokens, "", f.metrics, discardLogger())
	bookSvc := service.NewBookService(f.store, f.media, f.metrics, discardLogger())

	f.auth = NewAuthHandler(authSvc, discardLogger())
	f.books = NewBookHandler(bookSvc, discardLogger())
	return f
}

// seedUser stores a user directly and returns it.
func (f *fixture) seedUser(t *testing.T, email, username string) *model.User {
	t.Helper()
	u := testutil.NewUser(email, username)
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser attaches the identity of u, as the auth middleware would.
func asUser(req *http.Request, u *model.User) *http.Request {
	return req.WithContext(auth.ContextWithIdentity(req.Context(), u.Identity()))
}
