package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/handler"
	"github.com/shelfmark/shelfmark/internal/handler/dto"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/middleware"
	"github.com/shelfmark/shelfmark/internal/service"
	"github.com/shelfmark/shelfmark/internal/testutil"
)

type testApp struct {
	router  http.Handler
	store   *testutil.MemoryStore
	media   *testutil.MemoryMedia
	metrics *metrics.InMemoryRecorder
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testutil.NewMemoryStore()
	mediaStore := testutil.NewMemoryMedia()
	recorder := metrics.NewInMemory()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: "router-test-secret-0123456789abcdef",
		Issuer: "shelfmark",
	})
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	authSvc := service.NewAuthService(store, hasher, tokens, "", recorder, logger)
	bookSvc := service.NewBookService(store, mediaStore, recorder, logger)

	r := New(Config{
		Logger:         logger,
		Metrics:        recorder,
		Info:           handler.New(),
		Health:         handler.NewHealthHandler(nil, nil, nil, logger),
		Auth:           handler.NewAuthHandler(authSvc, logger),
		Books:          handler.NewBookHandler(bookSvc, logger),
		MetricsHandler: http.HandlerFunc(handler.NewMetricsHandler(recorder).Metrics),
		AuthConfig: middleware.AuthConfig{
			Logger:  logger,
			Tokens:  tokens,
			Users:   store,
			Metrics: recorder,
		},
		IsDevelopment: true,
	})

	return &testApp{router: r, store: store, media: mediaStore, metrics: recorder}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (a *testApp) register(t *testing.T, email, username, password string) dto.AuthResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
		Email: email, Username: username, Password: password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.AuthResponse](t, rec)
}

func (a *testApp) createBook(t *testing.T, token, title string, rating int) dto.BookResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/books", token, dto.CreateBookRequest{
		Title: title, Caption: "About " + title, Image: testutil.PNGDataURI(), Rating: rating,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.BookResponse](t, rec)
}

func TestRouter_FullScenario(t *testing.T) {
	app := newTestApp(t)

	// Register and log in.
	alice := app.register(t, "alice@example.com", "alice", "secret1")
	assert.NotEmpty(t, alice.Token)

	rec := app.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[dto.AuthResponse](t, rec)
	assert.Equal(t, alice.User.ID, login.User.ID)

	// Wrong password.
	rec = app.do(t, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "secret2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Both tokens work.
	first := app.createBook(t, alice.Token, "Dune", 5)
	second := app.createBook(t, login.Token, "Emma", 3)

	// Feed page 1, newest first, with the author expanded.
	rec = app.do(t, http.MethodGet, "/api/books?page=1", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[dto.BookFeedResponse](t, rec)
	assert.Equal(t, 1, feed.CurrentPage)
	assert.Equal(t, 2, feed.TotalBooks)
	assert.Equal(t, 1, feed.TotalPages)
	require.Len(t, feed.Books, 2)
	assert.Equal(t, second.ID, feed.Books[0].ID)
	assert.Equal(t, first.ID, feed.Books[1].ID)
	assert.Equal(t, "alice", feed.Books[0].User.Username)

	// A second user cannot delete alice's book.
	bob := app.register(t, "bob@example.com", "bob", "secret1")
	rec = app.do(t, http.MethodDelete, "/api/books/"+first.ID, bob.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "NOT_OWNER", decode[dto.ErrorResponse](t, rec).Error.Code)

	rec = app.do(t, http.MethodGet, "/api/books/user", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]dto.BookResponse](t, rec), 2)
	assert.True(t, app.media.Has(first.Image))

	// Bob's own list is empty.
	rec = app.do(t, http.MethodGet, "/api/books/user", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]dto.BookResponse](t, rec))

	// The owner can.
	rec = app.do(t, http.MethodDelete, "/api/books/"+first.ID, alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Book deleted successfully", decode[dto.MessageResponse](t, rec).Message)
	assert.False(t, app.media.Has(first.Image))

	rec = app.do(t, http.MethodDelete, "/api/books/"+first.ID, alice.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	snap := app.metrics.Snapshot()
	assert.Equal(t, uint64(2), snap.UsersRegistered)
	assert.Equal(t, uint64(1), snap.LoginsSucceeded)
	assert.Equal(t, uint64(1), snap.LoginsFailed)
	assert.Equal(t, uint64(2), snap.BooksCreated)
	assert.Equal(t, uint64(1), snap.BooksDeleted)
	assert.Equal(t, uint64(1), snap.OwnershipDenied)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)
	alice := app.register(t, "alice@example.com", "alice", "secret1")
	book := app.createBook(t, alice.Token, "Dune", 5)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/books"},
		{http.MethodGet, "/api/books"},
		{http.MethodGet, "/api/books/user"},
		{http.MethodDelete, "/api/books/" + book.ID},
	}

	for _, route := range routes {
		for _, token := range []string{"", "garbage", alice.Token + "x"} {
			t.Run(route.method+" "+route.path+" token="+token, func(t *testing.T) {
				rec := app.do(t, route.method, route.path, token, nil)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				resp := decode[dto.ErrorResponse](t, rec)
				assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
			})
		}
	}

	_, err := app.store.GetBookByID(context.Background(), book.ID)
	assert.NoError(t, err, "book must survive unauthenticated delete attempts")
}

func TestRouter_TokenForDeletedUserIsRejected(t *testing.T) {
	app := newTestApp(t)

	// A token signed with the right secret for a user the store never saw.
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: "router-test-secret-0123456789abcdef",
		Issuer: "shelfmark",
	})
	require.NoError(t, err)
	ghost, err := tokens.Issue("01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.NoError(t, err)

	rec := app.do(t, http.MethodGet, "/api/books", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, uint64(1), app.metrics.Snapshot().AuthRejected[middleware.ReasonUnknownUser])
}

func TestRouter_ConcurrentRegistrationSingleWinner(t *testing.T) {
	app := newTestApp(t)

	const workers = 12
	var wg sync.WaitGroup
	codes := make(chan int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := app.do(t, http.MethodPost, "/api/auth/register", "", dto.RegisterRequest{
				Email: "race@example.com", Username: "racer", Password: "secret1",
			})
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusBadRequest, code)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, app.store.UserCount())
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	app.register(t, "alice@example.com", "alice", "secret1")
	rec = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shelfmark_users_registered_total 1")

	rec = app.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPut, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_GlobalMiddleware(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRouter_OversizedBodyRejected(t *testing.T) {
	app := newTestApp(t)

	body := `{"email":"a@x.com","password":"` + strings.Repeat("a", 9<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
