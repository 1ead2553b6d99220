package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shelfmark/shelfmark/internal/apperr"
	"github.com/shelfmark/shelfmark/internal/handler/dto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["message"] != "Shelfmark API is running" {
		t.Errorf("unexpected message: %s", response["message"])
	}
	if response["version"] != Version {
		t.Errorf("unexpected version: %s", response["version"])
	}
}

func TestHandler_NotFound(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Error.Code; got != "NOT_FOUND" {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodPatch, "/", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Error.Code; got != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestWriteError_MapsKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperr.Validation("MISSING_FIELDS", "All fields are required"), http.StatusBadRequest, "MISSING_FIELDS"},
		{"conflict", apperr.Conflict("EMAIL_EXISTS", "Email already exists", nil), http.StatusBadRequest, "EMAIL_EXISTS"},
		{"authentication", apperr.Authentication("INVALID_CREDENTIALS", "Invalid credentials"), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"not found", apperr.NotFound("BOOK_NOT_FOUND", "Book not found", nil), http.StatusNotFound, "BOOK_NOT_FOUND"},
		{"authorization", apperr.Authorization("NOT_OWNER", "Unauthorized"), http.StatusUnauthorized, "NOT_OWNER"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			writeError(rec, req, discardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).Error.Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestWriteError_InternalCauseIsLoggedNotReturned(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec := httptest.NewRecorder()

	writeError(rec, req, logger, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("internal cause leaked to client: %s", rec.Body.String())
	}
	if got := decodeError(t, rec).Error.Message; got != "Internal server error" {
		t.Errorf("unexpected message: %s", got)
	}
	if !strings.Contains(logs.String(), "10.0.0.5") {
		t.Errorf("internal cause should be logged, got: %s", logs.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		var dst dto.LoginRequest
		if decodeJSON(rec, req, &dst) {
			t.Fatal("expected decode to fail")
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if got := decodeError(t, rec).Error.Code; got != "INVALID_JSON" {
			t.Errorf("code = %s, want INVALID_JSON", got)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		body := `{"email":"` + strings.Repeat("a", 256) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(rec, req.Body, 64)

		var dst dto.LoginRequest
		if decodeJSON(rec, req, &dst) {
			t.Fatal("expected decode to fail")
		}
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", rec.Code)
		}
	})

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
		rec := httptest.NewRecorder()

		var dst dto.LoginRequest
		if !decodeJSON(rec, req, &dst) {
			t.Fatalf("unexpected failure: %s", rec.Body.String())
		}
		if dst.Email != "a@x.com" || dst.Password != "secret1" {
			t.Errorf("unexpected decode result: %+v", dst)
		}
	})
}

func TestParseIntOr(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"", 5, 5},
		{"abc", 5, 5},
		{"2.5", 1, 1},
		{"3", 1, 3},
		{"-4", 1, -4},
		{"0", 5, 0},
	}
	for _, tt := range tests {
		if got := parseIntOr(tt.in, tt.def); got != tt.want {
			t.Errorf("parseIntOr(%q, %d) = %d, want %d", tt.in, tt.def, got, tt.want)
		}
	}
}
