package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity(t *testing.T) {
	tests := []struct {
		name        string
		isDev       bool
		checkHeader string
		wantValue   string
	}{
		{"X-Content-Type-Options is set", false, "X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options is set", false, "X-Frame-Options", "DENY"},
		{"Referrer-Policy is set", false, "Referrer-Policy", "strict-origin-when-cross-origin"},
		{"CSP is set", false, "Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
		{"HSTS is set in production", false, "Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
		{"HSTS is NOT set in development", true, "Strict-Transport-Security", ""},
		{"Cache-Control is set", true, "Cache-Control", "no-store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Security(SecurityConfig{IsDevelopment: tt.isDev})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if got := rec.Header().Get(tt.checkHeader); got != tt.wantValue {
				t.Errorf("header %s = %q, want %q", tt.checkHeader, got, tt.wantValue)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	tests := []struct {
		name          string
		maxBytes      int64
		contentLength int64
		body          string
		wantStatus    int
	}{
		{
			name:          "small body allowed",
			maxBytes:      1024,
			contentLength: 10,
			body:          "small body",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "content-length exceeds limit",
			maxBytes:      10,
			contentLength: 100,
			body:          "this is a much longer body that exceeds the limit",
			wantStatus:    http.StatusRequestEntityTooLarge,
		},
		{
			name:          "undeclared length cut off while streaming",
			maxBytes:      10,
			contentLength: -1,
			body:          "this is a much longer body that exceeds the limit",
			wantStatus:    http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MaxBodySize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.Copy(io.Discard, r.Body); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
