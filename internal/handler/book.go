package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark/internal/apperr"
	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/handler/dto"
	"github.com/shelfmark/shelfmark/internal/service"
)

// errNoIdentity means a protected route ran without the auth middleware.
var errNoIdentity = errors.New("no identity in request context")

// BookHandler handles HTTP requests for book operations.
type BookHandler struct {
	svc    *service.BookService
	logger *slog.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(svc *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/books.
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, h.logger, apperr.Internal(errNoIdentity))
		return
	}

	var req dto.CreateBookRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	book, err := h.svc.Create(r.Context(), service.CreateBookInput{
		Title:   req.Title,
		Caption: req.Caption,
		Image:   req.Image,
		Rating:  req.Rating,
		OwnerID: userID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("book_created",
		"book_id", book.ID,
		"user_id", userID,
		"rating", book.Rating,
	)

	writeJSON(w, http.StatusCreated, dto.ToBookResponse(book))
}

// List handles GET /api/books?page=&limit=.
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntOr(q.Get("page"), service.DefaultPage)
	limit := parseIntOr(q.Get("limit"), service.DefaultLimit)

	result, err := h.svc.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookFeedResponse(
		result.Books,
		result.CurrentPage,
		result.TotalBooks,
		result.TotalPages,
	))
}

// ListMine handles GET /api/books/user.
func (h *BookHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, h.logger, apperr.Internal(errNoIdentity))
		return
	}

	books, err := h.svc.ListByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBookListResponse(books))
}

// Delete handles DELETE /api/books/{id}.
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, r, h.logger, apperr.Internal(errNoIdentity))
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, r, h.logger, apperr.NotFound("BOOK_NOT_FOUND", "Book not found", nil))
		return
	}

	if err := h.svc.Delete(r.Context(), id, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("book_deleted", "book_id", id, "user_id", userID)

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Book deleted successfully"})
}

// parseIntOr parses s as an integer, falling back to def when s is empty or
// not a number. Range checks are left to the service.
func parseIntOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
