package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shelfmark/shelfmark/internal/apperr"
	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/media"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/model"
	"github.com/shelfmark/shelfmark/internal/repository"
)

// Pagination defaults for the feed.
const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 50
)

// BookService handles book business logic.
type BookService struct {
	books   BookStore
	media   MediaStore
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewBookService creates a new BookService.
func NewBookService(books BookStore, mediaStore MediaStore, recorder metrics.Recorder, logger *slog.Logger) *BookService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{
		books:   books,
		media:   mediaStore,
		metrics: recorder,
		logger:  logger,
	}
}

// CreateBookInput defines input for creating a book.
type CreateBookInput struct {
	Title   string
	Caption string
	Image   string // base64 data URI or bare base64
	Rating  int
	OwnerID string
}

// BookPage is one page of the feed.
type BookPage struct {
	Books       []model.BookWithAuthor
	CurrentPage int
	TotalBooks  int
	TotalPages  int
}

// Create uploads the image and stores a new book owned by in.OwnerID.
func (s *BookService) Create(ctx context.Context, in CreateBookInput) (*model.Book, error) {
	title := strings.TrimSpace(in.Title)
	caption := strings.TrimSpace(in.Caption)

	if title == "" || caption == "" || strings.TrimSpace(in.Image) == "" || in.Rating == 0 {
		return nil, apperr.Validation("MISSING_FIELDS", "Please provide all fields")
	}
	if !model.ValidRating(in.Rating) {
		return nil, apperr.Validation("INVALID_RATING",
			fmt.Sprintf("Rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	if in.OwnerID == "" {
		return nil, apperr.Internal(errors.New("create book: missing owner"))
	}

	imageURL, err := s.media.Upload(ctx, in.Image)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrImageTooLarge):
			return nil, apperr.Validation("INVALID_IMAGE", "Image is too large")
		case errors.Is(err, media.ErrInvalidImage):
			return nil, apperr.Validation("INVALID_IMAGE", "Image must be a base64 encoded image")
		default:
			return nil, apperr.Internal(fmt.Errorf("upload image: %w", err))
		}
	}

	now := time.Now().UTC()
	book := &model.Book{
		ID:        ulid.Make().String(),
		Title:     title,
		Caption:   caption,
		Image:     imageURL,
		Rating:    in.Rating,
		UserID:    in.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		s.removeImage(ctx, imageURL)
		return nil, apperr.Internal(fmt.Errorf("create book: %w", err))
	}

	s.metrics.IncBookCreated()
	return book, nil
}

// NormalizePage applies feed pagination defaults: a page below 1 becomes 1,
// a limit below 1 becomes DefaultLimit, and limits are capped at MaxLimit.
// Pages are capped so the store offset (page-1)*limit cannot overflow.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// List returns one page of the feed, newest first.
func (s *BookService) List(ctx context.Context, page, limit int) (*BookPage, error) {
	page, limit = NormalizePage(page, limit)

	books, err := s.books.ListBooks(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list books: %w", err))
	}
	total, err := s.books.CountBooks(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("count books: %w", err))
	}

	return &BookPage{
		Books:       books,
		CurrentPage: page,
		TotalBooks:  total,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

// ListByOwner returns every book owned by ownerID, newest first.
func (s *BookService) ListByOwner(ctx context.Context, ownerID string) ([]model.Book, error) {
	books, err := s.books.ListBooksByUser(ctx, ownerID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list user books: %w", err))
	}
	return books, nil
}

// Delete removes a book after checking the caller owns it. The hosted image
// is removed only after the record is gone, and a failure there is logged,
// not returned.
func (s *BookService) Delete(ctx context.Context, bookID, callerID string) error {
	book, err := s.books.GetBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return apperr.NotFound("BOOK_NOT_FOUND", "Book not found", err)
		}
		return apperr.Internal(fmt.Errorf("get book: %w", err))
	}

	if err := auth.RequireOwner(book.UserID, callerID); err != nil {
		s.metrics.IncOwnershipDenied()
		s.logger.WarnContext(ctx, "book delete denied",
			"book_id", book.ID,
			"owner_id", book.UserID,
			"caller_id", callerID,
		)
		return err
	}

	if err := s.books.DeleteBook(ctx, book.ID, callerID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return apperr.NotFound("BOOK_NOT_FOUND", "Book not found", err)
		}
		return apperr.Internal(fmt.Errorf("delete book: %w", err))
	}

	s.removeImage(ctx, book.Image)
	s.metrics.IncBookDeleted()
	return nil
}

func (s *BookService) removeImage(ctx context.Context, imageURL string) {
	if err := s.media.Delete(ctx, imageURL); err != nil {
		s.logger.WarnContext(ctx, "failed to delete image", "image", imageURL, "error", err)
	}
}
