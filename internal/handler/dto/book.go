package dto

import (
	"time"

	"github.com/shelfmark/shelfmark/internal/model"
)

// CreateBookRequest is the body of POST /api/books.
type CreateBookRequest struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	Image   string `json:"image"`
	Rating  int    `json:"rating"`
}

// BookResponse represents a book in API responses. User is the owner ID.
type BookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	Image     string    `json:"image"`
	Rating    int       `json:"rating"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthorResponse is the owner projection embedded in feed entries.
type AuthorResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

// FeedBookResponse is a feed entry with the owner expanded.
type FeedBookResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Caption   string         `json:"caption"`
	Image     string         `json:"image"`
	Rating    int            `json:"rating"`
	User      AuthorResponse `json:"user"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// BookFeedResponse is one page of the global feed.
type BookFeedResponse struct {
	Books       []FeedBookResponse `json:"books"`
	CurrentPage int                `json:"currentPage"`
	TotalBooks  int                `json:"totalBooks"`
	TotalPages  int                `json:"totalPages"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToBookResponse converts a Book model to BookResponse DTO.
func ToBookResponse(b *model.Book) *BookResponse {
	return &BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Caption:   b.Caption,
		Image:     b.Image,
		Rating:    b.Rating,
		User:      b.UserID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// ToBookListResponse converts books to their response form. It never returns nil.
func ToBookListResponse(books []model.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		out = append(out, *ToBookResponse(&books[i]))
	}
	return out
}

// ToBookFeedResponse converts a feed page to its response form.
func ToBookFeedResponse(books []model.BookWithAuthor, page, total, totalPages int) *BookFeedResponse {
	entries := make([]FeedBookResponse, 0, len(books))
	for _, b := range books {
		entries = append(entries, FeedBookResponse{
			ID:      b.ID,
			Title:   b.Title,
			Caption: b.Caption,
			Image:   b.Image,
			Rating:  b.Rating,
			User: AuthorResponse{
				ID:           b.Author.ID,
				Username:     b.Author.Username,
				ProfileImage: b.Author.ProfileImage,
			},
			CreatedAt: b.CreatedAt,
			UpdatedAt: b.UpdatedAt,
		})
	}
	return &BookFeedResponse{
		Books:       entries,
		CurrentPage: page,
		TotalBooks:  total,
		TotalPages:  totalPages,
	}
}
