// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shelfmark/shelfmark/internal/model"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// ErrorBody carries the machine-readable code and a client-safe message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}
