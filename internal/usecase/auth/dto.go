package auth

import (
	"time"

	"user-management-api/internal/usecase/user"
)

// SignupRequest is the self-registration payload.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

// LoginRequest carries the credentials for a login attempt.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by a successful signup or login.
type AuthResponse struct {
	User      user.User
	Token     string
	ExpiresAt time.Time
}
