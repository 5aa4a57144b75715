package handler

import (
	"time"

	"user-management-api/internal/usecase/user"
)

// UserResponse is the public JSON shape of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		CreatedDate: u.CreatedDate,
		UpdatedDate: u.UpdatedDate,
	}
}

// DataResponse wraps a single user.
type DataResponse struct {
	Data UserResponse `json:"data"`
}

// ListResponse wraps the full user list.
type ListResponse struct {
	Data  []UserResponse `json:"data"`
	Count int            `json:"count"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// A password in the body is ignored.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// LoginRequest represents the HTTP request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
