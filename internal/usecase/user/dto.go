package user

import (
	"time"

	domain "user-management-api/internal/domain/user"
)

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2,alphaspace"`
	LastName  string `json:"lastName" validate:"required,min=2,alphaspace"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone"`
}

// CreateUserResponse represents the response payload after creating a user.
type CreateUserResponse struct {
	User User
}

// UpdateUserRequest represents the request payload for updating an existing user.
// Password is not updatable through this path.
type UpdateUserRequest struct {
	ID        string `json:"id" validate:"required"`
	FirstName string `json:"firstName" validate:"required,min=2,alphaspace"`
	LastName  string `json:"lastName" validate:"required,min=2,alphaspace"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

// UpdateUserResponse represents the response payload after updating a user.
type UpdateUserResponse struct {
	User User
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID string
}

// DeleteUserResponse represents the response payload after deleting a user.
type DeleteUserResponse struct {
	ID string
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string
}

// GetUserResponse represents the response payload for user details.
type GetUserResponse struct {
	User User
}

// ListUsersResponse represents the response payload for user listing.
// The whole collection is returned; there is no paging.
type ListUsersResponse struct {
	Users []User
}

// User represents a user DTO (Data Transfer Object) for API responses.
// It never carries the password hash.
type User struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	CreatedDate time.Time
	UpdatedDate time.Time
}

// FromDomain converts a domain entity into the public DTO.
func FromDomain(u *domain.User) User {
	return User{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		CreatedDate: u.CreatedDate,
		UpdatedDate: u.UpdatedDate,
	}
}
