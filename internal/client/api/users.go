package api

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// User is the public shape of a user returned by the server.
type User struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedDate time.Time `json:"updatedDate"`
}

// SignupRequest is the body of POST /api/auth/signup and POST /api/users.
type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
}

// CreateUserRequest is the operator form for adding a user.
type CreateUserRequest = SignupRequest

// UpdateUserRequest is the body of PUT /api/users/:id. Password is never sent.
type UpdateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type dataResponse struct {
	Data User `json:"data"`
}

type listResponse struct {
	Data  []User `json:"data"`
	Count int    `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup registers a new account and returns its session.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ListUsers returns every user, newest first.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []User{}
	}
	return resp.Data, nil
}

// GetUser fetches one user by ID.
func (c *Client) GetUser(ctx context.Context, token, id string) (*User, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, userPath(id), token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// CreateUser adds a user on behalf of the logged in operator.
func (c *Client) CreateUser(ctx context.Context, token string, in CreateUserRequest) (*User, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodPost, "/api/users", token, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateUser replaces the editable fields of a user.
func (c *Client) UpdateUser(ctx context.Context, token, id string, in UpdateUserRequest) (*User, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodPut, userPath(id), token, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteUser removes a user and returns the server's confirmation message.
func (c *Client) DeleteUser(ctx context.Context, token, id string) (string, error) {
	var resp messageResponse
	if err := c.do(ctx, http.MethodDelete, userPath(id), token, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func userPath(id string) string {
	return "/api/users/" + url.PathEscape(id)
}
