package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-management-api/internal/adapter/gin/middleware"
	"user-management-api/internal/adapter/gin/response"
	"user-management-api/internal/usecase/auth"
	"user-management-api/internal/usecase/user"
)

// AuthUsecase is the authentication logic the handler depends on.
type AuthUsecase interface {
	Signup(ctx context.Context, in auth.SignupRequest) (*auth.AuthResponse, error)
	Login(ctx context.Context, in auth.LoginRequest) (*auth.AuthResponse, error)
	Me(ctx context.Context, userID string) (*user.User, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	uc  AuthUsecase
	log *zap.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(uc AuthUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, log: log}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, invalidBody)
		return
	}

	resp, err := h.uc.Signup(c.Request.Context(), auth.SignupRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(resp))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, invalidBody)
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), auth.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(resp))
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.uc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, DataResponse{Data: toUserResponse(*u)})
}

func toAuthResponse(r *auth.AuthResponse) AuthResponse {
	return AuthResponse{
		User:      toUserResponse(r.User),
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
	}
}
