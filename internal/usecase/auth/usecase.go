package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-management-api/internal/domain/user"
	"user-management-api/internal/usecase/user"
	pkgerrors "user-management-api/pkg/errors"
	"user-management-api/pkg/logger"
	"user-management-api/pkg/security"
)

const invalidCredentials = "Invalid credentials"

// UserCreator registers a new user with the same rules as an operator create.
type UserCreator interface {
	CreateUser(ctx context.Context, in user.CreateUserRequest) (*user.CreateUserResponse, error)
}

// Repository is the read side of the user store needed for authentication.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(password, hash string) bool
	VerifyAbsent(password string) bool
}

// TokenIssuer issues session tokens for a user ID.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Usecase implements signup, login and session lookup.
type Usecase struct {
	users    UserCreator
	repo     Repository
	verifier PasswordVerifier
	tokens   TokenIssuer
	log      *zap.Logger
	validate *validator.Validate
}

// New creates a new auth Usecase.
func New(users UserCreator, repo Repository, verifier PasswordVerifier, tokens TokenIssuer, log *zap.Logger) *Usecase {
	return &Usecase{
		users:    users,
		repo:     repo,
		verifier: verifier,
		tokens:   tokens,
		log:      log,
		validate: security.NewValidator(),
	}
}

// Signup creates the account and returns a token for it.
func (uc *Usecase) Signup(ctx context.Context, in SignupRequest) (*AuthResponse, error) {
	created, err := uc.users.CreateUser(ctx, user.CreateUserRequest{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
	})
	if err != nil {
		return nil, err
	}

	return uc.issue(ctx, created.User)
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords fail identically and cost one bcrypt comparison each.
func (uc *Usecase) Login(ctx context.Context, in LoginRequest) (*AuthResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	in.Email = security.NormalizeEmail(in.Email)

	if err := uc.validate.Struct(in); err != nil {
		return nil, security.FormatValidationError(err)
	}

	u, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to look up user for login", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to login", err)
	}

	if u == nil {
		uc.verifier.VerifyAbsent(in.Password)
		log.Info("login rejected", zap.String("reason", "unknown email"))
		return nil, pkgerrors.NewUnauthorizedError(invalidCredentials)
	}
	if !uc.verifier.Verify(in.Password, u.PasswordHash) {
		log.Info("login rejected", zap.String("reason", "password mismatch"), zap.String("user_id", u.ID))
		return nil, pkgerrors.NewUnauthorizedError(invalidCredentials)
	}

	return uc.issue(ctx, user.FromDomain(u))
}

// Me returns the user that owns a validated token.
func (uc *Usecase) Me(ctx context.Context, userID string) (*user.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgerrors.NewUnauthorizedError("Not authorized, no token")
	}

	u, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, err
		}
		return nil, pkgerrors.NewInternalError("failed to load current user", err)
	}

	dto := user.FromDomain(u)
	return &dto, nil
}

func (uc *Usecase) issue(ctx context.Context, u user.User) (*AuthResponse, error) {
	token, expiresAt, err := uc.tokens.Issue(u.ID)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to issue token", zap.String("user_id", u.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to issue token", err)
	}

	return &AuthResponse{User: u, Token: token, ExpiresAt: expiresAt}, nil
}
