package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-management-api/internal/domain/user"
	pkgerrors "user-management-api/pkg/errors"
	"user-management-api/pkg/logger"
	"user-management-api/pkg/security"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer so MongoDB and PostgreSQL stores can be used
// interchangeably.
//
// GetByID, Update and Delete return *pkgerrors.NotFoundError for unknown IDs.
// Create and Update return *pkgerrors.AlreadyExistsError on a duplicate email.
// GetByEmail returns (nil, nil) when no user has the email.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.User, error)
}

// PasswordHasher hashes plaintext passwords before they are stored.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Usecase implements the business logic for user management operations.
type Usecase struct {
	repo     Repository
	hasher   PasswordHasher
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

// New creates a new instance of Usecase.
func New(r Repository, hasher PasswordHasher, log *zap.Logger) *Usecase {
	return &Usecase{
		repo:     r,
		hasher:   hasher,
		log:      log,
		validate: security.NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser stores a new user on behalf of an authenticated operator.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	in.FirstName = security.NormalizeName(in.FirstName)
	in.LastName = security.NormalizeName(in.LastName)
	in.Email = security.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	log.Info("creating user", zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, security.FormatValidationError(err)
	}

	if err := uc.ensureEmailAvailable(ctx, in.Email, ""); err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	now := uc.now()
	created, err := uc.repo.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedDate:  now,
		UpdatedDate:  now,
	})
	if err != nil {
		log.Error("failed to create user", zap.String("email", in.Email), zap.Error(err))
		return nil, passThrough("failed to create user", err)
	}

	log.Info("user created", zap.String("id", created.ID))
	return &CreateUserResponse{User: FromDomain(created)}, nil
}

// UpdateUser replaces name, email and phone of an existing user.
// Changing the email is allowed as long as no other user holds it.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	in.ID = strings.TrimSpace(in.ID)
	in.FirstName = security.NormalizeName(in.FirstName)
	in.LastName = security.NormalizeName(in.LastName)
	in.Email = security.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	log.Info("updating user", zap.String("id", in.ID), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, security.FormatValidationError(err)
	}

	// a missing target is NotFound even when the new email clashes
	if _, err := uc.repo.GetByID(ctx, in.ID); err != nil {
		log.Warn("update target lookup failed", zap.String("id", in.ID), zap.Error(err))
		return nil, passThrough("failed to update user", err)
	}

	if err := uc.ensureEmailAvailable(ctx, in.Email, in.ID); err != nil {
		return nil, err
	}

	updated, err := uc.repo.Update(ctx, &domain.User{
		ID:          in.ID,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		UpdatedDate: uc.now(),
	})
	if err != nil {
		log.Warn("failed to update user", zap.String("id", in.ID), zap.Error(err))
		return nil, passThrough("failed to update user", err)
	}

	return &UpdateUserResponse{User: FromDomain(updated)}, nil
}

// DeleteUser removes a user permanently.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	id := strings.TrimSpace(in.ID)

	log.Info("deleting user", zap.String("id", id))

	if id == "" {
		return nil, pkgerrors.NewNotFoundError("user", "User not found")
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		log.Warn("failed to delete user", zap.String("id", id), zap.Error(err))
		return nil, passThrough("failed to delete user", err)
	}

	return &DeleteUserResponse{ID: id}, nil
}

// GetUser retrieves a user by ID.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, pkgerrors.NewNotFoundError("user", "User not found")
	}

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		logger.WithContext(ctx, uc.log).Warn("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, passThrough("failed to get user", err)
	}

	return &GetUserResponse{User: FromDomain(u)}, nil
}

// ListUsers returns every stored user.
func (uc *Usecase) ListUsers(ctx context.Context) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to list users", err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = FromDomain(&domainUsers[i])
	}

	log.Debug("listed users", zap.Int("count", len(users)))
	return &ListUsersResponse{Users: users}, nil
}

// ensureEmailAvailable fails when another user than selfID owns email.
func (uc *Usecase) ensureEmailAvailable(ctx context.Context, email, selfID string) error {
	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != selfID {
		logger.WithContext(ctx, uc.log).Warn("email already exists", zap.String("email", email))
		return pkgerrors.NewAlreadyExistsError("user", "User already exists with this email")
	}
	return nil
}

// passThrough keeps typed domain errors and wraps anything else as internal.
func passThrough(message string, err error) error {
	var statuser pkgerrors.HTTPStatuser
	if errors.As(err, &statuser) {
		return err
	}
	return pkgerrors.NewInternalError(message, err)
}
