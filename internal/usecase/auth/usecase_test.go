package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	domain "user-management-api/internal/domain/user"
	"user-management-api/internal/usecase/user"
	pkgerrors "user-management-api/pkg/errors"
	"user-management-api/pkg/security"
)

// memoryRepo is a minimal user store for exercising the auth flow end to end.
type memoryRepo struct {
	mu     sync.Mutex
	seq    int
	users  map[string]domain.User
	getErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]domain.User)}
}

func (r *memoryRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	stored := *u
	stored.ID = fmt.Sprintf("u-%d", r.seq)
	r.users[stored.ID] = stored
	return &stored, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user", "User not found")
	}
	return &u, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) Update(context.Context, *domain.User) (*domain.User, error) {
	return nil, errors.New("not used")
}

func (r *memoryRepo) Delete(context.Context, string) error { return errors.New("not used") }

func (r *memoryRepo) List(context.Context) ([]domain.User, error) { return nil, nil }

type failingIssuer struct{}

func (failingIssuer) Issue(string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signing failed")
}

type fixture struct {
	uc     *Usecase
	repo   *memoryRepo
	tokens *security.TokenManager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	repo := newMemoryRepo()
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := security.NewTokenManager(security.TokenConfig{
		Secret: "auth-test-secret-with-at-least-32-bytes",
		Issuer: "user-management-api",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	users := user.New(repo, hasher, log)
	return fixture{
		uc:     New(users, repo, hasher, tokens, log),
		repo:   repo,
		tokens: tokens,
	}
}

func signupRequest() SignupRequest {
	return SignupRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Password:  "secret123",
	}
}

func TestSignup_ReturnsUsableToken(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	sub, err := f.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, sub)

	stored, err := f.repo.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	_, err = f.uc.Signup(ctx, signupRequest())
	assert.True(t, pkgerrors.IsAlreadyExists(err))
	assert.Len(t, f.repo.users, 1)
}

func TestSignup_ValidationFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	req := signupRequest()
	req.Password = "123"

	_, err := f.uc.Signup(context.Background(), req)

	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, f.repo.users)
}

func TestSignup_TokenFailure(t *testing.T) {
	f := newFixture(t)
	f.uc.tokens = failingIssuer{}

	_, err := f.uc.Signup(context.Background(), signupRequest())

	assert.Equal(t, 500, pkgerrors.StatusCode(err))
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signed, err := f.uc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	resp, err := f.uc.Login(ctx, LoginRequest{Email: "  ADA@example.com", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, signed.User.ID, resp.User.ID)
	sub, err := f.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, sub)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.uc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	_, wrongPassword := f.uc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "not-it"})
	_, unknownEmail := f.uc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.True(t, pkgerrors.IsUnauthorized(wrongPassword))
	assert.True(t, pkgerrors.IsUnauthorized(unknownEmail))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, "Invalid credentials", unknownEmail.Error())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Login(context.Background(), LoginRequest{Email: "", Password: ""})

	var verr *pkgerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("email"))
	assert.True(t, verr.HasField("password"))
}

func TestLogin_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.getErr = errors.New("connection refused")

	_, err := f.uc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret123"})

	assert.Equal(t, 500, pkgerrors.StatusCode(err))
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signed, err := f.uc.Signup(ctx, signupRequest())
	require.NoError(t, err)

	me, err := f.uc.Me(ctx, signed.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.FirstName)

	_, err = f.uc.Me(ctx, "u-404")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.uc.Me(ctx, "")
	assert.True(t, pkgerrors.IsUnauthorized(err))
}
