package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"user-management-api/internal/adapter/db/postgres"
	"user-management-api/internal/adapter/gin/handler"
	"user-management-api/internal/adapter/gin/middleware"
	"user-management-api/internal/adapter/gin/response"
	"user-management-api/internal/usecase/auth"
	"user-management-api/internal/usecase/user"
	"user-management-api/pkg/security"
)

const (
	testSecret = "router-suite-secret-at-least-32-bytes!"
	testIssuer = "user-management-api"
)

// APISuite drives the full HTTP stack against an in-memory SQL store.
type APISuite struct {
	suite.Suite
	router *gin.Engine
	repo   *postgres.UserRepoPG
	tokens *security.TokenManager
	token  string
	userID string
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func openTestDB(t testing.TB) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(postgres.Models()...))
	return db
}

func buildRouter(t testing.TB, log *zap.Logger, repo user.Repository, tokens *security.TokenManager, rl *middleware.RateLimiter) *gin.Engine {
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	users := user.New(repo, hasher, log)
	authUC := auth.New(users, repo, hasher, tokens, log)

	return SetupRouter(Options{ServiceName: "user-management-api", Mode: gin.TestMode}, Deps{
		Users:       handler.NewUserHandler(users, log),
		Auth:        handler.NewAuthHandler(authUC, log),
		Tokens:      tokens,
		RateLimiter: rl,
		Log:         log,
	})
}

func (s *APISuite) SetupTest() {
	t := s.T()
	log := zaptest.NewLogger(t)

	tokens, err := security.NewTokenManager(security.TokenConfig{Secret: testSecret, Issuer: testIssuer, TTL: time.Hour})
	s.Require().NoError(err)

	s.tokens = tokens
	s.repo = postgres.NewUserRepoPG(openTestDB(t), log)
	s.router = buildRouter(t, log, s.repo, tokens, nil)

	w := s.request(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": "Operator", "lastName": "Admin", "email": "admin@example.com", "password": "admin-pass",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp handler.AuthResponse
	s.decode(w, &resp)
	s.token = resp.Token
	s.userID = resp.User.ID
}

func (s *APISuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APISuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *APISuite) createUser(first, email string) handler.UserResponse {
	w := s.request(http.MethodPost, "/api/users", s.token, map[string]string{
		"firstName": first, "lastName": "Tester", "email": email, "password": "secret123", "phone": "5550101",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp handler.DataResponse
	s.decode(w, &resp)
	return resp.Data
}

func (s *APISuite) countUsers() int {
	users, err := s.repo.List(context.Background())
	s.Require().NoError(err)
	return len(users)
}

func (s *APISuite) TestSignup_TokenBindsToStoredUser() {
	w := s.request(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": "Ada@Example.com", "password": "secret123",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.NotContains(w.Body.String(), "secret123")
	s.NotContains(strings.ToLower(w.Body.String()), "password")

	var resp handler.AuthResponse
	s.decode(w, &resp)
	sub, err := s.tokens.Validate(resp.Token)
	s.Require().NoError(err)
	s.Equal(resp.User.ID, sub)

	stored, err := s.repo.GetByEmail(context.Background(), "ada@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(stored)
	s.Equal(stored.ID, sub)
	s.NotEqual("secret123", stored.PasswordHash)
}

func (s *APISuite) TestSignup_NameRules() {
	cases := []struct {
		first string
		code  int
	}{
		{"Jo", http.StatusCreated},
		{"J", http.StatusBadRequest},
		{"Jo3", http.StatusBadRequest},
	}
	for i, tc := range cases {
		w := s.request(http.MethodPost, "/api/auth/signup", "", map[string]string{
			"firstName": tc.first, "lastName": "Smith", "email": "jo" + string(rune('a'+i)) + "@example.com", "password": "secret123",
		})
		s.Equal(tc.code, w.Code, "firstName=%q: %s", tc.first, w.Body.String())
		if tc.code == http.StatusBadRequest {
			var body response.ErrorResponse
			s.decode(w, &body)
			s.Equal("validation_error", body.Error)
			s.Require().NotEmpty(body.Fields)
			s.Equal("firstName", body.Fields[0].Field)
		}
	}
}

func (s *APISuite) TestLogin_SuccessAndIndistinguishableFailures() {
	ok := s.request(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "admin-pass"})
	s.Equal(http.StatusOK, ok.Code)

	wrongPassword := s.request(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "admin@example.com", "password": "nope-nope"})
	unknownEmail := s.request(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "admin-pass"})

	s.Equal(http.StatusUnauthorized, wrongPassword.Code)
	s.Equal(http.StatusUnauthorized, unknownEmail.Code)
	s.JSONEq(wrongPassword.Body.String(), unknownEmail.Body.String())
}

func (s *APISuite) TestDuplicateEmail_LeavesOneRecord() {
	s.createUser("Grace", "grace@example.com")
	before := s.countUsers()

	w := s.request(http.MethodPost, "/api/users", s.token, map[string]string{
		"firstName": "Grace", "lastName": "Again", "email": "GRACE@example.com", "password": "secret123",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"firstName": "Grace", "lastName": "Again", "email": "grace@example.com", "password": "secret123",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	s.Equal(before, s.countUsers())
}

func (s *APISuite) TestProtectedEndpoints_RejectBadTokens() {
	target := s.createUser("Linus", "linus@example.com")
	before := s.countUsers()

	expiredIssuer, err := security.NewTokenManager(security.TokenConfig{
		Secret: testSecret,
		Issuer: testIssuer,
		TTL:    time.Hour,
		Now:    func() time.Time { return time.Now().Add(-2 * time.Hour) },
	})
	s.Require().NoError(err)
	expired, _, err := expiredIssuer.Issue(s.userID)
	s.Require().NoError(err)

	for _, token := range []string{"", "not.a.jwt", expired} {
		s.Equal(http.StatusUnauthorized, s.request(http.MethodGet, "/api/users", token, nil).Code)
		s.Equal(http.StatusUnauthorized, s.request(http.MethodGet, "/api/users/"+target.ID, token, nil).Code)
		s.Equal(http.StatusUnauthorized, s.request(http.MethodPost, "/api/users", token, map[string]string{
			"firstName": "Mallory", "lastName": "Evil", "email": "mallory@example.com", "password": "secret123",
		}).Code)
		s.Equal(http.StatusUnauthorized, s.request(http.MethodPut, "/api/users/"+target.ID, token, map[string]string{
			"firstName": "Hacked", "lastName": "Name", "email": "linus@example.com",
		}).Code)
		s.Equal(http.StatusUnauthorized, s.request(http.MethodDelete, "/api/users/"+target.ID, token, nil).Code)
		s.Equal(http.StatusUnauthorized, s.request(http.MethodGet, "/api/auth/me", token, nil).Code)
	}

	s.Equal(before, s.countUsers())
	stored, err := s.repo.GetByID(context.Background(), target.ID)
	s.Require().NoError(err)
	s.Equal("Linus", stored.FirstName)
}

func (s *APISuite) TestDelete() {
	keep := s.createUser("Keep", "keep@example.com")
	gone := s.createUser("Gone", "gone@example.com")
	before := s.countUsers()

	s.Equal(http.StatusNotFound, s.request(http.MethodDelete, "/api/users/00000000-0000-0000-0000-000000000000", s.token, nil).Code)

	w := s.request(http.MethodDelete, "/api/users/"+gone.ID, s.token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(before-1, s.countUsers())

	s.Equal(http.StatusNotFound, s.request(http.MethodGet, "/api/users/"+gone.ID, s.token, nil).Code)
	s.Equal(http.StatusOK, s.request(http.MethodGet, "/api/users/"+keep.ID, s.token, nil).Code)
}

func (s *APISuite) TestCreateThenGet_RoundTrip() {
	created := s.createUser("Barbara", "barbara@example.com")

	w := s.request(http.MethodGet, "/api/users/"+created.ID, s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotContains(strings.ToLower(w.Body.String()), "password")

	var got handler.DataResponse
	s.decode(w, &got)
	s.Equal(created.ID, got.Data.ID)
	s.Equal("Barbara", got.Data.FirstName)
	s.Equal("Tester", got.Data.LastName)
	s.Equal("barbara@example.com", got.Data.Email)
	s.Equal("5550101", got.Data.Phone)
	s.True(created.CreatedDate.Equal(got.Data.CreatedDate))
}

func (s *APISuite) TestList_NewestFirstWithCount() {
	s.createUser("First", "first@example.com")
	time.Sleep(5 * time.Millisecond)
	s.createUser("Second", "second@example.com")

	w := s.request(http.MethodGet, "/api/users", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var list handler.ListResponse
	s.decode(w, &list)
	s.Equal(3, list.Count)
	s.Require().Len(list.Data, 3)
	s.Equal("Second", list.Data[0].FirstName)
	s.Equal("First", list.Data[1].FirstName)
}

func (s *APISuite) TestUpdate() {
	target := s.createUser("Edsger", "edsger@example.com")
	s.createUser("Tony", "tony@example.com")

	w := s.request(http.MethodPut, "/api/users/"+target.ID, s.token, map[string]string{
		"firstName": "Edsger", "lastName": "Dijkstra", "email": "edsger@example.com", "phone": "",
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated handler.DataResponse
	s.decode(w, &updated)
	s.Equal("Dijkstra", updated.Data.LastName)
	s.Equal("", updated.Data.Phone)
	s.True(target.CreatedDate.Equal(updated.Data.CreatedDate))

	clash := s.request(http.MethodPut, "/api/users/"+target.ID, s.token, map[string]string{
		"firstName": "Edsger", "lastName": "Dijkstra", "email": "tony@example.com",
	})
	s.Equal(http.StatusBadRequest, clash.Code)

	invalid := s.request(http.MethodPut, "/api/users/"+target.ID, s.token, map[string]string{
		"firstName": "E", "lastName": "Dijkstra", "email": "edsger@example.com",
	})
	s.Equal(http.StatusBadRequest, invalid.Code)

	missing := s.request(http.MethodPut, "/api/users/does-not-exist", s.token, map[string]string{
		"firstName": "Edsger", "lastName": "Dijkstra", "email": "nobody@example.com",
	})
	s.Equal(http.StatusNotFound, missing.Code)

	missingWithTakenEmail := s.request(http.MethodPut, "/api/users/00000000-0000-4000-8000-000000000000", s.token, map[string]string{
		"firstName": "Edsger", "lastName": "Dijkstra", "email": "admin@example.com",
	})
	s.Equal(http.StatusNotFound, missingWithTakenEmail.Code, missingWithTakenEmail.Body.String())
}

func (s *APISuite) TestMe() {
	w := s.request(http.MethodGet, "/api/auth/me", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var me handler.DataResponse
	s.decode(w, &me)
	s.Equal(s.userID, me.Data.ID)
	s.Equal("admin@example.com", me.Data.Email)
}

func (s *APISuite) TestPublicRoutes() {
	root := s.request(http.MethodGet, "/", "", nil)
	s.Equal(http.StatusOK, root.Code)
	s.JSONEq(`{"message":"API is running..."}`, root.Body.String())

	health := s.request(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, health.Code)
	s.NotEmpty(health.Header().Get("X-Request-ID"))

	doc := s.request(http.MethodGet, "/swagger/doc.json", "", nil)
	s.Equal(http.StatusOK, doc.Code)
	s.Contains(doc.Body.String(), `"swagger": "2.0"`)
}

func (s *APISuite) TestRequestIDIsEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal("req-123", w.Header().Get("X-Request-ID"))
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	log := zaptest.NewLogger(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := security.NewTokenManager(security.TokenConfig{Secret: testSecret, Issuer: testIssuer, TTL: time.Hour})
	require.NoError(t, err)
	rl := middleware.NewRateLimiter(client, middleware.RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2}, log)
	r := buildRouter(t, log, postgres.NewUserRepoPG(openTestDB(t), log), tokens, rl)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"x@example.com","password":"whatever"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusUnauthorized, login())
	require.Equal(t, http.StatusUnauthorized, login())
	require.Equal(t, http.StatusTooManyRequests, login())
}

func TestHealth_ReportsChecks(t *testing.T) {
	log := zaptest.NewLogger(t)
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name   string
		checks map[string]HealthCheck
		code   int
		body   string
	}{
		{
			name: "no checks",
			code: http.StatusOK,
			body: `{"status":"healthy","service":"svc"}`,
		},
		{
			name:   "all up",
			checks: map[string]HealthCheck{"store": ok, "redis": ok},
			code:   http.StatusOK,
			body:   `{"status":"healthy","service":"svc","checks":{"store":"up","redis":"up"}}`,
		},
		{
			name:   "redis down",
			checks: map[string]HealthCheck{"store": ok, "redis": down},
			code:   http.StatusServiceUnavailable,
			body:   `{"status":"unhealthy","service":"svc","checks":{"store":"up","redis":"down"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SetupRouter(Options{ServiceName: "svc", Mode: gin.TestMode}, Deps{Checks: tt.checks, Log: log})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.code, w.Code)
			require.JSONEq(t, tt.body, w.Body.String())
			require.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}
