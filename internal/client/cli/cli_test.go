package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"user-management-api/internal/adapter/db/postgres"
	"user-management-api/internal/adapter/gin/handler"
	"user-management-api/internal/adapter/gin/router"
	"user-management-api/internal/usecase/auth"
	"user-management-api/internal/usecase/user"
	"user-management-api/pkg/security"
)

// startAPI runs the real HTTP stack over an in-memory SQL store.
func startAPI(t *testing.T) string {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(postgres.Models()...))

	tokens, err := security.NewTokenManager(security.TokenConfig{
		Secret: "cli-test-secret-with-at-least-32-bytes",
		Issuer: "user-management-api",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	repo := postgres.NewUserRepoPG(db, log)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	users := user.New(repo, hasher, log)
	authUC := auth.New(users, repo, hasher, tokens, log)

	engine := router.SetupRouter(router.Options{ServiceName: "test", Mode: gin.TestMode}, router.Deps{
		Users:  handler.NewUserHandler(users, log),
		Auth:   handler.NewAuthHandler(authUC, log),
		Tokens: tokens,
		Log:    log,
	})

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv.URL
}

type harness struct {
	t      *testing.T
	server string
	creds  string
}

func newHarness(t *testing.T, server string) *harness {
	return &harness{t: t, server: server, creds: filepath.Join(t.TempDir(), "credentials.json")}
}

// exec runs one userctl invocation and returns stdout, stderr and the error.
func (h *harness) exec(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--server", h.server, "--credentials", h.creds}, args...)
	err := run(context.Background(), NewRootCmd("test"), full, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (h *harness) mustExec(stdin string, args ...string) string {
	h.t.Helper()
	out, errOut, err := h.exec(stdin, args...)
	require.NoError(h.t, err, errOut)
	return out
}

var createdID = regexp.MustCompile(`\(id ([^)]+)\)`)

func (h *harness) addUser(first, last, email, phone string) string {
	h.t.Helper()
	args := []string{"users", "add", "--first-name", first, "--last-name", last, "--email", email, "--password", "secret123"}
	if phone != "" {
		args = append(args, "--phone", phone)
	}
	out := h.mustExec("", args...)
	m := createdID.FindStringSubmatch(out)
	require.Len(h.t, m, 2, out)
	return m[1]
}

func TestSignupWhoamiLogout(t *testing.T) {
	h := newHarness(t, startAPI(t))

	out := h.mustExec("", "signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "Ada@Example.com", "--password", "secret123")
	assert.Equal(t, "Signed up as Ada Lovelace <ada@example.com>\n", out)
	assert.FileExists(t, h.creds)

	out = h.mustExec("", "whoami")
	assert.Contains(t, out, "Email:   ada@example.com")
	assert.Contains(t, out, "Phone:   99999999")

	assert.Equal(t, "Logged out\n", h.mustExec("", "logout"))
	assert.NoFileExists(t, h.creds)

	_, errOut, err := h.exec("", "whoami")
	require.Error(t, err)
	assert.ErrorContains(t, err, "please login")
	assert.Contains(t, errOut, "run: userctl login")
}

func TestLogin_PromptsForPassword(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com", "--password", "secret123")
	h.mustExec("", "logout")

	out, errOut, err := h.exec("secret123\n", "login", "--email", "ada@example.com")

	require.NoError(t, err, errOut)
	assert.Contains(t, errOut, "Password: ")
	assert.Equal(t, "Logged in as Ada Lovelace <ada@example.com>\n", out)
}

func TestLogin_ShowsServerMessage(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com", "--password", "secret123")

	_, _, err := h.exec("", "login", "--email", "ada@example.com", "--password", "wrong-pass")
	assert.EqualError(t, err, "Invalid credentials")

	_, _, err = h.exec("", "login", "--email", "nobody@example.com", "--password", "wrong-pass")
	assert.EqualError(t, err, "Invalid credentials")
}

func TestSignup_ValidationMessage(t *testing.T) {
	h := newHarness(t, startAPI(t))

	_, _, err := h.exec("", "signup", "--first-name", "J", "--last-name", "Doe", "--email", "j@example.com", "--password", "secret123")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 characters")
	assert.NoFileExists(t, h.creds)
}

func TestUsersCRUD(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Operator", "--last-name", "Admin", "--email", "admin@example.com", "--password", "secret123")

	graceID := h.addUser("Grace", "Hopper", "grace@example.com", "5550101")
	alanID := h.addUser("Alan", "Turing", "alan@example.com", "")

	out := h.mustExec("", "users", "list", "--sort", "firstName")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4, out)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Alan Turing")
	assert.Contains(t, lines[1], "99999999")
	assert.Contains(t, lines[2], "Grace Hopper")
	assert.Contains(t, lines[3], "Operator Admin")

	out = h.mustExec("", "users", "list", "--sort", "firstName", "--desc")
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines[1], "Operator Admin")

	out = h.mustExec("", "users", "list", "--search", "HOPPER")
	assert.Contains(t, out, "Grace Hopper")
	assert.NotContains(t, out, "Alan")

	assert.Equal(t, "No users found\n", h.mustExec("", "users", "list", "--search", "nobody"))

	assert.Equal(t, "User updated successfully\n", h.mustExec("", "users", "edit", alanID, "--phone", "5550199"))
	out = h.mustExec("", "users", "get", alanID)
	assert.Contains(t, out, "Phone:   5550199")
	assert.Contains(t, out, "Name:    Alan Turing", "unchanged fields are kept")

	assert.Equal(t, "Cancelled\n", h.mustExec("n\n", "users", "delete", graceID))
	h.mustExec("", "users", "get", graceID)

	out, errOut, err := h.exec("y\n", "users", "delete", graceID)
	require.NoError(t, err, errOut)
	assert.Equal(t, "User deleted successfully\n", out)
	assert.Contains(t, errOut, "Are you sure you want to delete this user? [y/N]")

	_, _, err = h.exec("", "users", "get", graceID)
	assert.EqualError(t, err, "User not found")

	_, _, err = h.exec("", "users", "delete", graceID, "--yes")
	assert.EqualError(t, err, "User not found")
}

func TestUsersEdit_DuplicateEmail(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Operator", "--last-name", "Admin", "--email", "admin@example.com", "--password", "secret123")
	id := h.addUser("Grace", "Hopper", "grace@example.com", "")

	_, _, err := h.exec("", "users", "edit", id, "--email", "admin@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUsers_RequireLogin(t *testing.T) {
	h := newHarness(t, startAPI(t))

	_, _, err := h.exec("", "users", "list")

	assert.ErrorContains(t, err, "please login")
}

func TestUsersList_FallbackMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"ada@example.com"},"token":"tok"}`))
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"u1","email":"ada@example.com"}}`))
	})
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h := newHarness(t, srv.URL)
	h.mustExec("", "login", "--email", "ada@example.com", "--password", "x")

	_, _, err := h.exec("", "users", "list")

	assert.EqualError(t, err, "Failed to fetch users")
}

func TestRestore_ClearsRejectedToken(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com", "--password", "secret123")

	// a different server instance signs with the same secret but has no such user
	h.server = startAPI(t)

	_, _, err := h.exec("", "whoami")

	assert.ErrorContains(t, err, "please login")
	assert.NoFileExists(t, h.creds)
}

func TestVersion(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")

	assert.Equal(t, "userctl test\n", h.mustExec("", "version"))
}

func TestUnknownSortKey(t *testing.T) {
	h := newHarness(t, startAPI(t))
	h.mustExec("", "signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com", "--password", "secret123")

	_, _, err := h.exec("", "users", "list", "--sort", "password")

	assert.ErrorContains(t, err, `unknown sort key "password"`)
}
