// Package session tracks who is logged in on the client side.
//
// A Session moves Anonymous -> Authenticating -> Authenticated on a
// successful login or signup and falls back to Anonymous on failure or
// logout. Only one attempt can be in flight at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"user-management-api/internal/client/api"
)

// State is the authentication state of a Session.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrInvalidTransition is returned when an attempt starts outside Anonymous.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotAuthenticated gates views that need a logged in user.
	ErrNotAuthenticated = errors.New("please login")
)

// AuthAPI is the part of the API client a Session needs.
type AuthAPI interface {
	Signup(ctx context.Context, in api.SignupRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Me(ctx context.Context, token string) (*api.User, error)
}

// Store persists credentials between runs.
type Store interface {
	Load() (*Credentials, error)
	Save(c *Credentials) error
	Clear() error
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.Mutex
	state State
	token string
	user  *api.User

	api   AuthAPI
	store Store
	log   *zap.Logger
}

// New returns an Anonymous session. Call Restore to pick up saved credentials.
func New(client AuthAPI, store Store, log *zap.Logger) *Session {
	return &Session{api: client, store: store, log: log}
}

// Login authenticates with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (*api.User, error) {
	return s.authenticate(func() (*api.AuthResponse, error) {
		return s.api.Login(ctx, email, password)
	})
}

// Signup registers a new account and logs it in.
func (s *Session) Signup(ctx context.Context, form api.SignupRequest) (*api.User, error) {
	return s.authenticate(func() (*api.AuthResponse, error) {
		return s.api.Signup(ctx, form)
	})
}

func (s *Session) authenticate(call func() (*api.AuthResponse, error)) (*api.User, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	resp, err := call()
	if err != nil {
		s.reset()
		return nil, err
	}

	user := resp.User
	if err := s.store.Save(&Credentials{Token: resp.Token, User: &user}); err != nil {
		s.reset()
		return nil, fmt.Errorf("save credentials: %w", err)
	}

	s.mu.Lock()
	s.state = Authenticated
	s.token = resp.Token
	s.user = &user
	s.mu.Unlock()

	s.log.Debug("session authenticated", zap.String("user_id", user.ID))
	return &user, nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Anonymous {
		return fmt.Errorf("%w: cannot authenticate while %s", ErrInvalidTransition, s.state)
	}
	s.state = Authenticating
	return nil
}

func (s *Session) reset() {
	s.mu.Lock()
	s.state = Anonymous
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

// Logout forgets the session and clears the saved credentials.
func (s *Session) Logout() error {
	s.mu.Lock()
	if s.state != Authenticated {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot logout while %s", ErrInvalidTransition, s.state)
	}
	s.mu.Unlock()

	s.reset()
	return s.store.Clear()
}

// Restore loads a saved token and checks it against the server. A token the
// server rejects, or whose user no longer exists, is cleared and the session
// stays Anonymous. Network errors are returned without touching the file.
func (s *Session) Restore(ctx context.Context) (State, error) {
	if err := s.begin(); err != nil {
		return s.State(), err
	}

	creds, err := s.store.Load()
	if err != nil {
		s.reset()
		return Anonymous, err
	}
	if creds.Token == "" {
		s.reset()
		return Anonymous, nil
	}

	user, err := s.api.Me(ctx, creds.Token)
	if err != nil {
		s.reset()
		// a token for a deleted account is as dead as an expired one
		if api.IsUnauthorized(err) || api.IsNotFound(err) {
			s.log.Debug("saved token rejected, clearing credentials")
			return Anonymous, s.store.Clear()
		}
		return Anonymous, err
	}

	s.mu.Lock()
	s.state = Authenticated
	s.token = creds.Token
	s.user = user
	s.mu.Unlock()
	return Authenticated, nil
}

// RequireAuthenticated returns ErrNotAuthenticated unless a user is logged in.
func (s *Session) RequireAuthenticated() error {
	if s.State() != Authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Token returns the bearer token, or "" when not authenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns a copy of the logged in user, or nil.
func (s *Session) User() *api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}
