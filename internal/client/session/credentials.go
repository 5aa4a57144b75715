package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"user-management-api/internal/client/api"
)

// Credentials are what survives between CLI invocations.
type Credentials struct {
	Token string    `json:"token"`
	User  *api.User `json:"user,omitempty"`
}

// CredentialStore persists credentials in a JSON file readable only by the
// owner.
type CredentialStore struct {
	path string
}

// NewCredentialStore returns a store backed by path.
func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

// DefaultPath returns ~/.usermgmt/credentials.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".usermgmt", "credentials.json"), nil
}

// Path returns the backing file.
func (s *CredentialStore) Path() string {
	return s.path
}

// Load returns empty credentials when the file does not exist.
func (s *CredentialStore) Load() (*Credentials, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", s.path, err)
	}
	return &c, nil
}

// Save writes c, creating the directory with 0700 and the file with 0600.
func (s *CredentialStore) Save(c *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(s.path, 0o600)
}

// Clear removes the file. A missing file is not an error.
func (s *CredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
