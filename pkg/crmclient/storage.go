package crmclient

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists the raw token string across client restarts.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileStore keeps the token in a 0600 file, the CLI equivalent of browser
// localStorage.
type FileStore struct {
	path string
}

// NewFileStore builds a store writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFileStore stores the token under the user config directory.
func DefaultFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewFileStore(filepath.Join(dir, "clinic-crm", "token")), nil
}

// Load returns the stored token, or empty when none exists.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token.
func (s *FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Clear removes the stored token.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore is an in-process TokenStore for tests and short-lived clients.
type MemoryStore struct {
	token string
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored token.
func (s *MemoryStore) Load() (string, error) {
	return s.token, nil
}

// Save stores the token.
func (s *MemoryStore) Save(token string) error {
	s.token = token
	return nil
}

// Clear drops the token.
func (s *MemoryStore) Clear() error {
	s.token = ""
	return nil
}
