package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"expensetracker/internal/core"
)

// CredentialStore persists the bearer token and identity snapshot across runs.
// Load returns core.ErrNoSession when nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (core.Session, error)
	Save(ctx context.Context, s core.Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps credentials for the lifetime of the process.
type MemoryStore struct {
	mu      sync.Mutex
	session *core.Session
}

// NewMemoryStore creates an empty store that lives as long as the process.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (core.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return core.Session{}, core.ErrNoSession
	}
	return *m.session, nil
}

func (m *MemoryStore) Save(_ context.Context, s core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// FileStore writes credentials as a small JSON document readable only by the
// current user.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type fileDocument struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

// NewFileStore keeps credentials in a JSON file at path, created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(context.Context) (core.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Session{}, core.ErrNoSession
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("read credentials: %w", err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.Session{}, fmt.Errorf("decode credentials: %w", err)
	}
	if doc.Token == "" || doc.User == nil {
		return core.Session{}, core.ErrNoSession
	}
	return core.Session{Token: doc.Token, User: *doc.User}, nil
}

// Save replaces the file atomically with mode 0600.
func (f *FileStore) Save(_ context.Context, s core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(fileDocument{Token: s.Token, User: &s.User}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
