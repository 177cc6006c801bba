package auth

import (
	"errors"
	"os"
	"strings"
	"sync"

	"campusvoice/internal/observability"
)

var ErrNoCredential = errors.New("no stored credential")

// FileTokenStore reads the bearer credential from a file written by the
// login flow and clears it when the server reports it expired.
type FileTokenStore struct {
	path string

	mu     sync.Mutex
	cached string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Token returns the stored credential.
func (s *FileTokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" {
		return s.cached, nil
	}

	contents, err := os.ReadFile(s.path)
	if err != nil {
		return "", ErrNoCredential
	}
	token := strings.TrimSpace(string(contents))
	if token == "" {
		return "", ErrNoCredential
	}
	s.cached = token
	return token, nil
}

// SessionExpired clears the stored credential. The login surface owns
// what happens next.
func (s *FileTokenStore) SessionExpired() {
	s.mu.Lock()
	s.cached = ""
	path := s.path
	s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.Logger().Warn("failed to clear stored credential", "error", err)
	}
}
