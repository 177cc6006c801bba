package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusvoice/internal/domain"
	"campusvoice/internal/observability"
	"campusvoice/internal/ports"
)

// sessionCatalog holds the known sessions and the selected session id.
// The catalog is replaced wholesale on every refresh; there is no
// incremental merge, the last fetch wins.
type sessionCatalog struct {
	service ports.AnswerService
	events  ports.EventSink

	onAuthExpired func()
	fetchTimeout  time.Duration

	mu       sync.Mutex
	sessions []domain.Session
	active   string
}

func newSessionCatalog(service ports.AnswerService, events ports.EventSink, fetchTimeout time.Duration) *sessionCatalog {
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	return &sessionCatalog{service: service, events: events, fetchTimeout: fetchTimeout}
}

// Refresh fetches the catalog from the answering service and replaces the
// local copy.
func (s *sessionCatalog) Refresh(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.service.Sessions(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) && s.onAuthExpired != nil {
			s.onAuthExpired()
			return nil, err
		}
		return nil, err
	}

	s.mu.Lock()
	s.sessions = sessions
	s.mu.Unlock()

	s.events.SessionListChanged(sessions)
	return sessions, nil
}

// Select records a new selected session id. Pure local state change.
func (s *sessionCatalog) Select(id string) {
	s.mu.Lock()
	s.active = id
	s.mu.Unlock()
}

// Adopt records a server-minted id for a previously unassigned session
// and refreshes the catalog in the background so the new entry gains its
// server-assigned title.
func (s *sessionCatalog) Adopt(id string) {
	s.mu.Lock()
	s.active = id
	s.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrAuthExpired) {
			observability.Logger().Warn("session catalog refresh failed after adopt",
				"session_id", id, "error", err)
		}
	}()
}

// Active returns the selected session id, empty when unassigned.
func (s *sessionCatalog) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Snapshot returns a copy of the last-fetched catalog.
func (s *sessionCatalog) Snapshot() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}
