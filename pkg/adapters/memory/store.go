// Package memory provides in-process adapters: a SessionStore and a
// RecordSink backed by maps. They are the defaults for tests, the chat TUI,
// and single-instance deployments.
package memory

import (
	"context"
	"sync"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Store implements ports.SessionStore in memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	contexts map[string]map[string]any
	steps    map[string][]domain.SessionStep
}

// NewStore creates an empty in-memory session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		contexts: make(map[string]map[string]any),
		steps:    make(map[string][]domain.SessionStep),
	}
}

// CreateSession persists a new session head.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// LoadSession retrieves a session head.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so callers cannot mutate stored state by pointer.
	copied := *session
	return &copied, nil
}

// SaveSession overwrites the session head.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// MergeContext applies a patch with domain.MergeContext semantics.
func (s *Store) MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := domain.MergeContext(s.contexts[sessionID], patch)
	s.contexts[sessionID] = merged
	return domain.MergeContext(merged, nil), nil
}

// LoadContext returns the accumulated session context.
func (s *Store) LoadContext(ctx context.Context, sessionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// MergeContext with an empty patch doubles as a defensive copy.
	return domain.MergeContext(s.contexts[sessionID], nil), nil
}

// AppendStep appends one entry to the step log.
func (s *Store) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[sessionID] = append(s.steps[sessionID], *step)
	return nil
}

// LoadSteps returns the step log in append order.
func (s *Store) LoadSteps(ctx context.Context, sessionID string) ([]domain.SessionStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionStep, len(s.steps[sessionID]))
	copy(out, s.steps[sessionID])
	return out, nil
}

// List returns the IDs of all known sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes the session head, context, and step log.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	delete(s.contexts, sessionID)
	delete(s.steps, sessionID)
	return nil
}
