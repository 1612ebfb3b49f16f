package ports

import (
	"context"

	"github.com/meridianhealth/intake/pkg/domain"
)

// SessionStore persists sessions, their accumulated context, and the
// append-only step log. Implementations must be safe for concurrent use;
// turn-level serialization for a single session is the session memory's
// job, not the store's.
type SessionStore interface {
	// CreateSession persists a new session head.
	CreateSession(ctx context.Context, session *domain.Session) error

	// LoadSession retrieves a session head by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	LoadSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// SaveSession overwrites the session head (current node, status,
	// ended-at timestamp).
	SaveSession(ctx context.Context, session *domain.Session) error

	// MergeContext applies a patch to the session context using
	// domain.MergeContext semantics and returns the merged result.
	MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error)

	// LoadContext retrieves the accumulated session context. A session
	// with no context yet yields an empty map, not an error.
	LoadContext(ctx context.Context, sessionID string) (map[string]any, error)

	// AppendStep appends one entry to the session's step log.
	AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error

	// LoadSteps returns the step log in append order.
	LoadSteps(ctx context.Context, sessionID string) ([]domain.SessionStep, error)

	// List returns the IDs of all known sessions.
	List(ctx context.Context) ([]string, error)

	// Delete removes the session head, context, and step log.
	Delete(ctx context.Context, sessionID string) error
}
