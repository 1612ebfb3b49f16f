package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/meridianhealth/intake/internal/logging"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed
// session lock before it expires.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the per-session mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Memory is the session memory. It guarantees that at most one turn is in
// flight per session: locally via reference-counted mutexes, and across
// replicas via the optional distributed locker.
type Memory struct {
	store ports.SessionStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Memory.
type Option func(*Memory)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Memory) { m.locker = locker }
}

// WithLockTTL overrides the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Memory) { m.lockTTL = ttl }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Memory) { m.logger = logger }
}

// NewMemory creates a session memory over the given store.
func NewMemory(store ports.SessionStore, opts ...Option) *Memory {
	m := &Memory{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu and later call release(sessionID).
func (m *Memory) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and drops the entry at zero.
func (m *Memory) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the session's local lock and, when a
// distributed locker is configured, the cross-replica lock too.
func (m *Memory) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Initialize persists a new session under its lock.
func (m *Memory) Initialize(ctx context.Context, session *domain.Session) error {
	return m.WithLock(ctx, session.ID, func(ctx context.Context) error {
		if _, err := m.store.LoadSession(ctx, session.ID); err == nil {
			return fmt.Errorf("session %q already exists", session.ID)
		} else if err != domain.ErrSessionNotFound {
			return fmt.Errorf("failed to check session existence: %w", err)
		}
		if err := m.store.CreateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
}

// Load retrieves a session head.
func (m *Memory) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.LoadSession(ctx, sessionID)
		return err
	})
	return session, err
}

// Save persists the session head.
func (m *Memory) Save(ctx context.Context, session *domain.Session) error {
	return m.WithLock(ctx, session.ID, func(ctx context.Context) error {
		return m.store.SaveSession(ctx, session)
	})
}

// MergeContext applies a patch to the accumulated context.
func (m *Memory) MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error) {
	var merged map[string]any
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		merged, err = m.store.MergeContext(ctx, sessionID, patch)
		return err
	})
	return merged, err
}

// GetContext returns the accumulated session context.
func (m *Memory) GetContext(ctx context.Context, sessionID string) (map[string]any, error) {
	return m.store.LoadContext(ctx, sessionID)
}

// AppendStep appends one turn to the session's step log.
func (m *Memory) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.AppendStep(ctx, sessionID, step)
	})
}

// GetSteps returns the step log in append order.
func (m *Memory) GetSteps(ctx context.Context, sessionID string) ([]domain.SessionStep, error) {
	return m.store.LoadSteps(ctx, sessionID)
}

// Abandon marks an active session abandoned and stamps its end time.
// Completed or already abandoned sessions are left untouched.
func (m *Memory) Abandon(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		session, err := m.store.LoadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != domain.StatusActive {
			return nil
		}
		now := time.Now().UTC()
		session.Status = domain.StatusAbandoned
		session.EndedAt = &now
		return m.store.SaveSession(ctx, session)
	})
}

// Delete removes the session and everything attached to it.
func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Memory) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Memory) Store() ports.SessionStore {
	return m.store
}

// BuildConversationSummary renders the most recent steps as alternating
// "User:"/"Assistant:" lines, oldest first, for inclusion in a generation
// prompt. limit <= 0 means all steps.
func BuildConversationSummary(steps []domain.SessionStep, limit int) string {
	if limit > 0 && len(steps) > limit {
		steps = steps[len(steps)-limit:]
	}

	var b strings.Builder
	for _, step := range steps {
		if step.Input != "" {
			b.WriteString("User: ")
			b.WriteString(step.Input)
			b.WriteByte('\n')
		}
		if step.Response != "" {
			b.WriteString("Assistant: ")
			b.WriteString(step.Response)
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
