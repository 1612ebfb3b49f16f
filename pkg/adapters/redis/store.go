// Package redis provides the Redis-backed SessionStore and the distributed
// session locker used when the engine runs with multiple replicas.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Store implements ports.SessionStore using Redis. The session head and the
// context are stored as JSON strings, the step log as a Redis list, and the
// session index as a sorted set scored by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for session keys.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "intake:session:",
		ttl:    0,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) sessionKey(sessionID string) string { return s.prefix + sessionID }
func (s *Store) contextKey(sessionID string) string { return s.prefix + sessionID + ":context" }
func (s *Store) stepsKey(sessionID string) string   { return s.prefix + sessionID + ":steps" }
func (s *Store) indexKey() string                   { return s.prefix + "index" }

// indexScore is the expiry score for the session index ZSET. With no TTL the
// score is far in the future so lazy pruning never removes the entry.
func (s *Store) indexScore() float64 {
	if s.ttl == 0 {
		return 4102444800 // 2100-01-01
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// CreateSession persists a new session head and indexes it.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	return s.writeSession(ctx, session)
}

// SaveSession overwrites the session head.
func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	return s.writeSession(ctx, session)
}

func (s *Store) writeSession(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.sessionKey(session.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  s.indexScore(),
		Member: session.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// LoadSession retrieves a session head.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// MergeContext reads the stored context, merges the patch in process, and
// writes the result back. The session memory serializes turns per session,
// so the read-modify-write needs no Redis-side transaction.
func (s *Store) MergeContext(ctx context.Context, sessionID string, patch map[string]any) (map[string]any, error) {
	existing, err := s.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged := domain.MergeContext(existing, patch)
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context: %w", err)
	}
	if err := s.client.Set(ctx, s.contextKey(sessionID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to save context to redis: %w", err)
	}
	return merged, nil
}

// LoadContext returns the accumulated session context.
func (s *Store) LoadContext(ctx context.Context, sessionID string) (map[string]any, error) {
	val, err := s.client.Get(ctx, s.contextKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to get context from redis: %w", err)
	}

	out := map[string]any{}
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context: %w", err)
	}
	return out, nil
}

// AppendStep pushes one step onto the session's log.
func (s *Store) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	data, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.stepsKey(sessionID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.stepsKey(sessionID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append step to redis: %w", err)
	}
	return nil
}

// LoadSteps returns the step log in append order.
func (s *Store) LoadSteps(ctx context.Context, sessionID string) ([]domain.SessionStep, error) {
	vals, err := s.client.LRange(ctx, s.stepsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list steps from redis: %w", err)
	}

	steps := make([]domain.SessionStep, 0, len(vals))
	for _, val := range vals {
		var step domain.SessionStep
		if err := json.Unmarshal([]byte(val), &step); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// List returns known session IDs, lazily pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes the session head, context, step log, and index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.sessionKey(sessionID), s.contextKey(sessionID), s.stepsKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
