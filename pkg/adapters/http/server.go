// Package http exposes an intake engine as a JSON REST API with an SSE
// event feed per session.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/meridianhealth/intake"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/graph"
)

// maxInputBytes bounds a single turn input. Anything larger is rejected
// before it reaches the pipeline.
const maxInputBytes = 8 << 10

// Engine is the part of the intake engine the HTTP layer needs.
type Engine interface {
	StartSession(ctx context.Context, subjectID string) (*intake.StartResult, error)
	ProcessTurn(ctx context.Context, sessionID, input string) (*domain.TurnResult, error)
	Abandon(ctx context.Context, sessionID string) error
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Context(ctx context.Context, sessionID string) (map[string]any, error)
	Steps(ctx context.Context, sessionID string) ([]domain.SessionStep, error)
	Sessions(ctx context.Context) ([]string, error)
	Graph() *graph.Graph
}

// Server handles the REST routes and fans turn events out to SSE
// subscribers.
type Server struct {
	engine  Engine
	streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetricsHandler mounts a metrics endpoint at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler builds the full HTTP handler for an engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		streams: NewStreamManager(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/graph", s.GetGraph)

	r.Post("/sessions", s.StartSession)
	r.Get("/sessions", s.ListSessions)
	r.Get("/sessions/{id}", s.GetSession)
	r.Delete("/sessions/{id}", s.AbandonSession)
	r.Post("/sessions/{id}/turns", s.ProcessTurn)
	r.Get("/sessions/{id}/context", s.GetContext)
	r.Get("/sessions/{id}/steps", s.GetSteps)
	r.Get("/sessions/{id}/events", s.SubscribeEvents)

	if s.metrics != nil {
		r.Get("/metrics", s.metrics.ServeHTTP)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartSessionRequest is the POST /sessions body.
type StartSessionRequest struct {
	SubjectID string `json:"subject_id"`
}

// StartSessionResponse is the POST /sessions reply.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	Prompt    string `json:"prompt"`
}

// StartSession handles POST /sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.SubjectID) == "" {
		s.writeError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	start, err := s.engine.StartSession(r.Context(), body.SubjectID)
	if err != nil {
		s.logger.Error("start session failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	s.writeJSON(w, http.StatusCreated, StartSessionResponse{
		SessionID: start.SessionID,
		NodeID:    start.Node.ID,
		Prompt:    start.Prompt,
	})
}

// TurnRequest is the POST /sessions/{id}/turns body.
type TurnRequest struct {
	Input string `json:"input"`
}

// ProcessTurn handles POST /sessions/{id}/turns.
func (s *Server) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var body TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input, err := sanitizeInput(body.Input)
	if err != nil {
		s.logger.Warn("turn input rejected", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.ProcessTurn(r.Context(), sessionID, input)
	if err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}

	if payload, err := json.Marshal(result); err == nil {
		s.streams.Broadcast(sessionID, string(payload))
	}
	s.writeJSON(w, http.StatusOK, result)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	sess, err := s.engine.Session(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// GetContext handles GET /sessions/{id}/context.
func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := s.engine.Session(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	ctx, err := s.engine.Context(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"context": ctx})
}

// GetSteps handles GET /sessions/{id}/steps.
func (s *Server) GetSteps(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, err := s.engine.Session(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	steps, err := s.engine.Steps(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.Sessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

// AbandonSession handles DELETE /sessions/{id}.
func (s *Server) AbandonSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := s.engine.Abandon(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GraphResponse is the GET /graph reply.
type GraphResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Version      string         `json:"version,omitempty"`
	InitialState string         `json:"initial_state"`
	Nodes        []*domain.Node `json:"nodes"`
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Graph()
	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	s.writeJSON(w, http.StatusOK, GraphResponse{
		ID:           g.ID,
		Name:         g.Name,
		Version:      g.Version,
		InitialState: g.InitialState,
		Nodes:        nodes,
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubscribeEvents handles GET /sessions/{id}/events. Each completed turn
// for the session is pushed as one SSE data frame holding the turn result.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	sessionID := chi.URLParam(r, "id")
	if _, err := s.engine.Session(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, sessionID, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps domain errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrSessionClosed):
		s.writeError(w, http.StatusConflict, "session is closed")
	default:
		s.logger.Error("request failed", "session_id", sessionID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func sanitizeInput(input string) (string, error) {
	if len(input) > maxInputBytes {
		return "", fmt.Errorf("input exceeds %d bytes", maxInputBytes)
	}
	if strings.ContainsRune(input, 0) {
		return "", errors.New("input contains a NUL byte")
	}
	return strings.TrimSpace(input), nil
}

// StreamManager fans turn events out to the SSE subscribers of a session.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a listener for a session. The returned cancel func
// must be called when the client goes away.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast sends a message to every subscriber of a session. Slow clients
// with a full buffer miss the message rather than block the turn.
func (sm *StreamManager) Broadcast(sessionID, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
		}
	}
}
