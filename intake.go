package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meridianhealth/intake/internal/logging"
	"github.com/meridianhealth/intake/internal/reasoning"
	"github.com/meridianhealth/intake/internal/turn"
	"github.com/meridianhealth/intake/pkg/adapters/memory"
	"github.com/meridianhealth/intake/pkg/adapters/openai"
	"github.com/meridianhealth/intake/pkg/controller"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/graph"
	"github.com/meridianhealth/intake/pkg/ports"
	"github.com/meridianhealth/intake/pkg/session"
)

// Engine is the high-level entry point for the intake library. It wires the
// graph, the controller registry, the reasoning engine, the session memory,
// and the turn orchestrator behind a small API.
type Engine struct {
	graph        *graph.Graph
	registry     *controller.Registry
	reasoner     *reasoning.Engine
	memory       *session.Memory
	orchestrator *turn.Orchestrator

	store        ports.SessionStore
	locker       ports.DistributedLocker
	generator    ports.Generator
	recorder     ports.RecordSink
	hooks        domain.LifecycleHooks
	targets      controller.Targets
	extra        map[string]any
	historyLimit int
	logger       *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStore injects a session store. Defaults to the in-memory store.
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLocker enables distributed per-session locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithGenerator injects the text generator. Defaults to the deterministic
// fallback generator, which needs no network.
func WithGenerator(g ports.Generator) Option {
	return func(e *Engine) { e.generator = g }
}

// WithRecordSink injects the health-record sink for high-severity flags.
func WithRecordSink(sink ports.RecordSink) Option {
	return func(e *Engine) { e.recorder = sink }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithController registers an extra (or replacement) controller by name on
// top of the built-in set.
func WithController(name string, c any) Option {
	return func(e *Engine) { e.extra[name] = c }
}

// WithTargets overrides the urgent-path node IDs used for escalation.
func WithTargets(t controller.Targets) Option {
	return func(e *Engine) { e.targets = t }
}

// WithHistoryLimit bounds how many recent steps go into generation prompts.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) { e.historyLimit = limit }
}

// New loads and validates the graph document at the given path and builds
// an engine around it.
func New(graphPath string, opts ...Option) (*Engine, error) {
	eng := newEngine(opts)

	g, err := graph.LoadFile(graphPath, graph.ValidateOptions{
		KnownController: eng.registry.Has,
		Logger:          eng.logger,
	})
	if err != nil {
		return nil, err
	}
	return eng.finish(g)
}

// NewFromDocument builds an engine from an in-memory graph document.
func NewFromDocument(data []byte, opts ...Option) (*Engine, error) {
	eng := newEngine(opts)

	g, err := graph.Load(data, graph.ValidateOptions{
		KnownController: eng.registry.Has,
		Logger:          eng.logger,
	})
	if err != nil {
		return nil, err
	}
	return eng.finish(g)
}

func newEngine(opts []Option) *Engine {
	eng := &Engine{
		targets: controller.DefaultTargets(),
		extra:   map[string]any{},
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.generator == nil {
		eng.generator = openai.NewFallback()
	}

	eng.registry = controller.DefaultRegistry(eng.logger, eng.targets)
	for name, c := range eng.extra {
		eng.registry.Register(name, c)
	}
	return eng
}

func (e *Engine) finish(g *graph.Graph) (*Engine, error) {
	e.graph = g
	e.logger = e.logger.With("graph", g.ID)

	e.reasoner = reasoning.New(
		reasoning.WithLogger(e.logger),
		reasoning.WithTargets(reasoning.Targets{
			Cardiac:      e.targets.Cardiac,
			Respiratory:  e.targets.Respiratory,
			MentalHealth: e.targets.MentalHealth,
		}),
	)

	memOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		memOpts = append(memOpts, session.WithLocker(e.locker))
	}
	e.memory = session.NewMemory(e.store, memOpts...)

	e.orchestrator = turn.New(turn.Config{
		Graph:        e.graph,
		Registry:     e.registry,
		Reasoner:     e.reasoner,
		Memory:       e.memory,
		Generator:    e.generator,
		Recorder:     e.recorder,
		Hooks:        e.hooks,
		Logger:       e.logger,
		HistoryLimit: e.historyLimit,
	})
	return e, nil
}

// StartResult is the outcome of opening a new session.
type StartResult struct {
	SessionID string       `json:"session_id"`
	Node      *domain.Node `json:"node"`
	Prompt    string       `json:"prompt"`
}

// StartSession opens a new session for a subject at the graph's initial
// node and returns the first prompt to show.
func (e *Engine) StartSession(ctx context.Context, subjectID string) (*StartResult, error) {
	node, err := e.graph.Node(e.graph.InitialState)
	if err != nil {
		return nil, fmt.Errorf("graph has no usable initial node: %w", err)
	}

	sess := domain.NewSession(uuid.NewString(), subjectID, node.ID)
	if err := e.memory.Initialize(ctx, sess); err != nil {
		return nil, err
	}

	e.logger.Info("session started",
		"session_id", sess.ID,
		"node_id", node.ID,
	)
	return &StartResult{
		SessionID: sess.ID,
		Node:      node,
		Prompt:    node.Prompt,
	}, nil
}

// ProcessTurn runs one full turn for a session.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, input string) (*domain.TurnResult, error) {
	return e.orchestrator.ProcessTurn(ctx, sessionID, input)
}

// Abandon marks an active session abandoned.
func (e *Engine) Abandon(ctx context.Context, sessionID string) error {
	return e.memory.Abandon(ctx, sessionID)
}

// Session returns a session head.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return e.memory.Load(ctx, sessionID)
}

// Context returns a session's accumulated context.
func (e *Engine) Context(ctx context.Context, sessionID string) (map[string]any, error) {
	return e.memory.GetContext(ctx, sessionID)
}

// Steps returns a session's step log.
func (e *Engine) Steps(ctx context.Context, sessionID string) ([]domain.SessionStep, error) {
	return e.memory.GetSteps(ctx, sessionID)
}

// Sessions lists known session IDs.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.memory.List(ctx)
}

// Graph exposes the loaded conversation graph.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}
