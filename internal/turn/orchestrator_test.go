package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/intake/internal/reasoning"
	"github.com/meridianhealth/intake/pkg/adapters/memory"
	"github.com/meridianhealth/intake/pkg/controller"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/graph"
	"github.com/meridianhealth/intake/pkg/ports"
	"github.com/meridianhealth/intake/pkg/session"
)

const testGraph = `
id: test-intake
name: Test Intake
version: "1"
initial_state: welcome
nodes:
  welcome:
    prompt: "Welcome. What brings you in today?"
    input_type: text
    transitions:
      - condition: always
        to: cardio
  cardio:
    prompt: "Tell me more about your chest symptoms."
    input_type: text
    transitions:
      - condition: "no"
        to: summary
      - condition: always
        to: summary
  hooked:
    prompt: "This node has hooks."
    input_type: text
    controller: test_hooks
    transitions:
      - condition: always
        to: summary
  urgent_cardiac:
    prompt: "Your symptoms need urgent attention. Please seek care now."
    input_type: none
  summary:
    prompt: "Thanks, that completes the intake."
    input_type: none
    controller: test_hooks
`

type stubGenerator struct {
	content string
	source  string
	errStr  string
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) *domain.GenerationResult {
	g.prompts = append(g.prompts, prompt)
	content := g.content
	if content == "" {
		content = "Understood, tell me more."
	}
	source := g.source
	if source == "" {
		source = domain.SourceGenerated
	}
	return &domain.GenerationResult{Content: content, Source: source, Err: g.errStr}
}

// hookController lets each test script the pre/post results.
type hookController struct {
	pre      *domain.ControllerResult
	post     *domain.ControllerResult
	preRuns  int
	postRuns int
}

func (h *hookController) Preprocess(ctx context.Context, t *controller.TurnContext) (*domain.ControllerResult, error) {
	h.preRuns++
	return h.pre, nil
}

func (h *hookController) Postprocess(ctx context.Context, t *controller.TurnContext) (*domain.ControllerResult, error) {
	h.postRuns++
	return h.post, nil
}

type fixture struct {
	orch  *Orchestrator
	mem   *session.Memory
	store ports.SessionStore
	gen   *stubGenerator
	hooks *hookController
	sink  *memory.RecordSink
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()

	g, err := graph.Load([]byte(testGraph), graph.ValidateOptions{
		KnownController: func(string) bool { return true },
	})
	require.NoError(t, err)

	hooks := &hookController{}
	registry := controller.NewRegistry(nil)
	registry.Register("test_hooks", hooks)

	store := memory.NewStore()
	mem := session.NewMemory(store)
	gen := &stubGenerator{}
	sink := memory.NewRecordSink()

	cfg := Config{
		Graph:     g,
		Registry:  registry,
		Reasoner:  reasoning.New(),
		Memory:    mem,
		Generator: gen,
		Recorder:  sink,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &fixture{
		orch:  New(cfg),
		mem:   mem,
		store: store,
		gen:   gen,
		hooks: hooks,
		sink:  sink,
	}
}

func (f *fixture) startAt(t *testing.T, nodeID string) string {
	t.Helper()
	sess := domain.NewSession("sess-1", "subject-1", nodeID)
	require.NoError(t, f.mem.Initialize(context.Background(), sess))
	return sess.ID
}

func TestProcessTurn_HappyPath(t *testing.T) {
	f := newFixture(t)
	id := f.startAt(t, "welcome")

	result, err := f.orch.ProcessTurn(context.Background(), id, "I've had headaches")
	require.NoError(t, err)

	assert.Equal(t, "welcome", result.PreviousState)
	assert.Equal(t, "cardio", result.NextState)
	assert.Equal(t, domain.SourceGenerated, result.Source)
	assert.False(t, result.IsTerminal)
	assert.Equal(t, "Understood, tell me more.", result.Response)

	sess, err := f.mem.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "cardio", sess.CurrentNodeID)
	assert.Equal(t, domain.StatusActive, sess.Status)

	steps, err := f.mem.GetSteps(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "welcome", steps[0].NodeID)
	assert.Equal(t, "I've had headaches", steps[0].Input)
	assert.Equal(t, "Understood, tell me more.", steps[0].Response)

	// The prompt carries the node question and the latest message.
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "What brings you in today?")
	assert.Contains(t, f.gen.prompts[0], "I've had headaches")
}

func TestProcessTurn_SessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.ProcessTurn(context.Background(), "missing", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestProcessTurn_NodeNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.startAt(t, "no-such-node")
	_, err := f.orch.ProcessTurn(context.Background(), id, "hello")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestProcessTurn_ClosedSessionRejected(t *testing.T) {
	f := newFixture(t)
	id := f.startAt(t, "welcome")
	require.NoError(t, f.mem.Abandon(context.Background(), id))

	_, err := f.orch.ProcessTurn(context.Background(), id, "hello")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestProcessTurn_PreprocessOverrideSkipsGenerationAndPostprocess(t *testing.T) {
	f := newFixture(t)
	f.hooks.pre = &domain.ControllerResult{
		OverrideResponse:  "Please seek urgent care immediately.",
		OverrideNextState: "urgent_cardiac",
	}
	id := f.startAt(t, "hooked")

	result, err := f.orch.ProcessTurn(context.Background(), id, "it feels like an elephant on my chest")
	require.NoError(t, err)

	assert.Equal(t, "Please seek urgent care immediately.", result.Response)
	assert.Equal(t, domain.SourceController, result.Source)
	assert.Equal(t, "urgent_cardiac", result.NextState)
	assert.Empty(t, f.gen.prompts, "generation must be skipped")
	assert.Equal(t, 0, f.hooks.postRuns, "postprocess must be skipped with generation")
	// The urgent node is terminal, so the session completes on arrival.
	assert.True(t, result.IsTerminal)
}

func TestProcessTurn_OverridePrecedencePostBeatsPre(t *testing.T) {
	f := newFixture(t)
	f.hooks.pre = &domain.ControllerResult{OverrideNextState: "cardio"}
	f.hooks.post = &domain.ControllerResult{OverrideNextState: "urgent_cardiac"}
	id := f.startAt(t, "hooked")

	result, err := f.orch.ProcessTurn(context.Background(), id, "hello")
	require.NoError(t, err)
	assert.Equal(t, "urgent_cardiac", result.NextState)
}

func TestProcessTurn_OverridePrecedencePreBeatsReasoning(t *testing.T) {
	f := newFixture(t)
	f.hooks.pre = &domain.ControllerResult{OverrideNextState: "summary"}
	id := f.startAt(t, "hooked")

	// Reasoning wants urgent_cardiac from this input; the preprocess
	// override must win.
	result, err := f.orch.ProcessTurn(context.Background(), id,
		"crushing chest pressure radiating to my jaw and I'm sweating")
	require.NoError(t, err)
	assert.Equal(t, "summary", result.NextState)
}

func TestProcessTurn_ReasoningEscalation(t *testing.T) {
	var escalations []*domain.EscalationEvent
	f := newFixture(t, func(cfg *Config) {
		cfg.Hooks.OnEscalation = func(ctx context.Context, e *domain.EscalationEvent) {
			escalations = append(escalations, e)
		}
	})
	id := f.startAt(t, "cardio")

	result, err := f.orch.ProcessTurn(context.Background(), id,
		"I have crushing chest pressure radiating to my jaw and I'm sweating")
	require.NoError(t, err)

	assert.Equal(t, "urgent_cardiac", result.NextState)
	require.Len(t, escalations, 1)
	assert.Equal(t, "reasoning", escalations[0].Origin)
	assert.Equal(t, "urgent_cardiac", escalations[0].TargetNode)

	// The high-severity flag lands in the subject's record.
	events := f.sink.Events("subject-1")
	require.NotEmpty(t, events)
	found := false
	for _, e := range events {
		if e.FlagID == "cardio_acs_pattern" {
			found = true
			assert.Equal(t, domain.SeverityHigh, e.Severity)
		}
	}
	assert.True(t, found)
}

func TestProcessTurn_TerminalNodeForcesCompletion(t *testing.T) {
	f := newFixture(t)
	// Even an explicit override cannot keep a terminal node's session open.
	f.hooks.post = &domain.ControllerResult{OverrideNextState: "welcome"}
	id := f.startAt(t, "summary")

	result, err := f.orch.ProcessTurn(context.Background(), id, "thanks")
	require.NoError(t, err)
	assert.True(t, result.IsTerminal)
	assert.Equal(t, "summary", result.NextState)

	sess, err := f.mem.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, sess.Status)
	require.NotNil(t, sess.EndedAt)
}

func TestProcessTurn_ExtraDataMergesAndLandsInStep(t *testing.T) {
	f := newFixture(t)
	f.hooks.pre = &domain.ControllerResult{
		ExtraData: map[string]any{"chiefComplaint": "chest pain"},
	}
	f.hooks.post = &domain.ControllerResult{
		ExtraData: map[string]any{"isUrgent": false},
	}
	id := f.startAt(t, "hooked")

	_, err := f.orch.ProcessTurn(context.Background(), id, "chest pain")
	require.NoError(t, err)

	merged, err := f.mem.GetContext(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "chest pain", merged["chiefComplaint"])
	assert.Equal(t, false, merged["isUrgent"])

	steps, err := f.mem.GetSteps(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "chest pain", steps[0].ControllerData["chiefComplaint"])
	assert.Equal(t, false, steps[0].ControllerData["isUrgent"])
}

func TestProcessTurn_GenerationFallbackEmitsEvent(t *testing.T) {
	var fallbacks []*domain.GenerationEvent
	f := newFixture(t, func(cfg *Config) {
		cfg.Hooks.OnGenerationFallback = func(ctx context.Context, e *domain.GenerationEvent) {
			fallbacks = append(fallbacks, e)
		}
	})
	f.gen.source = domain.SourceFallback
	f.gen.errStr = "timeout"
	id := f.startAt(t, "welcome")

	result, err := f.orch.ProcessTurn(context.Background(), id, "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, result.Source)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, "timeout", fallbacks[0].Err)
}

type failingStore struct {
	ports.SessionStore
	failAppend bool
}

func (s *failingStore) AppendStep(ctx context.Context, sessionID string, step *domain.SessionStep) error {
	if s.failAppend {
		return errors.New("disk full")
	}
	return s.SessionStore.AppendStep(ctx, sessionID, step)
}

func TestProcessTurn_PersistenceFailureFailsTurn(t *testing.T) {
	failing := &failingStore{SessionStore: memory.NewStore(), failAppend: true}
	mem := session.NewMemory(failing)

	g, err := graph.Load([]byte(testGraph), graph.ValidateOptions{
		KnownController: func(string) bool { return true },
	})
	require.NoError(t, err)

	orch := New(Config{
		Graph:     g,
		Registry:  controller.NewRegistry(nil),
		Reasoner:  reasoning.New(),
		Memory:    mem,
		Generator: &stubGenerator{},
	})

	ctx := context.Background()
	require.NoError(t, mem.Initialize(ctx, domain.NewSession("s1", "subject", "welcome")))

	_, err = orch.ProcessTurn(ctx, "s1", "hello")
	require.Error(t, err)

	// The session must not advance when the step could not be recorded.
	sess, err := mem.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "welcome", sess.CurrentNodeID)
	assert.Equal(t, domain.StatusActive, sess.Status)
}

func TestProcessTurn_TurnCompleteHookFires(t *testing.T) {
	var turns []*domain.TurnEvent
	f := newFixture(t, func(cfg *Config) {
		cfg.Hooks.OnTurnComplete = func(ctx context.Context, e *domain.TurnEvent) {
			turns = append(turns, e)
		}
	})
	id := f.startAt(t, "welcome")

	_, err := f.orch.ProcessTurn(context.Background(), id, "hello")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "welcome", turns[0].NodeID)
	assert.Equal(t, "cardio", turns[0].NextNodeID)
	assert.Equal(t, domain.SourceGenerated, turns[0].Source)
}
