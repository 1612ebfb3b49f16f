// Package turn implements the per-request state machine that sequences one
// conversation turn: load, preprocess, reason, generate, postprocess, log,
// route, persist. The whole pipeline runs inside the session's lock; a turn
// either completes fully or fails without advancing the session.
package turn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianhealth/intake/internal/logging"
	"github.com/meridianhealth/intake/internal/reasoning"
	"github.com/meridianhealth/intake/internal/router"
	"github.com/meridianhealth/intake/pkg/controller"
	"github.com/meridianhealth/intake/pkg/domain"
	"github.com/meridianhealth/intake/pkg/graph"
	"github.com/meridianhealth/intake/pkg/ports"
	"github.com/meridianhealth/intake/pkg/session"
)

// DefaultHistoryLimit is how many recent steps go into a generation prompt.
const DefaultHistoryLimit = 6

// Config wires the orchestrator's collaborators. Graph, Registry, Reasoner,
// Memory, and Generator are required; the rest are optional.
type Config struct {
	Graph     *graph.Graph
	Registry  *controller.Registry
	Reasoner  *reasoning.Engine
	Memory    *session.Memory
	Generator ports.Generator

	Recorder     ports.RecordSink
	Hooks        domain.LifecycleHooks
	Logger       *slog.Logger
	HistoryLimit int
}

// Orchestrator sequences one turn at a time per session. It holds no
// per-session state of its own; everything lives in the session memory.
type Orchestrator struct {
	graph     *graph.Graph
	registry  *controller.Registry
	reasoner  *reasoning.Engine
	memory    *session.Memory
	generator ports.Generator
	recorder  ports.RecordSink
	router    *router.Router
	hooks     domain.LifecycleHooks

	logger       *slog.Logger
	historyLimit int
}

// New creates a turn orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	limit := cfg.HistoryLimit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	return &Orchestrator{
		graph:        cfg.Graph,
		registry:     cfg.Registry,
		reasoner:     cfg.Reasoner,
		memory:       cfg.Memory,
		generator:    cfg.Generator,
		recorder:     cfg.Recorder,
		router:       router.New(logger),
		hooks:        cfg.Hooks,
		logger:       logger,
		historyLimit: limit,
	}
}

// ProcessTurn runs the full pipeline for one user input. Concurrent calls
// for the same session are serialized; a persistence failure anywhere fails
// the whole turn with no response delivered.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, input string) (*domain.TurnResult, error) {
	var result *domain.TurnResult
	err := o.memory.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		result, err = o.processLocked(ctx, sessionID, input)
		return err
	})
	return result, err
}

func (o *Orchestrator) processLocked(ctx context.Context, sessionID, input string) (*domain.TurnResult, error) {
	started := time.Now()
	store := o.memory.Store()

	// Step 1: load session and current node.
	sess, err := store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.StatusActive {
		return nil, fmt.Errorf("%w: session %q is %s", domain.ErrSessionClosed, sessionID, sess.Status)
	}
	node, err := o.graph.Node(sess.CurrentNodeID)
	if err != nil {
		return nil, err
	}

	sessionCtx, err := store.LoadContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session context: %w", err)
	}

	// Step 2: controller preprocess.
	controllerData := map[string]any{}
	pre := o.registry.Preprocess(ctx, node.Controller, &controller.TurnContext{
		SessionID: sessionID,
		SubjectID: sess.SubjectID,
		Node:      node,
		Input:     input,
		Context:   sessionCtx,
	})

	effectiveInput := input
	var overridePre, responseOverride string
	if pre != nil {
		if pre.ModifiedInput != "" {
			effectiveInput = pre.ModifiedInput
		}
		overridePre = pre.OverrideNextState
		responseOverride = pre.OverrideResponse
		if len(pre.ExtraData) > 0 {
			for k, v := range pre.ExtraData {
				controllerData[k] = v
			}
			if sessionCtx, err = store.MergeContext(ctx, sessionID, pre.ExtraData); err != nil {
				return nil, fmt.Errorf("failed to merge controller context: %w", err)
			}
		}
	}

	// Step 3: reasoning runs every turn, controller or not.
	analysis := o.reasoner.Analyze(effectiveInput, sessionCtx)
	overrideReasoning := analysis.OverrideNextState
	if len(analysis.ExtraData) > 0 {
		if sessionCtx, err = store.MergeContext(ctx, sessionID, analysis.ExtraData); err != nil {
			return nil, fmt.Errorf("failed to merge reasoning context: %w", err)
		}
	}

	// Step 5: generation, unless the preprocess hook already answered.
	var response, source string
	generationSkipped := responseOverride != ""
	if generationSkipped {
		response = responseOverride
		source = domain.SourceController
	} else {
		steps, err := store.LoadSteps(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load step log: %w", err)
		}
		prompt := BuildPrompt(node, sessionCtx, analysis, steps, effectiveInput, o.historyLimit)
		gen := o.generator.Generate(ctx, prompt)
		response = gen.Content
		source = gen.Source
		if gen.Source == domain.SourceFallback {
			o.logger.Warn("generation fell back to canned response",
				"session_id", sessionID,
				"node_id", node.ID,
				"err", gen.Err,
			)
			o.emitGenerationFallback(ctx, sessionID, node.ID, gen.Err)
		}
	}

	// Step 6: controller postprocess, skipped when generation was skipped.
	var overridePost string
	if !generationSkipped {
		post := o.registry.Postprocess(ctx, node.Controller, &controller.TurnContext{
			SessionID: sessionID,
			SubjectID: sess.SubjectID,
			Node:      node,
			Input:     effectiveInput,
			Context:   sessionCtx,
			Response:  response,
		})
		if post != nil {
			if post.OverrideResponse != "" {
				response = post.OverrideResponse
			}
			overridePost = post.OverrideNextState
			if len(post.ExtraData) > 0 {
				for k, v := range post.ExtraData {
					controllerData[k] = v
				}
				if sessionCtx, err = store.MergeContext(ctx, sessionID, post.ExtraData); err != nil {
					return nil, fmt.Errorf("failed to merge controller context: %w", err)
				}
			}
		}
	}

	// Step 7: append the immutable step with the reasoning snapshot.
	step := &domain.SessionStep{
		NodeID:    node.ID,
		Timestamp: time.Now().UTC(),
		Input:     input,
		Response:  response,
		Reasoning: analysis.Snapshot(),
	}
	if len(controllerData) > 0 {
		step.ControllerData = controllerData
	}
	if err := store.AppendStep(ctx, sessionID, step); err != nil {
		return nil, fmt.Errorf("failed to append session step: %w", err)
	}

	o.publishRedFlags(ctx, sess, node.ID, analysis)

	// Step 8: postprocess beats preprocess beats reasoning.
	override := firstNonEmpty(overridePost, overridePre, overrideReasoning)

	var next string
	switch {
	case node.IsTerminal():
		// A terminal node ends the session this turn no matter what any
		// hook or the reasoning engine asked for.
		if override != "" {
			o.logger.Warn("override ignored on terminal node",
				"session_id", sessionID,
				"node_id", node.ID,
				"override", override,
			)
		}
		next = ""
	case override != "":
		next = override
		o.emitEscalation(ctx, sessionID, node.ID, override,
			overrideOrigin(override, overridePost, overridePre))
	default:
		next = o.router.NextState(node, effectiveInput, sessionCtx)
	}

	// Step 9: persist the new position; landing on a terminal or unknown
	// node completes the session.
	isTerminal := true
	if next != "" && o.graph.Has(next) {
		nextNode, _ := o.graph.Node(next)
		isTerminal = nextNode.IsTerminal()
		sess.CurrentNodeID = next
	}
	if isTerminal {
		now := time.Now().UTC()
		sess.Status = domain.StatusCompleted
		sess.EndedAt = &now
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	result := &domain.TurnResult{
		Response:      response,
		Source:        source,
		PreviousState: node.ID,
		NextState:     sess.CurrentNodeID,
		Node:          node,
		Reasoning:     analysis,
		IsTerminal:    isTerminal,
	}

	o.emitTurnComplete(ctx, sessionID, node.ID, result, time.Since(started))
	return result, nil
}

// publishRedFlags emits the red-flag hook for every flag and records the
// high-severity ones in the subject's health record. A sink failure is
// logged, never fatal to the turn.
func (o *Orchestrator) publishRedFlags(ctx context.Context, sess *domain.Session, nodeID string, analysis *domain.ReasoningResult) {
	for _, flag := range analysis.RedFlags {
		event := &domain.RedFlagEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now().UTC(),
				Type:      domain.EventRedFlag,
				SessionID: sess.ID,
			},
			SubjectID: sess.SubjectID,
			NodeID:    nodeID,
			FlagID:    flag.ID,
			Label:     flag.Label,
			Reason:    flag.Reason,
			Severity:  flag.Severity,
		}
		if o.hooks.OnRedFlag != nil {
			o.hooks.OnRedFlag(ctx, event)
		}
		if flag.Severity == domain.SeverityHigh && o.recorder != nil {
			if err := o.recorder.RecordRedFlag(ctx, event); err != nil {
				o.logger.Error("failed to record red flag in health record",
					"session_id", sess.ID,
					"flag_id", flag.ID,
					"err", err,
				)
			}
		}
	}
}

func (o *Orchestrator) emitEscalation(ctx context.Context, sessionID, nodeID, target, origin string) {
	o.logger.Info("escalating to urgent path",
		"session_id", sessionID,
		"node_id", nodeID,
		"target", target,
		"origin", origin,
	)
	if o.hooks.OnEscalation == nil {
		return
	}
	o.hooks.OnEscalation(ctx, &domain.EscalationEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now().UTC(),
			Type:      domain.EventEscalation,
			SessionID: sessionID,
		},
		NodeID:     nodeID,
		TargetNode: target,
		Origin:     origin,
	})
}

func (o *Orchestrator) emitGenerationFallback(ctx context.Context, sessionID, nodeID, errStr string) {
	if o.hooks.OnGenerationFallback == nil {
		return
	}
	o.hooks.OnGenerationFallback(ctx, &domain.GenerationEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now().UTC(),
			Type:      domain.EventGenerationFallback,
			SessionID: sessionID,
		},
		NodeID: nodeID,
		Err:    errStr,
	})
}

func (o *Orchestrator) emitTurnComplete(ctx context.Context, sessionID, nodeID string, result *domain.TurnResult, duration time.Duration) {
	if o.hooks.OnTurnComplete == nil {
		return
	}
	o.hooks.OnTurnComplete(ctx, &domain.TurnEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now().UTC(),
			Type:      domain.EventTurnComplete,
			SessionID: sessionID,
		},
		NodeID:     nodeID,
		NextNodeID: result.NextState,
		Source:     result.Source,
		Duration:   duration,
		IsTerminal: result.IsTerminal,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// overrideOrigin names the pipeline stage that won the override.
func overrideOrigin(winner, post, pre string) string {
	switch {
	case winner == post && post != "":
		return "postprocess"
	case winner == pre && pre != "":
		return "preprocess"
	default:
		return "reasoning"
	}
}
