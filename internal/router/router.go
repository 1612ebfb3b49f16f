package router

import (
	"log/slog"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Router resolves the next node from a node's ordered transition list.
type Router struct {
	evaluator *Evaluator
	logger    *slog.Logger
}

// New creates a Router with its own condition evaluator.
func New(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		evaluator: NewEvaluator(logger),
		logger:    logger,
	}
}

// Evaluator exposes the condition evaluator, mainly for tests and tooling.
func (r *Router) Evaluator() *Evaluator { return r.evaluator }

// NextState evaluates the node's transitions in declaration order and
// returns the target of the first matching condition.
//
// Default policy when nothing matches: fall back to the FIRST transition.
// The two historical implementations of this engine disagreed here (one
// fell back to the first transition, one to the last); first-transition is
// the documented choice and is pinned by a named test. Terminal nodes
// return "".
func (r *Router) NextState(node *domain.Node, input string, ctx map[string]any) string {
	if node == nil || len(node.Transitions) == 0 {
		return ""
	}

	for _, t := range node.Transitions {
		if r.evaluator.Matches(t.Condition, input, ctx) {
			return t.To
		}
	}

	fallback := node.Transitions[0].To
	r.logger.Debug("no transition matched, using first-transition fallback",
		"node_id", node.ID,
		"next", fallback,
	)
	return fallback
}
