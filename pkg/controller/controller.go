// Package controller implements the per-node hook mechanism. A controller
// is an optional pair of capabilities attached to a node by name: a
// preprocess hook that extracts structured data from the raw input before
// response generation (and may escalate on its own), and a postprocess hook
// that reshapes the generated response.
//
// Dispatch is a plain registry lookup into a compile-time map of concrete
// values; there is no reflection.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meridianhealth/intake/pkg/domain"
)

// TurnContext is what a hook can see of the current turn.
type TurnContext struct {
	SessionID string
	SubjectID string
	Node      *domain.Node

	// Input is the raw (or previously modified) user input of this turn.
	Input string

	// Context is the accumulated session context. Hooks must treat it as
	// read-only and return changes via ControllerResult.ExtraData.
	Context map[string]any

	// Response is the generated response text. Only set for postprocess.
	Response string
}

// Preprocessor runs before response generation.
type Preprocessor interface {
	Preprocess(ctx context.Context, t *TurnContext) (*domain.ControllerResult, error)
}

// Postprocessor runs after response generation.
type Postprocessor interface {
	Postprocess(ctx context.Context, t *TurnContext) (*domain.ControllerResult, error)
}

// Registry maps controller names to concrete hook implementations.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]any
	logger      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		controllers: make(map[string]any),
		logger:      logger,
	}
}

// Register adds a controller under a name. The value should implement
// Preprocessor, Postprocessor, or both. An existing name is overwritten.
func (r *Registry) Register(name string, c any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[name] = c
}

// Has reports whether a controller name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.controllers[name]
	return ok
}

// Names returns the registered controller names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.controllers))
	for n := range r.controllers {
		names = append(names, n)
	}
	return names
}

// Preprocess runs the named controller's preprocess hook, if any. A hook
// error or panic is caught and logged and yields nil: one node's bug must
// not break the whole session.
func (r *Registry) Preprocess(ctx context.Context, name string, t *TurnContext) *domain.ControllerResult {
	c := r.get(name)
	pre, ok := c.(Preprocessor)
	if !ok {
		return nil
	}
	return r.safely(name, "preprocess", func() (*domain.ControllerResult, error) {
		return pre.Preprocess(ctx, t)
	})
}

// Postprocess runs the named controller's postprocess hook, if any, with
// the same failure isolation as Preprocess.
func (r *Registry) Postprocess(ctx context.Context, name string, t *TurnContext) *domain.ControllerResult {
	c := r.get(name)
	post, ok := c.(Postprocessor)
	if !ok {
		return nil
	}
	return r.safely(name, "postprocess", func() (*domain.ControllerResult, error) {
		return post.Postprocess(ctx, t)
	})
}

func (r *Registry) get(name string) any {
	if name == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controllers[name]
}

func (r *Registry) safely(name, hook string, fn func() (*domain.ControllerResult, error)) (result *domain.ControllerResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("controller hook panicked, treating as no-op",
				"controller", name,
				"hook", hook,
				"err", fmt.Sprintf("%v", rec),
			)
			result = nil
		}
	}()

	result, err := fn()
	if err != nil {
		r.logger.Error("controller hook failed, treating as no-op",
			"controller", name,
			"hook", hook,
			"err", err,
		)
		return nil
	}
	return result
}
