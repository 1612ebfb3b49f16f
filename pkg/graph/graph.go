// Package graph loads and validates the static conversation graph document.
// The document is versioned and loaded once at process start; reloading
// requires a clean restart of the orchestrator.
package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Graph is the validated, immutable node map plus the designated entry node.
type Graph struct {
	ID           string
	Name         string
	Version      string
	InitialState string

	nodes map[string]*domain.Node
}

// Node returns the node for the given ID.
// Returns domain.ErrNodeNotFound if the ID is unknown.
func (g *Graph) Node(id string) (*domain.Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	return n, nil
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes. The slice is a copy; the nodes are shared and
// must not be mutated.
func (g *Graph) Nodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// ValidationError is fatal at load time and prevents startup.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid graph: %s", strings.Join(e.Problems, "; "))
}

// ValidateOptions tune graph validation.
type ValidateOptions struct {
	// KnownController reports whether a controller name is registered.
	// When set, nodes referencing unknown controllers are downgraded to
	// controller-less with a warning instead of failing the load.
	KnownController func(name string) bool

	Logger *slog.Logger
}

// build validates the raw document and produces an immutable Graph.
func build(doc *document, opts ValidateOptions) (*Graph, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var problems []string

	if doc.InitialState == "" {
		problems = append(problems, "initial state is not set")
	}

	nodes := make(map[string]*domain.Node, len(doc.Nodes))
	for id, n := range doc.Nodes {
		if n == nil {
			problems = append(problems, fmt.Sprintf("node %q has no definition", id))
			continue
		}
		if n.ID == "" {
			n.ID = id
		} else if n.ID != id {
			problems = append(problems, fmt.Sprintf("node keyed %q declares id %q", id, n.ID))
			continue
		}
		nodes[id] = n
	}

	if doc.InitialState != "" {
		if _, ok := nodes[doc.InitialState]; !ok {
			problems = append(problems, fmt.Sprintf("initial state %q does not exist", doc.InitialState))
		}
	}

	for id, n := range nodes {
		if n.InputType == domain.InputChoice && len(n.Choices) == 0 {
			problems = append(problems, fmt.Sprintf("node %q is a choice node with no choices", id))
		}
		for _, t := range n.Transitions {
			if t.To == "" {
				problems = append(problems, fmt.Sprintf("node %q has a transition without target", id))
				continue
			}
			if _, ok := nodes[t.To]; !ok {
				problems = append(problems, fmt.Sprintf("node %q transitions to unknown node %q", id, t.To))
			}
		}
		// An unknown controller is a warning, not a hard failure: the node
		// keeps working without hooks.
		if n.Controller != "" && opts.KnownController != nil && !opts.KnownController(n.Controller) {
			logger.Warn("node references unknown controller, running without hooks",
				"node_id", id,
				"controller", n.Controller,
			)
			n.Controller = ""
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Graph{
		ID:           doc.ID,
		Name:         doc.Name,
		Version:      doc.Version,
		InitialState: doc.InitialState,
		nodes:        nodes,
	}, nil
}
