package domain

// InputType constants define what kind of answer a node expects.
const (
	// InputChoice presents an ordered list of choices.
	InputChoice = "choice"
	// InputText accepts free text.
	InputText = "text"
	// InputNone is informational; the node renders and moves on.
	InputNone = "none"
)

// Node is one question/step in the dialogue graph.
// Nodes are immutable after the graph is loaded.
type Node struct {
	ID string `json:"id" yaml:"id"`

	// Prompt is the text shown to the user for this step.
	Prompt string `json:"prompt" yaml:"prompt"`

	// InputType is one of "choice", "text" or "none".
	InputType string `json:"input_type,omitempty" yaml:"input_type,omitempty"`

	// Choices holds the ordered options, required iff InputType == "choice".
	Choices []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	// Controller optionally names the hook pair registered for this node.
	Controller string `json:"controller,omitempty" yaml:"controller,omitempty"`

	// Transitions defines the guarded edges out of this node, in priority
	// order. The first matching condition wins.
	Transitions []Transition `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// Metadata allows for extensible key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsTerminal reports whether this node ends the conversation.
// An empty transition list is the only marker of terminality.
func (n *Node) IsTerminal() bool {
	return len(n.Transitions) == 0
}
