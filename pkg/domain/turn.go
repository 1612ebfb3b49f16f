package domain

// GenerationSource tells how the response text of a turn was produced.
const (
	// SourceGenerated means the external text generator answered.
	SourceGenerated = "generated"
	// SourceFallback means the deterministic canned response was used.
	SourceFallback = "fallback"
	// SourceController means a controller override replaced generation.
	SourceController = "controller"
)

// GenerationResult is the contract of the text-generation collaborator.
// Generators never propagate errors: on timeout or transport failure they
// return a canned response with Source set to SourceFallback and Err holding
// the diagnostic string.
type GenerationResult struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Err     string `json:"error,omitempty"`
}

// TurnResult is the outcome of one full request/response cycle.
type TurnResult struct {
	Response      string           `json:"response"`
	Source        string           `json:"source"`
	PreviousState string           `json:"previous_state"`
	NextState     string           `json:"next_state"`
	Node          *Node            `json:"node"`
	Reasoning     *ReasoningResult `json:"reasoning,omitempty"`
	IsTerminal    bool             `json:"is_terminal"`
}
