package domain

// Transition is a guarded edge from one node to another.
type Transition struct {
	// Condition is an expression in the router's condition grammar,
	// e.g. "yes", "choice:often", "regex:/chest pain/i", "has(demographics.age)".
	// "always" and "default" (and the empty string) match unconditionally.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	// To is the target node ID.
	To string `json:"to" yaml:"to"`
}
