package domain

// ControllerResult is what a node controller hook returns. A nil result is
// valid and means "no opinion": no override, no extra data.
type ControllerResult struct {
	// ModifiedInput replaces the raw input for the rest of the turn when
	// non-empty (e.g. normalization before reasoning and routing).
	ModifiedInput string `json:"modified_input,omitempty"`

	// ExtraData is merged into the session context (shallow,
	// last-write-wins, see MergeContext).
	ExtraData map[string]any `json:"extra_data,omitempty"`

	// OverrideResponse short-circuits response generation for this turn.
	OverrideResponse string `json:"override_response,omitempty"`

	// OverrideNextState short-circuits normal routing for this turn.
	OverrideNextState string `json:"override_next_state,omitempty"`
}
