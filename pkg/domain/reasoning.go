package domain

// Severity grades a red flag. It is the sole driver of escalation:
// only SeverityHigh forces an override of normal routing.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// RedFlag is a detected pattern indicating a possible urgent condition.
type RedFlag struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// Recommendations groups the deduplicated suggestion lists produced by the
// reasoning engine for a single turn.
type Recommendations struct {
	EducationTopics      []string `json:"education_topics,omitempty"`
	ScreeningSuggestions []string `json:"screening_suggestions,omitempty"`
	FollowUpQuestions    []string `json:"follow_up_questions,omitempty"`
}

// ReasoningResult is the stateless per-turn output of the reasoning engine.
type ReasoningResult struct {
	RedFlags        []RedFlag          `json:"red_flags,omitempty"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	Recommendations Recommendations    `json:"recommendations"`
	Notes           []string           `json:"notes,omitempty"`

	// ExtraData is merged into the session context, exactly like a
	// controller's extra data (derived values such as bmi, bmiCategory,
	// shouldScreenForDepression).
	ExtraData map[string]any `json:"extra_data,omitempty"`

	// OverrideNextState, when non-empty, requests an escalation to an
	// urgent-path node instead of normal routing.
	OverrideNextState string `json:"override_next_state,omitempty"`
}

// Snapshot reduces the result to the persisted form: scores and flags only.
func (r *ReasoningResult) Snapshot() *ReasoningSnapshot {
	if r == nil {
		return nil
	}
	return &ReasoningSnapshot{Scores: r.Scores, RedFlags: r.RedFlags}
}

// HighestSeverity returns the most severe flag level present, or "" if the
// result carries no flags.
func (r *ReasoningResult) HighestSeverity() Severity {
	var out Severity
	rank := map[Severity]int{SeverityLow: 1, SeverityModerate: 2, SeverityHigh: 3}
	for _, f := range r.RedFlags {
		if rank[f.Severity] > rank[out] {
			out = f.Severity
		}
	}
	return out
}
