package domain

import "time"

// SessionStatus describes the lifecycle of a conversation.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// Session is the mutable head of one conversation. It is mutated exactly
// once per turn by the orchestrator and never concurrently for the same ID;
// the session memory serializes turns per session.
type Session struct {
	ID            string        `json:"id"`
	SubjectID     string        `json:"subject_id"`
	CurrentNodeID string        `json:"current_node_id"`
	Status        SessionStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
}

// NewSession creates an active session positioned at the given node.
func NewSession(id, subjectID, startNodeID string) *Session {
	return &Session{
		ID:            id,
		SubjectID:     subjectID,
		CurrentNodeID: startNodeID,
		Status:        StatusActive,
		StartedAt:     time.Now().UTC(),
	}
}

// SessionStep is one immutable entry of the per-session step log.
// Steps are appended once per turn and never mutated.
type SessionStep struct {
	NodeID         string             `json:"node_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Input          string             `json:"input"`
	Response       string             `json:"response"`
	ControllerData map[string]any     `json:"controller_data,omitempty"`
	Reasoning      *ReasoningSnapshot `json:"reasoning,omitempty"`
}

// ReasoningSnapshot is the part of a turn's reasoning result that gets
// persisted with the step: scores and red flags, not recommendations.
type ReasoningSnapshot struct {
	Scores   map[string]float64 `json:"scores,omitempty"`
	RedFlags []RedFlag          `json:"red_flags,omitempty"`
}
