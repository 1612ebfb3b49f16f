package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnComplete       EventType = "turn_complete"
	EventRedFlag            EventType = "red_flag"
	EventEscalation         EventType = "escalation"
	EventGenerationFallback EventType = "generation_fallback"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent is emitted once per completed turn.
type TurnEvent struct {
	EventBase
	NodeID     string        `json:"node_id"`
	NextNodeID string        `json:"next_node_id"`
	Source     string        `json:"source"`
	Duration   time.Duration `json:"duration"`
	IsTerminal bool          `json:"is_terminal"`
}

// RedFlagEvent is emitted for every red flag raised in a turn, and is also
// the payload recorded in the subject's health record for high-severity
// flags.
type RedFlagEvent struct {
	EventBase
	SubjectID string   `json:"subject_id"`
	NodeID    string   `json:"node_id"`
	FlagID    string   `json:"flag_id"`
	Label     string   `json:"label"`
	Reason    string   `json:"reason"`
	Severity  Severity `json:"severity"`
}

// EscalationEvent is emitted when an override forces the conversation onto
// an urgent path.
type EscalationEvent struct {
	EventBase
	NodeID     string `json:"node_id"`
	TargetNode string `json:"target_node"`
	// Origin tells which stage requested the override: "preprocess",
	// "reasoning" or "postprocess".
	Origin string `json:"origin"`
}

// GenerationEvent is emitted when the text generator fell back to a canned
// response.
type GenerationEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Err    string `json:"error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks are
// optional and must be fast; they run inline with the turn.
type LifecycleHooks struct {
	OnTurnComplete       func(context.Context, *TurnEvent)
	OnRedFlag            func(context.Context, *RedFlagEvent)
	OnEscalation         func(context.Context, *EscalationEvent)
	OnGenerationFallback func(context.Context, *GenerationEvent)
}
