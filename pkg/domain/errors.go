package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeNotFound is returned when a session points at a node that does not
// exist in the loaded graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrSessionClosed is returned when a turn is submitted to a completed or
// abandoned session.
var ErrSessionClosed = errors.New("session is closed")
