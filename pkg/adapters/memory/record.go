package memory

import (
	"context"
	"sync"

	"github.com/meridianhealth/intake/pkg/domain"
)

// RecordSink collects red-flag events in memory, keyed by subject. Useful in
// tests and anywhere no health-record system is wired up.
type RecordSink struct {
	mu     sync.Mutex
	events map[string][]domain.RedFlagEvent
}

// NewRecordSink creates an empty in-memory record sink.
func NewRecordSink() *RecordSink {
	return &RecordSink{events: make(map[string][]domain.RedFlagEvent)}
}

// RecordRedFlag stores the event under its subject ID.
func (r *RecordSink) RecordRedFlag(ctx context.Context, event *domain.RedFlagEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.SubjectID] = append(r.events[event.SubjectID], *event)
	return nil
}

// Events returns the recorded events for a subject in arrival order.
func (r *RecordSink) Events(subjectID string) []domain.RedFlagEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RedFlagEvent, len(r.events[subjectID]))
	copy(out, r.events[subjectID])
	return out
}
