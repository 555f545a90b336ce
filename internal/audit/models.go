package audit

import (
	"context"
	"time"

	"trustgate/pkg/domain"
)

// Event captures one admin decision or workflow transition. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time        `json:"timestamp"`
	SubjectID domain.SubjectID `json:"subject_id"`
	CycleID   string           `json:"cycle_id,omitempty"`
	Actor     string           `json:"actor,omitempty"`
	Action    string           `json:"action"`
	FromState string           `json:"from_state,omitempty"`
	ToState   string           `json:"to_state,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// Store is the append-only persistence contract for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectID domain.SubjectID) ([]Event, error)
}

// Sink receives events for out-of-process delivery (message broker, SIEM).
// Delivery is best-effort; the store remains the system of record.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}
