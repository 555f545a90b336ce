package audit

import (
	"context"
	"log/slog"
	"time"

	"trustgate/pkg/domain"
)

// Publisher records structured audit events. Persistence goes through the
// store so tests can swap sinks easily; an optional Sink mirrors events to
// an external broker.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger
}

type Option func(*Publisher)

func WithSink(sink Sink) Option {
	return func(p *Publisher) { p.sink = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends the event to the store and mirrors it to the sink. A sink
// failure is logged and swallowed: audit delivery must never fail a
// verification cycle.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil && p.logger != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action,
				"subject_id", event.SubjectID,
				"error", err,
			)
		}
	}
	return nil
}

// List returns every event recorded for a subject, oldest first.
func (p *Publisher) List(ctx context.Context, subjectID domain.SubjectID) ([]Event, error) {
	return p.store.ListBySubject(ctx, subjectID)
}
