package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"calibra/internal/platform/middleware"
	id "calibra/pkg/domain"
)

// Store persists audit events. Append-only: revocation and correction are
// states on the audited entities, never edits to the trail.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]Event, error)
	ListByAction(ctx context.Context, action Action, limit int) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
	sinks []Sink
	inbox chan Event
}

// Sink receives a copy of every event after it has been persisted. Sinks
// are best-effort; a sink failure never fails the emitting operation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// NewPublisher builds a publisher that delivers to sinks inline with the
// emitting operation.
func NewPublisher(store Store, sinks ...Sink) *Publisher {
	return &Publisher{store: store, sinks: sinks}
}

// NewBuffered builds a publisher that persists inline but hands sink
// delivery to the returned Worker through a bounded buffer. When the
// buffer is full the event is dropped from the sinks only; the stored
// trail is always complete.
func NewBuffered(store Store, buffer int, sinks ...Sink) (*Publisher, *Worker) {
	inbox := make(chan Event, buffer)
	return &Publisher{store: store, inbox: inbox}, &Worker{sinks: sinks, inbox: inbox}
}

// Emit stamps, persists, and fans out an event. Persistence failures
// propagate; sink failures do not.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = middleware.GetRequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = middleware.GetClientIP(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
		default:
		}
		return nil
	}
	for _, sink := range p.sinks {
		_ = sink.Publish(ctx, event)
	}
	return nil
}

// List returns the trail for one org.
func (p *Publisher) List(ctx context.Context, orgID id.OrgID) ([]Event, error) {
	return p.store.ListByOrg(ctx, orgID)
}

// Log is a shared helper for modules that log and audit the same action.
// It logs to the structured logger and emits to the publisher if available.
func Log(ctx context.Context, logger *slog.Logger, publisher *Publisher, event Event, attrs ...any) {
	args := append(attrs,
		"event", string(event.Action),
		"org_id", event.OrgID.String(),
		"log_type", "audit",
	)
	if logger != nil {
		logger.InfoContext(ctx, string(event.Action), args...)
	}
	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event.Action),
			"error", err,
		)
	}
}
