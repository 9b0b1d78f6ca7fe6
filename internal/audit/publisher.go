package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"preuvio/pkg/requestcontext"
)

// Publisher captures structured audit entries. It fills in the envelope
// (id, timestamp, actor, request id) so call sites only describe the change.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

// Emit appends an entry, failing the caller's operation on error.
func (p *Publisher) Emit(ctx context.Context, e Entry) error {
	p.fill(ctx, &e)
	return p.store.Append(ctx, e)
}

// EmitBestEffort appends an entry and only logs failures. Used where the
// business operation must not be rolled back over a trail write (e.g. the
// sweep's per-row processing).
func (p *Publisher) EmitBestEffort(ctx context.Context, e Entry) {
	if err := p.Emit(ctx, e); err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", string(e.Action),
			"entity_id", e.EntityID,
			"error", err,
		)
	}
}

func (p *Publisher) fill(ctx context.Context, e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = requestcontext.Now(ctx)
	}
	if e.Actor == "" {
		e.Actor = requestcontext.Actor(ctx)
	}
	if e.RequestID == "" {
		e.RequestID = requestcontext.RequestID(ctx)
	}
}

// Snapshot marshals an entity for the Before/After columns, degrading to nil
// when the entity does not marshal (the trail entry still lands).
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
