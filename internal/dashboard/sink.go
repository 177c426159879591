package dashboard

import (
	"context"

	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/record"
)

// Sink forwards records to another sink and broadcasts every accepted
// change.
type Sink struct {
	next    reconcile.Sink
	handler *Handler
}

// NewSink wraps next.
func NewSink(next reconcile.Sink, handler *Handler) *Sink {
	return &Sink{next: next, handler: handler}
}

// Create implements reconcile.Sink.
func (s *Sink) Create(ctx context.Context, r *record.Record) error {
	if err := s.next.Create(ctx, r); err != nil {
		return err
	}
	s.handler.OnRecordCreated(r)
	return nil
}

// Delete implements reconcile.Sink.
func (s *Sink) Delete(ctx context.Context, id string) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.handler.OnRecordDeleted(id)
	return nil
}
