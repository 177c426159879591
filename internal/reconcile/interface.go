package reconcile

import (
	"context"

	"github.com/gpml/i18nsync/internal/record"
)

// Sink receives record additions and withdrawals.
//
// Both operations must be idempotent: Create of an existing id replaces the
// record, Delete of an unknown id succeeds.
type Sink interface {
	// Create inserts or replaces r.
	Create(ctx context.Context, r *record.Record) error

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id string) error
}

// Querier lists the records currently held by a sink.
// It is only needed for Prune and reporting.
type Querier interface {
	QueryAll(ctx context.Context, kind record.Kind) ([]*record.Record, error)
}
