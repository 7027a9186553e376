// Package handlers implements the registered action handlers applied by
// the dispatcher: DestinationHandler, ArfHandler, and
// EntityPostgresHandler.
package handlers

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/resolver"
)

// Result is a handler's outcome for one action batch: per-type counts
// plus any per-action errors encountered.
type Result struct {
	Counts map[resolver.ActionKind]int64
	Errors []ActionError
}

// ActionError pairs a failed action with the error the handler produced
// for it.
type ActionError struct {
	Action resolver.Action
	Err    error
}

// Handler is the contract every registered handler implements: apply an
// already-filtered action batch.
type Handler interface {
	// Name identifies this handler for skip_content_handlers filtering.
	Name() string
	Apply(ctx context.Context, actions []resolver.Action) (Result, error)
	// Tolerant reports whether a failure from this handler should be
	// logged and tolerated (ArfHandler) rather than abort the batch
	// (DestinationHandler).
	Tolerant() bool
}
