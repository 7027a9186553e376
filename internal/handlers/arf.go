package handlers

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
	"github.com/airweave-ai/ingestion-core/internal/source"
)

// ArfStore persists the raw entity payload for later replay, keyed by
// (sync_id, entity_id, entity_definition_id).
type ArfStore interface {
	Put(ctx context.Context, fp domain.EntityFingerprint, e source.Entity) error
	Delete(ctx context.Context, fp domain.EntityFingerprint) error
}

// ArfHandler writes entities into archival replay storage. Failures are
// tolerated: a replay-storage outage must not fail the job, only the
// ability to later replay this entity without recontacting the source.
type ArfHandler struct {
	store ArfStore
}

// NewArfHandler returns a handler backed by store.
func NewArfHandler(store ArfStore) *ArfHandler {
	return &ArfHandler{store: store}
}

func (h *ArfHandler) Name() string { return "arf" }

func (h *ArfHandler) Tolerant() bool { return true }

func (h *ArfHandler) Apply(ctx context.Context, actions []resolver.Action) (Result, error) {
	result := Result{Counts: map[resolver.ActionKind]int64{}}

	for _, a := range actions {
		var err error
		switch a.Kind {
		case resolver.ActionInsert, resolver.ActionUpdate:
			if a.Entity != nil {
				err = h.store.Put(ctx, a.Fingerprint, a.Entity)
			}
		case resolver.ActionDelete:
			err = h.store.Delete(ctx, a.Fingerprint)
		case resolver.ActionKeep:
			// no ARF change on keep
		}

		if err != nil {
			result.Errors = append(result.Errors, ActionError{Action: a, Err: err})
			continue
		}
		result.Counts[a.Kind]++
	}

	return result, nil
}
