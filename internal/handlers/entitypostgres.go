package handlers

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/resolver"
)

// EntityRecordStore upserts and deletes the per-sync EntityRecord (and,
// when enabled, the per-collection CollectionEntityRecord).
type EntityRecordStore interface {
	Upsert(ctx context.Context, rec domain.EntityRecord) error
	Delete(ctx context.Context, fp domain.EntityFingerprint) error
	UpsertCollectionRecord(ctx context.Context, rec domain.CollectionEntityRecord) error
}

// EntityPostgresHandler persists resolved actions into EntityRecord
// (and CollectionEntityRecord). Must run after a successful
// DestinationHandler for the same action — the dispatcher enforces this
// by only passing surviving actions through to later handlers.
type EntityPostgresHandler struct {
	store           EntityRecordStore
	currentJobID    string
	collectionID    string
	collectionDedup bool
	sourceConnID    string
}

// NewEntityPostgresHandler returns a handler recording against store for
// one job execution.
func NewEntityPostgresHandler(store EntityRecordStore, currentJobID, collectionID, sourceConnID string, collectionDedup bool) *EntityPostgresHandler {
	return &EntityPostgresHandler{
		store:           store,
		currentJobID:    currentJobID,
		collectionID:    collectionID,
		collectionDedup: collectionDedup,
		sourceConnID:    sourceConnID,
	}
}

func (h *EntityPostgresHandler) Name() string { return "entity_postgres" }

func (h *EntityPostgresHandler) Tolerant() bool { return false }

func (h *EntityPostgresHandler) Apply(ctx context.Context, actions []resolver.Action) (Result, error) {
	result := Result{Counts: map[resolver.ActionKind]int64{}}

	for _, a := range actions {
		var err error

		switch a.Kind {
		case resolver.ActionInsert, resolver.ActionUpdate, resolver.ActionKeep:
			hash := ""
			if a.Entity != nil {
				hash = a.Entity.Hash()
			}

			err = h.store.Upsert(ctx, domain.EntityRecord{
				Fingerprint:   a.Fingerprint,
				Hash:          hash,
				LastSeenJobID: h.currentJobID,
			})

			if err == nil && h.collectionDedup {
				err = h.store.UpsertCollectionRecord(ctx, domain.CollectionEntityRecord{
					Fingerprint: domain.CollectionEntityFingerprint{
						CollectionID:       h.collectionID,
						EntityID:           a.Fingerprint.EntityID,
						EntityDefinitionID: a.Fingerprint.EntityDefinitionID,
					},
					Hash:                      hash,
					WinningSourceConnectionID: h.sourceConnID,
				})
			}

		case resolver.ActionDelete:
			err = h.store.Delete(ctx, a.Fingerprint)
		}

		if err != nil {
			result.Errors = append(result.Errors, ActionError{Action: a, Err: err})
			continue
		}
		result.Counts[a.Kind]++
	}

	return result, nil
}
