package postgres

import (
	"context"

	"github.com/airweave-ai/ingestion-core/internal/domain"
)

// EntityRecordStore composes EntityRecordRepository and
// CollectionEntityRecordRepository into handlers.EntityRecordStore. The
// two repositories persist distinct tables (per-sync vs per-collection
// dedup ledgers) so no single repository method set satisfies the
// handler's interface on its own.
type EntityRecordStore struct {
	entities    *EntityRecordRepository
	collections *CollectionEntityRecordRepository
}

// NewEntityRecordStore returns a store delegating to entities and
// collections.
func NewEntityRecordStore(entities *EntityRecordRepository, collections *CollectionEntityRecordRepository) *EntityRecordStore {
	return &EntityRecordStore{entities: entities, collections: collections}
}

// Upsert satisfies handlers.EntityRecordStore.
func (s *EntityRecordStore) Upsert(ctx context.Context, rec domain.EntityRecord) error {
	return s.entities.Upsert(ctx, rec)
}

// Delete satisfies handlers.EntityRecordStore.
func (s *EntityRecordStore) Delete(ctx context.Context, fp domain.EntityFingerprint) error {
	return s.entities.Delete(ctx, fp)
}

// UpsertCollectionRecord satisfies handlers.EntityRecordStore.
func (s *EntityRecordStore) UpsertCollectionRecord(ctx context.Context, rec domain.CollectionEntityRecord) error {
	return s.collections.Upsert(ctx, rec)
}
