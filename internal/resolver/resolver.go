// Package resolver implements the entity action resolver: given a batch
// of incoming entities and the stored records for a sync (or collection),
// it produces a typed batch of Insert/Update/Delete/Keep actions.
package resolver

import (
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/source"
)

// ActionKind is one of the four actions the resolver can produce.
type ActionKind string

const (
	ActionInsert ActionKind = "insert"
	ActionUpdate ActionKind = "update"
	ActionDelete ActionKind = "delete"
	ActionKeep   ActionKind = "keep"
)

// Action pairs a resolved kind with the entity it applies to (nil for a
// Delete produced by orphan detection, where only the fingerprint is
// known).
type Action struct {
	Kind        ActionKind
	Entity      source.Entity
	Fingerprint domain.EntityFingerprint
}

// ActionBatch is the resolver's output for one incoming batch. It carries
// the skip_content_handlers filter the dispatcher consults before routing
// to handlers.
type ActionBatch struct {
	Actions             []Action
	SkipContentHandlers map[string]bool
}

// RecordStore is the subset of persisted record lookups the resolver
// needs. Implementations back onto EntityRecord (per-sync) or
// CollectionEntityRecord (collection-level dedup), selected by the
// caller based on Sync.CollectionDedup.
type RecordStore interface {
	// Lookup returns the stored hash and last-seen job id for a
	// fingerprint, or ok=false if no record exists.
	Lookup(fp domain.EntityFingerprint) (hash string, lastSeenJobID string, ok bool)
	// WinningSourceConnection returns the source connection id that owns
	// an entity_id under collection-level dedup, or "" if unclaimed.
	WinningSourceConnection(entityID string) string
}

// ErrMalformedEntity is returned when an incoming entity is missing a
// required identity key; the caller must fail the batch with a
// SyncFailure and transition the job to failed.
type ErrMalformedEntity struct {
	Reason string
}

func (e ErrMalformedEntity) Error() string {
	return fmt.Sprintf("resolver: malformed entity: %s", e.Reason)
}

// Options controls resolution mode.
type Options struct {
	// SkipHashComparison makes every non-deletion entity Insert-or-Update
	// based solely on presence, comparing no hash. Used for ARF replay
	// migrations where content is authoritative.
	SkipHashComparison bool
	// CollectionDedup consults the collection-level record store instead
	// of the per-sync one, and suppresses Insert for entities already
	// claimed by another source connection.
	CollectionDedup bool
	// SourceConnectionID identifies the caller for collection-dedup
	// conflict resolution.
	SourceConnectionID string
	SyncID             string
}

// Resolve maps one incoming batch against stored records into an
// ActionBatch, per the table in the entity action resolver contract:
//
//	DeletionEntity, present  -> Delete
//	DeletionEntity, absent   -> dropped (no-op)
//	hash == stored.hash      -> Keep
//	hash != stored.hash      -> Update
//	absent                   -> Insert
func Resolve(entities []source.Entity, records RecordStore, opts Options) (ActionBatch, error) {
	batch := ActionBatch{SkipContentHandlers: map[string]bool{}}

	for _, e := range entities {
		id := e.Identity()
		if id.EntityID == "" || id.EntityDefinitionID == "" {
			return ActionBatch{}, ErrMalformedEntity{Reason: "missing entity_id or entity_definition_id"}
		}

		fp := domain.EntityFingerprint{
			SyncID:             opts.SyncID,
			EntityID:           id.EntityID,
			EntityDefinitionID: id.EntityDefinitionID,
		}

		if source.IsDeletion(e) {
			if _, _, ok := records.Lookup(fp); ok {
				batch.Actions = append(batch.Actions, Action{Kind: ActionDelete, Entity: e, Fingerprint: fp})
			}
			continue
		}

		storedHash, _, ok := records.Lookup(fp)

		if opts.CollectionDedup {
			winner := records.WinningSourceConnection(id.EntityID)
			if winner != "" && winner != opts.SourceConnectionID {
				batch.Actions = append(batch.Actions, Action{Kind: ActionKeep, Entity: e, Fingerprint: fp})
				continue
			}
		}

		switch {
		case !ok:
			batch.Actions = append(batch.Actions, Action{Kind: ActionInsert, Entity: e, Fingerprint: fp})
		case opts.SkipHashComparison:
			batch.Actions = append(batch.Actions, Action{Kind: ActionUpdate, Entity: e, Fingerprint: fp})
		case storedHash == e.Hash():
			batch.Actions = append(batch.Actions, Action{Kind: ActionKeep, Entity: e, Fingerprint: fp})
		default:
			batch.Actions = append(batch.Actions, Action{Kind: ActionUpdate, Entity: e, Fingerprint: fp})
		}
	}

	return batch, nil
}

// OrphanRecord is the minimal shape orphan detection needs from a stored
// record: its fingerprint and the job that last saw it.
type OrphanRecord struct {
	Fingerprint   domain.EntityFingerprint
	LastSeenJobID string
}

// ResolveOrphans runs the full-sync-only orphan detection step: records
// whose LastSeenJobID differs from the current job become Delete
// actions. Incremental syncs must not call this.
func ResolveOrphans(stored []OrphanRecord, currentJobID string) ActionBatch {
	batch := ActionBatch{SkipContentHandlers: map[string]bool{}}

	for _, r := range stored {
		if r.LastSeenJobID != currentJobID {
			batch.Actions = append(batch.Actions, Action{Kind: ActionDelete, Fingerprint: r.Fingerprint})
		}
	}

	return batch
}
