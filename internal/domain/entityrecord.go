package domain

import "time"

// EntityFingerprint is the key for an EntityRecord:
// (sync_id, entity_id, entity_definition_id).
type EntityFingerprint struct {
	SyncID             string
	EntityID           string
	EntityDefinitionID string
}

// EntityRecord is the per-sync persisted mapping used by the action
// resolver to decide Insert/Update/Delete/Keep.
type EntityRecord struct {
	Fingerprint   EntityFingerprint
	OrganizationID string
	Hash          string
	LastSeenJobID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CollectionEntityFingerprint is the key for a CollectionEntityRecord:
// (collection_id, entity_id, entity_definition_id).
type CollectionEntityFingerprint struct {
	CollectionID       string
	EntityID           string
	EntityDefinitionID string
}

// CollectionEntityRecord enables collection-level dedup across multiple
// source connections feeding the same collection. Existence is controlled
// by sync config (Sync.CollectionDedup).
type CollectionEntityRecord struct {
	Fingerprint    CollectionEntityFingerprint
	OrganizationID string
	Hash           string
	// WinningSourceConnectionID is the source connection whose write won
	// the dedup race; any other source connection emitting the same
	// entity_id resolves to Keep and must not re-emit it.
	WinningSourceConnectionID string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}
