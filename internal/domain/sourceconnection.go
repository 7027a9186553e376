package domain

import "time"

// SourceConnection binds a source kind and its credentials to a
// collection. Owns exactly one Sync.
type SourceConnection struct {
	ID             string
	OrganizationID string
	CollectionID   string
	SourceKind     string
	CredentialID   string
	SyncID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SyncConnectionRole distinguishes a Sync's source slot (role is empty)
// from its destination slots.
type SyncConnectionRole string

const (
	// SyncConnectionRoleSource marks the sync's single source slot.
	SyncConnectionRoleSource   SyncConnectionRole = ""
	SyncConnectionRoleActive  SyncConnectionRole = "active"
	SyncConnectionRoleShadow  SyncConnectionRole = "shadow"
	SyncConnectionRoleDeprecated SyncConnectionRole = "deprecated"
)

// ProcessingRequirement names the chunker/embedder pipeline a destination
// slot requires.
type ProcessingRequirement string

const (
	ProcessingChunksAndEmbeddings          ProcessingRequirement = "chunks_and_embeddings"
	ProcessingChunksAndEmbeddingsDenseOnly ProcessingRequirement = "chunks_and_embeddings_dense_only"
	ProcessingTextOnly                     ProcessingRequirement = "text_only"
	ProcessingRaw                          ProcessingRequirement = "raw"
)

// SyncConnection is one slot on a Sync: the single source slot, or one of
// possibly several destination slots.
type SyncConnection struct {
	ID                     string
	SyncID                 string
	Role                   SyncConnectionRole
	DestinationKind        string
	ProcessingRequirement  ProcessingRequirement
	CreatedAt              time.Time
}

// IsDestination reports whether this slot is a destination slot (as
// opposed to the sync's source slot).
func (s SyncConnection) IsDestination() bool {
	return s.Role != SyncConnectionRoleSource
}

// IsWritable reports whether writes should be sent to this slot:
// active and shadow destination roles both receive writes, deprecated
// slots do not.
func (s SyncConnection) IsWritable() bool {
	return s.Role == SyncConnectionRoleActive || s.Role == SyncConnectionRoleShadow
}
