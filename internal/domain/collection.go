package domain

import "time"

// EmbeddingConfig names the embedding model and vector dimensionality a
// collection was created with. VectorSize is immutable after the first
// entity is written to the collection.
type EmbeddingConfig struct {
	Model      string
	VectorSize int
}

// Collection is a logical grouping of source connections under one
// organization, identified by a human-readable id.
type Collection struct {
	ID             string
	OrganizationID string
	ReadableID     string
	Name           string
	Embedding      EmbeddingConfig
	// FirstEntityWrittenAt is non-nil once any entity has landed in this
	// collection; Embedding.VectorSize becomes immutable from that point.
	FirstEntityWrittenAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// VectorSizeLocked reports whether the collection's vector size can no
// longer be changed.
func (c Collection) VectorSizeLocked() bool {
	return c.FirstEntityWrittenAt != nil
}
