package mmodel

import "time"

// Sync is a struct designed to encapsulate response payload data. Cursor
// and the destination slot graph are internal wiring and are not exposed
// here; callers see the source connection and collection it belongs to.
type Sync struct {
	ID                 string    `json:"id"`
	OrganizationID      string    `json:"organizationId"`
	CollectionID        string    `json:"collectionId"`
	SourceConnectionID  string    `json:"sourceConnectionId"`
	MeterEntities       bool      `json:"meterEntities"`
	SkipHashComparison  bool      `json:"skipHashComparison"`
	CollectionDedup     bool      `json:"collectionDedup"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
