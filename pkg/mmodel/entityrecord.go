package mmodel

import "time"

// EntityRecord is a struct designed to encapsulate response payload data
// for the per-sync entity ledger used to debug resolver decisions.
type EntityRecord struct {
	SyncID             string    `json:"syncId"`
	EntityID           string    `json:"entityId"`
	EntityDefinitionID string    `json:"entityDefinitionId"`
	Hash               string    `json:"hash"`
	LastSeenJobID      string    `json:"lastSeenJobId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type EntityRecords struct {
	Items []EntityRecord `json:"items"`
}
