package mmodel

import "time"

// CreateSourceConnectionInput is the request payload for provisioning a
// new source connection. Credential exchange itself happens through the
// (out-of-scope) OAuth broker; this input only kicks off that redirect.
type CreateSourceConnectionInput struct {
	CollectionID string         `json:"collectionId" validate:"required,uuid"`
	SourceKind   string         `json:"sourceKind" validate:"required,max=128"`
	Metadata     map[string]any `json:"metadata" validate:"dive,keys,keymax=100,endkeys,nonested,valuemax=2000"`
}

// SourceConnection is the response payload for a provisioned source
// connection.
type SourceConnection struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collectionId"`
	SourceKind   string    `json:"sourceKind"`
	SyncID       string    `json:"syncId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SourceConnectionAuthorizationPending is returned 202 from creation: the
// caller must complete the redirect at AuthorizationURL before the
// connection becomes usable.
type SourceConnectionAuthorizationPending struct {
	SourceConnectionID string `json:"sourceConnectionId"`
	AuthorizationURL   string `json:"authorizationUrl"`
}
