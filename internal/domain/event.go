package domain

import "time"

// DomainEvent is the interface every published event satisfies: the three
// fields the event bus requires for routing (event_type drives webhook
// channel routing) plus a JSON-safe wire serializer. Concrete event types
// add domain fields but the bus only ever depends on this interface.
//
// Grounded on the "event_type / timestamp / organization_id" base fields
// and the to_webhook_payload serializer idiom.
type DomainEvent interface {
	EventType() string
	Timestamp() time.Time
	OrganizationID() string
	// ToWebhookPayload returns a JSON-safe map carrying the full event
	// payload unchanged, for webhook subscribers.
	ToWebhookPayload() map[string]any
}

type baseEvent struct {
	Type string
	At   time.Time
	OrgID string
}

func newBaseEvent(eventType, orgID string) baseEvent {
	return baseEvent{Type: eventType, At: time.Now().UTC(), OrgID: orgID}
}

func (b baseEvent) EventType() string       { return b.Type }
func (b baseEvent) Timestamp() time.Time    { return b.At }
func (b baseEvent) OrganizationID() string  { return b.OrgID }

// Organization lifecycle event types.
const (
	EventOrganizationCreated          = "organization.created"
	EventOrganizationDeleted          = "organization.deleted"
	EventOrganizationMembershipAdded  = "organization.membership_added"
	EventOrganizationMembershipRemoved = "organization.membership_removed"
)

// OrganizationEvent is published on organization lifecycle changes.
type OrganizationEvent struct {
	baseEvent
	OrganizationName    string
	OwnerEmail          string
	AffectedUserEmails  []string
	Plan                string
}

// NewOrganizationEvent constructs an OrganizationEvent of the given type.
func NewOrganizationEvent(eventType, orgID, orgName string) OrganizationEvent {
	return OrganizationEvent{
		baseEvent:        newBaseEvent(eventType, orgID),
		OrganizationName: orgName,
	}
}

func (e OrganizationEvent) ToWebhookPayload() map[string]any {
	return map[string]any{
		"event_type":           e.Type,
		"timestamp":            e.At,
		"organization_id":      e.OrgID,
		"organization_name":    e.OrganizationName,
		"owner_email":          e.OwnerEmail,
		"affected_user_emails": e.AffectedUserEmails,
		"plan":                 e.Plan,
	}
}

// Collection lifecycle event types.
const (
	EventCollectionCreated = "collection.created"
	EventCollectionDeleted = "collection.deleted"
)

// CollectionEvent is published on collection lifecycle changes.
type CollectionEvent struct {
	baseEvent
	CollectionID string
	ReadableID   string
}

func NewCollectionEvent(eventType, orgID, collectionID, readableID string) CollectionEvent {
	return CollectionEvent{
		baseEvent:    newBaseEvent(eventType, orgID),
		CollectionID: collectionID,
		ReadableID:   readableID,
	}
}

func (e CollectionEvent) ToWebhookPayload() map[string]any {
	return map[string]any{
		"event_type":      e.Type,
		"timestamp":       e.At,
		"organization_id": e.OrgID,
		"collection_id":   e.CollectionID,
		"readable_id":     e.ReadableID,
	}
}

// Source connection lifecycle event types.
const (
	EventSourceConnectionCreated = "source_connection.created"
	EventSourceConnectionDeleted = "source_connection.deleted"
)

// SourceConnectionEvent is published on source connection lifecycle
// changes.
type SourceConnectionEvent struct {
	baseEvent
	SourceConnectionID string
	SourceKind         string
}

func NewSourceConnectionEvent(eventType, orgID, connID, sourceKind string) SourceConnectionEvent {
	return SourceConnectionEvent{
		baseEvent:          newBaseEvent(eventType, orgID),
		SourceConnectionID: connID,
		SourceKind:         sourceKind,
	}
}

func (e SourceConnectionEvent) ToWebhookPayload() map[string]any {
	return map[string]any{
		"event_type":           e.Type,
		"timestamp":            e.At,
		"organization_id":      e.OrgID,
		"source_connection_id": e.SourceConnectionID,
		"source_kind":          e.SourceKind,
	}
}

// Sync lifecycle event types.
const (
	EventSyncStarted   = "sync.started"
	EventSyncCompleted = "sync.completed"
	EventSyncFailed    = "sync.failed"
	EventSyncCancelled = "sync.cancelled"
)

// SyncEvent is published at sync job lifecycle boundaries.
type SyncEvent struct {
	baseEvent
	SyncID       string
	SyncJobID    string
	ErrorKind    string
	ErrorMessage string
}

func NewSyncEvent(eventType, orgID, syncID, jobID string) SyncEvent {
	return SyncEvent{
		baseEvent: newBaseEvent(eventType, orgID),
		SyncID:    syncID,
		SyncJobID: jobID,
	}
}

func (e SyncEvent) ToWebhookPayload() map[string]any {
	payload := map[string]any{
		"event_type":      e.Type,
		"timestamp":       e.At,
		"organization_id": e.OrgID,
		"sync_id":         e.SyncID,
		"sync_job_id":     e.SyncJobID,
	}
	if e.ErrorKind != "" {
		payload["error_kind"] = e.ErrorKind
		payload["error_message"] = e.ErrorMessage
	}
	return payload
}

// EventEntityBatchProcessed is the sole entity.* event type. It carries
// the per-batch counts driving billing and progress.
const EventEntityBatchProcessed = "entity.batch_processed"

// EntityBatchProcessedEvent is published once per resolved batch.
type EntityBatchProcessedEvent struct {
	baseEvent
	SyncID    string
	SyncJobID string
	Inserted  int64
	Updated   int64
	Deleted   int64
	Kept      int64
	Skipped   int64
	// Billable mirrors the sync config's meter_entities flag (default
	// true); replay runs set it false so replayed entities are never
	// double-billed.
	Billable bool
}

func (e EntityBatchProcessedEvent) ToWebhookPayload() map[string]any {
	return map[string]any{
		"event_type":      e.Type,
		"timestamp":       e.At,
		"organization_id": e.OrgID,
		"sync_id":         e.SyncID,
		"sync_job_id":     e.SyncJobID,
		"inserted":        e.Inserted,
		"updated":         e.Updated,
		"deleted":         e.Deleted,
		"kept":            e.Kept,
		"skipped":         e.Skipped,
		"billable":        e.Billable,
	}
}

// NewEntityBatchProcessedEvent constructs the batch-processed event.
func NewEntityBatchProcessedEvent(orgID, syncID, jobID string, stats JobStats, billable bool) EntityBatchProcessedEvent {
	sum := func(m map[string]int64) int64 {
		var total int64
		for _, v := range m {
			total += v
		}
		return total
	}
	return EntityBatchProcessedEvent{
		baseEvent: newBaseEvent(EventEntityBatchProcessed, orgID),
		SyncID:    syncID,
		SyncJobID: jobID,
		Inserted:  sum(stats.Inserted),
		Updated:   sum(stats.Updated),
		Deleted:   sum(stats.Deleted),
		Kept:      sum(stats.Kept),
		Skipped:   sum(stats.Skipped),
		Billable:  billable,
	}
}
