package resolver

import (
	"testing"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordStore struct {
	records map[domain.EntityFingerprint]struct {
		hash          string
		lastSeenJobID string
	}
	winners map[string]string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{
		records: map[domain.EntityFingerprint]struct {
			hash          string
			lastSeenJobID string
		}{},
		winners: map[string]string{},
	}
}

func (f *fakeRecordStore) put(fp domain.EntityFingerprint, hash, jobID string) {
	f.records[fp] = struct {
		hash          string
		lastSeenJobID string
	}{hash, jobID}
}

func (f *fakeRecordStore) Lookup(fp domain.EntityFingerprint) (string, string, bool) {
	r, ok := f.records[fp]
	return r.hash, r.lastSeenJobID, ok
}

func (f *fakeRecordStore) WinningSourceConnection(entityID string) string {
	return f.winners[entityID]
}

func chunkEntity(entityID, hash string) source.ChunkEntity {
	return source.ChunkEntity{
		Base: source.Base{
			ID:      source.Identity{EntityID: entityID, EntityDefinitionID: "def"},
			HashSum: hash,
			Meta:    source.SystemMetadata{Shape: source.ShapeChunk},
		},
	}
}

func deletionEntity(entityID string) source.DeletionEntity {
	return source.DeletionEntity{
		ID:   source.Identity{EntityID: entityID, EntityDefinitionID: "def"},
		Meta: source.SystemMetadata{Shape: source.ShapeDeletion, Deleted: true},
	}
}

// TestResolve_S4 grounds scenario S4: stored {A:h1, B:h2}, incoming
// [A:h1, B:h3, C:h4, DeleteMarker(D)] resolves to [Keep(A), Update(B),
// Insert(C)] with D dropped silently.
func TestResolve_S4(t *testing.T) {
	store := newFakeRecordStore()
	store.put(domain.EntityFingerprint{SyncID: "sync-1", EntityID: "A", EntityDefinitionID: "def"}, "h1", "job-0")
	store.put(domain.EntityFingerprint{SyncID: "sync-1", EntityID: "B", EntityDefinitionID: "def"}, "h2", "job-0")

	batch, err := Resolve([]source.Entity{
		chunkEntity("A", "h1"),
		chunkEntity("B", "h3"),
		chunkEntity("C", "h4"),
		deletionEntity("D"),
	}, store, Options{SyncID: "sync-1"})

	require.NoError(t, err)
	require.Len(t, batch.Actions, 3)
	assert.Equal(t, ActionKeep, batch.Actions[0].Kind)
	assert.Equal(t, "A", batch.Actions[0].Fingerprint.EntityID)
	assert.Equal(t, ActionUpdate, batch.Actions[1].Kind)
	assert.Equal(t, "B", batch.Actions[1].Fingerprint.EntityID)
	assert.Equal(t, ActionInsert, batch.Actions[2].Kind)
	assert.Equal(t, "C", batch.Actions[2].Fingerprint.EntityID)
}

// TestResolve_Invariant4_RoundTrip grounds invariant 4: resolving the same
// batch twice without intervening writes yields an all-Keep batch the
// second time.
func TestResolve_Invariant4_RoundTrip(t *testing.T) {
	store := newFakeRecordStore()
	entities := []source.Entity{chunkEntity("A", "h1"), chunkEntity("B", "h2")}

	first, err := Resolve(entities, store, Options{SyncID: "sync-1"})
	require.NoError(t, err)
	for _, a := range first.Actions {
		store.put(a.Fingerprint, a.Entity.Hash(), "job-1")
	}

	second, err := Resolve(entities, store, Options{SyncID: "sync-1"})
	require.NoError(t, err)
	require.Len(t, second.Actions, 2)
	for _, a := range second.Actions {
		assert.Equal(t, ActionKeep, a.Kind)
	}
}

func TestResolve_DeletionMarker_AbsentRecord_IsDropped(t *testing.T) {
	store := newFakeRecordStore()
	batch, err := Resolve([]source.Entity{deletionEntity("Z")}, store, Options{SyncID: "sync-1"})
	require.NoError(t, err)
	assert.Empty(t, batch.Actions)
}

func TestResolve_SkipHashComparison_IgnoresHash(t *testing.T) {
	store := newFakeRecordStore()
	store.put(domain.EntityFingerprint{SyncID: "sync-1", EntityID: "A", EntityDefinitionID: "def"}, "stale-hash", "job-0")

	batch, err := Resolve([]source.Entity{chunkEntity("A", "new-hash")}, store, Options{
		SyncID:             "sync-1",
		SkipHashComparison: true,
	})

	require.NoError(t, err)
	require.Len(t, batch.Actions, 1)
	assert.Equal(t, ActionUpdate, batch.Actions[0].Kind)
}

func TestResolve_CollectionDedup_LosingConnectionResolvesToKeep(t *testing.T) {
	store := newFakeRecordStore()
	store.winners["A"] = "conn-1"

	batch, err := Resolve([]source.Entity{chunkEntity("A", "h1")}, store, Options{
		SyncID:              "sync-1",
		CollectionDedup:     true,
		SourceConnectionID:  "conn-2",
	})

	require.NoError(t, err)
	require.Len(t, batch.Actions, 1)
	assert.Equal(t, ActionKeep, batch.Actions[0].Kind)
}

func TestResolve_MalformedEntity_FailsBatch(t *testing.T) {
	store := newFakeRecordStore()
	bad := source.ChunkEntity{Base: source.Base{ID: source.Identity{EntityID: "", EntityDefinitionID: "def"}}}

	_, err := Resolve([]source.Entity{bad}, store, Options{SyncID: "sync-1"})
	require.Error(t, err)
	assert.IsType(t, ErrMalformedEntity{}, err)
}

// TestResolveOrphans_S5 grounds scenario S5: full sync stored {A,B,C},
// source yields [A,B]; after the batch completes orphan detection emits
// Delete(C). Incremental syncs must not call ResolveOrphans at all.
func TestResolveOrphans_S5(t *testing.T) {
	stored := []OrphanRecord{
		{Fingerprint: domain.EntityFingerprint{EntityID: "A"}, LastSeenJobID: "job-2"},
		{Fingerprint: domain.EntityFingerprint{EntityID: "B"}, LastSeenJobID: "job-2"},
		{Fingerprint: domain.EntityFingerprint{EntityID: "C"}, LastSeenJobID: "job-1"},
	}

	batch := ResolveOrphans(stored, "job-2")

	require.Len(t, batch.Actions, 1)
	assert.Equal(t, ActionDelete, batch.Actions[0].Kind)
	assert.Equal(t, "C", batch.Actions[0].Fingerprint.EntityID)
}

func TestResolve_Timestamps(t *testing.T) {
	e := chunkEntity("A", "h1")
	assert.True(t, e.CreatedAt().Before(time.Now().Add(time.Hour)))
}
