// Package mongodb stores the archival replay format (ARF): a durable,
// compact copy of every entity a sync has ever written, keyed by
// (sync_id, entity_id, entity_definition_id), used to fork a new
// destination slot without recontacting the original third-party source.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/mmongo"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/internal/source"

	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArfRepository is the Mongo-backed handlers.ArfStore and
// destination.ArfReader.
type ArfRepository struct {
	connection     *mmongo.Connection
	collectionName string
}

// NewArfRepository returns a repository backed by conn.
func NewArfRepository(conn *mmongo.Connection) *ArfRepository {
	return &ArfRepository{connection: conn, collectionName: "arf_entities"}
}

// arfDocument is the Mongo-persisted envelope for one replayable entity.
// Payload is the msgpack encoding of the concrete entity shape named by
// Shape, kept opaque to Mongo so replay pays no JSON decode cost.
type arfDocument struct {
	SyncID             string     `bson:"sync_id"`
	EntityID           string     `bson:"entity_id"`
	EntityDefinitionID string     `bson:"entity_definition_id"`
	CollectionID       string     `bson:"collection_id"`
	Shape              string     `bson:"shape"`
	Payload            []byte     `bson:"payload"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

func (r *ArfRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.connection.GetDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("arf: get database: %w", err)
	}
	return db.Collection(r.collectionName), nil
}

// Put upserts e's archival copy, satisfying handlers.ArfStore.
func (r *ArfRepository) Put(ctx context.Context, fp domain.EntityFingerprint, e source.Entity) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "mongodb.arf.put")
	defer span.End()

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	payload, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("arf: encode payload: %w", err)
	}

	now := time.Now()
	filter := bson.D{
		{Key: "sync_id", Value: fp.SyncID},
		{Key: "entity_id", Value: fp.EntityID},
		{Key: "entity_definition_id", Value: fp.EntityDefinitionID},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "collection_id", Value: e.Metadata().CollectionID},
			{Key: "shape", Value: string(e.Metadata().Shape)},
			{Key: "payload", Value: payload},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}

	if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("arf: upsert: %w", err)
	}

	return nil
}

// Delete removes fp's archival copy, satisfying handlers.ArfStore.
func (r *ArfRepository) Delete(ctx context.Context, fp domain.EntityFingerprint) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "mongodb.arf.delete")
	defer span.End()

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	filter := bson.D{
		{Key: "sync_id", Value: fp.SyncID},
		{Key: "entity_id", Value: fp.EntityID},
		{Key: "entity_definition_id", Value: fp.EntityDefinitionID},
	}

	if _, err := coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("arf: delete: %w", err)
	}

	return nil
}

// Page satisfies destination.ArfReader, returning up to limit archived
// entities for syncID ordered by entity_id, resuming after
// afterFingerprint.
func (r *ArfRepository) Page(ctx context.Context, syncID string, afterFingerprint string, limit int) ([]source.Entity, string, bool, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "mongodb.arf.page")
	defer span.End()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, "", false, err
	}

	filter := bson.D{{Key: "sync_id", Value: syncID}}
	if afterFingerprint != "" {
		filter = append(filter, bson.E{Key: "entity_id", Value: bson.D{{Key: "$gt", Value: afterFingerprint}}})
	}

	// Fetch one extra row to know whether more pages remain without a
	// separate count query.
	opts := options.Find().SetSort(bson.D{{Key: "entity_id", Value: 1}}).SetLimit(int64(limit) + 1)

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", false, fmt.Errorf("arf: find page: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []arfDocument
	for cursor.Next(ctx) {
		var doc arfDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, "", false, fmt.Errorf("arf: decode page doc: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, "", false, fmt.Errorf("arf: iterate page: %w", err)
	}

	more := len(docs) > limit
	if more {
		docs = docs[:limit]
	}

	entities := make([]source.Entity, 0, len(docs))
	var last string
	for _, doc := range docs {
		e, err := decodeEntity(doc)
		if err != nil {
			return nil, "", false, err
		}
		entities = append(entities, e)
		last = doc.EntityID
	}

	return entities, last, more, nil
}

func decodeEntity(doc arfDocument) (source.Entity, error) {
	shape := source.Shape(doc.Shape)

	base := source.Base{
		ID:   source.Identity{EntityID: doc.EntityID, EntityDefinitionID: doc.EntityDefinitionID},
		Meta: source.SystemMetadata{SyncID: doc.SyncID, CollectionID: doc.CollectionID, Shape: shape},
	}

	switch shape {
	case source.ShapeChunk:
		var e source.ChunkEntity
		if err := msgpack.Unmarshal(doc.Payload, &e); err != nil {
			return nil, fmt.Errorf("arf: decode chunk entity: %w", err)
		}
		e.Base = mergeBase(e.Base, base)
		return e, nil
	case source.ShapeFile:
		var e source.FileEntity
		if err := msgpack.Unmarshal(doc.Payload, &e); err != nil {
			return nil, fmt.Errorf("arf: decode file entity: %w", err)
		}
		e.Base = mergeBase(e.Base, base)
		return e, nil
	case source.ShapeWeb:
		var e source.WebEntity
		if err := msgpack.Unmarshal(doc.Payload, &e); err != nil {
			return nil, fmt.Errorf("arf: decode web entity: %w", err)
		}
		e.Base = mergeBase(e.Base, base)
		return e, nil
	case source.ShapeCode:
		var e source.CodeEntity
		if err := msgpack.Unmarshal(doc.Payload, &e); err != nil {
			return nil, fmt.Errorf("arf: decode code entity: %w", err)
		}
		e.Base = mergeBase(e.Base, base)
		return e, nil
	case source.ShapeEmail:
		var e source.EmailEntity
		if err := msgpack.Unmarshal(doc.Payload, &e); err != nil {
			return nil, fmt.Errorf("arf: decode email entity: %w", err)
		}
		e.Base = mergeBase(e.Base, base)
		return e, nil
	default:
		return nil, fmt.Errorf("arf: unknown entity shape %q", doc.Shape)
	}
}

// mergeBase keeps the decoded payload's HashSum/Created/Updated fields
// (the msgpack-encoded Base is part of the payload) but prefers the
// document's identity/metadata, which are the source of truth for
// replay ordering.
func mergeBase(decoded, fromDoc source.Base) source.Base {
	decoded.ID = fromDoc.ID
	decoded.Meta = fromDoc.Meta
	return decoded
}
