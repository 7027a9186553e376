// Package grpcout holds thin gRPC clients for the two out-of-scope
// services the orchestrator calls during the destination handler's
// apply step: the embedding model and a destination's vector store.
// Both are modeled as opaque structpb.Struct request/response payloads
// rather than generated stubs, since the services themselves (and their
// .proto contracts) live outside this module.
package grpcout

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/domain"
	"github.com/airweave-ai/ingestion-core/internal/platform/tracking"
	"github.com/airweave-ai/ingestion-core/internal/source"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// EmbeddingClient is a handlers.Embedder backed by a gRPC embedding
// service.
type EmbeddingClient struct {
	conn   *grpc.ClientConn
	method string
}

// NewEmbeddingClient returns a client invoking method over conn.
func NewEmbeddingClient(conn *grpc.ClientConn) *EmbeddingClient {
	return &EmbeddingClient{conn: conn, method: "/airweave.embedding.v1.Embedder/Embed"}
}

// Embed satisfies handlers.Embedder.
func (c *EmbeddingClient) Embed(ctx context.Context, e source.Entity, requirement domain.ProcessingRequirement) ([]float32, map[uint32]float32, error) {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "grpcout.embedding_client.embed")
	defer span.End()

	text := embeddableText(e)

	req, err := structpb.NewStruct(map[string]any{
		"entity_id":             e.Identity().EntityID,
		"entity_definition_id":  e.Identity().EntityDefinitionID,
		"processing_requirement": string(requirement),
		"text":                  text,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("grpcout: build embed request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, c.method, req, resp); err != nil {
		return nil, nil, fmt.Errorf("grpcout: embed rpc: %w", err)
	}

	dense, err := denseFromStruct(resp)
	if err != nil {
		return nil, nil, err
	}

	sparse, err := sparseFromStruct(resp)
	if err != nil {
		return nil, nil, err
	}

	return dense, sparse, nil
}

// embeddableText extracts the text content a shape contributes to
// embedding. Shapes with no text (deletions) embed nothing.
func embeddableText(e source.Entity) string {
	switch v := e.(type) {
	case source.ChunkEntity:
		return v.Text
	case source.WebEntity:
		return v.HTML
	case source.CodeEntity:
		return v.Content
	case source.EmailEntity:
		return v.Subject + "\n" + v.Body
	default:
		return ""
	}
}

func denseFromStruct(resp *structpb.Struct) ([]float32, error) {
	list, ok := resp.Fields["dense"]
	if !ok {
		return nil, nil
	}
	values := list.GetListValue().GetValues()
	dense := make([]float32, len(values))
	for i, v := range values {
		dense[i] = float32(v.GetNumberValue())
	}
	return dense, nil
}

func sparseFromStruct(resp *structpb.Struct) (map[uint32]float32, error) {
	field, ok := resp.Fields["sparse"]
	if !ok {
		return nil, nil
	}

	fields := field.GetStructValue().GetFields()
	sparse := make(map[uint32]float32, len(fields))
	for key, v := range fields {
		var index uint32
		if _, err := fmt.Sscanf(key, "%d", &index); err != nil {
			return nil, fmt.Errorf("grpcout: decode sparse index %q: %w", key, err)
		}
		sparse[index] = float32(v.GetNumberValue())
	}

	return sparse, nil
}
