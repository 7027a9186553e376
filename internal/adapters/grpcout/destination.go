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

// DestinationClient is a handlers.DestinationWriter backed by a gRPC
// vector store service, bound to one sync's destination slot.
type DestinationClient struct {
	conn                  *grpc.ClientConn
	slotID                string
	role                  domain.SyncConnectionRole
	processingRequirement domain.ProcessingRequirement
	upsertMethod          string
	deleteMethod          string
}

// NewDestinationClient returns a client for one destination slot, dialed
// over conn.
func NewDestinationClient(conn *grpc.ClientConn, slotID string, role domain.SyncConnectionRole, requirement domain.ProcessingRequirement) *DestinationClient {
	return &DestinationClient{
		conn:                  conn,
		slotID:                slotID,
		role:                  role,
		processingRequirement: requirement,
		upsertMethod:          "/airweave.destination.v1.VectorStore/Upsert",
		deleteMethod:          "/airweave.destination.v1.VectorStore/Delete",
	}
}

// SlotID satisfies handlers.DestinationWriter.
func (c *DestinationClient) SlotID() string { return c.slotID }

// Role satisfies handlers.DestinationWriter.
func (c *DestinationClient) Role() domain.SyncConnectionRole { return c.role }

// ProcessingRequirement satisfies handlers.DestinationWriter.
func (c *DestinationClient) ProcessingRequirement() domain.ProcessingRequirement {
	return c.processingRequirement
}

// Upsert satisfies handlers.DestinationWriter.
func (c *DestinationClient) Upsert(ctx context.Context, e source.Entity, dense []float32, sparse map[uint32]float32) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "grpcout.destination_client.upsert")
	defer span.End()

	denseValues := make([]any, len(dense))
	for i, v := range dense {
		denseValues[i] = float64(v)
	}

	sparseFields := make(map[string]any, len(sparse))
	for index, v := range sparse {
		sparseFields[fmt.Sprintf("%d", index)] = float64(v)
	}

	req, err := structpb.NewStruct(map[string]any{
		"slot_id":              c.slotID,
		"entity_id":            e.Identity().EntityID,
		"entity_definition_id": e.Identity().EntityDefinitionID,
		"shape":                string(e.Metadata().Shape),
		"dense":                denseValues,
		"sparse":               sparseFields,
	})
	if err != nil {
		return fmt.Errorf("grpcout: build upsert request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, c.upsertMethod, req, resp); err != nil {
		return fmt.Errorf("grpcout: upsert rpc: %w", err)
	}

	return nil
}

// Delete satisfies handlers.DestinationWriter.
func (c *DestinationClient) Delete(ctx context.Context, id source.Identity) error {
	tracer := tracking.NewTracerFromContext(ctx)
	ctx, span := tracer.Start(ctx, "grpcout.destination_client.delete")
	defer span.End()

	req, err := structpb.NewStruct(map[string]any{
		"slot_id":              c.slotID,
		"entity_id":            id.EntityID,
		"entity_definition_id": id.EntityDefinitionID,
	})
	if err != nil {
		return fmt.Errorf("grpcout: build delete request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, c.deleteMethod, req, resp); err != nil {
		return fmt.Errorf("grpcout: delete rpc: %w", err)
	}

	return nil
}
