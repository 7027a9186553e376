// Package mmongo is the mongo connection hub backing ARF (archival replay
// format) document storage.
package mmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connection is a hub which deals with mongodb connections.
type Connection struct {
	ConnectionStringSource string
	Database               string
	Client                 *mongo.Client
	Connected              bool
}

// Connect keeps a singleton connection with mongodb.
func (mc *Connection) Connect(ctx context.Context) error {
	clientOptions := options.Client().ApplyURI(mc.ConnectionStringSource)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}

	mc.Client = client
	mc.Connected = true

	return nil
}

// GetDatabase returns the mongo database handle, connecting lazily if
// necessary.
func (mc *Connection) GetDatabase(ctx context.Context) (*mongo.Database, error) {
	if mc.Client == nil {
		if err := mc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return mc.Client.Database(mc.Database), nil
}
</content>
