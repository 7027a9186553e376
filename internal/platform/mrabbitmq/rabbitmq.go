// Package mrabbitmq is the rabbitmq connection hub under the webhook
// delivery producer.
package mrabbitmq

import (
	"context"
	"errors"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a hub which deals with rabbitmq connections.
type Connection struct {
	ConnectionStringSource string
	Exchange               string
	conn                   *amqp.Connection
	channel                *amqp.Channel
	Connected              bool
	Logger                 mlog.Logger
}

// Connect keeps a singleton connection and channel open against rabbitmq.
func (rc *Connection) Connect(_ context.Context) error {
	rc.Logger.Info("connecting to rabbitmq...")

	conn, err := amqp.Dial(rc.ConnectionStringSource)
	if err != nil {
		rc.Logger.Errorf("failed to connect to rabbitmq: %v", err)
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		rc.Logger.Errorf("failed to open rabbitmq channel: %v", err)
		return err
	}

	if ch == nil {
		rc.Connected = false
		return errors.New("can't open rabbitmq channel")
	}

	rc.Logger.Info("connected to rabbitmq")

	rc.conn = conn
	rc.channel = ch
	rc.Connected = true

	return nil
}

// GetChannel returns the rabbitmq channel, connecting lazily if necessary.
func (rc *Connection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if !rc.Connected {
		if err := rc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return rc.channel, nil
}

// Close tears down the channel and connection.
func (rc *Connection) Close() error {
	if rc.channel != nil {
		_ = rc.channel.Close()
	}

	if rc.conn != nil {
		return rc.conn.Close()
	}

	return nil
}
</content>
