package broker

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the slice of an AMQP channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// Connection is the slice of an AMQP connection the registry needs.
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection for a URL. The default dialer wraps
// amqp091.Dial; tests substitute their own.
type Dialer func(url string) (Connection, error)

// ChannelProvider hands out a ready-to-publish channel for a named
// connection. Implemented by ConnectionRegistry and mocked in tests.
type ChannelProvider interface {
	Channel(name, url string) (Channel, error)
}

// amqpConnection adapts amqp091.Connection to the Connection interface.
type amqpConnection struct {
	conn *amqp.Connection
}

func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *amqpConnection) IsClosed() bool {
	return c.conn.IsClosed()
}

func (c *amqpConnection) Close() error {
	return c.conn.Close()
}

// DefaultDialer connects with amqp091.Dial.
func DefaultDialer(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}
