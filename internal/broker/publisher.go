package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/config"
	"github.com/wazo-platform/wazo-res-stasis-amqp/internal/events"
)

var (
	// ErrNotConfigured means the snapshot names no connection or no
	// exchange; nothing is attempted against the broker.
	ErrNotConfigured = errors.New("amqp connection and exchange are not configured")

	// ErrNoConnection means the named connection is not declared.
	ErrNoConnection = errors.New("amqp connection is not declared")
)

// Publisher serializes envelopes and publishes them. It holds no
// configuration of its own; every Publish receives the snapshot the
// caller is working from, so one event is handled under one
// configuration.
type Publisher struct {
	channels ChannelProvider
}

// NewPublisher creates a publisher drawing channels from provider.
func NewPublisher(provider ChannelProvider) *Publisher {
	return &Publisher{channels: provider}
}

// Publish sends one envelope to the exchange named by cfg under
// routingKey. Messages are persistent, application/json, with a fresh
// message id; delivery is neither mandatory nor immediate, so the
// broker silently drops unroutable messages. Failures are terminal for
// the event, there is no retry or buffering.
func (p *Publisher) Publish(ctx context.Context, cfg *config.Config, env *events.Envelope, headers map[string]string, routingKey string) error {
	connection := cfg.AMQP.Connection
	exchange := cfg.AMQP.Exchange
	if connection == "" || exchange == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to serialize event %q: %w", env.Name, err)
	}

	conn, ok := cfg.AMQP.Connections[connection]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoConnection, connection)
	}

	channel, err := p.channels.Channel(connection, conn.URL)
	if err != nil {
		return err
	}

	var table amqp.Table
	if len(headers) > 0 {
		table = make(amqp.Table, len(headers))
		for key, value := range headers {
			table[key] = value
		}
	}

	err = channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		Headers:      table,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %q to exchange %q: %w", env.Name, exchange, err)
	}
	return nil
}
