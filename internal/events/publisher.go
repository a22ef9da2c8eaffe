package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for ride lifecycle events.
const (
	RideCreated   = "ride.created"
	RideConfirmed = "ride.confirmed"
	RideStarted   = "ride.started"
	RideEnded     = "ride.ended"
)

const (
	exchangeName   = "ride_topic"
	publishTimeout = 2 * time.Second
)

// Publisher emits ride lifecycle events to a topic exchange. Publication is
// best-effort: failures are logged and never propagate to the caller. A nil
// *Publisher is valid and publishes nothing.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher opens a channel on the given connection and declares the
// ride topic exchange.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	return &Publisher{ch: ch}, nil
}

// Publish sends a payload under the given routing key, best-effort.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload interface{}) {
	if p == nil {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[events] marshal %s: %v", routingKey, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		log.Printf("[events] publish %s: %v", routingKey, err)
	}
}

// Close releases the channel.
func (p *Publisher) Close() error {
	if p == nil || p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
