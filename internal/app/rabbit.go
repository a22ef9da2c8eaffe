package app

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ridedispatch/internal/config"
)

// NewAMQPConnection dials the message broker. Callers own closing the
// connection.
func NewAMQPConnection(cfg config.AMQPConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	return conn, nil
}
