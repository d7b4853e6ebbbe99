package messaging

import (
	"context"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
)

// ErrConnectionClosed is reported by Ping once the broker connection drops.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// AMQPChannel is the part of *amqp.Channel the broker publishes through.
type AMQPChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQBroker publishes record transitions to a durable queue through
// the default exchange.
type RabbitMQBroker struct {
	conn      *amqp.Connection
	ch        AMQPChannel
	queueName string
	cb        *gobreaker.CircuitBreaker
}

func NewRabbitMQBroker(amqpURL, queueName string) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := openQueue(conn, queueName)
	if err != nil {
		conn.Close()
		return nil, err
	}

	broker := NewRabbitMQBrokerWithChannel(ch, queueName)
	broker.conn = conn
	return broker, nil
}

// NewRabbitMQBrokerWithChannel publishes through an already open channel.
func NewRabbitMQBrokerWithChannel(ch AMQPChannel, queueName string) *RabbitMQBroker {
	return &RabbitMQBroker{
		ch:        ch,
		queueName: queueName,
		cb:        config.NewCircuitBreaker("RabbitMQ-Publisher"),
	}
}

// openQueue opens a channel and declares the durable queue on it. Declaring
// is idempotent, so consumers may have created it first.
func openQueue(conn *amqp.Connection, queueName string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queueName)
	}
	return ch, nil
}

// Ping fails once the underlying connection is closed. Brokers built from a
// bare channel have no connection to watch.
func (rmq *RabbitMQBroker) Ping(context.Context) error {
	if rmq.conn != nil && rmq.conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

func (rmq *RabbitMQBroker) Close() error {
	var chErr error
	if rmq.ch != nil {
		chErr = rmq.ch.Close()
	}
	if rmq.conn != nil {
		if err := rmq.conn.Close(); err != nil {
			return err
		}
	}
	return chErr
}
