package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

var _ ports.TransitionEventPublisher = (*RabbitMQBroker)(nil)

func (rmq *RabbitMQBroker) PublishTransition(ctx context.Context, evt ports.TransitionEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encode transition event")
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= 0 {
		return ctx.Err()
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		return nil, rmq.ch.PublishWithContext(
			ctx,
			"",            // default exchange
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.RecordID + ":" + string(evt.To),
				Type:         string(evt.Kind) + "." + string(evt.To),
				Timestamp:    evt.At,
				Body:         body,
			},
		)
	})
	return errors.Wrapf(err, "publish transition of %s/%s", evt.Kind, evt.RecordID)
}
