package feed

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const (
	redisChannel             = "hostel:record-changes"
	redisHealthCheckInterval = 5 * time.Second
)

// RedisFeed carries change events over Redis Pub/Sub.
type RedisFeed struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

var _ ports.ChangeFeed = (*RedisFeed)(nil)

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		cb:     config.NewCircuitBreaker("Redis-Feed"),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, evt domain.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encode change event")
	}
	_, err = f.cb.Execute(func() (interface{}, error) {
		return nil, f.client.Publish(ctx, redisChannel, payload).Err()
	})
	return errors.Wrap(err, "publish change")
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	pubsub := f.client.Subscribe(ctx, redisChannel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrapf(err, "subscribe to %s", redisChannel)
	}
	log.Printf("change feed: subscribed to redis channel '%s'", redisChannel)

	msgs := pubsub.ChannelWithSubscriptions(redis.WithChannelHealthCheckInterval(redisHealthCheckInterval))
	out := make(chan domain.ChangeEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				for _, evt := range decodeRedisMessage(msg) {
					forward(ctx, out, evt)
				}
			}
		}
	}()
	return out, nil
}

// decodeRedisMessage turns one Pub/Sub delivery into change events. The
// initial confirmation is consumed by Subscribe, so any later one means
// go-redis reconnected and messages sent meanwhile are gone: every view
// refreshes.
func decodeRedisMessage(msg interface{}) []domain.ChangeEvent {
	switch m := msg.(type) {
	case *redis.Subscription:
		if m.Kind != "subscribe" {
			return nil
		}
		log.Printf("change feed: resubscribed to '%s', refreshing all views", m.Channel)
		return refreshAll()
	case *redis.Message:
		var evt domain.ChangeEvent
		if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
			log.Printf("change feed: dropping malformed message: %v", err)
			return nil
		}
		return []domain.ChangeEvent{evt}
	default:
		return nil
	}
}
