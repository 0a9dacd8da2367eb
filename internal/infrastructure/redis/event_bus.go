package redis

import (
	"context"
	"encoding/json"

	"go-loom/internal/domain"

	"github.com/redis/go-redis/v9"
)

// EventBus broadcasts execution lifecycle events over redis pub/sub.
type EventBus struct {
	client  *redis.Client
	channel string
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{
		client:  client,
		channel: "loom:events:executions",
	}
}

func (b *EventBus) Publish(ctx context.Context, event domain.ExecutionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe opens a continuous stream of execution events. The returned
// channel closes when ctx is done.
func (b *EventBus) Subscribe(ctx context.Context) (<-chan domain.ExecutionEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	events := make(chan domain.ExecutionEvent)
	go func() {
		defer close(events)
		defer pubsub.Close()
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			var event domain.ExecutionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
