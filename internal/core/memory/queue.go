package memory

import (
	"context"
	"sync"

	"go-loom/internal/domain"
)

// Queue is a channel-backed ports.ExecutionQueue for single-process runs.
type Queue struct {
	items chan string
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &Queue{items: make(chan string, capacity)}
}

func (q *Queue) Push(ctx context.Context, executionID string) error {
	select {
	case q.items <- executionID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Pop(ctx context.Context) (string, error) {
	select {
	case id := <-q.items:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Bus is an in-process ports.EventBus fanning events out to every
// subscriber. Slow subscribers drop events rather than block publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan domain.ExecutionEvent
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Publish(ctx context.Context, event domain.ExecutionEvent) error {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.ExecutionEvent, error) {
	ch := make(chan domain.ExecutionEvent, 64)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch, nil
}
