package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ExecutionQueue is the redis-backed admission queue: Execute pushes
// execution ids, pool workers block on Pop.
type ExecutionQueue struct {
	client    *redis.Client
	queueName string
}

func NewExecutionQueue(client *redis.Client) *ExecutionQueue {
	return &ExecutionQueue{
		client:    client,
		queueName: "loom:executions:pending",
	}
}

func (q *ExecutionQueue) Push(ctx context.Context, executionID string) error {
	return q.client.RPush(ctx, q.queueName, executionID).Err()
}

// Pop blocks until an execution id is available.
func (q *ExecutionQueue) Pop(ctx context.Context) (string, error) {
	// 0 means wait until an item appears
	result, err := q.client.BLPop(ctx, 0*time.Second, q.queueName).Result()
	if err != nil {
		return "", err
	}
	// BLPop returns [queue name, element]
	return result[1], nil
}
