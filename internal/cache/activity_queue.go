// internal/cache/activity_queue.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/redis/go-redis/v9"
)

// ActivityQueue pushes activity entries onto a Redis list for the historian to persist.
type ActivityQueue struct {
	rdb   *redis.Client
	queue string
}

// NewActivityQueue returns a queue on rdb. An empty name uses DefaultQueueName.
func NewActivityQueue(rdb *redis.Client, name string) *ActivityQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &ActivityQueue{rdb: rdb, queue: name}
}

// Name returns the list key.
func (q *ActivityQueue) Name() string { return q.queue }

// AppendActivities serializes the entries and RPUSHes them in one round trip, keeping their order.
// This does not block the calling logic (other than a quick network send).
func (q *ActivityQueue) AppendActivities(ctx context.Context, acts ...models.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(acts))
	for _, a := range acts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal activity: %w", err)
		}
		values = append(values, data)
	}
	if err := q.rdb.RPush(ctx, q.queue, values...).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}
