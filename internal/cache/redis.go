// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the process-wide Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the dealer pushes activity entries to.
const DefaultQueueName = "dealer_activities"

// Connect builds a client for addr/db, checks it with a PING and stores it in Rdb.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = rdb
	return rdb, nil
}
