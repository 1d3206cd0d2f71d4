// internal/cache/desk_store.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/redis/go-redis/v9"
)

// DeskStore keeps each room's desk as one JSON value under "desk:<room>". Writes are a
// WATCH/MULTI compare-and-swap on the version embedded in the document.
type DeskStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeskStore returns a store on rdb. A positive ttl expires desks of abandoned rooms.
func NewDeskStore(rdb *redis.Client, ttl time.Duration) *DeskStore {
	return &DeskStore{rdb: rdb, ttl: ttl}
}

func deskKey(room string) string {
	return "desk:" + room
}

func (s *DeskStore) LoadDesk(ctx context.Context, room string) (*game.Desk, error) {
	raw, err := s.rdb.Get(ctx, deskKey(room)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, game.ErrDeskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get desk %s: %w", room, err)
	}
	var d game.Desk
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode desk %s: %w", room, err)
	}
	return &d, nil
}

func (s *DeskStore) SaveDesk(ctx context.Context, d *game.Desk) error {
	key := deskKey(d.Room)
	next := *d
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode desk %s: %w", d.Room, err)
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != d.Version {
			return fmt.Errorf("%w: room %s stored %d, have %d", game.ErrVersionConflict, d.Room, stored, d.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: room %s changed during write", game.ErrVersionConflict, d.Room)
	}
	if err != nil {
		return err
	}
	d.Version = next.Version
	return nil
}

func (s *DeskStore) DeleteDesk(ctx context.Context, room string) error {
	if err := s.rdb.Del(ctx, deskKey(room)).Err(); err != nil {
		return fmt.Errorf("delete desk %s: %w", room, err)
	}
	return nil
}

// storedVersion reads only the version of the watched document; 0 when absent.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, fmt.Errorf("decode desk version: %w", err)
	}
	return head.Version, nil
}
