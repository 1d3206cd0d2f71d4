// internal/database/activity.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/unodealer/internal/models"
)

// ActivityStore is the Postgres side of the audit log. Entries are idempotent on their id so a
// batch replayed by the historian does not duplicate rows.
type ActivityStore struct {
	pool *pgxpool.Pool
}

func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// AppendActivities inserts acts in one transaction using a batch.
func (s *ActivityStore) AppendActivities(ctx context.Context, acts ...models.Activity) error {
	if len(acts) == 0 {
		return nil
	}
	q := `
		INSERT INTO activities (id, room_code, seq, player_code, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, a := range acts {
		var payload []byte
		if a.Payload != nil {
			var err error
			if payload, err = json.Marshal(a.Payload); err != nil {
				return fmt.Errorf("encode payload of activity %s: %w", a.ID, err)
			}
		}
		batch.Queue(q, a.ID, a.Room, a.Seq, a.Player, a.Type, payload, a.Timestamp)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

// ListActivities returns the entries of room in sequence order.
func (s *ActivityStore) ListActivities(ctx context.Context, room string) ([]models.Activity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_code, seq, player_code, type, payload, created_at
		FROM activities
		WHERE room_code = $1
		ORDER BY seq
	`, room)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities of %s: %w", room, err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var (
			a       models.Activity
			payload []byte
		)
		if err := rows.Scan(&a.ID, &a.Room, &a.Seq, &a.Player, &a.Type, &payload, &a.Timestamp); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &a.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of activity %s: %w", a.ID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
