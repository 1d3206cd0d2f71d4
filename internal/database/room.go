// internal/database/room.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/models"
)

// RoomStore persists rooms in Postgres.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

// CreateRoom inserts a new room row.
func (s *RoomStore) CreateRoom(ctx context.Context, r *models.Room) error {
	rules, score, err := encodeRoomJSON(r)
	if err != nil {
		return err
	}
	q := `
	INSERT INTO rooms (
		code, name, players, status, total_turn, white_wild,
		rules, turn_order, score, winner, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			r.Code, r.Name, r.Players, string(r.Status), r.TotalTurn, string(r.WhiteWild),
			rules, nonNil(r.Order), score, r.Winner, r.CreatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert room %s: %w", r.Code, err)
	}
	return nil
}

// GetRoom fetches a room by code.
func (s *RoomStore) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	var (
		r                 models.Room
		status, whiteWild string
		rules, score      []byte
	)
	q := `
	SELECT code, name, players, status, total_turn, white_wild,
	       rules, turn_order, score, winner, created_at
	FROM rooms
	WHERE code = $1
	`
	err := s.pool.QueryRow(ctx, q, code).Scan(
		&r.Code, &r.Name, &r.Players, &status, &r.TotalTurn, &whiteWild,
		&rules, &r.Order, &score, &r.Winner, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", code, err)
	}
	r.Status = models.RoomStatus(status)
	r.WhiteWild = models.WhiteWildRule(whiteWild)
	if len(rules) > 0 {
		if err := json.Unmarshal(rules, &r.Rules); err != nil {
			return nil, fmt.Errorf("decode rules of room %s: %w", code, err)
		}
	}
	if err := json.Unmarshal(score, &r.Score); err != nil {
		return nil, fmt.Errorf("decode score of room %s: %w", code, err)
	}
	return &r, nil
}

// UpdateRoom writes back the mutable columns of a room.
func (s *RoomStore) UpdateRoom(ctx context.Context, r *models.Room) error {
	rules, score, err := encodeRoomJSON(r)
	if err != nil {
		return err
	}
	q := `
	UPDATE rooms
	SET status = $2, rules = $3, turn_order = $4, score = $5, winner = $6
	WHERE code = $1
	`
	var affected int64
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, r.Code, string(r.Status), rules, nonNil(r.Order), score, r.Winner)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", r.Code, err)
	}
	if affected == 0 {
		return game.ErrRoomNotFound
	}
	return nil
}

func encodeRoomJSON(r *models.Room) (rules, score []byte, err error) {
	if r.Rules != nil {
		if rules, err = json.Marshal(r.Rules); err != nil {
			return nil, nil, fmt.Errorf("encode rules of room %s: %w", r.Code, err)
		}
	}
	m := r.Score
	if m == nil {
		m = map[string]int{}
	}
	if score, err = json.Marshal(m); err != nil {
		return nil, nil, fmt.Errorf("encode score of room %s: %w", r.Code, err)
	}
	return rules, score, nil
}

// nonNil keeps NOT NULL array columns from receiving a NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
