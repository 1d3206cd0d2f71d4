// internal/database/player.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/models"
)

// PlayerStore persists players and their per-turn score history.
type PlayerStore struct {
	pool *pgxpool.Pool
}

func NewPlayerStore(pool *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{pool: pool}
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, p *models.Player) error {
	q := `INSERT INTO players (code, name, total_score) VALUES ($1, $2, $3)`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, p.Code, p.Name, p.TotalScore)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert player %s: %w", p.Code, err)
	}
	return nil
}

// GetPlayer loads a player with the turn scores of every room, ordered by turn.
func (s *PlayerStore) GetPlayer(ctx context.Context, code string) (*models.Player, error) {
	var p models.Player
	err := s.pool.QueryRow(ctx,
		`SELECT code, name, total_score FROM players WHERE code = $1`, code,
	).Scan(&p.Code, &p.Name, &p.TotalScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", code, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT room_code, score
		FROM player_turn_scores
		WHERE player_code = $1
		ORDER BY room_code, turn_index
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", code, err)
	}
	defer rows.Close()

	p.History = make(map[string][]int)
	for rows.Next() {
		var (
			room  string
			score int
		)
		if err := rows.Scan(&room, &score); err != nil {
			return nil, err
		}
		p.History[room] = append(p.History[room], score)
	}
	return &p, rows.Err()
}

// AppendTurnScore records the next turn score of player in room and adds it to the total.
func (s *PlayerStore) AppendTurnScore(ctx context.Context, player, room string, score int) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE players SET total_score = total_score + $2 WHERE code = $1`, player, score)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return game.ErrPlayerNotFound
		}
		q := `
			INSERT INTO player_turn_scores (player_code, room_code, turn_index, score)
			SELECT $1, $2, COALESCE(MAX(turn_index) + 1, 0), $3
			FROM player_turn_scores
			WHERE player_code = $1 AND room_code = $2
		`
		_, err = tx.Exec(ctx, q, player, room, score)
		return err
	})
}
