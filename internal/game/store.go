// internal/game/store.go
package game

import (
	"context"

	"github.com/jason-s-yu/unodealer/internal/models"
)

// DeskStore persists desks. SaveDesk is a compare-and-swap on Desk.Version: it fails with
// ErrVersionConflict when the stored version differs from d.Version, and otherwise stores the
// desk with the version incremented (updating d.Version too).
type DeskStore interface {
	LoadDesk(ctx context.Context, room string) (*Desk, error)
	SaveDesk(ctx context.Context, d *Desk) error
	DeleteDesk(ctx context.Context, room string) error
}

// RoomStore persists room records.
type RoomStore interface {
	CreateRoom(ctx context.Context, r *models.Room) error
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	UpdateRoom(ctx context.Context, r *models.Room) error
}

// PlayerStore persists player records.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, code string) (*models.Player, error)
	// AppendTurnScore adds one finished-turn score to the player's history in a room.
	AppendTurnScore(ctx context.Context, player, room string, score int) error
}

// ActivityLog is the append-only audit sink.
type ActivityLog interface {
	AppendActivities(ctx context.Context, acts ...models.Activity) error
}

// Broadcaster delivers events to the connections of a room.
type Broadcaster interface {
	Broadcast(room string, ev Event)
	SendTo(room, player string, ev Event)
	ConnectedCount(room string) int
	CloseRoom(room string)
}
