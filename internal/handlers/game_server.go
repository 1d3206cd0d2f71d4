// internal/handlers/game_server.go
package handlers

import (
	"context"

	"github.com/jason-s-yu/unodealer/internal/auth"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/jason-s-yu/unodealer/internal/hub"
	"github.com/sirupsen/logrus"
)

// GameServer holds what the HTTP and websocket handlers share: the live tables, the connection hub
// and the stores behind them.
type GameServer struct {
	Tables  *game.TableStore
	Hub     *hub.Hub
	Rooms   game.RoomStore
	Players game.PlayerStore
	// Signer verifies player and admin tokens; nil leaves every endpoint open.
	Signer *auth.Signer
	// AdminHash is the argon2id hash of the admin password; empty disables /admin/login.
	AdminHash string
	// AutoStart deals the first turn once every seated player is connected.
	AutoStart bool
	Logger    *logrus.Logger
}

// NewGameServer wires a server around tables; rooms and players come from the table dependencies.
func NewGameServer(tables *game.TableStore, h *hub.Hub, signer *auth.Signer, logger *logrus.Logger) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	deps := tables.Deps()
	return &GameServer{
		Tables:  tables,
		Hub:     h,
		Rooms:   deps.Rooms,
		Players: deps.Players,
		Signer:  signer,
		Logger:  logger,
	}
}

// StartRoom opens the table of code and deals its first turn.
func (gs *GameServer) StartRoom(ctx context.Context, code string) error {
	t, err := gs.Tables.Open(ctx, code)
	if err != nil {
		return err
	}
	return t.Start(ctx)
}

// maybeAutoStart starts a NEW room once all its players are connected.
func (gs *GameServer) maybeAutoStart(ctx context.Context, t *game.Table, seats int) {
	if !gs.AutoStart || gs.Hub.ConnectedCount(t.Code()) < seats {
		return
	}
	if err := t.Start(ctx); err != nil {
		gs.Logger.WithError(err).WithField("room", t.Code()).Debug("auto start skipped")
	}
}
