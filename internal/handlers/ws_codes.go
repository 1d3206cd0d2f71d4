// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the dealer gateway.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Token missing, invalid, or naming another player.
	InvalidRoomError      websocket.StatusCode = 3003 // Room does not exist, is finished, or the player has no seat.
	RoomUnavailableError  websocket.StatusCode = 3004 // Too few players connected to accept commands.
)
