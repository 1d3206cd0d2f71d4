// internal/hub/conn.go
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Conn is one websocket connection of a player. Frames are queued on out and written by WritePump
// in the order they were queued.
type Conn struct {
	ID     uuid.UUID
	Room   string
	Player string

	mu          sync.Mutex
	out         chan []byte
	closed      bool
	closeStatus websocket.StatusCode
	closeReason string
}

func newConn(room, player string) *Conn {
	return &Conn{
		ID:     uuid.New(),
		Room:   room,
		Player: player,
		out:    make(chan []byte, outBuffer),

		closeStatus: websocket.StatusNormalClosure,
		closeReason: "room closed",
	}
}

// SetCloseStatus sets the close frame WritePump sends once the queue is closed.
func (c *Conn) SetCloseStatus(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeStatus, c.closeReason = code, reason
}

// Send queues a frame. It returns false when the queue is full; a closed connection swallows
// the frame and reports true.
func (c *Conn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.out)
	}
}

// WritePump writes queued frames to ws until the queue is closed or ctx ends. A closed queue
// ends the session with the close status, a normal closure unless SetCloseStatus chose another.
func (c *Conn) WritePump(ctx context.Context, ws *websocket.Conn, logger *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.out:
			if !ok {
				c.mu.Lock()
				code, reason := c.closeStatus, c.closeReason
				c.mu.Unlock()
				_ = ws.Close(code, reason)
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := ws.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithError(err).WithField("conn", c.ID).Warn("failed to write to websocket")
				return
			}
		}
	}
}
