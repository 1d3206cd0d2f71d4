// internal/hub/hub.go
package hub

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/unodealer/internal/game"
	"github.com/sirupsen/logrus"
)

// outBuffer is the number of frames a connection may lag behind before it is dropped.
const outBuffer = 64

// Hub tracks the websocket connections of every room and implements game.Broadcaster.
// A player may hold several connections; events go to all of them.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[uuid.UUID]*Conn
	log   *logrus.Entry
}

// New returns an empty hub.
func New(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		rooms: make(map[string]map[uuid.UUID]*Conn),
		log:   log.WithField("component", "hub"),
	}
}

// Register adds a connection for player to room.
func (h *Hub) Register(room, player string) *Conn {
	c := newConn(room, player)
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[room]
	if !ok {
		conns = make(map[uuid.UUID]*Conn)
		h.rooms[room] = conns
	}
	conns[c.ID] = c
	h.log.WithFields(logrus.Fields{"room": room, "player": player, "conn": c.ID}).Debug("connection registered")
	return c
}

// Unregister removes c from its room and closes its outbound queue.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	if conns, ok := h.rooms[c.Room]; ok {
		delete(conns, c.ID)
		if len(conns) == 0 {
			delete(h.rooms, c.Room)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast sends ev to every connection of room.
func (h *Hub) Broadcast(room string, ev game.Event) {
	data := game.EncodeEvent(ev)
	for _, c := range h.snapshot(room, "") {
		h.deliver(c, data)
	}
}

// SendTo sends ev to every connection of player in room.
func (h *Hub) SendTo(room, player string, ev game.Event) {
	data := game.EncodeEvent(ev)
	for _, c := range h.snapshot(room, player) {
		h.deliver(c, data)
	}
}

// ConnectedCount returns how many distinct players of room hold a connection.
func (h *Hub) ConnectedCount(room string) int {
	return len(h.Clients(room))
}

// Clients returns the sorted player codes connected to room.
func (h *Hub) Clients(room string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	seen := make(map[string]bool)
	for _, c := range h.rooms[room] {
		seen[c.Player] = true
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CloseRoom closes every connection of room after the frames already queued.
func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	conns := h.rooms[room]
	delete(h.rooms, room)
	h.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	h.log.WithFields(logrus.Fields{"room": room, "connections": len(conns)}).Info("room closed")
}

func (h *Hub) snapshot(room, player string) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		if player == "" || c.Player == player {
			out = append(out, c)
		}
	}
	return out
}

// deliver queues data on c. A connection whose queue is full is unregistered.
func (h *Hub) deliver(c *Conn, data []byte) {
	if !c.Send(data) {
		h.log.WithFields(logrus.Fields{"room": c.Room, "player": c.Player, "conn": c.ID}).Warn("connection too slow, dropping")
		h.Unregister(c)
	}
}
