// internal/game/memstore.go
package game

import (
	"context"
	"fmt"
	"sync"

	"github.com/jason-s-yu/unodealer/internal/models"
)

// MemoryDeskStore keeps desks in process memory. It is used when no Redis is configured and in tests.
type MemoryDeskStore struct {
	mu    sync.Mutex
	desks map[string]*Desk
}

func NewMemoryDeskStore() *MemoryDeskStore {
	return &MemoryDeskStore{desks: make(map[string]*Desk)}
}

func (s *MemoryDeskStore) LoadDesk(_ context.Context, room string) (*Desk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.desks[room]
	if !ok {
		return nil, ErrDeskNotFound
	}
	return d.Clone(), nil
}

func (s *MemoryDeskStore) SaveDesk(_ context.Context, d *Desk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stored int64
	if cur, ok := s.desks[d.Room]; ok {
		stored = cur.Version
	}
	if stored != d.Version {
		return fmt.Errorf("%w: room %s stored %d, have %d", ErrVersionConflict, d.Room, stored, d.Version)
	}
	d.Version++
	s.desks[d.Room] = d.Clone()
	return nil
}

func (s *MemoryDeskStore) DeleteDesk(_ context.Context, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.desks, room)
	return nil
}

// MemoryRoomStore keeps rooms in process memory.
type MemoryRoomStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{rooms: make(map[string]*models.Room)}
}

func (s *MemoryRoomStore) CreateRoom(_ context.Context, r *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.Code]; ok {
		return fmt.Errorf("room %s already exists", r.Code)
	}
	s.rooms[r.Code] = cloneRoom(r)
	return nil
}

func (s *MemoryRoomStore) GetRoom(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return cloneRoom(r), nil
}

func (s *MemoryRoomStore) UpdateRoom(_ context.Context, r *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.Code]; !ok {
		return ErrRoomNotFound
	}
	s.rooms[r.Code] = cloneRoom(r)
	return nil
}

func cloneRoom(r *models.Room) *models.Room {
	c := *r
	c.Players = append([]string(nil), r.Players...)
	c.Order = append([]string(nil), r.Order...)
	c.Score = copyInts(r.Score)
	if r.Rules != nil {
		c.Rules = make(map[string]interface{}, len(r.Rules))
		for k, v := range r.Rules {
			c.Rules[k] = v
		}
	}
	return &c
}

// MemoryPlayerStore keeps players in process memory.
type MemoryPlayerStore struct {
	mu      sync.Mutex
	players map[string]*models.Player
}

func NewMemoryPlayerStore() *MemoryPlayerStore {
	return &MemoryPlayerStore{players: make(map[string]*models.Player)}
}

func (s *MemoryPlayerStore) CreatePlayer(_ context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.Code]; ok {
		return fmt.Errorf("player %s already exists", p.Code)
	}
	s.players[p.Code] = clonePlayer(p)
	return nil
}

func (s *MemoryPlayerStore) GetPlayer(_ context.Context, code string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[code]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return clonePlayer(p), nil
}

func (s *MemoryPlayerStore) AppendTurnScore(_ context.Context, player, room string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[player]
	if !ok {
		return ErrPlayerNotFound
	}
	if p.History == nil {
		p.History = make(map[string][]int)
	}
	p.History[room] = append(p.History[room], score)
	p.TotalScore += score
	return nil
}

func clonePlayer(p *models.Player) *models.Player {
	c := *p
	if p.History != nil {
		c.History = make(map[string][]int, len(p.History))
		for k, v := range p.History {
			c.History[k] = append([]int(nil), v...)
		}
	}
	return &c
}

// MemoryActivityLog keeps activities in process memory.
type MemoryActivityLog struct {
	mu   sync.Mutex
	acts []models.Activity
}

func NewMemoryActivityLog() *MemoryActivityLog {
	return &MemoryActivityLog{}
}

func (l *MemoryActivityLog) AppendActivities(_ context.Context, acts ...models.Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acts = append(l.acts, acts...)
	return nil
}

// Activities returns a copy of everything appended so far.
func (l *MemoryActivityLog) Activities() []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Activity(nil), l.acts...)
}
