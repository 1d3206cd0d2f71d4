// internal/game/table_store.go
package game

import (
	"context"
	"fmt"
	"sync"
)

// TableStore keeps the live tables of this process, keyed by room code.
type TableStore struct {
	mu     sync.Mutex
	tables map[string]*Table
	rules  Rules
	deps   TableDeps
}

func NewTableStore(rules Rules, deps TableDeps) *TableStore {
	if deps.Serializer == nil {
		deps.Serializer = NewSerializer(false)
	}
	return &TableStore{
		tables: make(map[string]*Table),
		rules:  rules,
		deps:   deps,
	}
}

// Open returns the table of a room, building it from the room record on first use. Per-room rule
// overrides are applied on top of the store defaults.
func (s *TableStore) Open(ctx context.Context, code string) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[code]; ok {
		return t, nil
	}
	room, err := s.deps.Rooms.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	rules, err := ParseRules(room.Rules, s.rules)
	if err != nil {
		return nil, fmt.Errorf("room %s rules: %w", code, err)
	}
	t := NewTable(code, rules, s.deps)
	t.OnFinish = s.DeleteTable
	s.tables[code] = t
	return t, nil
}

func (s *TableStore) GetTable(code string) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.tables[code]
	return t, exists
}

// DeleteTable drops a table and stops its deadlines.
func (s *TableStore) DeleteTable(code string) {
	s.mu.Lock()
	t, ok := s.tables[code]
	delete(s.tables, code)
	s.mu.Unlock()
	if ok {
		t.Close()
	}
}

// CloseAll stops the deadlines of every table. Used on shutdown.
func (s *TableStore) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, t := range s.tables {
		t.Close()
		delete(s.tables, code)
	}
}

// Deps returns the collaborators tables are built with.
func (s *TableStore) Deps() TableDeps {
	return s.deps
}

// Rules returns the server-wide default rules.
func (s *TableStore) Rules() Rules {
	return s.rules
}
