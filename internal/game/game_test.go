// internal/game/game_test.go
package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects events instead of sending them over WS.
type recorder struct {
	mu           sync.Mutex
	connected    int
	allEvents    []Event            // events sent to everyone
	playerEvents map[string][]Event // events sent to specific players
	closed       map[string]bool
}

func newRecorder(connected int) *recorder {
	return &recorder{
		connected:    connected,
		playerEvents: make(map[string][]Event),
		closed:       make(map[string]bool),
	}
}

func (r *recorder) Broadcast(_ string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allEvents = append(r.allEvents, ev)
}

func (r *recorder) SendTo(_, player string, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playerEvents[player] = append(r.playerEvents[player], ev)
}

func (r *recorder) ConnectedCount(string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *recorder) CloseRoom(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[room] = true
}

func (r *recorder) isClosed(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed[room]
}

// lastOf returns the last broadcast event of the given type.
func (r *recorder) lastOf(typ EventType) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.allEvents) - 1; i >= 0; i-- {
		if r.allEvents[i].Type == typ {
			ev := r.allEvents[i]
			return &ev
		}
	}
	return nil
}

// firstOf returns the first broadcast event of the given type.
func (r *recorder) firstOf(typ EventType) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.allEvents {
		if ev.Type == typ {
			ev := ev
			return &ev
		}
	}
	return nil
}

func (r *recorder) playerEventsOf(player string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.playerEvents[player]...)
}

// testRules keeps shuffles short and disables deadlines.
func testRules() Rules {
	r := DefaultRules()
	r.ShuffleIterations = 200
	r.TurnTimeout = 0
	r.Seed = 42
	return r
}

func testDealer() *Dealer {
	return NewDealer(testRules(), rand.New(rand.NewSource(7)))
}

// newTestDesk builds an active desk where the first player owns the turn, the discard shows top
// and the draw pile holds pile.
func newTestDesk(players []string, top models.Card, pile ...models.Card) *Desk {
	d := NewDesk("room-test", players, models.WhiteWildOff)
	d.TurnNumber = 1
	d.TurnActive = true
	d.NextPlayer = players[0]
	d.DiscardPile = []models.Card{top}
	cur := top
	d.CurrentCard = &cur
	d.DrawPile = append([]models.Card(nil), pile...)
	return d
}

func red(n int) models.Card    { return models.NumberCard(models.ColorRed, n) }
func blue(n int) models.Card   { return models.NumberCard(models.ColorBlue, n) }
func green(n int) models.Card  { return models.NumberCard(models.ColorGreen, n) }
func yellow(n int) models.Card { return models.NumberCard(models.ColorYellow, n) }

func filler(n int) []models.Card {
	out := make([]models.Card, n)
	for i := range out {
		out[i] = yellow(i % 10)
	}
	return out
}

// nextMove picks a legal move for whoever the desk waits on: settle colors, play a held card,
// resolve forced draws, else play the first playable card, else draw.
func nextMove(d *Desk) (Command, bool) {
	if !d.TurnActive {
		return Command{}, false
	}
	if p := d.ColorPending; p != "" {
		return Command{Kind: CmdColorOfWild, Player: p, Color: models.ColorRed}, true
	}
	p := d.NextPlayer
	yell := len(d.Hands[p]) == 2
	if d.CanPlayDrawCard {
		return Command{Kind: CmdPlayDrawCard, Player: p, IsPlay: true, YellUno: yell, Color: models.ColorBlue}, true
	}
	if d.MustDraw {
		return Command{Kind: CmdDrawCard, Player: p}, true
	}
	for _, c := range d.Hands[p] {
		if Playable(d.CurrentCard, c) {
			card := c
			return Command{Kind: CmdPlayCard, Player: p, Card: &card, YellUno: yell, Color: models.ColorBlue}, true
		}
	}
	return Command{Kind: CmdDrawCard, Player: p}, true
}

// TestEndToEndSingleTurn plays a seeded two-player game of one turn through the table runtime.
func TestEndToEndSingleTurn(t *testing.T) {
	ctx := context.Background()
	rooms := NewMemoryRoomStore()
	players := NewMemoryPlayerStore()
	desks := NewMemoryDeskStore()
	acts := NewMemoryActivityLog()
	rec := newRecorder(2)

	for _, code := range []string{"alice", "bob"} {
		require.NoError(t, players.CreatePlayer(ctx, &models.Player{Code: code, Name: code}))
	}
	const code = "room-e2e"
	require.NoError(t, rooms.CreateRoom(ctx, &models.Room{
		Code:      code,
		Name:      "e2e",
		Players:   []string{"alice", "bob"},
		Status:    models.RoomNew,
		TotalTurn: 1,
	}))

	store := NewTableStore(testRules(), TableDeps{
		Desks:      desks,
		Rooms:      rooms,
		Players:    players,
		Activities: acts,
		Hub:        rec,
	})
	tbl, err := store.Open(ctx, code)
	require.NoError(t, err)

	room, err := rooms.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomNew, room.Status)

	require.NoError(t, tbl.Start(ctx))
	room, err = rooms.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStarting, room.Status)

	first, err := desks.LoadDesk(ctx, code)
	require.NoError(t, err)
	assert.Len(t, first.Hands["alice"], 7)
	assert.Len(t, first.Hands["bob"], 7)

	var last *Desk
	for i := 0; i < 5000; i++ {
		d, err := desks.LoadDesk(ctx, code)
		if errors.Is(err, ErrDeskNotFound) {
			break
		}
		require.NoError(t, err)
		cmd, ok := nextMove(d)
		require.True(t, ok, "desk should wait on a player")
		last = d
		o, err := tbl.Handle(ctx, cmd)
		require.NoError(t, err)
		require.NoError(t, o.Violation, "scripted move %s by %s was penalized", cmd.Kind, cmd.Player)
	}
	require.NotNil(t, last)

	room, err = rooms.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomFinish, room.Status)
	assert.True(t, rec.isClosed(code))
	_, live := store.GetTable(code)
	assert.False(t, live, "finished table should be dropped")

	ev := rec.lastOf(EventFinishTurn)
	require.NotNil(t, ev)
	turn := ev.Data.(FinishTurnData)
	// the seeded deal always plays out to alice emptying her hand
	assert.Equal(t, "alice", turn.Winner)
	assert.Equal(t, map[string]int{"alice": 46, "bob": -46}, turn.Score)
	assert.Equal(t, -models.CountPoints(last.Hands["bob"]), turn.Score["bob"])
	assert.Equal(t, []string{"alice"}, room.Order)
	assert.Equal(t, "alice", room.Winner)

	require.NotNil(t, rec.lastOf(EventFinishGame))
	pl, err := players.GetPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []int{turn.Score["alice"]}, pl.History[code])
	assert.NotEmpty(t, acts.Activities())
}

func TestTableStartNeedsTwoConnected(t *testing.T) {
	ctx := context.Background()
	rooms := NewMemoryRoomStore()
	require.NoError(t, rooms.CreateRoom(ctx, &models.Room{
		Code: "lonely", Players: []string{"a", "b"}, Status: models.RoomNew, TotalTurn: 1,
	}))
	tbl := NewTable("lonely", testRules(), TableDeps{
		Desks:   NewMemoryDeskStore(),
		Rooms:   rooms,
		Players: NewMemoryPlayerStore(),
		Hub:     newRecorder(1),
	})

	err := tbl.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRoomUnavailable)
	assert.Equal(t, KindRoomUnavailable, KindOf(err))

	room, err := rooms.GetRoom(ctx, "lonely")
	require.NoError(t, err)
	assert.Equal(t, models.RoomNew, room.Status)
}

// TestTableDeadlinePenalizes lets a real deadline expire and expects the timeout penalty to move
// the turn along.
func TestTableDeadlinePenalizes(t *testing.T) {
	ctx := context.Background()
	rooms := NewMemoryRoomStore()
	players := NewMemoryPlayerStore()
	desks := NewMemoryDeskStore()
	rec := newRecorder(2)
	for _, code := range []string{"a", "b"} {
		require.NoError(t, players.CreatePlayer(ctx, &models.Player{Code: code}))
	}
	require.NoError(t, rooms.CreateRoom(ctx, &models.Room{
		Code: "slow", Players: []string{"a", "b"}, Status: models.RoomNew, TotalTurn: 3,
	}))

	rules := testRules()
	rules.TurnTimeout = 30 * time.Millisecond
	tbl := NewTable("slow", rules, TableDeps{Desks: desks, Rooms: rooms, Players: players, Hub: rec})
	defer tbl.Close()
	require.NoError(t, tbl.Start(ctx))

	before, err := desks.LoadDesk(ctx, "slow")
	require.NoError(t, err)
	waiting := before.ExpectedActor()

	require.Eventually(t, func() bool {
		return rec.firstOf(EventPenalty) != nil
	}, 2*time.Second, 10*time.Millisecond)

	data := rec.firstOf(EventPenalty).Data.(PenaltyData)
	assert.Equal(t, "timeout", data.Code)
	assert.Equal(t, waiting, data.Player)
	assert.Equal(t, rules.TimeoutPenalty, data.DrawCount)
}

func TestTableSyncSendsHand(t *testing.T) {
	ctx := context.Background()
	rooms := NewMemoryRoomStore()
	desks := NewMemoryDeskStore()
	rec := newRecorder(2)
	require.NoError(t, rooms.CreateRoom(ctx, &models.Room{
		Code: "sync", Players: []string{"a", "b"}, Status: models.RoomNew, TotalTurn: 1,
	}))
	tbl := NewTable("sync", testRules(), TableDeps{Desks: desks, Rooms: rooms, Players: NewMemoryPlayerStore(), Hub: rec})
	require.NoError(t, tbl.Start(ctx))

	require.NoError(t, tbl.Sync(ctx, "b"))
	events := rec.playerEventsOf("b")
	require.GreaterOrEqual(t, len(events), 2)
	tail := events[len(events)-2:]
	assert.Equal(t, EventReceiverCard, tail[0].Type)
	assert.Len(t, tail[0].Data.(ReceiverCardData).CardsReceive, 7)
	assert.Equal(t, EventNextPlayer, tail[1].Type)

	assert.ErrorIs(t, tbl.Sync(ctx, "mallory"), ErrNotPlayer)

	view, err := tbl.View(ctx, "a")
	require.NoError(t, err)
	require.Len(t, view.Seats, 2)
	assert.Len(t, view.Seats[0].Hand, 7)
	assert.Empty(t, view.Seats[1].Hand)
	assert.Equal(t, 7, view.Seats[1].HandSize)
}
