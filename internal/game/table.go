// internal/game/table.go
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/sirupsen/logrus"
)

// maxCommitAttempts bounds the reload-and-reapply loop on desk version conflicts.
const maxCommitAttempts = 3

// TableDeps are the collaborators shared by every table of a server.
type TableDeps struct {
	Desks      DeskStore
	Rooms      RoomStore
	Players    PlayerStore
	Activities ActivityLog
	Hub        Broadcaster
	Serializer *Serializer
	Logger     *logrus.Entry
	// Pacing is slept after every published event so clients observe effects in order.
	Pacing time.Duration
}

// Table is the runtime of one room: its dealer, its deadlines and the discipline that every
// mutation runs through the serializer, loads the desk, applies one command and writes it back
// before anything is published.
type Table struct {
	code   string
	rules  Rules
	deps   TableDeps
	dealer *Dealer
	timers *TimerRegistry
	log    *logrus.Entry

	// OnFinish is invoked after the game finished and the room was closed.
	OnFinish func(code string)
}

// NewTable builds the runtime of room code.
func NewTable(code string, rules Rules, deps TableDeps) *Table {
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if deps.Serializer == nil {
		deps.Serializer = NewSerializer(false)
	}
	t := &Table{
		code:  code,
		rules: rules,
		deps:  deps,
		log:   deps.Logger.WithField("room", code),
	}
	t.dealer = NewDealer(rules, nil).WithLogger(t.log)
	t.timers = NewTimerRegistry(t.onDeadline)
	return t
}

// Code returns the room code.
func (t *Table) Code() string { return t.code }

// Rules returns the effective rules of the room.
func (t *Table) Rules() Rules { return t.rules }

// Timers exposes the deadline registry of the room.
func (t *Table) Timers() *TimerRegistry { return t.timers }

// Start moves a NEW room to STARTING and deals its first turn. At least two players must be connected.
func (t *Table) Start(ctx context.Context) error {
	return t.deps.Serializer.Do(ctx, t.code, func() error {
		room, err := t.deps.Rooms.GetRoom(ctx, t.code)
		if err != nil {
			return fmt.Errorf("load room %s: %w", t.code, err)
		}
		if room.Status != models.RoomNew {
			return fmt.Errorf("room %s is %s", t.code, room.Status)
		}
		if n := t.deps.Hub.ConnectedCount(t.code); n < 2 {
			return violation(ErrRoomUnavailable, "%d connected", n)
		}

		d := NewDesk(room.Code, room.Players, room.WhiteWild)
		o, err := t.dealer.Deal(d)
		if err != nil {
			return err
		}
		if err := t.deps.Desks.SaveDesk(ctx, d); err != nil {
			return fmt.Errorf("save desk %s: %w", t.code, err)
		}

		room.Status = models.RoomStarting
		if room.Score == nil {
			room.Score = make(map[string]int)
		}
		if err := t.deps.Rooms.UpdateRoom(ctx, room); err != nil {
			return fmt.Errorf("update room %s: %w", t.code, err)
		}
		t.log.WithFields(logrus.Fields{
			"players":   room.Players,
			"totalTurn": room.TotalTurn,
		}).Info("game started")
		t.publish(ctx, d, o)
		return nil
	})
}

// Handle runs one player command through the serializer. The returned outcome carries the rule
// violation that was penalized, if any; a returned error means nothing was applied.
func (t *Table) Handle(ctx context.Context, cmd Command) (*Outcome, error) {
	var out *Outcome
	err := t.deps.Serializer.Do(ctx, t.code, func() error {
		if n := t.deps.Hub.ConnectedCount(t.code); n < 2 {
			return violation(ErrRoomUnavailable, "%d connected", n)
		}
		o, err := t.exec(ctx, cmd)
		out = o
		return err
	})
	return out, err
}

// Sync sends player their hand and, during a turn, the current next-player state.
func (t *Table) Sync(ctx context.Context, player string) error {
	return t.deps.Serializer.Do(ctx, t.code, func() error {
		d, err := t.deps.Desks.LoadDesk(ctx, t.code)
		if errors.Is(err, ErrDeskNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load desk %s: %w", t.code, err)
		}
		if !d.IsPlayer(player) {
			return violation(ErrNotPlayer, "%s", player)
		}
		t.deps.Hub.SendTo(t.code, player, Event{Type: EventReceiverCard, To: player, Data: ReceiverCardData{
			CardsReceive: append([]models.Card(nil), d.Hands[player]...),
		}})
		if d.TurnActive {
			data := nextPlayerData(d)
			if player == d.NextPlayer {
				data.CardOfPlayer = append([]models.Card(nil), d.Hands[player]...)
			}
			t.deps.Hub.SendTo(t.code, player, Event{Type: EventNextPlayer, To: player, Data: data})
		}
		return nil
	})
}

// View reads the desk outside the serializer and returns the snapshot for player.
func (t *Table) View(ctx context.Context, player string) (DeskView, error) {
	d, err := t.deps.Desks.LoadDesk(ctx, t.code)
	if err != nil {
		return DeskView{}, err
	}
	return d.View(player), nil
}

// Close stops every deadline of the room.
func (t *Table) Close() {
	t.timers.CancelAll()
}

// onDeadline runs on the timer goroutine and only enqueues the timeout.
func (t *Table) onDeadline(player string, gen uint64) {
	t.deps.Serializer.Submit(t.code, func() error {
		if !t.timers.Claim(player, gen) {
			return nil
		}
		ctx := context.Background()
		t.log.WithField("player", player).Info("action deadline expired")
		_, err := t.exec(ctx, Command{Kind: CmdTimeout, Player: player, Generation: gen})
		if errors.Is(err, ErrTurnNotActive) {
			return nil
		}
		return err
	})
}

// exec is the read-modify-write cycle of one command. It must run on the serializer.
func (t *Table) exec(ctx context.Context, cmd Command) (*Outcome, error) {
	entry := t.log.WithFields(logrus.Fields{"player": cmd.Player, "command": cmd.Kind})
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		d, err := t.deps.Desks.LoadDesk(ctx, t.code)
		if err != nil {
			if errors.Is(err, ErrDeskNotFound) {
				return nil, ErrTurnNotActive
			}
			return nil, fmt.Errorf("load desk %s: %w", t.code, err)
		}
		o, err := t.dealer.Apply(d, cmd)
		if err != nil {
			entry.WithError(err).Debug("command rejected")
			return nil, err
		}
		if err := d.CheckInvariants(); err != nil {
			entry.WithError(err).Error("command broke desk invariants, aborting")
			return nil, fmt.Errorf("room %s: %w", t.code, err)
		}
		if err := t.deps.Desks.SaveDesk(ctx, d); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				entry.WithField("attempt", attempt).Warn("desk version conflict, retrying")
				continue
			}
			return nil, fmt.Errorf("save desk %s: %w", t.code, err)
		}
		if o.Violation != nil {
			entry.WithField("code", CodeOf(o.Violation)).Info("penalized rule violation")
		}
		t.publish(ctx, d, o)
		return o, nil
	}
	return nil, fmt.Errorf("room %s after %d attempts: %w", t.code, maxCommitAttempts, ErrVersionConflict)
}

// publish releases a committed outcome: audit entries, events in order, deadlines, and the
// turn boundary when the turn finished.
func (t *Table) publish(ctx context.Context, d *Desk, o *Outcome) {
	if len(o.Activities) > 0 && t.deps.Activities != nil {
		if err := t.deps.Activities.AppendActivities(ctx, o.Activities...); err != nil {
			t.log.WithError(err).Warn("failed to append activities")
		}
	}
	for _, ev := range o.Events {
		if ev.To != "" {
			t.deps.Hub.SendTo(t.code, ev.To, ev)
		} else {
			t.deps.Hub.Broadcast(t.code, ev)
		}
		if t.deps.Pacing > 0 {
			time.Sleep(t.deps.Pacing)
		}
	}
	for _, op := range o.Timers {
		if op.Arm {
			t.timers.Arm(op.Player, t.rules.TurnTimeout)
		} else {
			t.timers.Cancel(op.Player)
		}
	}
	if o.Turn != nil {
		if err := t.endTurn(ctx, d, o.Turn); err != nil {
			t.log.WithError(err).Error("failed to close turn")
		}
	}
}

// endTurn folds a finished turn into the room and player records, then deals the next turn or
// finishes the game.
func (t *Table) endTurn(ctx context.Context, d *Desk, res *TurnResult) error {
	room, err := t.deps.Rooms.GetRoom(ctx, t.code)
	if err != nil {
		return fmt.Errorf("load room %s: %w", t.code, err)
	}
	room.Order = append(room.Order, res.Winner)
	if room.Score == nil {
		room.Score = make(map[string]int)
	}
	for _, p := range room.Players {
		s := res.Score[p]
		room.Score[p] += s
		if err := t.deps.Players.AppendTurnScore(ctx, p, t.code, s); err != nil {
			t.log.WithError(err).WithField("player", p).Warn("failed to record turn score")
		}
	}

	if res.Turn >= room.TotalTurn {
		return t.finishGame(ctx, d, room)
	}
	if err := t.deps.Rooms.UpdateRoom(ctx, room); err != nil {
		return fmt.Errorf("update room %s: %w", t.code, err)
	}

	o, err := t.dealer.Deal(d)
	if err != nil {
		return fmt.Errorf("deal turn %d: %w", d.TurnNumber+1, err)
	}
	if err := t.deps.Desks.SaveDesk(ctx, d); err != nil {
		return fmt.Errorf("save desk %s: %w", t.code, err)
	}
	t.publish(ctx, d, o)
	return nil
}

// finishGame settles the game winner, closes the room and discards the desk.
func (t *Table) finishGame(ctx context.Context, d *Desk, room *models.Room) error {
	history := make(map[string][]int, len(room.Players))
	for _, p := range room.Players {
		pl, err := t.deps.Players.GetPlayer(ctx, p)
		if err != nil {
			t.log.WithError(err).WithField("player", p).Warn("failed to load player history")
			continue
		}
		history[p] = pl.History[room.Code]
	}
	winner := GameWinner(room.Players, room.Score, history)
	turnWin := make(map[string]int, len(room.Players))
	for _, w := range room.Order {
		if w != "" {
			turnWin[w]++
		}
	}

	room.Status = models.RoomFinish
	room.Winner = winner
	if err := t.deps.Rooms.UpdateRoom(ctx, room); err != nil {
		return fmt.Errorf("update room %s: %w", t.code, err)
	}

	o := &Outcome{}
	o.record(d, winner, "finish_game", map[string]interface{}{"score": copyInts(room.Score)})
	if t.deps.Activities != nil {
		if err := t.deps.Activities.AppendActivities(ctx, o.Activities...); err != nil {
			t.log.WithError(err).Warn("failed to append activities")
		}
	}
	t.deps.Hub.Broadcast(t.code, Event{Type: EventFinishGame, Data: FinishGameData{
		Winner:  winner,
		TurnWin: turnWin,
		Order:   append([]string(nil), room.Order...),
		Score:   copyInts(room.Score),
	}})

	t.timers.CancelAll()
	if err := t.deps.Desks.DeleteDesk(ctx, t.code); err != nil {
		t.log.WithError(err).Warn("failed to delete desk")
	}
	t.deps.Hub.CloseRoom(t.code)
	t.log.WithFields(logrus.Fields{"winner": winner, "score": room.Score}).Info("game finished")
	if t.OnFinish != nil {
		t.OnFinish(t.code)
	}
	return nil
}
