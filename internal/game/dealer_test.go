// internal/game/dealer_test.go
package game

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	redSkip    = models.SpecialCard(models.ColorRed, models.SpecialSkip)
	redReverse = models.SpecialCard(models.ColorRed, models.SpecialReverse)
	redDrawTwo = models.SpecialCard(models.ColorRed, models.SpecialDrawTwo)
	wild       = models.SpecialCard(models.ColorBlack, models.SpecialWild)
	wildDraw4  = models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4)
	wildShuf   = models.SpecialCard(models.ColorBlack, models.SpecialWildShuffle)
	whiteWild  = models.SpecialCard(models.ColorWhite, models.SpecialWhiteWild)
)

func play(p string, c models.Card) Command {
	return Command{Kind: CmdPlayCard, Player: p, Card: &c}
}

func apply(t *testing.T, dl *Dealer, d *Desk, cmd Command) *Outcome {
	t.Helper()
	o, err := dl.Apply(d, cmd)
	require.NoError(t, err)
	require.NotNil(t, o)
	require.NoError(t, d.CheckInvariants())
	return o
}

func findEvent(o *Outcome, typ EventType, to string) *Event {
	for i := range o.Events {
		if o.Events[i].Type == typ && o.Events[i].To == to {
			return &o.Events[i]
		}
	}
	return nil
}

func TestPlayerAfterWrapsAround(t *testing.T) {
	d := NewDesk("r", []string{"A", "B", "C", "D"}, models.WhiteWildOff)
	assert.Equal(t, "B", d.PlayerAfter("A"))
	assert.Equal(t, "A", d.PlayerAfter("D"))

	d.TurnDirection = false
	assert.Equal(t, "D", d.PlayerAfter("A"))
	assert.Equal(t, "B", d.PlayerAfter("C"))
	assert.Equal(t, "", d.PlayerAfter("Z"))
}

func TestDealRoundRobin(t *testing.T) {
	rules := testRules()
	players := []string{"a", "b", "c", "d"}
	dl := NewDealer(rules, rand.New(rand.NewSource(11)))
	d := NewDesk("deal", players, models.WhiteWildOff)

	o, err := dl.Deal(d)
	require.NoError(t, err)
	require.NoError(t, d.CheckInvariants())

	expected := NewDeck(models.WhiteWildOff)
	Shuffle(rand.New(rand.NewSource(11)), expected, rules.ShuffleIterations)
	for i, p := range players {
		require.Len(t, d.Hands[p], 7)
		for k := 0; k < 7; k++ {
			assert.Equal(t, expected[k*len(players)+i], d.Hands[p][k], "card %d of %s", k, p)
		}
	}
	assert.Len(t, d.DrawPile, BaseDeckSize-28-1)
	assert.Len(t, d.DiscardPile, 1)
	assert.Equal(t, BaseDeckSize, d.CardCount())
	assert.True(t, canOpen(d.DiscardPile[0]))
	assert.True(t, d.TurnActive)
	assert.Equal(t, 1, d.TurnNumber)

	require.NotEmpty(t, o.Events)
	assert.Equal(t, EventFirstPlayer, o.Events[0].Type)
	assert.Equal(t, "a", o.Events[0].Data.(FirstPlayerData).FirstPlayer)
	for _, p := range players {
		ev := findEvent(o, EventReceiverCard, p)
		require.NotNil(t, ev, "private hand for %s", p)
		assert.Len(t, ev.Data.(ReceiverCardData).CardsReceive, 7)
	}

	// the opening player rotates with the turn number
	o, err = dl.Deal(d)
	require.NoError(t, err)
	assert.Equal(t, 2, d.TurnNumber)
	assert.Equal(t, "b", o.Events[0].Data.(FirstPlayerData).FirstPlayer)
}

func TestDealRequiresTwoPlayers(t *testing.T) {
	_, err := testDealer().Deal(NewDesk("solo", []string{"a"}, models.WhiteWildOff))
	assert.ErrorIs(t, err, ErrRoomUnavailable)
}

func TestOpeningCardSkipsForbiddenCards(t *testing.T) {
	dl := testDealer()
	d := NewDesk("open", []string{"a", "b"}, models.WhiteWildBind2)
	d.DrawPile = []models.Card{wildDraw4, whiteWild, wildShuf, red(3)}

	c, err := dl.turnUpFirstCard(d)
	require.NoError(t, err)
	assert.Equal(t, red(3), c)
	assert.Len(t, d.DrawPile, 3)
	assert.Equal(t, []models.Card{red(3)}, d.DiscardPile)
}

func TestReverseFlipsDirection(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5))
	d.Hands["a"] = []models.Card{redReverse, red(1)}
	d.Hands["b"] = []models.Card{blue(3)}
	d.Hands["c"] = []models.Card{blue(4)}

	o := apply(t, dl, d, play("a", redReverse))
	assert.NoError(t, o.Violation)
	assert.False(t, d.TurnDirection)
	assert.Equal(t, "c", d.NextPlayer)
	assert.Equal(t, "a", d.BeforePlayer)
	assert.Equal(t, redReverse, *d.CurrentCard)
}

func TestSkipBypassesExactlyOnePlayer(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5))
	d.Hands["a"] = []models.Card{redSkip, red(1)}
	d.Hands["b"] = []models.Card{blue(3)}
	d.Hands["c"] = []models.Card{red(2), green(2)}

	apply(t, dl, d, play("a", redSkip))
	assert.Equal(t, "c", d.NextPlayer)
	assert.False(t, d.SkipNext)

	apply(t, dl, d, play("c", red(2)))
	assert.Equal(t, "a", d.NextPlayer, "skip is consumed once")
}

func TestDrawTwoMustBeDrawn(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{redDrawTwo, red(1)}
	d.Hands["b"] = []models.Card{red(3), blue(3)}

	apply(t, dl, d, play("a", redDrawTwo))
	assert.Equal(t, "b", d.NextPlayer)
	assert.True(t, d.MustDraw)
	assert.Equal(t, 2, d.PendingDrawCount)

	// playing instead of drawing is penalized, and the forced draw is settled on the way out
	o := apply(t, dl, d, play("b", red(3)))
	assert.ErrorIs(t, o.Violation, ErrMustDrawFirst)
	assert.Equal(t, KindTurnViolation, KindOf(o.Violation))
	assert.Len(t, d.Hands["b"], 2+2+2)
	assert.Equal(t, 0, d.PendingDrawCount)
	assert.False(t, d.MustDraw)
	assert.Equal(t, "a", d.NextPlayer)
}

func TestForcedDrawAdvances(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{redDrawTwo, red(1)}
	d.Hands["b"] = []models.Card{blue(3)}

	apply(t, dl, d, play("a", redDrawTwo))
	o := apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "b"})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["b"], 3)
	assert.Equal(t, "a", d.NextPlayer)
	ev := findEvent(o, EventDrawCard, "")
	require.NotNil(t, ev)
	assert.False(t, ev.Data.(DrawCardData).CanPlayDrawCard)
	assert.Equal(t, 2, ev.Data.(DrawCardData).DrawCount)
}

func TestOutOfTurnIsPenalizedWithoutAdvancing(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1)}
	d.Hands["b"] = []models.Card{red(3)}

	o := apply(t, dl, d, play("b", red(3)))
	assert.ErrorIs(t, o.Violation, ErrTurnViolation)
	assert.Len(t, d.Hands["b"], 3)
	assert.Equal(t, "a", d.NextPlayer)
	ev := findEvent(o, EventPenalty, "")
	require.NotNil(t, ev)
	assert.Equal(t, "turn_violation", ev.Data.(PenaltyData).Code)
}

func TestIllegalCardIsPenalizedAndAdvances(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{blue(9), red(1)}
	d.Hands["b"] = []models.Card{red(3)}

	o := apply(t, dl, d, play("a", blue(9)))
	assert.ErrorIs(t, o.Violation, ErrInvalidCard)
	assert.Equal(t, KindValidation, KindOf(o.Violation))
	assert.Len(t, d.Hands["a"], 4)
	assert.Equal(t, "b", d.NextPlayer)
	assert.Equal(t, red(5), *d.CurrentCard)

	// not in hand at all
	o = apply(t, dl, d, play("b", green(7)))
	assert.ErrorIs(t, o.Violation, ErrInvalidCard)
}

func TestMalformedPayloadIsPenalized(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1), red(2)}
	d.Hands["b"] = []models.Card{red(3), red(4)}
	d.Hands["c"] = []models.Card{red(6), red(7)}

	o := apply(t, dl, d, Command{Kind: CmdPlayCard, Player: "a", Malformed: errors.New("card_play: no number or special")})
	assert.ErrorIs(t, o.Violation, ErrMalformed)
	assert.Equal(t, KindValidation, KindOf(o.Violation))
	assert.Len(t, d.Hands["a"], 2+dl.rules.PenaltyDraw)
	assert.Equal(t, "b", d.NextPlayer)
	require.NotNil(t, findEvent(o, EventPenalty, ""))

	// not the turn owner: penalized, turn stays
	o = apply(t, dl, d, Command{Kind: CmdChallenge, Player: "c", Malformed: errors.New("is_challenge: not a bool")})
	assert.ErrorIs(t, o.Violation, ErrMalformed)
	assert.Len(t, d.Hands["c"], 2+dl.rules.PenaltyDraw)
	assert.Equal(t, "b", d.NextPlayer)
}

func TestWildColorValidation(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{wild, red(1)}
	d.Hands["b"] = []models.Card{red(3), red(4)}

	o := apply(t, dl, d, play("a", wild))
	assert.ErrorIs(t, o.Violation, ErrColorRequired)
	assert.Equal(t, "b", d.NextPlayer)

	d.Hands["b"] = append(d.Hands["b"], wild)
	bad := play("b", wild)
	bad.Color = models.ColorBlack
	o = apply(t, dl, d, bad)
	assert.ErrorIs(t, o.Violation, ErrColorInvalid)

	good := play("a", wild)
	good.Color = models.ColorGreen
	o = apply(t, dl, d, good)
	assert.NoError(t, o.Violation)
	assert.Equal(t, models.ColorGreen, d.CurrentCard.Color)
	assert.Equal(t, models.SpecialWild, d.CurrentCard.Special)
	assert.Equal(t, wild, d.DiscardPile[len(d.DiscardPile)-1], "the discard keeps its printed face")
	require.NotNil(t, findEvent(o, EventUpdateColor, ""))
}

func TestUnoDeclaration(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1), red(2), red(3)}
	d.Hands["b"] = []models.Card{blue(3), blue(4)}

	cmd := play("a", red(1))
	cmd.YellUno = true
	o := apply(t, dl, d, cmd)
	assert.ErrorIs(t, o.Violation, ErrUnoMismatch)

	d.Hands["a"] = []models.Card{red(1), red(2)}
	d.NextPlayer = "a"
	d.refreshMustDraw()
	o = apply(t, dl, d, cmd)
	assert.NoError(t, o.Violation)
	assert.True(t, d.UnoDeclared["a"])
}

func TestPointNotSayUnoSucceedsOnce(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{red(1), red(2)}
	d.Hands["b"] = []models.Card{blue(3), blue(4)}

	apply(t, dl, d, play("a", red(2)))
	require.Len(t, d.Hands["a"], 1)
	require.False(t, d.UnoDeclared["a"])
	require.Equal(t, "a", d.BeforePlayer)

	point := Command{Kind: CmdPointNotSayUno, Player: "b", Target: "a"}
	o := apply(t, dl, d, point)
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["a"], 3)
	assert.True(t, d.AlreadyPenalizedForUno["a"])
	ev := findEvent(o, EventPointedNotSayUno, "")
	require.NotNil(t, ev)
	assert.False(t, ev.Data.(PointedNotSayUnoData).HaveSayUno)

	o = apply(t, dl, d, point)
	assert.ErrorIs(t, o.Violation, ErrPointInvalid)
	assert.Len(t, d.Hands["a"], 3, "repeat pointing draws nothing more for the target")
}

func TestPointNotSayUnoFlagged(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.NextPlayer = "b"
	d.BeforePlayer = "a"
	d.Hands["a"] = []models.Card{red(1)}
	d.Hands["b"] = []models.Card{blue(3)}
	d.AlreadyPenalizedForUno["a"] = true

	o := apply(t, dl, d, Command{Kind: CmdPointNotSayUno, Player: "b", Target: "a"})
	assert.ErrorIs(t, o.Violation, ErrPointInvalid)
	assert.Len(t, d.Hands["a"], 1)
}

func TestPointNotSayUnoAfterDeclaration(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1), red(2)}
	d.Hands["b"] = []models.Card{blue(3)}

	cmd := play("a", red(2))
	cmd.YellUno = true
	apply(t, dl, d, cmd)

	o := apply(t, dl, d, Command{Kind: CmdPointNotSayUno, Player: "b", Target: "a"})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["a"], 1)
	ev := findEvent(o, EventPointedNotSayUno, "")
	require.NotNil(t, ev)
	assert.True(t, ev.Data.(PointedNotSayUnoData).HaveSayUno)
}

func TestChallengeSucceedsWhenDefenderHadAMatch(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{wildDraw4, red(7), blue(1)}
	d.Hands["b"] = []models.Card{yellow(3)}

	cmd := play("a", wildDraw4)
	cmd.Color = models.ColorBlue
	apply(t, dl, d, cmd)
	require.Equal(t, 4, d.PendingDrawCount)
	require.Equal(t, "b", d.NextPlayer)

	o := apply(t, dl, d, Command{Kind: CmdChallenge, Player: "b", IsChallenge: true})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["a"], 2+4)
	assert.Len(t, d.Hands["b"], 1)
	assert.Equal(t, "b", d.NextPlayer, "the challenger keeps the turn")
	assert.False(t, d.MustDraw)
	assert.Equal(t, 0, d.PendingDrawCount)

	ev := findEvent(o, EventChallenge, "")
	require.NotNil(t, ev)
	require.NotNil(t, ev.Data.(ChallengeData).IsChallengeSuccess)
	assert.True(t, *ev.Data.(ChallengeData).IsChallengeSuccess)
	pub := findEvent(o, EventPublicCard, "b")
	require.NotNil(t, pub)
	assert.Len(t, pub.Data.(PublicCardData).CardOfPlayer, 3)
}

func TestChallengeFailsWithoutMatch(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{wildDraw4, blue(1), green(2)}
	d.Hands["b"] = []models.Card{yellow(3)}

	cmd := play("a", wildDraw4)
	cmd.Color = models.ColorBlue
	apply(t, dl, d, cmd)

	o := apply(t, dl, d, Command{Kind: CmdChallenge, Player: "b", IsChallenge: true})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["a"], 2)
	assert.Len(t, d.Hands["b"], 1+4+dl.Rules().ChallengePenalty)
	assert.Equal(t, "a", d.NextPlayer)
}

func TestChallengeDeclined(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{wildDraw4, blue(1)}
	d.Hands["b"] = []models.Card{yellow(3)}

	cmd := play("a", wildDraw4)
	cmd.Color = models.ColorBlue
	apply(t, dl, d, cmd)

	o := apply(t, dl, d, Command{Kind: CmdChallenge, Player: "b"})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["b"], 5)
	assert.Equal(t, "a", d.NextPlayer)
}

func TestChallengeRequiresWildDrawFour(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{redDrawTwo, blue(1)}
	d.Hands["b"] = []models.Card{yellow(3)}

	apply(t, dl, d, play("a", redDrawTwo))
	o := apply(t, dl, d, Command{Kind: CmdChallenge, Player: "b", IsChallenge: true})
	assert.ErrorIs(t, o.Violation, ErrChallengeUnavailable)
}

func TestChallengeSucceeds(t *testing.T) {
	prev := red(5)
	tests := []struct {
		name string
		hand []models.Card
		want bool
	}{
		{"same color", []models.Card{wildDraw4, red(9)}, true},
		{"same number", []models.Card{wildDraw4, blue(5)}, true},
		{"another wild", []models.Card{wildDraw4, wild}, true},
		{"second wild draw 4", []models.Card{wildDraw4, wildDraw4}, true},
		{"nothing", []models.Card{wildDraw4, blue(1), green(2)}, false},
		{"only the played card", []models.Card{wildDraw4}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, challengeSucceeds(prev, tt.hand))
		})
	}

	// a covered wild matches by its chosen color only
	covered := wild
	covered.Color = models.ColorGreen
	assert.True(t, challengeSucceeds(covered, []models.Card{wildDraw4, green(1)}))
	assert.False(t, challengeSucceeds(covered, []models.Card{wildDraw4, blue(1)}))
}

func TestExhaustionEndsTurnWithoutWinner(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5))
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}

	o := apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})
	require.NotNil(t, o.Turn)
	assert.Equal(t, "", o.Turn.Winner)
	assert.Equal(t, "resource_exhaustion", o.Turn.Reason)
	assert.False(t, d.TurnActive)
	assert.Equal(t, map[string]int{"a": 0, "b": 0}, o.Turn.Score)
	require.NotNil(t, findEvent(o, EventFinishTurn, ""))
}

func TestReshuffleOnEmptyPile(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5))
	d.DiscardPile = []models.Card{green(1), green(2), red(5)}
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}
	total := d.CardCount()

	apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})
	assert.Equal(t, []models.Card{red(5)}, d.DiscardPile)
	assert.Len(t, d.DrawPile, 1)
	assert.Len(t, d.Hands["a"], 2)
	assert.Equal(t, total, d.CardCount())
	assert.Equal(t, "b", d.NextPlayer)
}

func TestHeldDrawCard(t *testing.T) {
	dl := testDealer()
	pile := append([]models.Card{red(9)}, filler(5)...)
	d := newTestDesk([]string{"a", "b"}, red(5), pile...)
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}

	o := apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})
	assert.True(t, d.CanPlayDrawCard)
	require.NotNil(t, d.HeldCard)
	assert.Equal(t, red(9), *d.HeldCard)
	assert.Equal(t, "a", d.NextPlayer)
	assert.True(t, findEvent(o, EventDrawCard, "").Data.(DrawCardData).CanPlayDrawCard)

	o = apply(t, dl, d, Command{Kind: CmdPlayDrawCard, Player: "a", IsPlay: true})
	assert.NoError(t, o.Violation)
	assert.Equal(t, red(9), *d.CurrentCard)
	assert.Equal(t, []models.Card{blue(1)}, d.Hands["a"])
	assert.Equal(t, "b", d.NextPlayer)
	assert.False(t, d.CanPlayDrawCard)
}

func TestHeldDrawCardDeclined(t *testing.T) {
	dl := testDealer()
	pile := append([]models.Card{red(9)}, filler(5)...)
	d := newTestDesk([]string{"a", "b"}, red(5), pile...)
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}

	apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})

	o := apply(t, dl, d, play("a", blue(1)))
	assert.ErrorIs(t, o.Violation, ErrHoldingDraw)

	d = newTestDesk([]string{"a", "b"}, red(5), pile...)
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}
	apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})
	o = apply(t, dl, d, Command{Kind: CmdPlayDrawCard, Player: "a"})
	assert.NoError(t, o.Violation)
	assert.Len(t, d.Hands["a"], 2)
	assert.Equal(t, "b", d.NextPlayer)

	o = apply(t, dl, d, Command{Kind: CmdPlayDrawCard, Player: "b"})
	assert.ErrorIs(t, o.Violation, ErrNotHoldingDraw)
}

func TestWildShuffleRedistributesAndLocks(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{wildShuf, red(1)}
	d.Hands["b"] = []models.Card{blue(1), blue(2), blue(3)}
	d.Hands["c"] = []models.Card{green(1), green(2)}
	total := d.CardCount()

	o := apply(t, dl, d, play("a", wildShuf))
	assert.NoError(t, o.Violation)
	assert.Equal(t, total, d.CardCount())
	for _, p := range []string{"a", "b", "c"} {
		assert.Len(t, d.Hands[p], 2, "hand of %s", p)
		ev := findEvent(o, EventShuffleWild, p)
		require.NotNil(t, ev)
		assert.Equal(t, 2, ev.Data.(ShuffleWildData).NumberCardOfPlayer[p])
	}
	assert.True(t, d.InterruptLocked)
	assert.Equal(t, "a", d.ColorPending)
	assert.Equal(t, "a", d.ExpectedActor())

	// everybody else is locked out until the color is chosen
	o = apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "a"})
	assert.ErrorIs(t, o.Violation, ErrInterruptLocked)

	d = newTestDesk([]string{"a", "b", "c"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{wildShuf, red(1)}
	d.Hands["b"] = []models.Card{blue(1), blue(2), blue(3)}
	d.Hands["c"] = []models.Card{green(1), green(2)}
	apply(t, dl, d, play("a", wildShuf))

	o = apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "b"})
	assert.ErrorIs(t, o.Violation, ErrInterruptLocked)
	assert.Len(t, d.Hands["b"], 4)
	assert.Equal(t, "a", d.ColorPending, "a bystander's penalty does not settle the color")

	o = apply(t, dl, d, Command{Kind: CmdColorOfWild, Player: "a", Color: models.ColorGreen})
	assert.NoError(t, o.Violation)
	assert.Equal(t, models.ColorGreen, d.CurrentCard.Color)
	assert.False(t, d.InterruptLocked)
	assert.Equal(t, "", d.ColorPending)
	assert.Equal(t, "b", d.NextPlayer)
}

func TestWildShuffleLastCardWinsAfterColor(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{wildShuf}
	d.Hands["b"] = []models.Card{blue(1), blue(2)}

	o := apply(t, dl, d, play("a", wildShuf))
	assert.Nil(t, o.Turn, "the end of turn waits for the color")
	assert.Empty(t, d.Hands["a"])
	assert.Len(t, d.Hands["b"], 2)

	o = apply(t, dl, d, Command{Kind: CmdColorOfWild, Player: "a", Color: models.ColorYellow})
	require.NotNil(t, o.Turn)
	assert.Equal(t, "a", o.Turn.Winner)
	assert.Equal(t, 3, o.Turn.Score["a"])
	assert.Equal(t, -3, o.Turn.Score["b"])
}

func TestColorOfWildOnlyFromPendingPlayer(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1)}
	d.Hands["b"] = []models.Card{blue(1)}

	o := apply(t, dl, d, Command{Kind: CmdColorOfWild, Player: "a", Color: models.ColorBlue})
	assert.ErrorIs(t, o.Violation, ErrColorNotPending)
}

func TestWhiteWildBind(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.WhiteWild = models.WhiteWildBind2
	d.Hands["a"] = []models.Card{whiteWild, red(1)}
	d.Hands["b"] = []models.Card{blue(7)}

	apply(t, dl, d, play("a", whiteWild))
	assert.Equal(t, models.ColorRed, d.CurrentCard.Color, "white wild keeps the covered color")
	assert.Equal(t, 1, d.ActivationCounts["b"])
	assert.Equal(t, "b", d.NextPlayer)
	assert.True(t, d.MustDraw)

	o := apply(t, dl, d, Command{Kind: CmdDrawCard, Player: "b"})
	assert.Equal(t, dl.Rules().BindDraw, findEvent(o, EventDrawCard, "").Data.(DrawCardData).DrawCount)
	assert.Len(t, d.Hands["b"], 1+dl.Rules().BindDraw)
	assert.Zero(t, d.ActivationCounts["b"])
	assert.Equal(t, "a", d.NextPlayer)
}

func TestWhiteWildSkipBind(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5), filler(10)...)
	d.WhiteWild = models.WhiteWildSkipBind2
	d.Hands["a"] = []models.Card{whiteWild, red(1)}
	d.Hands["b"] = []models.Card{blue(7)}
	d.Hands["c"] = []models.Card{blue(8)}

	apply(t, dl, d, play("a", whiteWild))
	assert.Equal(t, "c", d.NextPlayer)
	assert.Equal(t, 1, d.ActivationCounts["b"])
	assert.False(t, d.MustDraw)
}

func TestWhiteWildSuppressedOnLastCard(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.WhiteWild = models.WhiteWildBind2
	d.Hands["a"] = []models.Card{whiteWild}
	d.Hands["b"] = []models.Card{blue(7)}

	o := apply(t, dl, d, play("a", whiteWild))
	require.NotNil(t, o.Turn)
	assert.Equal(t, "a", o.Turn.Winner)
	assert.Empty(t, d.ActivationCounts)
}

func TestTimeoutPenalizesAndAdvances(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}
	d.AwaitingTimeout["a"] = true

	o := apply(t, dl, d, Command{Kind: CmdTimeout, Player: "a"})
	assert.Len(t, d.Hands["a"], 1+dl.Rules().TimeoutPenalty)
	assert.Equal(t, "b", d.NextPlayer)
	assert.True(t, d.AwaitingTimeout["b"])
	assert.False(t, d.AwaitingTimeout["a"])
	ev := findEvent(o, EventPenalty, "")
	require.NotNil(t, ev)
	assert.Equal(t, "timeout", ev.Data.(PenaltyData).Code)

	// a stale deadline of the same player is ignored
	_, err := dl.Apply(d, Command{Kind: CmdTimeout, Player: "a"})
	assert.ErrorIs(t, err, ErrTurnNotActive)
}

func TestTimeoutPicksPendingColor(t *testing.T) {
	dl := testDealer()
	d := newTestDesk([]string{"a", "b", "c"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{wildShuf, red(1)}
	d.Hands["b"] = []models.Card{blue(1)}
	d.Hands["c"] = []models.Card{green(1)}
	apply(t, dl, d, play("a", wildShuf))
	require.True(t, d.AwaitingTimeout["a"])

	apply(t, dl, d, Command{Kind: CmdTimeout, Player: "a"})
	assert.False(t, d.InterruptLocked)
	assert.Equal(t, "", d.ColorPending)
	assert.True(t, d.CurrentCard.Color.IsPlayable())
	assert.Equal(t, "b", d.NextPlayer)
}

func TestPenaltyIsCapped(t *testing.T) {
	rules := testRules()
	rules.MaxHandSize = 3
	dl := NewDealer(rules, rand.New(rand.NewSource(1)))
	d := newTestDesk([]string{"a", "b"}, red(5), filler(10)...)
	d.Hands["a"] = []models.Card{red(1)}
	d.Hands["b"] = []models.Card{blue(1), blue(2), blue(3)}

	o := apply(t, dl, d, play("b", blue(1)))
	assert.ErrorIs(t, o.Violation, ErrTurnViolation)
	assert.Len(t, d.Hands["b"], 3)
	assert.Equal(t, 0, findEvent(o, EventPenalty, "").Data.(PenaltyData).DrawCount)
}

func TestStalemateEndsTurn(t *testing.T) {
	rules := testRules()
	rules.StallRounds = 1
	dl := NewDealer(rules, rand.New(rand.NewSource(1)))
	d := newTestDesk([]string{"a", "b"}, red(5), filler(20)...)
	d.Hands["a"] = []models.Card{blue(1)}
	d.Hands["b"] = []models.Card{blue(2)}

	var last *Outcome
	for i := 0; i < 2; i++ {
		last = apply(t, dl, d, Command{Kind: CmdDrawCard, Player: d.NextPlayer})
		require.Nil(t, last.Turn)
	}
	last = apply(t, dl, d, Command{Kind: CmdDrawCard, Player: d.NextPlayer})
	require.NotNil(t, last.Turn)
	assert.Equal(t, "stalemate", last.Turn.Reason)
	assert.Equal(t, "", last.Turn.Winner)
}

func TestSpecialLogicLimit(t *testing.T) {
	rules := testRules()
	rules.SpecialLogicLimit = 2
	dl := NewDealer(rules, rand.New(rand.NewSource(1)))
	d := newTestDesk([]string{"a", "b"}, red(5))
	cmd := Command{Kind: CmdSpecialLogic, Player: "b", Title: "wave"}

	for i := 0; i < 2; i++ {
		o := apply(t, dl, d, cmd)
		require.Len(t, o.Activities, 1)
		assert.Equal(t, "special_logic", o.Activities[0].Type)
		assert.Empty(t, o.Events)
	}
	_, err := dl.Apply(d, cmd)
	assert.ErrorIs(t, err, ErrSpecialLogicLimit)
	assert.Equal(t, 2, d.SpecialLogicUsage["b"])

	_, err = dl.Apply(d, Command{Kind: CmdSpecialLogic, Player: "z"})
	assert.ErrorIs(t, err, ErrNotPlayer)
}

func TestPlayable(t *testing.T) {
	cur := red(5)
	assert.True(t, Playable(&cur, red(1)))
	assert.True(t, Playable(&cur, blue(5)))
	assert.True(t, Playable(&cur, wild))
	assert.True(t, Playable(&cur, whiteWild))
	assert.False(t, Playable(&cur, blue(1)))
	assert.False(t, Playable(&cur, models.SpecialCard(models.ColorBlue, models.SpecialSkip)))

	skip := redSkip
	assert.True(t, Playable(&skip, models.SpecialCard(models.ColorBlue, models.SpecialSkip)))
	assert.False(t, Playable(&skip, blue(5)))
}
