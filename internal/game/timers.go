// internal/game/timers.go
package game

import (
	"sync"
	"time"
)

// TimerRegistry owns the action deadlines of one room. Every armed deadline carries a generation
// token; a deadline fires its callback at most once, and only Claim with the current token
// succeeds, so a cancelled or re-armed deadline can never be acted upon.
type TimerRegistry struct {
	mu      sync.Mutex
	timers  map[string]*deadline
	nextGen uint64
	fire    func(player string, gen uint64)
}

type deadline struct {
	gen   uint64
	timer *time.Timer
}

// NewTimerRegistry builds a registry. fire runs on the timer goroutine; it is expected to hand the
// timeout to the room serializer rather than touch state itself.
func NewTimerRegistry(fire func(player string, gen uint64)) *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[string]*deadline),
		fire:   fire,
	}
}

// Arm replaces any deadline of player with a new one after d and returns its generation.
// A non-positive d records the generation without scheduling anything.
func (r *TimerRegistry) Arm(player string, d time.Duration) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(player)
	r.nextGen++
	gen := r.nextGen
	dl := &deadline{gen: gen}
	if d > 0 {
		dl.timer = time.AfterFunc(d, func() {
			if r.fire != nil {
				r.fire(player, gen)
			}
		})
	}
	r.timers[player] = dl
	return gen
}

// Cancel stops the deadline of player, if any.
func (r *TimerRegistry) Cancel(player string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(player)
}

// CancelAll stops every deadline of the room.
func (r *TimerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p := range r.timers {
		r.stopLocked(p)
	}
}

// Claim consumes the deadline of player when gen is still current. It returns false for stale
// or already claimed deadlines.
func (r *TimerRegistry) Claim(player string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	dl, ok := r.timers[player]
	if !ok || dl.gen != gen {
		return false
	}
	delete(r.timers, player)
	return true
}

// Armed reports whether player has a live deadline.
func (r *TimerRegistry) Armed(player string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[player]
	return ok
}

func (r *TimerRegistry) stopLocked(player string) {
	if dl, ok := r.timers[player]; ok {
		if dl.timer != nil {
			dl.timer.Stop()
		}
		delete(r.timers, player)
	}
}
