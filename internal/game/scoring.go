// internal/game/scoring.go
package game

import (
	"sort"

	"github.com/jason-s-yu/unodealer/internal/models"
)

// TurnScores scores a finished turn. Every loser scores minus the points left in their hand and
// the winner collects the sum. Without a winner everybody scores 0.
func TurnScores(players []string, hands map[string][]models.Card, winner string) map[string]int {
	scores := make(map[string]int, len(players))
	if winner == "" {
		for _, p := range players {
			scores[p] = 0
		}
		return scores
	}
	total := 0
	for _, p := range players {
		if p == winner {
			continue
		}
		s := -models.CountPoints(hands[p])
		scores[p] = s
		total += s
	}
	scores[winner] = -total
	return scores
}

// Placement ranks players by score, highest first. Equal scores share a rank.
func Placement(players []string, scores map[string]int) map[string]int {
	ranked := append([]string(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	order := make(map[string]int, len(ranked))
	for i, p := range ranked {
		if i > 0 && scores[p] == scores[ranked[i-1]] {
			order[p] = order[ranked[i-1]]
			continue
		}
		order[p] = i + 1
	}
	return order
}

// GameWinner picks the player with the highest cumulative score. A tie goes to whoever reached
// that total first in their per-turn history, then to seat order.
func GameWinner(players []string, totals map[string]int, history map[string][]int) string {
	if len(players) == 0 {
		return ""
	}
	best := totals[players[0]]
	for _, p := range players[1:] {
		if totals[p] > best {
			best = totals[p]
		}
	}

	winner, reachedAt := "", -1
	for _, p := range players {
		if totals[p] != best {
			continue
		}
		at := firstReached(history[p], best)
		if winner == "" || (at >= 0 && (reachedAt < 0 || at < reachedAt)) {
			winner, reachedAt = p, at
		}
	}
	return winner
}

// firstReached returns the first turn index at which the running sum of scores reached target.
func firstReached(scores []int, target int) int {
	sum := 0
	for i, s := range scores {
		sum += s
		if sum >= target {
			return i
		}
	}
	return -1
}
