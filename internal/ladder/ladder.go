// Package ladder maintains the dense 1..N position order of a position-ranked ladder.
//
// Apply mutates shared roster state. Callers must serialize calls per ladder;
// the package itself performs no locking.
package ladder

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ladder-engine/internal/domain"
)

var (
	ErrInputNotFound      = errors.New("player not found in roster")
	ErrInvariantViolation = errors.New("ladder positions are not a dense unique sequence")
	ErrSamePlayer         = errors.New("winner and loser are the same player")
)

type PositionChange struct {
	PlayerID    string `json:"player_id"`
	OldPosition int    `json:"old_position"`
	NewPosition int    `json:"new_position"`
}

// StreakChange sets (non-nil) or clears (nil) a player's streak anchor.
type StreakChange struct {
	PlayerID    string     `json:"player_id"`
	StreakStart *time.Time `json:"streak_start"`
}

type Result struct {
	Roster  []domain.Player
	Diff    []PositionChange
	Streaks []StreakChange
}

func (r Result) Reordered() bool {
	return len(r.Diff) > 0
}

// Validate checks that positions are exactly {1..N} with no duplicates.
func Validate(roster []domain.Player) error {
	seen := make(map[int]string, len(roster))
	for _, p := range roster {
		if p.Position < 1 || p.Position > len(roster) {
			return fmt.Errorf("%w: %s holds position %d of %d", ErrInvariantViolation, p.ID, p.Position, len(roster))
		}
		if other, dup := seen[p.Position]; dup {
			return fmt.Errorf("%w: %s and %s both hold position %d", ErrInvariantViolation, other, p.ID, p.Position)
		}
		seen[p.Position] = p.ID
	}
	return nil
}

// Apply records that winnerID beat loserID. When the winner was ranked below
// the loser, the winner takes the loser's position and everyone in
// [loserPosition, winnerPosition) moves down one slot. The input roster is
// not modified.
func Apply(roster []domain.Player, winnerID, loserID string, now time.Time) (Result, error) {
	if winnerID == loserID {
		return Result{}, fmt.Errorf("%w: %s", ErrSamePlayer, winnerID)
	}

	wi, li := -1, -1
	for i, p := range roster {
		switch p.ID {
		case winnerID:
			wi = i
		case loserID:
			li = i
		}
	}
	if wi < 0 {
		return Result{}, fmt.Errorf("%w: winner %s", ErrInputNotFound, winnerID)
	}
	if li < 0 {
		return Result{}, fmt.Errorf("%w: loser %s", ErrInputNotFound, loserID)
	}
	if err := Validate(roster); err != nil {
		return Result{}, err
	}

	out := make([]domain.Player, len(roster))
	copy(out, roster)

	winnerPos, loserPos := out[wi].Position, out[li].Position
	if winnerPos <= loserPos {
		return Result{Roster: out}, nil
	}

	var res Result
	for i := range out {
		p := &out[i]
		if p.Position < loserPos || p.Position >= winnerPos {
			continue
		}
		if p.Position == 1 {
			// displaced champion loses the streak anchor
			if p.StreakStart != nil {
				p.StreakStart = nil
				res.Streaks = append(res.Streaks, StreakChange{PlayerID: p.ID})
			}
		}
		res.Diff = append(res.Diff, PositionChange{PlayerID: p.ID, OldPosition: p.Position, NewPosition: p.Position + 1})
		p.Position++
	}

	w := &out[wi]
	res.Diff = append(res.Diff, PositionChange{PlayerID: w.ID, OldPosition: w.Position, NewPosition: loserPos})
	w.Position = loserPos
	if loserPos == 1 && w.StreakStart == nil {
		stamp := now
		w.StreakStart = &stamp
		res.Streaks = append(res.Streaks, StreakChange{PlayerID: w.ID, StreakStart: &stamp})
	}

	if err := Validate(out); err != nil {
		return Result{}, err
	}

	sort.Slice(res.Diff, func(i, j int) bool { return res.Diff[i].NewPosition < res.Diff[j].NewPosition })
	res.Roster = out
	return res, nil
}

// Sorted returns a copy ordered by position.
func Sorted(roster []domain.Player) []domain.Player {
	out := append([]domain.Player(nil), roster...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// NextPosition is the position a newly joined player takes.
func NextPosition(roster []domain.Player) int {
	return len(roster) + 1
}
