// Package rating implements the logistic (Elo) rating update.
package rating

import "math"

const (
	DefaultK   = 32
	TierValueK = 25

	scale = 400.0

	// keeps Expected strictly inside (0, 1) for extreme gaps
	minExpected = 1e-9
)

type Change struct {
	WinnerDelta    int
	LoserDelta     int
	WinnerExpected float64
	LoserExpected  float64
}

// Expected returns the expected score of a player rated a against b.
func Expected(a, b int) float64 {
	e := 1.0 / (1.0 + math.Pow(10, float64(b-a)/scale))
	return math.Min(math.Max(e, minExpected), 1-minExpected)
}

// Compute returns the rating deltas when the first player beats the second.
func Compute(winnerRating, loserRating, k int) Change {
	we := Expected(winnerRating, loserRating)
	le := Expected(loserRating, winnerRating)
	return Change{
		WinnerDelta:    round(float64(k) * (1 - we)),
		LoserDelta:     round(float64(k) * (0 - le)),
		WinnerExpected: we,
		LoserExpected:  le,
	}
}

// ComputeTierValue is the team ladder's secondary update. Every decided match
// moves both sides by at least one point. k <= 0 selects TierValueK.
func ComputeTierValue(winnerValue, loserValue, k int) Change {
	if k <= 0 {
		k = TierValueK
	}
	c := Compute(winnerValue, loserValue, k)
	if c.WinnerDelta < 1 {
		c.WinnerDelta = 1
	}
	if c.LoserDelta > -1 {
		c.LoserDelta = -1
	}
	return c
}

// ExpectedGain is what the player would win by beating the opponent.
func ExpectedGain(playerRating, opponentRating, k int) int {
	return Compute(playerRating, opponentRating, k).WinnerDelta
}

// math.Round rounds half away from zero.
func round(v float64) int {
	return int(math.Round(v))
}
