// Package matchmaking suggests the next opponent (or teammate) for a player.
package matchmaking

import (
	"math"

	"ladder-engine/internal/domain"
	"ladder-engine/internal/rating"
	"ladder-engine/internal/tier"
)

const (
	proximityBase    = 100.0
	proximityPerGap  = 0.5
	sweetSpotScore   = 50.0
	worthwhileScore  = 30.0
	fallbackScore    = 10.0
	sameTierBonus    = 40.0
	sweetSpotMinGain = 3
	sweetSpotMaxGain = 8
	worthwhileMax    = 15
)

type Candidate struct {
	Player       domain.Player `json:"player"`
	Tier         tier.Tier     `json:"tier"`
	RatingGap    int           `json:"rating_gap"`
	ExpectedGain int           `json:"expected_gain"`
	Proximity    float64       `json:"proximity"`
	GainScore    float64       `json:"gain_score"`
	TierBonus    float64       `json:"tier_bonus"`
	Score        float64       `json:"score"`
}

type Options struct {
	KFactor int
	Tiers   tier.Table
}

// Recommend picks the candidate with the best competitive value. Candidates
// the player cannot gain rating against are skipped; ok is false when none
// remain. Ties keep the earliest candidate in pool order.
func Recommend(player domain.Player, pool []domain.Player, opts Options) (Candidate, bool) {
	k := opts.KFactor
	if k <= 0 {
		k = rating.DefaultK
	}
	playerTier := tier.Classify(opts.Tiers, player.Rating, player.Matches, player.WinRate())

	var best Candidate
	found := false
	for _, c := range pool {
		if player.Same(c) {
			continue
		}
		gain := rating.ExpectedGain(player.Rating, c.Rating, k)
		if gain <= 0 {
			continue
		}

		gap := abs(player.Rating - c.Rating)
		candTier := tier.Classify(opts.Tiers, c.Rating, c.Matches, c.WinRate())
		cand := Candidate{
			Player:       c,
			Tier:         candTier,
			RatingGap:    gap,
			ExpectedGain: gain,
			Proximity:    proximity(gap),
			GainScore:    gainScore(gain),
		}
		if candTier.Level == playerTier.Level {
			cand.TierBonus = sameTierBonus
		}
		cand.Score = cand.Proximity + cand.GainScore + cand.TierBonus

		if !found || cand.Score > best.Score {
			best, found = cand, true
		}
	}
	return best, found
}

// FindTeammate looks for the closest-rated player without a team. Forming a
// team is not a win or loss, so there is no gain filter.
func FindTeammate(player domain.Player, pool []domain.Player) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range pool {
		if player.Same(c) || c.HasTeam {
			continue
		}
		gap := abs(player.Rating - c.Rating)
		cand := Candidate{
			Player:    c,
			RatingGap: gap,
			Proximity: proximity(gap),
		}
		cand.Score = cand.Proximity
		if !found || gap < best.RatingGap {
			best, found = cand, true
		}
	}
	return best, found
}

func proximity(gap int) float64 {
	return math.Max(0, proximityBase-proximityPerGap*float64(gap))
}

func gainScore(gain int) float64 {
	switch {
	case gain >= sweetSpotMinGain && gain <= sweetSpotMaxGain:
		return sweetSpotScore
	case gain > 0 && gain < worthwhileMax:
		return worthwhileScore
	default:
		return fallbackScore
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
