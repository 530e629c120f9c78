// Package momentum classifies a player's short-window form.
package momentum

import (
	"fmt"
	"math"
	"time"

	"ladder-engine/internal/domain"
)

type State int

const (
	Frozen State = iota - 3
	Cold
	Cool
	Neutral
	Warm
	Hot
	Blazing
)

func (s State) String() string {
	switch s {
	case Frozen:
		return "Frozen"
	case Cold:
		return "Cold"
	case Cool:
		return "Cool"
	case Warm:
		return "Warm"
	case Hot:
		return "Hot"
	case Blazing:
		return "Blazing"
	default:
		return "Neutral"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st := Frozen; st <= Blazing; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown momentum state %q", text)
}

const Window = 7 * 24 * time.Hour

type bracket struct {
	state      State
	minMatches int
	rate       float64
}

// most extreme first
var (
	hotBrackets = []bracket{
		{state: Blazing, minMatches: 8, rate: 0.80},
		{state: Hot, minMatches: 5, rate: 0.70},
		{state: Warm, minMatches: 3, rate: 0.60},
	}
	coldBrackets = []bracket{
		{state: Frozen, minMatches: 8, rate: 0.20},
		{state: Cold, minMatches: 5, rate: 0.30},
		{state: Cool, minMatches: 3, rate: 0.40},
	}
)

type Summary struct {
	Matches       int     `json:"matches"`
	TopHalfRate   float64 `json:"top_half_rate"`
	KD            float64 `json:"kd"`
	Penalty       float64 `json:"penalty"`
	EffectiveRate float64 `json:"effective_rate"`
	State         State   `json:"state"`
}

// Classify returns the momentum state for results played in the trailing window.
func Classify(results []domain.PlayerResult, now time.Time) State {
	return Evaluate(results, now).State
}

// Evaluate exposes the intermediate numbers behind the classification.
func Evaluate(results []domain.PlayerResult, now time.Time) Summary {
	cutoff := now.Add(-Window)

	var matches, topHalf, kills, deaths int
	for _, r := range results {
		if r.PlayedAt.Before(cutoff) || r.PlayedAt.After(now) {
			continue
		}
		matches++
		kills += r.Kills
		deaths += r.Deaths
		if inTopHalf(r) {
			topHalf++
		}
	}

	if matches == 0 {
		return Summary{State: Neutral, Penalty: 1}
	}

	kd := float64(kills)
	if deaths > 0 {
		kd = float64(kills) / float64(deaths)
	}

	penalty := 1.0
	switch {
	case kd < 0.5:
		penalty = 0.6
	case kd < 1.0:
		penalty = 0.8
	}

	rate := float64(topHalf) / float64(matches)
	s := Summary{
		Matches:       matches,
		TopHalfRate:   rate,
		KD:            kd,
		Penalty:       penalty,
		EffectiveRate: rate * penalty,
	}
	s.State = classify(s.Matches, s.EffectiveRate)
	return s
}

func classify(matches int, rate float64) State {
	for _, b := range hotBrackets {
		if matches >= b.minMatches && rate >= b.rate {
			return b.state
		}
	}
	for _, b := range coldBrackets {
		if matches >= b.minMatches && rate <= b.rate {
			return b.state
		}
	}
	return Neutral
}

func inTopHalf(r domain.PlayerResult) bool {
	if r.TotalPlayers <= 2 || r.Placement <= 0 {
		return r.Won
	}
	return r.Placement <= int(math.Ceil(float64(r.TotalPlayers)/2))
}
