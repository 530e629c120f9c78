// Package tier derives discrete rank tiers from rating, win-rate and match count.
package tier

type Tier struct {
	Name  string `json:"name"`
	Level int    `json:"level"` // 0 is Unranked; higher is better
}

var Unranked = Tier{Name: "Unranked", Level: 0}

func (t Tier) IsRanked() bool { return t.Level > 0 }

// Threshold is one bracket. A zero MinRating means the bracket has no rating
// requirement.
type Threshold struct {
	Name       string  `yaml:"name"`
	MinRating  int     `yaml:"min_rating"`
	MinWinRate float64 `yaml:"min_win_rate"`
	MinMatches int     `yaml:"min_matches"`
}

// Table lists brackets from the highest tier down. FloorMatches > 0 enables
// the rank floor: players with at least that many matches never fall below
// the lowest listed tier.
type Table struct {
	Name         string      `yaml:"name"`
	Tiers        []Threshold `yaml:"tiers"`
	FloorMatches int         `yaml:"floor_matches"`
}

// WithFloor returns a copy of the table with the rank floor set.
func (t Table) WithFloor(matches int) Table {
	t.Tiers = append([]Threshold(nil), t.Tiers...)
	t.FloorMatches = matches
	return t
}

// Levels lists every tier in the table, lowest first, Unranked included.
func (t Table) Levels() []Tier {
	out := []Tier{Unranked}
	for i := len(t.Tiers) - 1; i >= 0; i-- {
		out = append(out, t.at(i))
	}
	return out
}

func (t Table) at(i int) Tier {
	return Tier{Name: t.Tiers[i].Name, Level: len(t.Tiers) - i}
}

// Classify evaluates the table top-down so that the extra conditions of a
// higher tier never match a lower bracket.
func Classify(t Table, rating, matches int, winRatePercent float64) Tier {
	if matches <= 0 || len(t.Tiers) == 0 {
		return Unranked
	}

	for i, th := range t.Tiers {
		if th.MinRating != 0 && rating < th.MinRating {
			continue
		}
		if winRatePercent < th.MinWinRate || matches < th.MinMatches {
			continue
		}
		return t.at(i)
	}

	if t.FloorMatches > 0 && matches >= t.FloorMatches {
		return t.at(len(t.Tiers) - 1)
	}
	return Unranked
}

// Crossed reports a tier change between two classifications.
func Crossed(before, after Tier) (promoted, changed bool) {
	if before.Level == after.Level {
		return false, false
	}
	return after.Level > before.Level, true
}

// RatingTable is the default table for rating-ordered ladders.
func RatingTable() Table {
	return Table{
		Name: "rating",
		Tiers: []Threshold{
			{Name: "Emerald", MinRating: 1000, MinWinRate: 80, MinMatches: 20},
			{Name: "Gold", MinRating: 700},
			{Name: "Silver", MinRating: 500},
			{Name: "Bronze", MinRating: 200},
		},
	}
}

// TeamTable is the win-rate based table used by the team ladder.
func TeamTable() Table {
	return Table{
		Name: "team",
		Tiers: []Threshold{
			{Name: "Champion", MinWinRate: 75, MinMatches: 25},
			{Name: "Elite", MinWinRate: 65, MinMatches: 15},
			{Name: "Veteran", MinWinRate: 55, MinMatches: 10},
			{Name: "Skilled", MinWinRate: 45, MinMatches: 5},
			{Name: "Rookie"},
		},
	}
}
