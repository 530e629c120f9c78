package domain

import "ladder-engine/internal/tier"

type LadderKind string

const (
	KindSingle LadderKind = "single"
	KindTeam   LadderKind = "team"
	KindFFA    LadderKind = "ffa"
)

type Ordering string

const (
	OrderByPosition Ordering = "position"
	OrderByRating   Ordering = "rating"
	OrderByWinRate  Ordering = "win_rate"
)

// LadderConfig carries everything that differs between ladders so that one
// implementation of each engine component serves all of them.
type LadderConfig struct {
	Name              string
	Kind              LadderKind
	Ordering          Ordering
	StartingRating    int
	KFactor           int
	TierValueK        int
	StartingTierValue int
	Tiers             tier.Table
}

func (c LadderConfig) UsesPositions() bool {
	return c.Ordering == OrderByPosition
}

func (c LadderConfig) IsTeam() bool {
	return c.Kind == KindTeam
}

func (c LadderConfig) IsFreeForAll() bool {
	return c.Kind == KindFFA
}

// TierOf classifies a player against the ladder's tier table.
func (c LadderConfig) TierOf(p Player) tier.Tier {
	return tier.Classify(c.Tiers, p.Rating, p.Matches, p.WinRate())
}
