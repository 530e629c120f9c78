package domain

import (
	"strings"
	"time"
)

type Player struct {
	ID          string
	Username    string
	Ladder      string
	Rating      int
	Position    int
	TierValue   int // team ladder only
	Matches     int
	Wins        int
	Losses      int
	StreakStart *time.Time // set when the player first reached position 1
	Country     string
	HasTeam     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WinRate returns the win percentage in [0, 100].
func (p Player) WinRate() float64 {
	if p.Matches == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Matches) * 100
}

// Key is the normalized username used for identity comparisons.
func (p Player) Key() string {
	return NormalizeUsername(p.Username)
}

// Same reports whether two records refer to the same player.
func (p Player) Same(other Player) bool {
	if p.ID != "" && p.ID == other.ID {
		return true
	}
	return p.Key() != "" && p.Key() == other.Key()
}

func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type Side struct {
	PlayerID string
	Username string
	Score    int // kills
	Deaths   int
	Suicides int
}

type Placement struct {
	PlayerID  string
	Username  string
	Placement int
	Kills     int
	Deaths    int
}

type Match struct {
	ID           string
	Ladder       string
	Map          string
	Winner       Side
	Loser        Side
	Placements   []Placement // free-for-all only
	TotalPlayers int
	ApprovedAt   time.Time
	CreatedAt    time.Time
}

func (m Match) IsFreeForAll() bool {
	return len(m.Placements) > 0
}

// PlayerResult is a single player's view of a match.
type PlayerResult struct {
	MatchID       string
	Map           string
	OpponentID    string // empty for free-for-all
	Opponent      string
	Won           bool
	Placement     int
	TotalPlayers  int
	Kills         int
	Deaths        int
	OpponentKills int
	PlayedAt      time.Time
}

// ResultFor projects the match onto one participant, matched by id or
// normalized username.
func (m Match) ResultFor(playerID, username string) (PlayerResult, bool) {
	key := NormalizeUsername(username)
	is := func(id, name string) bool {
		if playerID != "" && id == playerID {
			return true
		}
		return key != "" && NormalizeUsername(name) == key
	}

	if m.IsFreeForAll() {
		total := m.TotalPlayers
		if total < len(m.Placements) {
			total = len(m.Placements)
		}
		for _, p := range m.Placements {
			if !is(p.PlayerID, p.Username) {
				continue
			}
			return PlayerResult{
				MatchID:      m.ID,
				Map:          m.Map,
				Won:          p.Placement == 1,
				Placement:    p.Placement,
				TotalPlayers: total,
				Kills:        p.Kills,
				Deaths:       p.Deaths,
				PlayedAt:     m.ApprovedAt,
			}, true
		}
		return PlayerResult{}, false
	}

	switch {
	case is(m.Winner.PlayerID, m.Winner.Username):
		return PlayerResult{
			MatchID:       m.ID,
			Map:           m.Map,
			OpponentID:    m.Loser.PlayerID,
			Opponent:      m.Loser.Username,
			Won:           true,
			Placement:     1,
			TotalPlayers:  2,
			Kills:         m.Winner.Score,
			Deaths:        m.Winner.Deaths + m.Winner.Suicides,
			OpponentKills: m.Loser.Score,
			PlayedAt:      m.ApprovedAt,
		}, true
	case is(m.Loser.PlayerID, m.Loser.Username):
		return PlayerResult{
			MatchID:       m.ID,
			Map:           m.Map,
			OpponentID:    m.Winner.PlayerID,
			Opponent:      m.Winner.Username,
			Won:           false,
			Placement:     2,
			TotalPlayers:  2,
			Kills:         m.Loser.Score,
			Deaths:        m.Loser.Deaths + m.Loser.Suicides,
			OpponentKills: m.Winner.Score,
			PlayedAt:      m.ApprovedAt,
		}, true
	}
	return PlayerResult{}, false
}

// ResultsFor collects the player's results across matches, keeping input order.
func ResultsFor(matches []Match, playerID, username string) []PlayerResult {
	var results []PlayerResult
	for _, m := range matches {
		if r, ok := m.ResultFor(playerID, username); ok {
			results = append(results, r)
		}
	}
	return results
}

const (
	HistoryKindRating    = "rating"
	HistoryKindTierValue = "tier_value"
)

type Milestone struct {
	From     string
	To       string
	Promoted bool
}

// RatingHistoryEntry is append-only; one per rating update.
type RatingHistoryEntry struct {
	ID             string // nanoid
	PlayerID       string
	Ladder         string
	MatchID        string
	Kind           string
	PreviousRating int
	NewRating      int
	Change         int
	Milestone      *Milestone
	CreatedAt      time.Time
}
