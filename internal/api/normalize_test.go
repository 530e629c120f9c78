package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, raw string) Document {
	t.Helper()
	var d Document
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

func TestNormalizePlayerAliases(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		rating  int
		matches int
	}{
		{name: "rating", raw: `{"id":"p1","username":"Alpha","rating":1200,"wins":3,"losses":1}`, rating: 1200, matches: 4},
		{name: "elo", raw: `{"id":"p1","name":"Alpha","elo":950.6,"matches":10}`, rating: 951, matches: 10},
		{name: "eloRating as string", raw: `{"_id":"p1","player":"Alpha","eloRating":"700"}`, rating: 700, matches: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NormalizePlayer("d1", doc(t, tt.raw))
			require.NoError(t, err)
			require.Equal(t, "p1", p.ID)
			require.Equal(t, "Alpha", p.Username)
			require.Equal(t, "d1", p.Ladder)
			require.Equal(t, tt.rating, p.Rating)
			require.Equal(t, tt.matches, p.Matches)
		})
	}
}

func TestNormalizePlayerDerivesStableID(t *testing.T) {
	a, err := NormalizePlayer("d1", doc(t, `{"username":"Alpha","rating":200}`))
	require.NoError(t, err)
	b, err := NormalizePlayer("d1", doc(t, `{"username":" alpha ","rating":300}`))
	require.NoError(t, err)
	c, err := NormalizePlayer("d2", doc(t, `{"username":"Alpha","rating":200}`))
	require.NoError(t, err)

	require.NotEmpty(t, a.ID)
	require.Equal(t, a.ID, b.ID)
	require.NotEqual(t, a.ID, c.ID)
}

func TestNormalizePlayerRejectsIncomplete(t *testing.T) {
	_, err := NormalizePlayer("d1", doc(t, `{"rating":200}`))
	require.ErrorIs(t, err, ErrMalformedDocument)

	_, err = NormalizePlayer("d1", doc(t, `{"username":"Alpha"}`))
	require.ErrorIs(t, err, ErrMalformedDocument)
}

func TestNormalizeMatchOneVersusOne(t *testing.T) {
	m, err := NormalizeMatch("d1", doc(t, `{
		"id": "m1",
		"mapPlayed": "Facing Worlds",
		"winner": "Alpha",
		"loser": "Bravo",
		"winnerKills": 20,
		"loserScore": 14,
		"winnerDeaths": 14,
		"loserDeaths": 18,
		"loserSuicides": 2,
		"approvedAt": "2026-03-01T12:00:00Z"
	}`))
	require.NoError(t, err)

	require.Equal(t, "m1", m.ID)
	require.Equal(t, "Facing Worlds", m.Map)
	require.Equal(t, "Alpha", m.Winner.Username)
	require.Equal(t, 20, m.Winner.Score)
	require.Equal(t, 14, m.Loser.Score)
	require.Equal(t, 2, m.Loser.Suicides)
	require.Equal(t, 2, m.TotalPlayers)
	require.False(t, m.IsFreeForAll())
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), m.ApprovedAt)
}

func TestNormalizeMatchFreeForAll(t *testing.T) {
	m, err := NormalizeMatch("ffa", doc(t, `{
		"approved_at": 1772366400,
		"players": [
			{"username": "Alpha", "position": 1, "kills": 30, "deaths": 5},
			{"player": "Bravo", "placement": 2, "score": 22},
			{"name": "Charlie", "place": 3}
		],
		"totalPlayers": 4
	}`))
	require.NoError(t, err)

	require.True(t, m.IsFreeForAll())
	require.Len(t, m.Placements, 3)
	require.Equal(t, 4, m.TotalPlayers)
	require.Equal(t, 22, m.Placements[1].Kills)
	require.Equal(t, 3, m.Placements[2].Placement)
	require.Equal(t, time.Unix(1772366400, 0).UTC(), m.ApprovedAt)
	require.NotEmpty(t, m.ID)
}

func TestNormalizeMatchTimestampForms(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, raw := range map[string]string{
		"rfc3339": `{"winner":"a","loser":"b","approvedAt":"2026-03-01T12:00:00Z"}`,
		"millis":  `{"winner":"a","loser":"b","approvedAt":1772366400000}`,
		"object":  `{"winner":"a","loser":"b","approvedAt":{"_seconds":1772366400,"_nanoseconds":0}}`,
	} {
		t.Run(name, func(t *testing.T) {
			m, err := NormalizeMatch("d1", doc(t, raw))
			require.NoError(t, err)
			require.Equal(t, want, m.ApprovedAt)
		})
	}
}

func TestNormalizeMatchDerivedIDIsStable(t *testing.T) {
	raw := `{"winner":"Alpha","loser":"Bravo","map":"Deck16","approvedAt":"2026-03-01T12:00:00Z"}`
	a, err := NormalizeMatch("d1", doc(t, raw))
	require.NoError(t, err)
	b, err := NormalizeMatch("d1", doc(t, raw))
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)
}

func TestNormalizeMatchRejectsIncomplete(t *testing.T) {
	for name, raw := range map[string]string{
		"no time":          `{"winner":"a","loser":"b"}`,
		"no loser":         `{"winner":"a","approvedAt":"2026-03-01T12:00:00Z"}`,
		"placement absent": `{"approvedAt":"2026-03-01T12:00:00Z","placements":[{"username":"a"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeMatch("d1", doc(t, raw))
			require.ErrorIs(t, err, ErrMalformedDocument)
		})
	}
}
