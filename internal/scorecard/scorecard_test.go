package scorecard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ladder-engine/internal/domain"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type duel struct {
	opponent  string
	won       bool
	kills     int
	oppKills  int
	deaths    int
	oppDeaths int
	mapName   string
}

func history(me string, duels []duel) []domain.Match {
	out := make([]domain.Match, len(duels))
	for i, d := range duels {
		mine := domain.Side{PlayerID: "id-" + me, Username: me, Score: d.kills, Deaths: d.deaths}
		theirs := domain.Side{PlayerID: "id-" + d.opponent, Username: d.opponent, Score: d.oppKills, Deaths: d.oppDeaths}
		m := domain.Match{
			ID:         fmt.Sprintf("m%d", i),
			Ladder:     "d1",
			Map:        d.mapName,
			ApprovedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if d.won {
			m.Winner, m.Loser = mine, theirs
		} else {
			m.Winner, m.Loser = theirs, mine
		}
		out[i] = m
	}
	return out
}

// spread builds n duels cycling over the given opponents.
func spread(n int, opponents []string, d duel) []duel {
	out := make([]duel, n)
	for i := range out {
		out[i] = d
		out[i].opponent = opponents[i%len(opponents)]
		if out[i].mapName == "" {
			out[i].mapName = fmt.Sprintf("map-%d", i%10)
		}
	}
	return out
}

var six = []string{"ana", "bo", "cy", "dee", "eli", "fox"}

func TestGradeEligibility(t *testing.T) {
	win := duel{won: true, kills: 20, oppKills: 5, deaths: 5}

	t.Run("one match short", func(t *testing.T) {
		res := Grade("me", history("me", spread(29, six, win)))
		require.False(t, res.Graded())
		require.NotNil(t, res.Insufficient)
		require.Equal(t, 1, res.Insufficient.MatchesNeeded)
		require.Equal(t, 0, res.Insufficient.OpponentsNeeded)
		require.Equal(t, 29, res.Insufficient.Matches)
		require.Equal(t, 6, res.Insufficient.Opponents)
	})

	t.Run("one opponent short", func(t *testing.T) {
		res := Grade("me", history("me", spread(30, six[:5], win)))
		require.False(t, res.Graded())
		require.Equal(t, 0, res.Insufficient.MatchesNeeded)
		require.Equal(t, 1, res.Insufficient.OpponentsNeeded)
	})

	t.Run("single big win is not graded", func(t *testing.T) {
		res := Grade("me", history("me", []duel{{opponent: "ana", won: true, kills: 20, oppKills: 5, mapName: "x"}}))
		require.Nil(t, res.Card)
		require.Equal(t, 29, res.Insufficient.MatchesNeeded)
		require.Equal(t, 5, res.Insufficient.OpponentsNeeded)
	})

	t.Run("no history", func(t *testing.T) {
		res := Grade("me", nil)
		require.Equal(t, MinMatches, res.Insufficient.MatchesNeeded)
		require.Equal(t, MinOpponents, res.Insufficient.OpponentsNeeded)
	})
}

func TestGradeDominantPlayer(t *testing.T) {
	res := Grade("Me", history("me", spread(36, six, duel{won: true, kills: 20, oppKills: 5, deaths: 5})))
	require.True(t, res.Graded())
	card := res.Card

	require.Equal(t, 36, card.Matches)
	require.Equal(t, 6, card.Opponents)
	require.False(t, card.Adjusted)
	require.InDelta(t, 100, card.WinRate.Value, 1e-9)
	require.InDelta(t, 20, card.AverageScore.Value, 1e-9)
	require.InDelta(t, 70, card.OpponentMastery.Value, 1e-9)
	require.InDelta(t, 100, card.MapMastery.Value, 1e-9)
	require.InDelta(t, 4, card.KDRatio.Value, 1e-9)
	for _, m := range card.Metrics() {
		require.Equal(t, S, m.Grade, m.Name)
	}
	require.InDelta(t, 100, card.OverallScore, 1e-9)
	require.Equal(t, S, card.Overall)
	require.Equal(t, "map-0", card.BestMap)
}

func TestGradeAveragePlayer(t *testing.T) {
	var duels []duel
	for i := 0; i < 30; i++ {
		d := duel{opponent: six[i%6], kills: 10, deaths: 10, mapName: "Arena"}
		if i%2 == 0 {
			d.won, d.oppKills = true, 8
		} else {
			d.oppKills = 12
		}
		duels = append(duels, d)
	}

	card := Grade("me", history("me", duels)).Card
	require.NotNil(t, card)

	require.Equal(t, C, card.WinRate.Grade)
	require.Equal(t, C, card.AverageScore.Grade)
	require.InDelta(t, 15, card.OpponentMastery.Value, 1e-9)
	require.Equal(t, D, card.OpponentMastery.Grade)
	require.InDelta(t, 38, card.MapMastery.Value, 1e-9)
	require.Equal(t, F, card.MapMastery.Grade)
	require.Equal(t, C, card.KDRatio.Grade)
	require.InDelta(t, 46.75, card.OverallScore, 1e-9)
	require.Equal(t, D, card.Overall)
}

func TestGradeFarmedOpponentIsCapped(t *testing.T) {
	var duels []duel
	for i := 0; i < 60; i++ {
		duels = append(duels, duel{opponent: "farm", won: true, kills: 20, deaths: 2, mapName: fmt.Sprintf("map-%d", i%10)})
	}
	for i := 0; i < 10; i++ {
		duels = append(duels, duel{opponent: six[i%5], kills: 5, oppKills: 20, deaths: 10, mapName: "map-0"})
	}

	card := Grade("me", history("me", duels)).Card
	require.NotNil(t, card)
	require.True(t, card.Adjusted)
	require.Equal(t, 70, card.Matches)
	require.Equal(t, 6, card.Opponents)

	// 30 capped wins out of 40 counted matches instead of 60 of 70
	require.InDelta(t, 75, card.WinRate.Value, 1e-9)
	require.InDelta(t, 650.0/40.0, card.AverageScore.Value, 1e-9)
	require.InDelta(t, 650.0/160.0, card.KDRatio.Value, 1e-9)
}

func TestGradeShareAtCapIsNotAdjusted(t *testing.T) {
	win := duel{won: true, kills: 15, oppKills: 10, deaths: 8}
	duels := spread(9, []string{"ana"}, win)
	duels = append(duels, spread(21, six[1:], win)...)

	card := Grade("me", history("me", duels)).Card
	require.NotNil(t, card)
	require.False(t, card.Adjusted)
}

func TestGradeIgnoresFreeForAll(t *testing.T) {
	matches := history("me", spread(29, six, duel{won: true, kills: 20, oppKills: 5, deaths: 5}))
	matches = append(matches, domain.Match{
		ID:         "ffa",
		Placements: []domain.Placement{{Username: "me", Placement: 1, Kills: 30}, {Username: "ana", Placement: 2}},
	})

	res := Grade("me", matches)
	require.False(t, res.Graded())
	require.Equal(t, 1, res.Insufficient.MatchesNeeded)
}

func TestLetterPoints(t *testing.T) {
	require.Equal(t, 100.0, S.Points())
	require.Equal(t, 20.0, F.Points())
	require.Equal(t, A, overallCutoffs.letter(82))
	require.Equal(t, B, overallCutoffs.letter(81.99))
	require.Equal(t, F, overallCutoffs.letter(39.9))
}
