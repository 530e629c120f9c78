package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"ladder-engine/internal/api"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
)

const (
	remotePlayers = `{"data":[
		{"id":"r1","username":"Alpha","rating":300,"position":1,"wins":1,"losses":0},
		{"id":"r2","username":"Bravo","elo":250,"position":3,"wins":0,"losses":1},
		{"name":"Charlie","eloRating":200},
		{"id":"r4","username":"alpha","rating":999}
	]}`
	remoteMatches = `{"data":[
		{"id":"m1","winner":"Alpha","loser":"Bravo","winnerScore":20,"loserScore":11,"approvedAt":"2026-05-01T10:00:00Z"},
		{"id":"m2","winner":"Alpha","loser":"Ghost","approvedAt":"2026-05-01T11:00:00Z"}
	]}`
)

func storeStub(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ladders/d1/players":
		_, _ = w.Write([]byte(remotePlayers))
	case "/ladders/d1/matches":
		_, _ = w.Write([]byte(remoteMatches))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestImportLadder(t *testing.T) {
	f := newFixture(t, storeStub)
	ctx := context.Background()
	local := f.join(t, "d1", "alpha")[0]

	summary, err := f.svc.ImportLadder(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, 3, summary.Players)
	require.Equal(t, 2, summary.MatchesFetched)
	require.Equal(t, 1, summary.MatchesInserted)
	require.Equal(t, 1, summary.MatchesSkipped)
	require.True(t, summary.Renumbered)

	roster, err := f.players.ListByLadder(ctx, "d1")
	require.NoError(t, err)
	require.NoError(t, ladder.Validate(roster))

	byName := map[string]domain.Player{}
	for _, p := range roster {
		byName[p.Username] = p
	}
	// the local id survives and the duplicate remote username is ignored
	require.Equal(t, local.ID, byName["Alpha"].ID)
	require.Equal(t, 300, byName["Alpha"].Rating)
	require.Equal(t, 1, byName["Alpha"].Position)
	require.Equal(t, 2, byName["Bravo"].Position)
	require.Equal(t, 3, byName["Charlie"].Position)

	matches, err := f.svc.matches.ListByLadder(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, local.ID, matches[0].Winner.PlayerID)
	require.Equal(t, byName["Bravo"].ID, matches[0].Loser.PlayerID)

	again, err := f.svc.ImportLadder(ctx, "d1")
	require.NoError(t, err)
	require.Zero(t, again.MatchesInserted)

	roster, err = f.players.ListByLadder(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, roster, 3)
}

func TestImportLadderWithoutStore(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ImportLadder(context.Background(), "d1")
	require.ErrorIs(t, err, api.ErrStoreDisabled)
}

func TestCompactPositions(t *testing.T) {
	roster := []domain.Player{
		{ID: "a", Position: 4},
		{ID: "b", Position: 0, Rating: 100},
		{ID: "c", Position: 2},
		{ID: "d", Position: 0, Rating: 300},
	}
	compactPositions(roster)

	got := map[string]int{}
	for _, p := range roster {
		got[p.ID] = p.Position
	}
	require.Equal(t, map[string]int{"c": 1, "a": 2, "d": 3, "b": 4}, got)
}
