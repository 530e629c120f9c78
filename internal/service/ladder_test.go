package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ladder-engine/internal/api"
	"ladder-engine/internal/config"
	"ladder-engine/internal/database"
	"ladder-engine/internal/db"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/logger"
	"ladder-engine/internal/metrics"
	"ladder-engine/internal/repository"
)

var testNow = time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *LadderService
	players *repository.PlayerRepository
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, storeHandler http.HandlerFunc) *fixture {
	t.Helper()

	log := logger.Nop()
	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "ladder.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ladders, err := config.LoadLadders("")
	require.NoError(t, err)

	cfg := &config.Config{Ladders: ladders, StoreRateLimit: 100}
	if storeHandler != nil {
		srv := httptest.NewServer(storeHandler)
		t.Cleanup(srv.Close)
		cfg.StoreBaseURL = srv.URL
	}

	queries := db.New(sqlDB)
	players := repository.NewPlayerRepository(sqlDB, queries, log)
	m := metrics.New()
	svc := NewLadderService(
		cfg,
		players,
		repository.NewMatchRepository(sqlDB, queries, log),
		repository.NewRatingHistoryRepository(sqlDB, queries, log),
		api.NewStoreClient(cfg, log),
		m,
		log,
	)
	svc.now = func() time.Time { return testNow }
	return &fixture{svc: svc, players: players, metrics: m}
}

func (f *fixture) join(t *testing.T, ladderName string, names ...string) []*domain.Player {
	t.Helper()
	out := make([]*domain.Player, len(names))
	for i, name := range names {
		p, err := f.svc.JoinLadder(context.Background(), ladderName, JoinRequest{Username: name})
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func (f *fixture) seed(t *testing.T, players ...domain.Player) {
	t.Helper()
	require.NoError(t, f.players.UpsertBatch(context.Background(), players))
}

func duel(winner, loser *domain.Player, at time.Time) domain.Match {
	return domain.Match{
		Map:        "Deck16",
		Winner:     domain.Side{PlayerID: winner.ID, Score: 20, Deaths: 10},
		Loser:      domain.Side{PlayerID: loser.ID, Score: 10, Deaths: 20},
		ApprovedAt: at,
	}
}

func TestJoinLadder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	players := f.join(t, "d1", "Alpha", "Bravo", "Charlie")
	for i, p := range players {
		require.Equal(t, i+1, p.Position)
		require.Equal(t, 200, p.Rating)
	}

	_, err := f.svc.JoinLadder(ctx, "d1", JoinRequest{Username: " alpha "})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.svc.JoinLadder(ctx, "d1", JoinRequest{Username: "  "})
	require.ErrorIs(t, err, ErrInvalidUsername)

	_, err = f.svc.JoinLadder(ctx, "d9", JoinRequest{Username: "Delta"})
	require.ErrorIs(t, err, ErrUnknownLadder)

	// same username is fine on another ladder
	other, err := f.svc.JoinLadder(ctx, "d2", JoinRequest{Username: "Alpha"})
	require.NoError(t, err)
	require.Equal(t, 1, other.Position)

	team, err := f.svc.JoinLadder(ctx, "duos", JoinRequest{Username: "Alpha"})
	require.NoError(t, err)
	require.Equal(t, 0, team.Position)
	require.Equal(t, 200, team.TierValue)
}

func TestStandingsOrdering(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seed(t,
		domain.Player{ID: "a", Username: "Alpha", Ladder: "duos", Rating: 900, Matches: 10, Wins: 5, Losses: 5},
		domain.Player{ID: "b", Username: "Bravo", Ladder: "duos", Rating: 500, Matches: 10, Wins: 8, Losses: 2},
		domain.Player{ID: "c", Username: "Charlie", Ladder: "duos", Rating: 700, Matches: 20, Wins: 10, Losses: 10},
		domain.Player{ID: "d", Username: "Delta", Ladder: "duos", Rating: 200},
	)

	standings, err := f.svc.Standings(ctx, "duos")
	require.NoError(t, err)
	require.Len(t, standings, 4)

	var order []string
	for i, st := range standings {
		require.Equal(t, i+1, st.Rank)
		order = append(order, st.Player.ID)
	}
	// 80% first, then 50% with more matches, then 50% with fewer, then no games
	require.Equal(t, []string{"b", "c", "a", "d"}, order)
	require.Equal(t, "Veteran", standings[0].Tier.Name)
	require.Equal(t, "Unranked", standings[3].Tier.Name)
}

func TestStandingsAreCached(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.join(t, "d1", "Alpha")

	_, err := f.svc.Standings(ctx, "d1")
	require.NoError(t, err)

	// written behind the service's back, so the cached roster is served
	f.seed(t, domain.Player{ID: "z", Username: "Zulu", Ladder: "d1", Rating: 200, Position: 2})
	standings, err := f.svc.Standings(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, standings, 1)

	// joining invalidates
	f.join(t, "d1", "Bravo")
	standings, err = f.svc.Standings(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, standings, 3)
}

func TestRecommendOpponent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seed(t,
		domain.Player{ID: "p", Username: "Papa", Ladder: "d1", Rating: 1000, Position: 1, Matches: 10, Wins: 5, Losses: 5},
		domain.Player{ID: "q", Username: "Quebec", Ladder: "d1", Rating: 1100, Position: 2, Matches: 10, Wins: 5, Losses: 5},
		domain.Player{ID: "r", Username: "Romeo", Ladder: "d1", Rating: 1500, Position: 3, Matches: 10, Wins: 5, Losses: 5},
		domain.Player{ID: "s", Username: "Sierra", Ladder: "d1", Rating: 900, Position: 4, Matches: 10, Wins: 5, Losses: 5},
	)

	c, ok, err := f.svc.RecommendOpponent(ctx, "d1", "p")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s", c.Player.ID)
	require.Equal(t, 12, c.ExpectedGain)
	require.Equal(t, "Gold", c.Tier.Name)

	_, _, err = f.svc.RecommendOpponent(ctx, "d1", "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecommendOpponentAlone(t *testing.T) {
	f := newFixture(t, nil)
	players := f.join(t, "d1", "Alpha")

	_, ok, err := f.svc.RecommendOpponent(context.Background(), "d1", players[0].ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFindTeammate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seed(t,
		domain.Player{ID: "p", Username: "Papa", Ladder: "duos", Rating: 200},
		domain.Player{ID: "q", Username: "Quebec", Ladder: "duos", Rating: 230},
		domain.Player{ID: "r", Username: "Romeo", Ladder: "duos", Rating: 190, HasTeam: true},
		domain.Player{ID: "s", Username: "Sierra", Ladder: "duos", Rating: 260},
	)

	c, ok, err := f.svc.FindTeammate(ctx, "duos", "p")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "q", c.Player.ID)
	require.Equal(t, 30, c.RatingGap)

	_, _, err = f.svc.FindTeammate(ctx, "d1", "p")
	require.ErrorIs(t, err, ErrNotTeamLadder)
}
