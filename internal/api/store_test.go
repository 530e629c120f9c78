package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ladder-engine/internal/config"
	"ladder-engine/internal/logger"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *StoreClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStoreClient(&config.Config{
		StoreBaseURL:   srv.URL + "/",
		StoreAPIKey:    "secret",
		StoreRateLimit: 100,
	}, logger.Nop())
}

func TestFetchPlayers(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("X-Ratelimit-Limit", "60")
		w.Header().Set("X-Ratelimit-Remaining", "59")
		w.Header().Set("X-Ratelimit-Reset", "30")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"p1","username":"Alpha","rating":1200,"position":1},
			{"id":"p2","username":"","rating":900},
			{"id":"p3","name":"Charlie","elo":800,"position":2}
		]}`))
	})

	players, err := client.FetchPlayers(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "/ladders/d1/players", gotPath)
	require.Equal(t, "Bearer secret", gotAuth)

	// the nameless document is skipped
	require.Len(t, players, 2)
	require.Equal(t, "p1", players[0].ID)
	require.Equal(t, "Charlie", players[1].Username)

	info := client.GetRateLimitInfo()
	require.Equal(t, 60, info.Limit)
	require.Equal(t, 59, info.Remaining)
	require.Equal(t, 30, info.Reset)
}

func TestFetchMatches(t *testing.T) {
	var status string
	client := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		status = r.URL.Query().Get("status")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"m1","winner":"Alpha","loser":"Bravo","approvedAt":"2026-03-01T12:00:00Z"},
			{"id":"m2","winner":"Alpha"}
		]}`))
	})

	matches, err := client.FetchMatches(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "approved", status)
	require.Len(t, matches, 1)
	require.Equal(t, "m1", matches[0].ID)
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), matches[0].ApprovedAt)
}

func TestFetchReportsStatus(t *testing.T) {
	client := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchMatches(context.Background(), "d1")
	require.ErrorContains(t, err, "503")
}

func TestDisabledStore(t *testing.T) {
	client := NewStoreClient(&config.Config{}, logger.Nop())
	require.False(t, client.Enabled())

	_, err := client.FetchPlayers(context.Background(), "d1")
	require.ErrorIs(t, err, ErrStoreDisabled)
}
