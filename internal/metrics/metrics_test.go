package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCacheResult(t *testing.T) {
	m := New()
	m.CacheResult("roster", true)
	m.CacheResult("roster", false)
	m.CacheResult("roster", false)

	require.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("roster", "hit")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("roster", "miss")))
}

func TestHandlerExposesLadderMetrics(t *testing.T) {
	m := New()
	m.MatchesApplied.WithLabelValues("d1", "single").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `ladder_matches_applied_total{kind="single",ladder="d1"} 1`)
}
