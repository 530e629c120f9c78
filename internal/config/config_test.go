package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ladder-engine/internal/domain"
	"ladder-engine/internal/logger"
	"ladder-engine/internal/tier"
)

func TestDefaultLadders(t *testing.T) {
	ladders, err := LoadLadders("")
	require.NoError(t, err)
	require.Len(t, ladders, 5)

	d1 := ladders["d1"]
	require.Equal(t, domain.KindSingle, d1.Kind)
	require.True(t, d1.UsesPositions())
	require.Equal(t, 32, d1.KFactor)
	require.Equal(t, tier.RatingTable().Tiers, d1.Tiers.Tiers)
	require.Zero(t, d1.Tiers.FloorMatches)

	require.Equal(t, 5, ladders["d3"].Tiers.FloorMatches)

	duos := ladders["duos"]
	require.True(t, duos.IsTeam())
	require.Equal(t, 25, duos.TierValueK)
	require.Equal(t, tier.TeamTable().Tiers, duos.Tiers.Tiers)

	require.True(t, ladders["ffa"].IsFreeForAll())
	require.False(t, ladders["ffa"].UsesPositions())
}

func TestParseLaddersRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no ladders", yaml: "tier_tables: {}\n"},
		{name: "unknown table", yaml: "ladders:\n  - {name: x, kind: single, ordering: position, tier_table: nope}\n"},
		{name: "unknown kind", yaml: "tier_tables: {t: {tiers: [{name: A}]}}\nladders:\n  - {name: x, kind: duel, ordering: position, tier_table: t}\n"},
		{name: "ffa by position", yaml: "tier_tables: {t: {tiers: [{name: A}]}}\nladders:\n  - {name: x, kind: ffa, ordering: position, tier_table: t}\n"},
		{name: "duplicate", yaml: "tier_tables: {t: {tiers: [{name: A}]}}\nladders:\n  - {name: x, kind: single, ordering: rating, tier_table: t}\n  - {name: x, kind: single, ordering: rating, tier_table: t}\n"},
		{name: "garbage", yaml: "ladders: [[["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLadders([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ladders.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tier_tables: {t: {tiers: [{name: A, min_rating: 100}]}}\nladders:\n  - {name: solo, kind: single, ordering: position, tier_table: t}\n"), 0o600))

	t.Setenv("LADDER_CONFIG", path)
	t.Setenv("DB_PATH", filepath.Join(dir, "test.db"))
	t.Setenv("STORE_RATE_LIMIT", "2.5")

	cfg, err := Load(logger.Nop())
	require.NoError(t, err)
	require.Equal(t, []string{"solo"}, cfg.LadderNames())
	require.Equal(t, 32, cfg.Ladders["solo"].KFactor)
	require.Equal(t, 2.5, cfg.StoreRateLimit)
	require.Equal(t, "8080", cfg.ServerPort)

	t.Setenv("STORE_RATE_LIMIT", "-1")
	_, err = Load(logger.Nop())
	require.Error(t, err)
}
