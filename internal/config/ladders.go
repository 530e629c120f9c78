package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ladder-engine/internal/domain"
	"ladder-engine/internal/rating"
	"ladder-engine/internal/tier"
)

//go:embed ladders.yaml
var defaultLadders []byte

type ladderFile struct {
	TierTables map[string]tier.Table `yaml:"tier_tables"`
	Ladders    []ladderEntry         `yaml:"ladders"`
}

type ladderEntry struct {
	Name              string `yaml:"name"`
	Kind              string `yaml:"kind"`
	Ordering          string `yaml:"ordering"`
	StartingRating    int    `yaml:"starting_rating"`
	KFactor           int    `yaml:"k_factor"`
	TierValueK        int    `yaml:"tier_value_k"`
	StartingTierValue int    `yaml:"starting_tier_value"`
	TierTable         string `yaml:"tier_table"`
	RankFloorMatches  int    `yaml:"rank_floor_matches"`
}

// LoadLadders reads ladder definitions from path, or the embedded defaults
// when path is empty.
func LoadLadders(path string) (map[string]domain.LadderConfig, error) {
	raw := defaultLadders
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read ladder config %s: %w", path, err)
		}
		raw = b
	}
	return ParseLadders(raw)
}

func ParseLadders(raw []byte) (map[string]domain.LadderConfig, error) {
	var f ladderFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ladder config: %w", err)
	}
	if len(f.Ladders) == 0 {
		return nil, fmt.Errorf("ladder config defines no ladders")
	}

	out := make(map[string]domain.LadderConfig, len(f.Ladders))
	for _, l := range f.Ladders {
		if l.Name == "" {
			return nil, fmt.Errorf("ladder config has an unnamed ladder")
		}
		if _, dup := out[l.Name]; dup {
			return nil, fmt.Errorf("ladder %q defined twice", l.Name)
		}

		table, ok := f.TierTables[l.TierTable]
		if !ok {
			return nil, fmt.Errorf("ladder %q references unknown tier table %q", l.Name, l.TierTable)
		}
		table.Name = l.TierTable
		if l.RankFloorMatches > 0 {
			table = table.WithFloor(l.RankFloorMatches)
		}

		cfg := domain.LadderConfig{
			Name:              l.Name,
			Kind:              domain.LadderKind(l.Kind),
			Ordering:          domain.Ordering(l.Ordering),
			StartingRating:    l.StartingRating,
			KFactor:           l.KFactor,
			TierValueK:        l.TierValueK,
			StartingTierValue: l.StartingTierValue,
			Tiers:             table,
		}
		if cfg.KFactor <= 0 {
			cfg.KFactor = rating.DefaultK
		}
		if cfg.IsTeam() && cfg.TierValueK <= 0 {
			cfg.TierValueK = rating.TierValueK
		}

		switch cfg.Kind {
		case domain.KindSingle, domain.KindTeam, domain.KindFFA:
		default:
			return nil, fmt.Errorf("ladder %q has unknown kind %q", l.Name, l.Kind)
		}
		switch cfg.Ordering {
		case domain.OrderByPosition, domain.OrderByRating, domain.OrderByWinRate:
		default:
			return nil, fmt.Errorf("ladder %q has unknown ordering %q", l.Name, l.Ordering)
		}
		if cfg.IsFreeForAll() && cfg.UsesPositions() {
			return nil, fmt.Errorf("ladder %q: free-for-all ladders cannot be position ordered", l.Name)
		}

		out[l.Name] = cfg
	}
	return out, nil
}
