package service

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
)

type ImportSummary struct {
	Ladder          string
	Players         int
	MatchesFetched  int
	MatchesInserted int
	MatchesSkipped  int
	Renumbered      bool
}

// ImportLadder pulls the ladder's players and approved matches from the remote
// store and merges them into local state. Players are matched by username so
// that re-imports keep local ids; matches already stored are left untouched.
func (s *LadderService) ImportLadder(ctx context.Context, ladderName string) (*ImportSummary, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return nil, err
	}

	var (
		remotePlayers []domain.Player
		remoteMatches []domain.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, constants.ExternalAPITimeout)
		defer cancel()
		var err error
		remotePlayers, err = s.store.FetchPlayers(fetchCtx, ladderName)
		return err
	})
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, constants.ExternalAPITimeout)
		defer cancel()
		var err error
		remoteMatches, err = s.store.FetchMatches(fetchCtx, ladderName)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("ladder", ladderName).Msg("import fetch failed")
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	mu := s.lockFor(ladderName)
	mu.Lock()
	defer mu.Unlock()

	local, err := s.players.ListByLadder(ctx, ladderName)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for %s: %w", ladderName, err)
	}

	summary := &ImportSummary{Ladder: ladderName, MatchesFetched: len(remoteMatches)}
	roster := mergePlayers(cfg, local, remotePlayers)

	if cfg.UsesPositions() {
		if err := ladder.Validate(roster); err != nil {
			s.logger.Warn().Err(err).Str("ladder", ladderName).Msg("imported positions are not dense, renumbering")
			compactPositions(roster)
			summary.Renumbered = true
		}
	}

	matches := make([]domain.Match, 0, len(remoteMatches))
	for _, m := range remoteMatches {
		if !resolveMatch(roster, &m) {
			summary.MatchesSkipped++
			s.logger.Warn().Str("ladder", ladderName).Str("match_id", m.ID).Msg("skipping match with unknown players")
			continue
		}
		matches = append(matches, m)
	}

	if err := s.players.UpsertBatch(ctx, roster); err != nil {
		return nil, fmt.Errorf("failed to store imported players: %w", err)
	}
	inserted, err := s.matches.UpsertBatch(ctx, matches)
	if err != nil {
		return nil, fmt.Errorf("failed to store imported matches: %w", err)
	}
	summary.Players = len(roster)
	summary.MatchesInserted = inserted

	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}
	s.invalidate(ladderName, ids...)

	s.metrics.ImportedDocuments.WithLabelValues(ladderName, "player").Add(float64(len(remotePlayers)))
	s.metrics.ImportedDocuments.WithLabelValues(ladderName, "match").Add(float64(inserted))

	s.logger.Info().
		Str("ladder", ladderName).
		Int("players", summary.Players).
		Int("matches_inserted", inserted).
		Int("matches_skipped", summary.MatchesSkipped).
		Bool("renumbered", summary.Renumbered).
		Int("store_requests_remaining", s.store.GetRateLimitInfo().Remaining).
		Msg("ladder imported")
	return summary, nil
}

// mergePlayers overlays remote records on the local roster. A remote record
// matching a local player by username keeps the local id; duplicate remote
// usernames keep the first occurrence.
func mergePlayers(cfg domain.LadderConfig, local, remote []domain.Player) []domain.Player {
	out := append([]domain.Player(nil), local...)
	byKey := make(map[string]int, len(out))
	for i, p := range out {
		byKey[p.Key()] = i
	}

	imported := make(map[string]bool, len(remote))
	for _, r := range remote {
		key := r.Key()
		if imported[key] {
			continue
		}
		imported[key] = true

		if !cfg.UsesPositions() {
			r.Position = 0
		}
		if cfg.IsTeam() && r.TierValue == 0 {
			r.TierValue = cfg.StartingTierValue
		}
		if i, ok := byKey[key]; ok {
			r.ID = out[i].ID
			r.CreatedAt = out[i].CreatedAt
			out[i] = r
			continue
		}
		byKey[key] = len(out)
		out = append(out, r)
	}
	return out
}

// compactPositions renumbers to 1..N keeping relative order. Unpositioned
// players go to the bottom, strongest first.
func compactPositions(roster []domain.Player) {
	idx := make([]int, len(roster))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		pa, pb := roster[idx[a]], roster[idx[b]]
		switch {
		case pa.Position > 0 && pb.Position > 0:
			return pa.Position < pb.Position
		case pa.Position > 0 || pb.Position > 0:
			return pa.Position > 0
		default:
			return pa.Rating > pb.Rating
		}
	})
	for rank, i := range idx {
		roster[i].Position = rank + 1
	}
}

// resolveMatch rewrites player references to roster ids, reporting false when
// a participant is not on the roster.
func resolveMatch(roster []domain.Player, m *domain.Match) bool {
	if m.IsFreeForAll() {
		for i := range m.Placements {
			pl := &m.Placements[i]
			idx, ok := find(roster, pl.PlayerID, pl.Username)
			if !ok {
				return false
			}
			pl.PlayerID, pl.Username = roster[idx].ID, roster[idx].Username
		}
		return true
	}
	wi, ok := find(roster, m.Winner.PlayerID, m.Winner.Username)
	if !ok {
		return false
	}
	li, ok := find(roster, m.Loser.PlayerID, m.Loser.Username)
	if !ok || wi == li {
		return false
	}
	m.Winner.PlayerID, m.Winner.Username = roster[wi].ID, roster[wi].Username
	m.Loser.PlayerID, m.Loser.Username = roster[li].ID, roster[li].Username
	return true
}
