package service

import (
	"context"
	"fmt"
	"strconv"

	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/matchmaking"
	"ladder-engine/internal/momentum"
	"ladder-engine/internal/repository"
	"ladder-engine/internal/scorecard"
	"ladder-engine/internal/tier"
)

type Profile struct {
	Standing
	WinRate      float64
	Momentum     momentum.Summary
	RecentDeltas []int // newest first
	Milestones   []domain.Milestone
}

// member loads a player and checks it belongs to the ladder.
func (s *LadderService) member(ctx context.Context, ladderName, playerID string) (*domain.Player, error) {
	p, err := s.players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.Ladder != ladderName {
		return nil, fmt.Errorf("player %s in %s: %w", playerID, ladderName, repository.ErrNotFound)
	}
	return p, nil
}

// RecommendOpponent suggests the opponent with the best competitive value.
// ok is false when nobody on the ladder is worth playing.
func (s *LadderService) RecommendOpponent(ctx context.Context, ladderName, playerID string) (matchmaking.Candidate, bool, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}
	standings, err := s.Standings(ctx, ladderName)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}

	player, pool, err := splitPool(standings, ladderName, playerID)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}
	c, ok := matchmaking.Recommend(player, pool, matchmaking.Options{KFactor: cfg.KFactor, Tiers: cfg.Tiers})
	if !ok {
		s.logger.Debug().Str("ladder", ladderName).Str("player_id", playerID).Msg("no opponent worth recommending")
	}
	return c, ok, nil
}

// FindTeammate suggests the closest-rated player without a team.
func (s *LadderService) FindTeammate(ctx context.Context, ladderName, playerID string) (matchmaking.Candidate, bool, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}
	if !cfg.IsTeam() {
		return matchmaking.Candidate{}, false, fmt.Errorf("%w: %s", ErrNotTeamLadder, ladderName)
	}
	standings, err := s.Standings(ctx, ladderName)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}

	player, pool, err := splitPool(standings, ladderName, playerID)
	if err != nil {
		return matchmaking.Candidate{}, false, err
	}
	c, ok := matchmaking.FindTeammate(player, pool)
	if ok {
		c.Tier = cfg.TierOf(c.Player)
	}
	return c, ok, nil
}

// splitPool returns the player and the rest of the ladder in standings order.
func splitPool(standings []Standing, ladderName, playerID string) (domain.Player, []domain.Player, error) {
	var player *domain.Player
	pool := make([]domain.Player, 0, len(standings))
	for i := range standings {
		if standings[i].Player.ID == playerID {
			player = &standings[i].Player
			continue
		}
		pool = append(pool, standings[i].Player)
	}
	if player == nil {
		return domain.Player{}, nil, fmt.Errorf("player %s in %s: %w", playerID, ladderName, repository.ErrNotFound)
	}
	return *player, pool, nil
}

// Scorecard grades a player's full match history on the ladder.
func (s *LadderService) Scorecard(ctx context.Context, ladderName, username string) (scorecard.Result, error) {
	if _, err := s.Ladder(ladderName); err != nil {
		return scorecard.Result{}, err
	}
	key := domain.NormalizeUsername(username)
	if key == "" {
		return scorecard.Result{}, ErrInvalidUsername
	}

	return cached(s, s.cards, classScorecard, ladderKey(ladderName, key), func() (scorecard.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		defer cancel()

		p, err := s.players.GetByUsername(ctx, ladderName, username)
		if err != nil {
			return scorecard.Result{}, err
		}
		matches, err := s.matches.ListByLadder(ctx, ladderName)
		if err != nil {
			return scorecard.Result{}, fmt.Errorf("failed to list matches for %s: %w", ladderName, err)
		}
		return scorecard.Grade(p.Username, matches), nil
	})
}

// RatingHistory returns the player's newest rating history entries.
func (s *LadderService) RatingHistory(ctx context.Context, playerID string, limit int) ([]domain.RatingHistoryEntry, error) {
	if limit <= 0 || limit > constants.RatingHistoryLimit {
		limit = constants.RatingHistoryLimit
	}

	return cached(s, s.histories, classHistory, playerID+"/"+strconv.Itoa(limit), func() ([]domain.RatingHistoryEntry, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		defer cancel()

		if _, err := s.players.Get(ctx, playerID); err != nil {
			return nil, err
		}
		entries, err := s.history.GetByPlayer(ctx, playerID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load rating history for %s: %w", playerID, err)
		}
		return entries, nil
	})
}

// Profile combines a player's standing, momentum and recent rating movement.
func (s *LadderService) Profile(ctx context.Context, ladderName, playerID string) (*Profile, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return nil, err
	}

	return cached(s, s.profiles, classProfile, ladderKey(ladderName, playerID), func() (*Profile, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		defer cancel()

		p, err := s.member(ctx, ladderName, playerID)
		if err != nil {
			return nil, err
		}
		standings, err := s.Standings(ctx, ladderName)
		if err != nil {
			return nil, err
		}

		now := s.now()
		recent, err := s.matches.ListRecentForPlayer(ctx, ladderName, p.ID, now.Add(-momentum.Window), constants.MomentumMatchLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list recent matches for %s: %w", p.ID, err)
		}
		history, err := s.RatingHistory(ctx, p.ID, constants.RatingHistoryLimit)
		if err != nil {
			return nil, err
		}

		profile := &Profile{
			Standing: Standing{Player: *p, Tier: cfg.TierOf(*p)},
			WinRate:  p.WinRate(),
			Momentum: momentum.Evaluate(domain.ResultsFor(recent, p.ID, p.Username), now),
		}
		for _, st := range standings {
			if st.Player.ID == p.ID {
				profile.Rank = st.Rank
				break
			}
		}
		profile.Standing.Momentum = profile.Momentum.State

		for _, h := range history {
			if h.Kind != domain.HistoryKindRating {
				continue
			}
			if len(profile.RecentDeltas) < constants.RecentDeltaLimit {
				profile.RecentDeltas = append(profile.RecentDeltas, h.Change)
			}
			if h.Milestone != nil {
				profile.Milestones = append(profile.Milestones, *h.Milestone)
			}
		}
		return profile, nil
	})
}

// NextTier reports the tier directly above t in the ladder's table, if any.
func NextTier(cfg domain.LadderConfig, t tier.Tier) (tier.Tier, bool) {
	for _, l := range cfg.Tiers.Levels() {
		if l.Level == t.Level+1 {
			return l, true
		}
	}
	return tier.Tier{}, false
}
