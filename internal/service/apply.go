package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
	"ladder-engine/internal/rating"
	"ladder-engine/internal/repository"
	"ladder-engine/internal/tier"
)

// MatchOutcome describes what applying one match changed.
type MatchOutcome struct {
	Match        domain.Match
	Participants []domain.Player // updated records, winner first for 1v1
	Rating       *rating.Change
	TierValue    *rating.Change
	Positions    []ladder.PositionChange
	Streaks      []ladder.StreakChange
	History      []domain.RatingHistoryEntry
}

// ApplyMatch records an approved match and applies its rating, counter and
// position effects atomically. Calls for the same ladder are serialized.
func (s *LadderService) ApplyMatch(ctx context.Context, ladderName string, m domain.Match) (*MatchOutcome, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		s.metrics.ApplyMatchDuration.WithLabelValues(ladderName).Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	mu := s.lockFor(ladderName)
	mu.Lock()
	defer mu.Unlock()

	now := s.now().UTC()
	m.Ladder = ladderName
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ApprovedAt.IsZero() {
		m.ApprovedAt = now
	}

	roster, err := s.players.ListByLadder(ctx, ladderName)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for %s: %w", ladderName, err)
	}

	var out *MatchOutcome
	if m.IsFreeForAll() {
		out, err = s.freeForAll(cfg, roster, m)
	} else {
		out, err = s.headToHead(cfg, roster, m, now)
	}
	if err != nil {
		if errors.Is(err, ladder.ErrInvariantViolation) {
			s.metrics.InvariantRefusals.WithLabelValues(ladderName).Inc()
			s.logger.Error().Err(err).Str("ladder", ladderName).Str("match_id", m.ID).Msg("refusing position transition")
		}
		return nil, err
	}

	err = s.matches.Commit(ctx, repository.MatchCommit{
		Match:     out.Match,
		Standings: out.Participants,
		Positions: out.Positions,
		Streaks:   out.Streaks,
		History:   out.History,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(out.Participants))
	for i, p := range out.Participants {
		ids[i] = p.ID
	}
	s.invalidate(ladderName, ids...)

	s.metrics.MatchesApplied.WithLabelValues(ladderName, string(cfg.Kind)).Inc()
	if len(out.Positions) > 0 {
		s.metrics.Reorders.WithLabelValues(ladderName).Inc()
	}

	event := s.logger.Info().
		Str("ladder", ladderName).
		Str("match_id", out.Match.ID).
		Int("participants", len(out.Participants)).
		Int("position_changes", len(out.Positions))
	if out.Rating != nil {
		event = event.Int("winner_delta", out.Rating.WinnerDelta).Int("loser_delta", out.Rating.LoserDelta)
	}
	event.Msg("match applied")

	return out, nil
}

func (s *LadderService) headToHead(cfg domain.LadderConfig, roster []domain.Player, m domain.Match, now time.Time) (*MatchOutcome, error) {
	if cfg.IsFreeForAll() {
		return nil, fmt.Errorf("%w: %s only records free-for-all matches", ErrInvalidMatch, cfg.Name)
	}

	wi, ok := find(roster, m.Winner.PlayerID, m.Winner.Username)
	if !ok {
		return nil, fmt.Errorf("%w: winner %s%s", ladder.ErrInputNotFound, m.Winner.PlayerID, m.Winner.Username)
	}
	li, ok := find(roster, m.Loser.PlayerID, m.Loser.Username)
	if !ok {
		return nil, fmt.Errorf("%w: loser %s%s", ladder.ErrInputNotFound, m.Loser.PlayerID, m.Loser.Username)
	}
	if wi == li {
		return nil, fmt.Errorf("%w: %s cannot play themselves", ErrInvalidMatch, roster[wi].Username)
	}

	winner, loser := roster[wi], roster[li]
	m.Winner.PlayerID, m.Winner.Username = winner.ID, winner.Username
	m.Loser.PlayerID, m.Loser.Username = loser.ID, loser.Username
	m.TotalPlayers = 2

	out := &MatchOutcome{Match: m}

	change := rating.Compute(winner.Rating, loser.Rating, cfg.KFactor)
	out.Rating = &change

	nw, nl := winner, loser
	nw.Rating += change.WinnerDelta
	nw.Matches++
	nw.Wins++
	nl.Rating += change.LoserDelta
	nl.Matches++
	nl.Losses++

	if cfg.IsTeam() {
		tv := rating.ComputeTierValue(winner.TierValue, loser.TierValue, cfg.TierValueK)
		out.TierValue = &tv
		nw.TierValue += tv.WinnerDelta
		nl.TierValue += tv.LoserDelta
	}

	out.History = append(out.History,
		historyEntry(cfg, m, winner, nw, now),
		historyEntry(cfg, m, loser, nl, now),
	)
	if cfg.IsTeam() {
		out.History = append(out.History,
			tierValueEntry(m, winner, nw, now),
			tierValueEntry(m, loser, nl, now),
		)
	}

	if cfg.UsesPositions() {
		res, err := ladder.Apply(roster, winner.ID, loser.ID, now)
		if err != nil {
			return nil, err
		}
		out.Positions = res.Diff
		out.Streaks = res.Streaks
		for _, p := range res.Roster {
			switch p.ID {
			case nw.ID:
				nw.Position, nw.StreakStart = p.Position, p.StreakStart
			case nl.ID:
				nl.Position, nl.StreakStart = p.Position, p.StreakStart
			}
		}
	}

	out.Participants = []domain.Player{nw, nl}
	return out, nil
}

// freeForAll records an N-way match. Only counters move: the placement
// winner gains a win, everyone else a loss.
func (s *LadderService) freeForAll(cfg domain.LadderConfig, roster []domain.Player, m domain.Match) (*MatchOutcome, error) {
	if !cfg.IsFreeForAll() {
		return nil, fmt.Errorf("%w: %s does not accept free-for-all matches", ErrInvalidMatch, cfg.Name)
	}
	if len(m.Placements) < 2 {
		return nil, fmt.Errorf("%w: free-for-all needs at least two placements", ErrInvalidMatch)
	}

	seen := make(map[int]bool, len(m.Placements))
	out := &MatchOutcome{}
	for i := range m.Placements {
		pl := &m.Placements[i]
		idx, ok := find(roster, pl.PlayerID, pl.Username)
		if !ok {
			return nil, fmt.Errorf("%w: %s%s", ladder.ErrInputNotFound, pl.PlayerID, pl.Username)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: %s placed twice", ErrInvalidMatch, roster[idx].Username)
		}
		if pl.Placement < 1 {
			return nil, fmt.Errorf("%w: placement %d for %s", ErrInvalidMatch, pl.Placement, roster[idx].Username)
		}
		seen[idx] = true

		p := roster[idx]
		pl.PlayerID, pl.Username = p.ID, p.Username
		p.Matches++
		if pl.Placement == 1 {
			p.Wins++
		} else {
			p.Losses++
		}
		out.Participants = append(out.Participants, p)
	}

	m.Winner, m.Loser = domain.Side{}, domain.Side{}
	if m.TotalPlayers < len(m.Placements) {
		m.TotalPlayers = len(m.Placements)
	}
	out.Match = m
	return out, nil
}

func find(roster []domain.Player, id, username string) (int, bool) {
	probe := domain.Player{ID: id, Username: username}
	for i, p := range roster {
		if p.Same(probe) {
			return i, true
		}
	}
	return -1, false
}

func historyEntry(cfg domain.LadderConfig, m domain.Match, before, after domain.Player, now time.Time) domain.RatingHistoryEntry {
	e := domain.RatingHistoryEntry{
		PlayerID:       before.ID,
		Ladder:         cfg.Name,
		MatchID:        m.ID,
		Kind:           domain.HistoryKindRating,
		PreviousRating: before.Rating,
		NewRating:      after.Rating,
		Change:         after.Rating - before.Rating,
		CreatedAt:      now,
	}
	from, to := cfg.TierOf(before), cfg.TierOf(after)
	if promoted, changed := tier.Crossed(from, to); changed {
		e.Milestone = &domain.Milestone{From: from.Name, To: to.Name, Promoted: promoted}
	}
	return e
}

func tierValueEntry(m domain.Match, before, after domain.Player, now time.Time) domain.RatingHistoryEntry {
	return domain.RatingHistoryEntry{
		PlayerID:       before.ID,
		Ladder:         m.Ladder,
		MatchID:        m.ID,
		Kind:           domain.HistoryKindTierValue,
		PreviousRating: before.TierValue,
		NewRating:      after.TierValue,
		Change:         after.TierValue - before.TierValue,
		CreatedAt:      now,
	}
}

type JoinRequest struct {
	Username string
	Country  string
	HasTeam  bool
}

// JoinLadder adds a player at the ladder's starting rating. On position
// ordered ladders the newcomer takes the bottom slot.
func (s *LadderService) JoinLadder(ctx context.Context, ladderName string, req JoinRequest) (*domain.Player, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, ErrInvalidUsername
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	mu := s.lockFor(ladderName)
	mu.Lock()
	defer mu.Unlock()

	roster, err := s.players.ListByLadder(ctx, ladderName)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for %s: %w", ladderName, err)
	}
	if _, taken := find(roster, "", req.Username); taken {
		return nil, fmt.Errorf("%w: %s", ErrUsernameTaken, req.Username)
	}

	now := s.now().UTC()
	p := &domain.Player{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Ladder:    ladderName,
		Rating:    cfg.StartingRating,
		Country:   req.Country,
		HasTeam:   req.HasTeam,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cfg.UsesPositions() {
		p.Position = ladder.NextPosition(roster)
	}
	if cfg.IsTeam() {
		p.TierValue = cfg.StartingTierValue
	}

	if err := s.players.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to add %s to %s: %w", req.Username, ladderName, err)
	}
	s.invalidate(ladderName)

	s.logger.Info().Str("ladder", ladderName).Str("player_id", p.ID).Str("username", p.Username).Int("position", p.Position).Msg("player joined")
	return p, nil
}
