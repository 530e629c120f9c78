package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"ladder-engine/internal/db"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
)

var (
	ErrDuplicateMatch = errors.New("match already recorded")
	ErrStalePosition  = errors.New("position changed since roster was read")
)

type MatchRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// MatchCommit is everything one approved match changes, written atomically.
type MatchCommit struct {
	Match     domain.Match
	Standings []domain.Player
	Positions []ladder.PositionChange
	Streaks   []ladder.StreakChange
	History   []domain.RatingHistoryEntry
}

func (r *MatchRepository) Commit(ctx context.Context, c MatchCommit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now().UTC()

	inserted, err := qtx.InsertMatch(ctx, toMatchRow(c.Match, now))
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", c.Match.ID, err)
	}
	if !inserted {
		return fmt.Errorf("%w: %s", ErrDuplicateMatch, c.Match.ID)
	}
	for _, p := range c.Match.Placements {
		err := qtx.InsertMatchPlacement(ctx, db.InsertMatchPlacementParams{
			MatchID:   c.Match.ID,
			PlayerID:  p.PlayerID,
			Username:  p.Username,
			Placement: int64(p.Placement),
			Kills:     int64(p.Kills),
			Deaths:    int64(p.Deaths),
		})
		if err != nil {
			return fmt.Errorf("failed to insert placement %s/%s: %w", c.Match.ID, p.PlayerID, err)
		}
	}

	for _, p := range c.Standings {
		n, err := qtx.UpdatePlayerStanding(ctx, db.UpdatePlayerStandingParams{
			Rating:    int64(p.Rating),
			TierValue: int64(p.TierValue),
			Matches:   int64(p.Matches),
			Wins:      int64(p.Wins),
			Losses:    int64(p.Losses),
			UpdatedAt: now,
			ID:        p.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to update standing for %s: %w", p.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("player %s: %w", p.ID, ErrNotFound)
		}
	}

	for _, change := range c.Positions {
		n, err := qtx.UpdatePlayerPosition(ctx, db.UpdatePlayerPositionParams{
			Position:    int64(change.NewPosition),
			UpdatedAt:   now,
			ID:          change.PlayerID,
			OldPosition: int64(change.OldPosition),
		})
		if err != nil {
			return fmt.Errorf("failed to move %s to %d: %w", change.PlayerID, change.NewPosition, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s expected at %d", ErrStalePosition, change.PlayerID, change.OldPosition)
		}
	}

	for _, s := range c.Streaks {
		err := qtx.UpdatePlayerStreak(ctx, db.UpdatePlayerStreakParams{
			StreakStart: nullTime(s.StreakStart),
			UpdatedAt:   now,
			ID:          s.PlayerID,
		})
		if err != nil {
			return fmt.Errorf("failed to update streak for %s: %w", s.PlayerID, err)
		}
	}

	for _, h := range c.History {
		params, err := toHistoryRow(h)
		if err != nil {
			return err
		}
		if err := qtx.InsertRatingHistory(ctx, params); err != nil {
			return fmt.Errorf("failed to insert rating history for %s: %w", h.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match %s: %w", c.Match.ID, err)
	}

	r.logger.Debug().
		Str("match_id", c.Match.ID).
		Int("position_changes", len(c.Positions)).
		Int("history_entries", len(c.History)).
		Msg("match committed")
	return nil
}

// UpsertBatch records imported matches; ones already stored are skipped.
func (r *MatchRepository) UpsertBatch(ctx context.Context, matches []domain.Match) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now().UTC()
	inserted := 0

	for _, m := range matches {
		ok, err := qtx.InsertMatch(ctx, toMatchRow(m, now))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert match %s: %w", m.ID, err)
		}
		if !ok {
			continue
		}
		inserted++
		for _, p := range m.Placements {
			err := qtx.InsertMatchPlacement(ctx, db.InsertMatchPlacementParams{
				MatchID:   m.ID,
				PlayerID:  p.PlayerID,
				Username:  p.Username,
				Placement: int64(p.Placement),
				Kills:     int64(p.Kills),
				Deaths:    int64(p.Deaths),
			})
			if err != nil {
				return 0, fmt.Errorf("failed to upsert placement %s/%s: %w", m.ID, p.PlayerID, err)
			}
		}
	}

	return inserted, tx.Commit()
}

// ListByLadder returns every approved match of the ladder, oldest first.
func (r *MatchRepository) ListByLadder(ctx context.Context, ladderName string) ([]domain.Match, error) {
	rows, err := r.queries.ListMatchesByLadder(ctx, ladderName)
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, ladderName, rows)
}

// ListSince returns the ladder's matches approved at or after since, oldest first.
func (r *MatchRepository) ListSince(ctx context.Context, ladderName string, since time.Time) ([]domain.Match, error) {
	rows, err := r.queries.ListMatchesByLadderSince(ctx, db.ListMatchesByLadderSinceParams{
		Ladder: ladderName,
		Since:  since.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, ladderName, rows)
}

// ListRecentForPlayer returns the player's matches approved at or after since,
// newest first.
func (r *MatchRepository) ListRecentForPlayer(ctx context.Context, ladderName, playerID string, since time.Time, limit int) ([]domain.Match, error) {
	rows, err := r.queries.ListMatchesForPlayer(ctx, db.ListMatchesForPlayerParams{
		Ladder:   ladderName,
		PlayerID: playerID,
		Since:    since.UTC(),
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return r.assemble(ctx, ladderName, rows)
}

// assemble attaches placements; the placement table is only read when one of
// the rows is a free-for-all (no winner side).
func (r *MatchRepository) assemble(ctx context.Context, ladderName string, rows []db.Match) ([]domain.Match, error) {
	result := make([]domain.Match, len(rows))
	if len(rows) == 0 {
		return result, nil
	}

	var placements map[string][]domain.Placement
	for _, row := range rows {
		if row.WinnerUsername != "" {
			continue
		}
		records, err := r.queries.ListPlacementsByLadder(ctx, ladderName)
		if err != nil {
			return nil, err
		}
		placements = make(map[string][]domain.Placement)
		for _, p := range records {
			placements[p.MatchID] = append(placements[p.MatchID], toDomainPlacement(p))
		}
		break
	}

	for i, row := range rows {
		result[i] = toDomainMatch(row)
		result[i].Placements = placements[row.ID]
	}
	return result, nil
}

func toMatchRow(m domain.Match, now time.Time) db.InsertMatchParams {
	total := m.TotalPlayers
	if total == 0 {
		total = 2
	}
	return db.InsertMatchParams{
		ID:             m.ID,
		Ladder:         m.Ladder,
		Map:            m.Map,
		WinnerID:       m.Winner.PlayerID,
		WinnerUsername: m.Winner.Username,
		WinnerScore:    int64(m.Winner.Score),
		WinnerDeaths:   int64(m.Winner.Deaths),
		WinnerSuicides: int64(m.Winner.Suicides),
		LoserID:        m.Loser.PlayerID,
		LoserUsername:  m.Loser.Username,
		LoserScore:     int64(m.Loser.Score),
		LoserDeaths:    int64(m.Loser.Deaths),
		LoserSuicides:  int64(m.Loser.Suicides),
		TotalPlayers:   int64(total),
		ApprovedAt:     m.ApprovedAt.UTC(),
		CreatedAt:      now,
	}
}

func toDomainMatch(row db.Match) domain.Match {
	return domain.Match{
		ID:     row.ID,
		Ladder: row.Ladder,
		Map:    row.Map,
		Winner: domain.Side{
			PlayerID: row.WinnerID,
			Username: row.WinnerUsername,
			Score:    int(row.WinnerScore),
			Deaths:   int(row.WinnerDeaths),
			Suicides: int(row.WinnerSuicides),
		},
		Loser: domain.Side{
			PlayerID: row.LoserID,
			Username: row.LoserUsername,
			Score:    int(row.LoserScore),
			Deaths:   int(row.LoserDeaths),
			Suicides: int(row.LoserSuicides),
		},
		TotalPlayers: int(row.TotalPlayers),
		ApprovedAt:   row.ApprovedAt,
		CreatedAt:    row.CreatedAt,
	}
}

func toDomainPlacement(p db.MatchPlacement) domain.Placement {
	return domain.Placement{
		PlayerID:  p.PlayerID,
		Username:  p.Username,
		Placement: int(p.Placement),
		Kills:     int(p.Kills),
		Deaths:    int(p.Deaths),
	}
}

func toHistoryRow(h domain.RatingHistoryEntry) (db.InsertRatingHistoryParams, error) {
	id := h.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return db.InsertRatingHistoryParams{}, fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	row := db.InsertRatingHistoryParams{
		ID:             id,
		PlayerID:       h.PlayerID,
		Ladder:         h.Ladder,
		MatchID:        h.MatchID,
		Kind:           h.Kind,
		PreviousRating: int64(h.PreviousRating),
		NewRating:      int64(h.NewRating),
		Change:         int64(h.Change),
		CreatedAt:      h.CreatedAt.UTC(),
	}
	if h.Milestone != nil {
		row.MilestoneFrom = sql.NullString{String: h.Milestone.From, Valid: true}
		row.MilestoneTo = sql.NullString{String: h.Milestone.To, Valid: true}
		row.Promoted = sql.NullBool{Bool: h.Milestone.Promoted, Valid: true}
	}
	return row, nil
}
