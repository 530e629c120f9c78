package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"ladder-engine/internal/db"
	"ladder-engine/internal/domain"
)

type RatingHistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewRatingHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *RatingHistoryRepository {
	return &RatingHistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *RatingHistoryRepository) GetByPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingHistoryEntry, error) {
	records, err := r.queries.GetRatingHistoryByPlayer(ctx, db.GetRatingHistoryByPlayerParams{
		PlayerID: playerID,
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.RatingHistoryEntry, len(records))
	for i, rec := range records {
		result[i] = domain.RatingHistoryEntry{
			ID:             rec.ID,
			PlayerID:       rec.PlayerID,
			Ladder:         rec.Ladder,
			MatchID:        rec.MatchID,
			Kind:           rec.Kind,
			PreviousRating: int(rec.PreviousRating),
			NewRating:      int(rec.NewRating),
			Change:         int(rec.Change),
			CreatedAt:      rec.CreatedAt,
		}
		if rec.MilestoneTo.Valid {
			result[i].Milestone = &domain.Milestone{
				From:     rec.MilestoneFrom.String,
				To:       rec.MilestoneTo.String,
				Promoted: rec.Promoted.Bool,
			}
		}
	}
	return result, nil
}
