package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ladder-engine/internal/constants"
	"ladder-engine/internal/db"
	"ladder-engine/internal/domain"
)

var ErrNotFound = errors.New("not found")

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

func (r *PlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	player, err := r.queries.GetPlayer(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p := toDomainPlayer(player)
	return &p, nil
}

func (r *PlayerRepository) GetByUsername(ctx context.Context, ladder, username string) (*domain.Player, error) {
	player, err := r.queries.GetPlayerByUsername(ctx, db.GetPlayerByUsernameParams{
		Ladder:      ladder,
		UsernameKey: domain.NormalizeUsername(username),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s in %s: %w", username, ladder, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p := toDomainPlayer(player)
	return &p, nil
}

func (r *PlayerRepository) ListByLadder(ctx context.Context, ladder string) ([]domain.Player, error) {
	rows, err := r.queries.ListPlayersByLadder(ctx, ladder)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Player, len(rows))
	for i, row := range rows {
		result[i] = toDomainPlayer(row)
	}
	return result, nil
}

func (r *PlayerRepository) Count(ctx context.Context, ladder string) (int, error) {
	n, err := r.queries.CountPlayersByLadder(ctx, ladder)
	return int(n), err
}

func (r *PlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	return r.queries.UpsertPlayer(ctx, toUpsertParams(*player))
}

func (r *PlayerRepository) UpsertBatch(ctx context.Context, players []domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(players) {
			end = len(players)
		}

		for _, player := range players[i:end] {
			if err := qtx.UpsertPlayer(ctx, toUpsertParams(player)); err != nil {
				return fmt.Errorf("failed to upsert player %s: %w", player.ID, err)
			}
		}
	}

	r.logger.Debug().Int("count", len(players)).Msg("players upserted")
	return tx.Commit()
}

func toUpsertParams(p domain.Player) db.UpsertPlayerParams {
	now := time.Now().UTC()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	return db.UpsertPlayerParams{
		ID:          p.ID,
		Ladder:      p.Ladder,
		Username:    p.Username,
		UsernameKey: p.Key(),
		Rating:      int64(p.Rating),
		Position:    int64(p.Position),
		TierValue:   int64(p.TierValue),
		Matches:     int64(p.Matches),
		Wins:        int64(p.Wins),
		Losses:      int64(p.Losses),
		StreakStart: nullTime(p.StreakStart),
		Country:     p.Country,
		HasTeam:     p.HasTeam,
		CreatedAt:   created.UTC(),
		UpdatedAt:   now,
	}
}

func toDomainPlayer(row db.Player) domain.Player {
	p := domain.Player{
		ID:        row.ID,
		Username:  row.Username,
		Ladder:    row.Ladder,
		Rating:    int(row.Rating),
		Position:  int(row.Position),
		TierValue: int(row.TierValue),
		Matches:   int(row.Matches),
		Wins:      int(row.Wins),
		Losses:    int(row.Losses),
		Country:   row.Country,
		HasTeam:   row.HasTeam,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.StreakStart.Valid {
		t := row.StreakStart.Time
		p.StreakStart = &t
	}
	return p
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
