package db

import (
	"context"
	"database/sql"
	"time"
)

const playerColumns = `id, ladder, username, username_key, rating, position, tier_value, matches, wins, losses, streak_start, country, has_team, created_at, updated_at`

func scanPlayer(row interface{ Scan(...interface{}) error }) (Player, error) {
	var i Player
	err := row.Scan(
		&i.ID,
		&i.Ladder,
		&i.Username,
		&i.UsernameKey,
		&i.Rating,
		&i.Position,
		&i.TierValue,
		&i.Matches,
		&i.Wins,
		&i.Losses,
		&i.StreakStart,
		&i.Country,
		&i.HasTeam,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getPlayer = `SELECT ` + playerColumns + ` FROM players WHERE id = ?`

func (q *Queries) GetPlayer(ctx context.Context, id string) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayer, id))
}

const getPlayerByUsername = `SELECT ` + playerColumns + ` FROM players WHERE ladder = ? AND username_key = ?`

type GetPlayerByUsernameParams struct {
	Ladder      string
	UsernameKey string
}

func (q *Queries) GetPlayerByUsername(ctx context.Context, arg GetPlayerByUsernameParams) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayerByUsername, arg.Ladder, arg.UsernameKey))
}

const listPlayersByLadder = `SELECT ` + playerColumns + ` FROM players WHERE ladder = ? ORDER BY position, rating DESC, id`

func (q *Queries) ListPlayersByLadder(ctx context.Context, ladder string) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayersByLadder, ladder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		i, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countPlayersByLadder = `SELECT COUNT(*) FROM players WHERE ladder = ?`

func (q *Queries) CountPlayersByLadder(ctx context.Context, ladder string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPlayersByLadder, ladder).Scan(&count)
	return count, err
}

const upsertPlayer = `
INSERT INTO players (` + playerColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username = excluded.username,
    username_key = excluded.username_key,
    rating = excluded.rating,
    position = excluded.position,
    tier_value = excluded.tier_value,
    matches = excluded.matches,
    wins = excluded.wins,
    losses = excluded.losses,
    streak_start = excluded.streak_start,
    country = excluded.country,
    has_team = excluded.has_team,
    updated_at = excluded.updated_at
`

type UpsertPlayerParams struct {
	ID          string
	Ladder      string
	Username    string
	UsernameKey string
	Rating      int64
	Position    int64
	TierValue   int64
	Matches     int64
	Wins        int64
	Losses      int64
	StreakStart sql.NullTime
	Country     string
	HasTeam     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) UpsertPlayer(ctx context.Context, arg UpsertPlayerParams) error {
	_, err := q.db.ExecContext(ctx, upsertPlayer,
		arg.ID,
		arg.Ladder,
		arg.Username,
		arg.UsernameKey,
		arg.Rating,
		arg.Position,
		arg.TierValue,
		arg.Matches,
		arg.Wins,
		arg.Losses,
		arg.StreakStart,
		arg.Country,
		arg.HasTeam,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const updatePlayerStanding = `
UPDATE players
SET rating = ?, tier_value = ?, matches = ?, wins = ?, losses = ?, updated_at = ?
WHERE id = ?
`

type UpdatePlayerStandingParams struct {
	Rating    int64
	TierValue int64
	Matches   int64
	Wins      int64
	Losses    int64
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) UpdatePlayerStanding(ctx context.Context, arg UpdatePlayerStandingParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePlayerStanding,
		arg.Rating,
		arg.TierValue,
		arg.Matches,
		arg.Wins,
		arg.Losses,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// conditional on the old position so that a stale roster never overwrites a
// concurrent reorder
const updatePlayerPosition = `
UPDATE players
SET position = ?, updated_at = ?
WHERE id = ? AND position = ?
`

type UpdatePlayerPositionParams struct {
	Position    int64
	UpdatedAt   time.Time
	ID          string
	OldPosition int64
}

func (q *Queries) UpdatePlayerPosition(ctx context.Context, arg UpdatePlayerPositionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePlayerPosition,
		arg.Position,
		arg.UpdatedAt,
		arg.ID,
		arg.OldPosition,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updatePlayerStreak = `UPDATE players SET streak_start = ?, updated_at = ? WHERE id = ?`

type UpdatePlayerStreakParams struct {
	StreakStart sql.NullTime
	UpdatedAt   time.Time
	ID          string
}

func (q *Queries) UpdatePlayerStreak(ctx context.Context, arg UpdatePlayerStreakParams) error {
	_, err := q.db.ExecContext(ctx, updatePlayerStreak, arg.StreakStart, arg.UpdatedAt, arg.ID)
	return err
}
