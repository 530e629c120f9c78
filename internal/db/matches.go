package db

import (
	"context"
	"time"
)

const matchColumns = `id, ladder, map, winner_id, winner_username, winner_score, winner_deaths, winner_suicides, loser_id, loser_username, loser_score, loser_deaths, loser_suicides, total_players, approved_at, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (Match, error) {
	var i Match
	err := row.Scan(
		&i.ID,
		&i.Ladder,
		&i.Map,
		&i.WinnerID,
		&i.WinnerUsername,
		&i.WinnerScore,
		&i.WinnerDeaths,
		&i.WinnerSuicides,
		&i.LoserID,
		&i.LoserUsername,
		&i.LoserScore,
		&i.LoserDeaths,
		&i.LoserSuicides,
		&i.TotalPlayers,
		&i.ApprovedAt,
		&i.CreatedAt,
	)
	return i, err
}

func (q *Queries) listMatches(ctx context.Context, query string, args ...interface{}) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Match
	for rows.Next() {
		i, err := scanMatch(rows)
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

const listMatchesByLadder = `SELECT ` + matchColumns + ` FROM matches WHERE ladder = ? ORDER BY approved_at, id`

func (q *Queries) ListMatchesByLadder(ctx context.Context, ladder string) ([]Match, error) {
	return q.listMatches(ctx, listMatchesByLadder, ladder)
}

const listMatchesByLadderSince = `SELECT ` + matchColumns + ` FROM matches WHERE ladder = ? AND approved_at >= ? ORDER BY approved_at, id`

type ListMatchesByLadderSinceParams struct {
	Ladder string
	Since  time.Time
}

func (q *Queries) ListMatchesByLadderSince(ctx context.Context, arg ListMatchesByLadderSinceParams) ([]Match, error) {
	return q.listMatches(ctx, listMatchesByLadderSince, arg.Ladder, arg.Since)
}

const listMatchesForPlayer = `
SELECT ` + matchColumns + ` FROM matches
WHERE ladder = ?
  AND approved_at >= ?
  AND (winner_id = ? OR loser_id = ? OR id IN (SELECT match_id FROM match_placements WHERE player_id = ?))
ORDER BY approved_at DESC, id
LIMIT ?
`

type ListMatchesForPlayerParams struct {
	Ladder   string
	PlayerID string
	Since    time.Time
	Limit    int64
}

func (q *Queries) ListMatchesForPlayer(ctx context.Context, arg ListMatchesForPlayerParams) ([]Match, error) {
	return q.listMatches(ctx, listMatchesForPlayer, arg.Ladder, arg.Since, arg.PlayerID, arg.PlayerID, arg.PlayerID, arg.Limit)
}

const insertMatch = `INSERT INTO matches (` + matchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`

type InsertMatchParams = Match

// InsertMatch reports whether the row was new; approved matches are immutable.
func (q *Queries) InsertMatch(ctx context.Context, arg InsertMatchParams) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertMatch,
		arg.ID,
		arg.Ladder,
		arg.Map,
		arg.WinnerID,
		arg.WinnerUsername,
		arg.WinnerScore,
		arg.WinnerDeaths,
		arg.WinnerSuicides,
		arg.LoserID,
		arg.LoserUsername,
		arg.LoserScore,
		arg.LoserDeaths,
		arg.LoserSuicides,
		arg.TotalPlayers,
		arg.ApprovedAt,
		arg.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const insertMatchPlacement = `
INSERT INTO match_placements (match_id, player_id, username, placement, kills, deaths)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(match_id, player_id) DO NOTHING
`

type InsertMatchPlacementParams = MatchPlacement

func (q *Queries) InsertMatchPlacement(ctx context.Context, arg InsertMatchPlacementParams) error {
	_, err := q.db.ExecContext(ctx, insertMatchPlacement,
		arg.MatchID,
		arg.PlayerID,
		arg.Username,
		arg.Placement,
		arg.Kills,
		arg.Deaths,
	)
	return err
}

const listPlacementsByLadder = `
SELECT p.match_id, p.player_id, p.username, p.placement, p.kills, p.deaths
FROM match_placements p
JOIN matches m ON m.id = p.match_id
WHERE m.ladder = ?
ORDER BY p.match_id, p.placement
`

func (q *Queries) ListPlacementsByLadder(ctx context.Context, ladder string) ([]MatchPlacement, error) {
	rows, err := q.db.QueryContext(ctx, listPlacementsByLadder, ladder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchPlacement
	for rows.Next() {
		var i MatchPlacement
		if err := rows.Scan(
			&i.MatchID,
			&i.PlayerID,
			&i.Username,
			&i.Placement,
			&i.Kills,
			&i.Deaths,
		); err != nil {
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
