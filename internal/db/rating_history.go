package db

import "context"

const insertRatingHistory = `
INSERT INTO rating_history (id, player_id, ladder, match_id, kind, previous_rating, new_rating, change, milestone_from, milestone_to, promoted, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type InsertRatingHistoryParams = RatingHistory

func (q *Queries) InsertRatingHistory(ctx context.Context, arg InsertRatingHistoryParams) error {
	_, err := q.db.ExecContext(ctx, insertRatingHistory,
		arg.ID,
		arg.PlayerID,
		arg.Ladder,
		arg.MatchID,
		arg.Kind,
		arg.PreviousRating,
		arg.NewRating,
		arg.Change,
		arg.MilestoneFrom,
		arg.MilestoneTo,
		arg.Promoted,
		arg.CreatedAt,
	)
	return err
}

const getRatingHistoryByPlayer = `
SELECT id, player_id, ladder, match_id, kind, previous_rating, new_rating, change, milestone_from, milestone_to, promoted, created_at
FROM rating_history
WHERE player_id = ?
ORDER BY created_at DESC, id
LIMIT ?
`

type GetRatingHistoryByPlayerParams struct {
	PlayerID string
	Limit    int64
}

func (q *Queries) GetRatingHistoryByPlayer(ctx context.Context, arg GetRatingHistoryByPlayerParams) ([]RatingHistory, error) {
	rows, err := q.db.QueryContext(ctx, getRatingHistoryByPlayer, arg.PlayerID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RatingHistory
	for rows.Next() {
		var i RatingHistory
		if err := rows.Scan(
			&i.ID,
			&i.PlayerID,
			&i.Ladder,
			&i.MatchID,
			&i.Kind,
			&i.PreviousRating,
			&i.NewRating,
			&i.Change,
			&i.MilestoneFrom,
			&i.MilestoneTo,
			&i.Promoted,
			&i.CreatedAt,
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
