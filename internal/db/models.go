package db

import (
	"database/sql"
	"time"
)

type Player struct {
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

type Match struct {
	ID             string
	Ladder         string
	Map            string
	WinnerID       string
	WinnerUsername string
	WinnerScore    int64
	WinnerDeaths   int64
	WinnerSuicides int64
	LoserID        string
	LoserUsername  string
	LoserScore     int64
	LoserDeaths    int64
	LoserSuicides  int64
	TotalPlayers   int64
	ApprovedAt     time.Time
	CreatedAt      time.Time
}

type MatchPlacement struct {
	MatchID   string
	PlayerID  string
	Username  string
	Placement int64
	Kills     int64
	Deaths    int64
}

type RatingHistory struct {
	ID             string
	PlayerID       string
	Ladder         string
	MatchID        string
	Kind           string
	PreviousRating int64
	NewRating      int64
	Change         int64
	MilestoneFrom  sql.NullString
	MilestoneTo    sql.NullString
	Promoted       sql.NullBool
	CreatedAt      time.Time
}
