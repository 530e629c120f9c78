package api

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ladder-engine/internal/domain"
)

// Document is a schemaless store record. Field names drifted over the life of
// the store, so every lookup accepts a list of aliases.
type Document map[string]any

var ErrMalformedDocument = errors.New("malformed document")

// namespace for ids derived from document content
var documentNamespace = uuid.MustParse("6f1f3f0e-5b7c-4d43-9a43-2f0c8c1b7e21")

func (d Document) str(keys ...string) string {
	for _, k := range keys {
		switch v := d[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (d Document) num(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := d[k].(type) {
		case float64:
			return int(math.Round(v)), true
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int(math.Round(n)), true
			}
		}
	}
	return 0, false
}

func (d Document) integer(keys ...string) int {
	n, _ := d.num(keys...)
	return n
}

func (d Document) flag(keys ...string) bool {
	for _, k := range keys {
		switch v := d[k].(type) {
		case bool:
			return v
		case string:
			b, err := strconv.ParseBool(v)
			return err == nil && b
		}
	}
	return false
}

// timestamp accepts RFC 3339 strings and unix timestamps in seconds or milliseconds.
func (d Document) timestamp(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		switch v := d[k].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t.UTC(), true
			}
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return unix(n), true
			}
		case float64:
			return unix(int64(v)), true
		case map[string]any:
			// {"seconds": ...} timestamp objects
			if s, ok := v["seconds"].(float64); ok {
				return time.Unix(int64(s), 0).UTC(), true
			}
			if s, ok := v["_seconds"].(float64); ok {
				return time.Unix(int64(s), 0).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func unix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

func (d Document) docs(keys ...string) []Document {
	for _, k := range keys {
		raw, ok := d[k].([]any)
		if !ok {
			continue
		}
		out := make([]Document, 0, len(raw))
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Document(m))
			}
		}
		return out
	}
	return nil
}

// NormalizePlayer maps a player document onto the domain record.
func NormalizePlayer(ladder string, d Document) (domain.Player, error) {
	username := d.str("username", "name", "player", "displayName")
	if username == "" {
		return domain.Player{}, fmt.Errorf("%w: player without username", ErrMalformedDocument)
	}

	p := domain.Player{
		ID:        d.str("id", "_id", "playerId", "uid"),
		Username:  username,
		Ladder:    ladder,
		Position:  d.integer("position", "rank"),
		TierValue: d.integer("tierValue", "tier_value"),
		Wins:      d.integer("wins"),
		Losses:    d.integer("losses"),
		Country:   d.str("country"),
		HasTeam:   d.flag("hasTeam", "has_team"),
	}
	if p.ID == "" {
		p.ID = uuid.NewSHA1(documentNamespace, []byte(ladder+"/player/"+domain.NormalizeUsername(username))).String()
	}

	r, ok := d.num("rating", "elo", "eloRating")
	if !ok {
		return domain.Player{}, fmt.Errorf("%w: player %s has no rating", ErrMalformedDocument, username)
	}
	p.Rating = r

	if m, ok := d.num("matches", "totalMatches", "matchesPlayed"); ok {
		p.Matches = m
	} else {
		p.Matches = p.Wins + p.Losses
	}
	if t, ok := d.timestamp("streakStart", "streak_start", "firstPlaceSince"); ok {
		p.StreakStart = &t
	}
	if t, ok := d.timestamp("createdAt", "created_at", "joinedAt"); ok {
		p.CreatedAt = t
	}
	return p, nil
}

// NormalizeMatch maps a match document onto the domain record. Documents with
// a placements list become free-for-all matches.
func NormalizeMatch(ladder string, d Document) (domain.Match, error) {
	approved, ok := d.timestamp("approvedAt", "approved_at", "createdAt", "created_at", "timestamp")
	if !ok {
		return domain.Match{}, fmt.Errorf("%w: match without approval time", ErrMalformedDocument)
	}

	m := domain.Match{
		ID:         d.str("id", "_id", "matchId"),
		Ladder:     ladder,
		Map:        d.str("map", "mapName", "mapPlayed"),
		ApprovedAt: approved,
	}

	if entries := d.docs("placements", "players", "results"); len(entries) > 0 {
		for _, e := range entries {
			name := e.str("username", "player", "name")
			if name == "" {
				return domain.Match{}, fmt.Errorf("%w: placement without player", ErrMalformedDocument)
			}
			place, ok := e.num("placement", "position", "place")
			if !ok || place < 1 {
				return domain.Match{}, fmt.Errorf("%w: placement for %s is missing", ErrMalformedDocument, name)
			}
			m.Placements = append(m.Placements, domain.Placement{
				PlayerID:  e.str("playerId", "id", "uid"),
				Username:  name,
				Placement: place,
				Kills:     e.integer("kills", "score"),
				Deaths:    e.integer("deaths"),
			})
		}
		m.TotalPlayers = d.integer("totalPlayers", "playerCount")
		if m.TotalPlayers < len(m.Placements) {
			m.TotalPlayers = len(m.Placements)
		}
	} else {
		m.Winner = domain.Side{
			PlayerID: d.str("winnerId", "winner_id"),
			Username: d.str("winnerUsername", "winner", "winnerName"),
			Score:    d.integer("winnerScore", "winnerKills", "winner_score"),
			Deaths:   d.integer("winnerDeaths", "winner_deaths"),
			Suicides: d.integer("winnerSuicides", "winner_suicides"),
		}
		m.Loser = domain.Side{
			PlayerID: d.str("loserId", "loser_id"),
			Username: d.str("loserUsername", "loser", "loserName"),
			Score:    d.integer("loserScore", "loserKills", "loser_score"),
			Deaths:   d.integer("loserDeaths", "loser_deaths"),
			Suicides: d.integer("loserSuicides", "loser_suicides"),
		}
		if m.Winner.Username == "" || m.Loser.Username == "" {
			return domain.Match{}, fmt.Errorf("%w: match without both players", ErrMalformedDocument)
		}
		m.TotalPlayers = 2
	}

	if m.ID == "" {
		key := fmt.Sprintf("%s/match/%s/%s/%s/%d", ladder,
			domain.NormalizeUsername(m.Winner.Username),
			domain.NormalizeUsername(m.Loser.Username),
			m.Map, approved.Unix())
		for _, p := range m.Placements {
			key += "/" + domain.NormalizeUsername(p.Username)
		}
		m.ID = uuid.NewSHA1(documentNamespace, []byte(key)).String()
	}
	return m, nil
}
