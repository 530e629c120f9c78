package server

import (
	"time"

	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
	"ladder-engine/internal/matchmaking"
	"ladder-engine/internal/momentum"
	"ladder-engine/internal/service"
	"ladder-engine/internal/tier"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SideRequest struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Deaths   int    `json:"deaths"`
	Suicides int    `json:"suicides"`
}

type PlacementRequest struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Placement int    `json:"placement"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
}

type MatchRequest struct {
	ID           string             `json:"id"`
	Map          string             `json:"map"`
	Winner       *SideRequest       `json:"winner"`
	Loser        *SideRequest       `json:"loser"`
	Placements   []PlacementRequest `json:"placements"`
	TotalPlayers int                `json:"total_players"`
	ApprovedAt   *time.Time         `json:"approved_at"`
}

type JoinRequest struct {
	Username string `json:"username"`
	Country  string `json:"country"`
	HasTeam  bool   `json:"has_team"`
}

type LadderResponse struct {
	Name           string      `json:"name"`
	Kind           string      `json:"kind"`
	Ordering       string      `json:"ordering"`
	StartingRating int         `json:"starting_rating"`
	KFactor        int         `json:"k_factor"`
	Tiers          []tier.Tier `json:"tiers"`
}

type PlayerResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Ladder      string     `json:"ladder"`
	Rating      int        `json:"rating"`
	Position    int        `json:"position,omitempty"`
	TierValue   int        `json:"tier_value,omitempty"`
	Matches     int        `json:"matches"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	WinRate     float64    `json:"win_rate"`
	StreakStart *time.Time `json:"streak_start,omitempty"`
	Country     string     `json:"country,omitempty"`
	HasTeam     bool       `json:"has_team"`
}

type StandingResponse struct {
	Rank     int            `json:"rank"`
	Player   PlayerResponse `json:"player"`
	Tier     tier.Tier      `json:"tier"`
	Ranked   bool           `json:"ranked"`
	Momentum momentum.State `json:"momentum"`
}

type StandingsResponse struct {
	Ladder  string             `json:"ladder"`
	Players []StandingResponse `json:"players"`
}

type MilestoneResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Promoted bool   `json:"promoted"`
}

type HistoryResponse struct {
	ID             string             `json:"id"`
	MatchID        string             `json:"match_id"`
	Kind           string             `json:"kind"`
	PreviousRating int                `json:"previous_rating"`
	NewRating      int                `json:"new_rating"`
	Change         int                `json:"change"`
	Milestone      *MilestoneResponse `json:"milestone,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

type RatingChangeResponse struct {
	WinnerDelta    int     `json:"winner_delta"`
	LoserDelta     int     `json:"loser_delta"`
	WinnerExpected float64 `json:"winner_expected"`
}

type OutcomeResponse struct {
	MatchID      string                  `json:"match_id"`
	Participants []PlayerResponse        `json:"participants"`
	Rating       *RatingChangeResponse   `json:"rating,omitempty"`
	TierValue    *RatingChangeResponse   `json:"tier_value,omitempty"`
	Positions    []ladder.PositionChange `json:"positions"`
	History      []HistoryResponse       `json:"history"`
}

type CandidateResponse struct {
	Found        bool            `json:"found"`
	Player       *PlayerResponse `json:"player,omitempty"`
	Tier         *tier.Tier      `json:"tier,omitempty"`
	RatingGap    int             `json:"rating_gap,omitempty"`
	ExpectedGain int             `json:"expected_gain,omitempty"`
	Score        float64         `json:"score,omitempty"`
}

type ProfileResponse struct {
	StandingResponse
	NextTier     *tier.Tier          `json:"next_tier,omitempty"`
	MomentumInfo momentum.Summary    `json:"momentum_detail"`
	RecentDeltas []int               `json:"recent_deltas"`
	Milestones   []MilestoneResponse `json:"milestones"`
}

type ImportResponse struct {
	Ladder          string `json:"ladder"`
	Players         int    `json:"players"`
	MatchesFetched  int    `json:"matches_fetched"`
	MatchesInserted int    `json:"matches_inserted"`
	MatchesSkipped  int    `json:"matches_skipped"`
	Renumbered      bool   `json:"renumbered"`
}

func toLadderResponse(cfg domain.LadderConfig) LadderResponse {
	return LadderResponse{
		Name:           cfg.Name,
		Kind:           string(cfg.Kind),
		Ordering:       string(cfg.Ordering),
		StartingRating: cfg.StartingRating,
		KFactor:        cfg.KFactor,
		Tiers:          cfg.Tiers.Levels(),
	}
}

func toPlayerResponse(p domain.Player) PlayerResponse {
	return PlayerResponse{
		ID:          p.ID,
		Username:    p.Username,
		Ladder:      p.Ladder,
		Rating:      p.Rating,
		Position:    p.Position,
		TierValue:   p.TierValue,
		Matches:     p.Matches,
		Wins:        p.Wins,
		Losses:      p.Losses,
		WinRate:     p.WinRate(),
		StreakStart: p.StreakStart,
		Country:     p.Country,
		HasTeam:     p.HasTeam,
	}
}

func toStandingResponse(st service.Standing) StandingResponse {
	return StandingResponse{
		Rank:     st.Rank,
		Player:   toPlayerResponse(st.Player),
		Tier:     st.Tier,
		Ranked:   st.Tier.IsRanked(),
		Momentum: st.Momentum,
	}
}

func toMilestoneResponse(m domain.Milestone) MilestoneResponse {
	return MilestoneResponse{From: m.From, To: m.To, Promoted: m.Promoted}
}

func toHistoryResponse(e domain.RatingHistoryEntry) HistoryResponse {
	resp := HistoryResponse{
		ID:             e.ID,
		MatchID:        e.MatchID,
		Kind:           e.Kind,
		PreviousRating: e.PreviousRating,
		NewRating:      e.NewRating,
		Change:         e.Change,
		CreatedAt:      e.CreatedAt,
	}
	if e.Milestone != nil {
		m := toMilestoneResponse(*e.Milestone)
		resp.Milestone = &m
	}
	return resp
}

func toOutcomeResponse(out *service.MatchOutcome) OutcomeResponse {
	resp := OutcomeResponse{
		MatchID:      out.Match.ID,
		Participants: make([]PlayerResponse, len(out.Participants)),
		Positions:    out.Positions,
		History:      make([]HistoryResponse, len(out.History)),
	}
	if resp.Positions == nil {
		resp.Positions = []ladder.PositionChange{}
	}
	for i, p := range out.Participants {
		resp.Participants[i] = toPlayerResponse(p)
	}
	for i, h := range out.History {
		resp.History[i] = toHistoryResponse(h)
	}
	if out.Rating != nil {
		resp.Rating = &RatingChangeResponse{
			WinnerDelta:    out.Rating.WinnerDelta,
			LoserDelta:     out.Rating.LoserDelta,
			WinnerExpected: out.Rating.WinnerExpected,
		}
	}
	if out.TierValue != nil {
		resp.TierValue = &RatingChangeResponse{
			WinnerDelta:    out.TierValue.WinnerDelta,
			LoserDelta:     out.TierValue.LoserDelta,
			WinnerExpected: out.TierValue.WinnerExpected,
		}
	}
	return resp
}

func toCandidateResponse(c matchmaking.Candidate, ok bool) CandidateResponse {
	if !ok {
		return CandidateResponse{}
	}
	p := toPlayerResponse(c.Player)
	t := c.Tier
	return CandidateResponse{
		Found:        true,
		Player:       &p,
		Tier:         &t,
		RatingGap:    c.RatingGap,
		ExpectedGain: c.ExpectedGain,
		Score:        c.Score,
	}
}

func toProfileResponse(cfg domain.LadderConfig, p *service.Profile) ProfileResponse {
	resp := ProfileResponse{
		StandingResponse: toStandingResponse(p.Standing),
		MomentumInfo:     p.Momentum,
		RecentDeltas:     p.RecentDeltas,
		Milestones:       make([]MilestoneResponse, len(p.Milestones)),
	}
	if resp.RecentDeltas == nil {
		resp.RecentDeltas = []int{}
	}
	for i, m := range p.Milestones {
		resp.Milestones[i] = toMilestoneResponse(m)
	}
	if next, ok := service.NextTier(cfg, p.Tier); ok {
		resp.NextTier = &next
	}
	return resp
}
