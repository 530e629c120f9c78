package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"ladder-engine/internal/api"
	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
	"ladder-engine/internal/metrics"
	"ladder-engine/internal/middleware"
	"ladder-engine/internal/repository"
	"ladder-engine/internal/service"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type LadderServer struct {
	svc     *service.LadderService
	metrics *metrics.Metrics
	db      Pinger
	logger  zerolog.Logger
}

func NewLadderServer(svc *service.LadderService, m *metrics.Metrics, db Pinger, logger zerolog.Logger) *LadderServer {
	return &LadderServer{svc: svc, metrics: m, db: db, logger: logger}
}

// Routes builds the HTTP handler tree.
func (s *LadderServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/ladders", func(r chi.Router) {
		r.Use(chimw.Timeout(constants.RequestTimeout))
		r.Get("/", s.listLadders)
		r.Route("/{ladder}", func(r chi.Router) {
			r.Get("/standings", s.standings)
			r.Post("/matches", s.applyMatch)
			r.Post("/players", s.joinLadder)
			r.Post("/import", s.importLadder)
			r.Get("/scorecards/{username}", s.scorecard)
			r.Route("/players/{playerID}", func(r chi.Router) {
				r.Get("/", s.profile)
				r.Get("/opponent", s.recommendOpponent)
				r.Get("/teammate", s.findTeammate)
				r.Get("/history", s.ratingHistory)
			})
		})
	})
	return r
}

func (s *LadderServer) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *LadderServer) listLadders(w http.ResponseWriter, r *http.Request) {
	ladders := s.svc.Ladders()
	resp := make([]LadderResponse, len(ladders))
	for i, cfg := range ladders {
		resp[i] = toLadderResponse(cfg)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) standings(w http.ResponseWriter, r *http.Request) {
	ladderName := chi.URLParam(r, "ladder")
	standings, err := s.svc.Standings(r.Context(), ladderName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := StandingsResponse{Ladder: ladderName, Players: make([]StandingResponse, len(standings))}
	for i, st := range standings {
		resp.Players[i] = toStandingResponse(st)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *LadderServer) applyMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	out, err := s.svc.ApplyMatch(r.Context(), chi.URLParam(r, "ladder"), req.toDomain())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeResponse(out))
}

func (s *LadderServer) joinLadder(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	p, err := s.svc.JoinLadder(r.Context(), chi.URLParam(r, "ladder"), service.JoinRequest{
		Username: req.Username,
		Country:  req.Country,
		HasTeam:  req.HasTeam,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlayerResponse(*p))
}

func (s *LadderServer) importLadder(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.ImportLadder(r.Context(), chi.URLParam(r, "ladder"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{
		Ladder:          summary.Ladder,
		Players:         summary.Players,
		MatchesFetched:  summary.MatchesFetched,
		MatchesInserted: summary.MatchesInserted,
		MatchesSkipped:  summary.MatchesSkipped,
		Renumbered:      summary.Renumbered,
	})
}

func (s *LadderServer) scorecard(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Scorecard(r.Context(), chi.URLParam(r, "ladder"), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *LadderServer) profile(w http.ResponseWriter, r *http.Request) {
	ladderName := chi.URLParam(r, "ladder")
	p, err := s.svc.Profile(r.Context(), ladderName, chi.URLParam(r, "playerID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cfg, err := s.svc.Ladder(ladderName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(cfg, p))
}

func (s *LadderServer) recommendOpponent(w http.ResponseWriter, r *http.Request) {
	c, ok, err := s.svc.RecommendOpponent(r.Context(), chi.URLParam(r, "ladder"), chi.URLParam(r, "playerID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateResponse(c, ok))
}

func (s *LadderServer) findTeammate(w http.ResponseWriter, r *http.Request) {
	c, ok, err := s.svc.FindTeammate(r.Context(), chi.URLParam(r, "ladder"), chi.URLParam(r, "playerID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateResponse(c, ok))
}

func (s *LadderServer) ratingHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(w, r, badRequest(errors.New("limit must be a non-negative integer")))
			return
		}
		limit = n
	}
	entries, err := s.svc.RatingHistory(r.Context(), chi.URLParam(r, "playerID"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := make([]HistoryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toHistoryResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

type requestError struct{ err error }

func (e requestError) Error() string { return e.err.Error() }
func (e requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return requestError{err: err} }

func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, service.ErrInvalidMatch),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrNotTeamLadder),
		errors.Is(err, ladder.ErrSamePlayer):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownLadder),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ladder.ErrInputNotFound):
		return http.StatusNotFound
	case errors.Is(err, ladder.ErrInvariantViolation),
		errors.Is(err, repository.ErrDuplicateMatch),
		errors.Is(err, repository.ErrStalePosition),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, api.ErrStoreDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *LadderServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := zerolog.Ctx(r.Context())
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("ladder", chi.URLParam(r, "ladder")).Msg("request failed")
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Match requests carry player references by id or username.
func (req MatchRequest) toDomain() domain.Match {
	m := domain.Match{
		ID:           req.ID,
		Map:          req.Map,
		TotalPlayers: req.TotalPlayers,
	}
	if req.ApprovedAt != nil {
		m.ApprovedAt = req.ApprovedAt.UTC()
	}
	if req.Winner != nil {
		m.Winner = req.Winner.toDomain()
	}
	if req.Loser != nil {
		m.Loser = req.Loser.toDomain()
	}
	for _, p := range req.Placements {
		m.Placements = append(m.Placements, domain.Placement{
			PlayerID:  p.PlayerID,
			Username:  p.Username,
			Placement: p.Placement,
			Kills:     p.Kills,
			Deaths:    p.Deaths,
		})
	}
	return m
}

func (s SideRequest) toDomain() domain.Side {
	return domain.Side{
		PlayerID: s.PlayerID,
		Username: s.Username,
		Score:    s.Score,
		Deaths:   s.Deaths,
		Suicides: s.Suicides,
	}
}
