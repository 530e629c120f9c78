// Package service runs the ladder engine against persisted state. It owns the
// per-ladder critical section for position changes and the result caches.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"ladder-engine/internal/api"
	"ladder-engine/internal/cache"
	"ladder-engine/internal/config"
	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
	"ladder-engine/internal/ladder"
	"ladder-engine/internal/metrics"
	"ladder-engine/internal/momentum"
	"ladder-engine/internal/repository"
	"ladder-engine/internal/scorecard"
	"ladder-engine/internal/tier"
)

var (
	ErrUnknownLadder   = errors.New("unknown ladder")
	ErrInvalidMatch    = errors.New("invalid match")
	ErrInvalidUsername = errors.New("invalid username")
	ErrUsernameTaken   = errors.New("username already on ladder")
	ErrNotTeamLadder   = errors.New("ladder has no teams")
)

// cache data classes, also used as metric labels
const (
	classRoster    = "roster"
	classProfile   = "profile"
	classScorecard = "scorecard"
	classHistory   = "rating_history"
)

type Standing struct {
	Rank     int
	Player   domain.Player
	Tier     tier.Tier
	Momentum momentum.State
}

type LadderService struct {
	ladders map[string]domain.LadderConfig
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.RatingHistoryRepository
	store   *api.StoreClient
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// guards the caches below and generation
	cacheMu    sync.Mutex
	generation uint64
	rosters    *cache.Cache[string, []Standing]
	profiles   *cache.Cache[string, *Profile]
	cards      *cache.Cache[string, scorecard.Result]
	histories  *cache.Cache[string, []domain.RatingHistoryEntry]
	flight     singleflight.Group
}

func NewLadderService(
	cfg *config.Config,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	history *repository.RatingHistoryRepository,
	store *api.StoreClient,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LadderService {
	return &LadderService{
		ladders:   cfg.Ladders,
		players:   players,
		matches:   matches,
		history:   history,
		store:     store,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
		rosters:   cache.New[string, []Standing](constants.RosterCacheTTL),
		profiles:  cache.New[string, *Profile](constants.ProfileCacheTTL),
		cards:     cache.New[string, scorecard.Result](constants.MatchStatsCacheTTL),
		histories: cache.New[string, []domain.RatingHistoryEntry](constants.RatingHistoryCacheTTL),
	}
}

// Ladder returns the configuration of a known ladder.
func (s *LadderService) Ladder(name string) (domain.LadderConfig, error) {
	cfg, ok := s.ladders[name]
	if !ok {
		return domain.LadderConfig{}, fmt.Errorf("%w: %q", ErrUnknownLadder, name)
	}
	return cfg, nil
}

func (s *LadderService) Ladders() []domain.LadderConfig {
	out := make([]domain.LadderConfig, 0, len(s.ladders))
	for _, cfg := range s.ladders {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *LadderService) lockFor(ladderName string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[ladderName]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[ladderName] = mu
	}
	return mu
}

// Standings returns the roster in display order with tier and momentum.
func (s *LadderService) Standings(ctx context.Context, ladderName string) ([]Standing, error) {
	cfg, err := s.Ladder(ladderName)
	if err != nil {
		return nil, err
	}

	return cached(s, s.rosters, classRoster, ladderName, func() ([]Standing, error) {
		ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
		defer cancel()
		return s.buildStandings(ctx, cfg)
	})
}

func (s *LadderService) buildStandings(ctx context.Context, cfg domain.LadderConfig) ([]Standing, error) {
	roster, err := s.players.ListByLadder(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for %s: %w", cfg.Name, err)
	}
	now := s.now()
	recent, err := s.matches.ListSince(ctx, cfg.Name, now.Add(-momentum.Window))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches for %s: %w", cfg.Name, err)
	}

	roster = sortRoster(cfg, roster)
	standings := make([]Standing, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range roster {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := roster[i]
			standings[i] = Standing{
				Rank:     i + 1,
				Player:   p,
				Tier:     cfg.TierOf(p),
				Momentum: momentum.Classify(domain.ResultsFor(recent, p.ID, p.Username), now),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("ladder", cfg.Name).Int("players", len(standings)).Msg("standings built")
	return standings, nil
}

// sortRoster orders players for display according to the ladder ordering.
// Position ladders use the dense position order as is.
func sortRoster(cfg domain.LadderConfig, roster []domain.Player) []domain.Player {
	var less func(a, b domain.Player) bool
	switch cfg.Ordering {
	case domain.OrderByPosition:
		return ladder.Sorted(roster)
	case domain.OrderByWinRate:
		less = func(a, b domain.Player) bool {
			if a.WinRate() != b.WinRate() {
				return a.WinRate() > b.WinRate()
			}
			if a.Matches != b.Matches {
				return a.Matches > b.Matches
			}
			return a.Rating > b.Rating
		}
	default:
		less = func(a, b domain.Player) bool {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			return a.Wins > b.Wins
		}
	}
	sort.SliceStable(roster, func(i, j int) bool {
		a, b := roster[i], roster[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.Key() < b.Key()
	})
	return roster
}

// cached serves key from c, collapsing concurrent recomputations. Results
// computed while an invalidation happened are returned but not stored.
func cached[V any](s *LadderService, c *cache.Cache[string, V], class, key string, load func() (V, error)) (V, error) {
	s.cacheMu.Lock()
	v, ok := c.Get(key)
	gen := s.generation
	s.cacheMu.Unlock()
	s.metrics.CacheResult(class, ok)
	if ok {
		return v, nil
	}

	res, err, _ := s.flight.Do(class+"|"+key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		s.cacheMu.Lock()
		if s.generation == gen {
			c.Set(key, v)
		}
		s.cacheMu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// invalidate drops every cached result of the ladder plus the rating history
// of the given players.
func (s *LadderService) invalidate(ladderName string, playerIDs ...string) {
	prefix := ladderName + "/"
	inLadder := func(k string) bool { return k == ladderName || strings.HasPrefix(k, prefix) }

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	s.rosters.DeleteFunc(inLadder)
	s.profiles.DeleteFunc(inLadder)
	s.cards.DeleteFunc(inLadder)
	for _, id := range playerIDs {
		idPrefix := id + "/"
		s.histories.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, idPrefix) })
	}
}

func ladderKey(ladderName, sub string) string {
	return ladderName + "/" + sub
}

var Module = fx.Provide(NewLadderService)
