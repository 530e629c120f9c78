// Package api pulls ladder documents from the remote document store used by
// the community site and normalizes them into domain records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"ladder-engine/internal/config"
	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
)

var ErrStoreDisabled = errors.New("remote store is not configured")

type StoreClient struct {
	baseURL     string
	apiKey      string
	client      *fasthttp.Client
	limiter     *rate.Limiter
	logger      zerolog.Logger
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewStoreClient(cfg *config.Config, logger zerolog.Logger) *StoreClient {
	limit := cfg.StoreRateLimit
	if limit <= 0 {
		limit = constants.DefaultStoreRateMax
	}
	return &StoreClient{
		baseURL: strings.TrimRight(cfg.StoreBaseURL, "/"),
		apiKey:  cfg.StoreAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     20,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Limit(limit), constants.DefaultStoreRateBurst),
		logger:  logger,
		rateLimit: RateLimitInfo{
			Limit:     int(limit),
			Remaining: int(limit),
			UpdatedAt: time.Now(),
		},
	}
}

func (c *StoreClient) Enabled() bool {
	return c.baseURL != ""
}

func (c *StoreClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *StoreClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

type documentsResponse struct {
	Data []Document `json:"data"`
}

// FetchPlayers returns the ladder's player documents, normalized.
func (c *StoreClient) FetchPlayers(ctx context.Context, ladder string) ([]domain.Player, error) {
	if !c.Enabled() {
		return nil, ErrStoreDisabled
	}
	u := fmt.Sprintf("%s/ladders/%s/players", c.baseURL, url.PathEscape(ladder))
	resp, err := doRequest[documentsResponse](ctx, c, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players for %s: %w", ladder, err)
	}

	players := make([]domain.Player, 0, len(resp.Data))
	for i, doc := range resp.Data {
		p, err := NormalizePlayer(ladder, doc)
		if err != nil {
			c.logger.Warn().Err(err).Str("ladder", ladder).Int("index", i).Msg("skipping player document")
			continue
		}
		players = append(players, p)
	}
	return players, nil
}

// FetchMatches returns the ladder's approved match documents, normalized.
func (c *StoreClient) FetchMatches(ctx context.Context, ladder string) ([]domain.Match, error) {
	if !c.Enabled() {
		return nil, ErrStoreDisabled
	}
	u := fmt.Sprintf("%s/ladders/%s/matches?status=approved", c.baseURL, url.PathEscape(ladder))
	resp, err := doRequest[documentsResponse](ctx, c, u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch matches for %s: %w", ladder, err)
	}

	matches := make([]domain.Match, 0, len(resp.Data))
	for i, doc := range resp.Data {
		m, err := NormalizeMatch(ladder, doc)
		if err != nil {
			c.logger.Warn().Err(err).Str("ladder", ladder).Int("index", i).Msg("skipping match document")
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func doRequest[T any](ctx context.Context, client *StoreClient, url string) (*T, error) {
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+client.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, err
		}
	}

	client.updateRateLimit(resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("store error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
