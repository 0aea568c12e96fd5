package rates

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/quantfx/advisor/market"
)

// rateResponse is the JSON body returned by the rate API.
type rateResponse struct {
	Pair string  `json:"pair"`
	Rate float64 `json:"rate"`
}

type cacheEntry struct {
	rate      market.Rate
	expiresAt time.Time
}

// Client fetches rates from an HTTP rate API with a short-lived cache and
// a static fallback when the API is unreachable.
type Client struct {
	http *resty.Client
	log  *slog.Logger

	mu    sync.Mutex
	cache map[market.Pair]cacheEntry
	ttl   time.Duration

	now func() time.Time
}

// NewClient returns a rate client for the given API base URL. apiKey may be
// empty for unauthenticated endpoints.
func NewClient(baseURL, apiKey string, ttl time.Duration, log *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)
	if apiKey != "" {
		http.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &Client{
		http:  http,
		log:   log,
		cache: make(map[market.Pair]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Client) Rate(ctx context.Context, pair market.Pair) (market.Rate, error) {
	if r, ok := c.cached(pair); ok {
		return r, nil
	}

	r, err := c.fetch(ctx, pair)
	if err == nil {
		c.store(pair, r)
		return r, nil
	}

	if v, ok := FallbackRates[pair]; ok {
		c.log.Warn("rate API failed, using fallback rate",
			"pair", pair, "rate", v, "error", err)
		return market.Rate{Pair: pair, Value: v, FetchedAt: c.now().UTC()}, nil
	}

	return market.Rate{}, fmt.Errorf("fetch rate for %s: %w", pair, err)
}

func (c *Client) Table(ctx context.Context, pairs []market.Pair) (market.RateTable, error) {
	table := make(market.RateTable, len(pairs))
	for _, p := range pairs {
		r, err := c.Rate(ctx, p)
		if err != nil {
			c.log.Warn("skipping unquotable pair", "pair", p, "error", err)
			continue
		}
		table[p] = r
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no rates available for %v", pairs)
	}
	return table, nil
}

func (c *Client) fetch(ctx context.Context, pair market.Pair) (market.Rate, error) {
	var body rateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("pair", string(pair)).
		SetResult(&body).
		Get("/latest")
	if err != nil {
		return market.Rate{}, err
	}
	if resp.IsError() {
		return market.Rate{}, fmt.Errorf("rate API status %d", resp.StatusCode())
	}
	if body.Rate <= 0 {
		return market.Rate{}, fmt.Errorf("rate API returned non-positive rate %v", body.Rate)
	}
	return market.Rate{Pair: pair, Value: body.Rate, FetchedAt: c.now().UTC()}, nil
}

func (c *Client) cached(pair market.Pair) (market.Rate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[pair]
	if !ok || c.now().After(e.expiresAt) {
		return market.Rate{}, false
	}
	return e.rate, true
}

func (c *Client) store(pair market.Pair, r market.Rate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[pair] = cacheEntry{rate: r, expiresAt: c.now().Add(c.ttl)}
}
