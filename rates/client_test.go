package rates

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/advisor/market"
)

func newRateServer(t *testing.T, rate float64, calls *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		pair := r.URL.Query().Get("pair")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pair": %q, "rate": %v}`, pair, rate)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetch(t *testing.T) {
	var calls atomic.Int64
	srv := newRateServer(t, 151.25, &calls)

	c := NewClient(srv.URL, "", time.Minute, slog.Default())

	r, err := c.Rate(context.Background(), market.USDJPY)
	require.NoError(t, err)
	assert.Equal(t, market.USDJPY, r.Pair)
	assert.Equal(t, 151.25, r.Value)
	assert.False(t, r.FetchedAt.IsZero())
}

func TestClientCacheTTL(t *testing.T) {
	var calls atomic.Int64
	srv := newRateServer(t, 150.0, &calls)

	c := NewClient(srv.URL, "", time.Minute, slog.Default())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	_, err := c.Rate(ctx, market.USDJPY)
	require.NoError(t, err)
	_, err = c.Rate(ctx, market.USDJPY)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load(), "second read should hit the cache")

	now = now.Add(2 * time.Minute)
	_, err = c.Rate(ctx, market.USDJPY)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load(), "expired cache should refetch")
}

func TestClientFallbackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "", time.Minute, slog.Default())

	r, err := c.Rate(context.Background(), market.EURJPY)
	require.NoError(t, err)
	assert.Equal(t, FallbackRates[market.EURJPY], r.Value)
}

func TestClientNoFallbackForUnknownPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "", time.Minute, slog.Default())

	_, err := c.Rate(context.Background(), market.Pair("GBP_JPY"))
	assert.Error(t, err)
}

func TestClientTable(t *testing.T) {
	var calls atomic.Int64
	srv := newRateServer(t, 1.5, &calls)

	c := NewClient(srv.URL, "", time.Minute, slog.Default())

	table, err := c.Table(context.Background(), market.Pairs)
	require.NoError(t, err)
	assert.Len(t, table, len(market.Pairs))
}

func TestStaticSource(t *testing.T) {
	s := NewStatic(nil)

	table, err := s.Table(context.Background(), market.Pairs)
	require.NoError(t, err)
	assert.Len(t, table, 3)
	assert.Equal(t, 150.0, table[market.USDJPY].Value)

	_, err = s.Rate(context.Background(), market.Pair("GBP_JPY"))
	assert.Error(t, err)
}
