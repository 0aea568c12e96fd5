// rates/rates.go
package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/quantfx/advisor/market"
)

// Source provides current exchange rates. Implementations must be safe for
// concurrent use.
type Source interface {
	// Rate returns the current quote for one pair.
	Rate(ctx context.Context, pair market.Pair) (market.Rate, error)

	// Table returns quotes for all requested pairs. Pairs that cannot be
	// quoted at all are omitted; an empty table is an error.
	Table(ctx context.Context, pairs []market.Pair) (market.RateTable, error)
}

// FallbackRates are last-resort quotes used when the rate API is down.
// Stale but plausible beats no analysis at all; the caller logs their use.
var FallbackRates = map[market.Pair]float64{
	market.USDJPY: 150.0,
	market.EURJPY: 160.0,
	market.EURUSD: 1.07,
}

// Static is a fixed-rate source for tests and simulated datasets.
type Static struct {
	Rates map[market.Pair]float64
}

// NewStatic returns a Static source quoting the given rates, defaulting to
// the fallback table when rates is nil.
func NewStatic(rates map[market.Pair]float64) *Static {
	if rates == nil {
		rates = FallbackRates
	}
	return &Static{Rates: rates}
}

func (s *Static) Rate(ctx context.Context, pair market.Pair) (market.Rate, error) {
	v, ok := s.Rates[pair]
	if !ok {
		return market.Rate{}, fmt.Errorf("no static rate for %s", pair)
	}
	return market.Rate{Pair: pair, Value: v, FetchedAt: time.Now().UTC()}, nil
}

func (s *Static) Table(ctx context.Context, pairs []market.Pair) (market.RateTable, error) {
	table := make(market.RateTable, len(pairs))
	for _, p := range pairs {
		r, err := s.Rate(ctx, p)
		if err != nil {
			continue
		}
		table[p] = r
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no rates available")
	}
	return table, nil
}
