// inference/resolver.go
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/ledger"
	"github.com/quantfx/advisor/market"
	"github.com/quantfx/advisor/rates"
)

// Resolver chooses and loads the data source for a pass. Real and simulated
// snapshots are structurally identical, so everything downstream is
// mode-agnostic.
type Resolver struct {
	store       ledger.Store
	rates       rates.Source
	realEnabled bool
	pairs       []market.Pair

	now func() time.Time
}

// NewResolver builds a resolver over the persistence and rate collaborators.
// realEnabled gates ModeReal; when false real requests fail fast.
func NewResolver(store ledger.Store, src rates.Source, realEnabled bool) *Resolver {
	return &Resolver{
		store:       store,
		rates:       src,
		realEnabled: realEnabled,
		pairs:       market.Pairs,
		now:         time.Now,
	}
}

// Available checks whether mode can be resolved right now without building
// the full snapshot. Used as the admission gate before the execution lock
// is taken, so a first-run account is rejected without ever holding the
// lease.
func (r *Resolver) Available(ctx context.Context, mode Mode) error {
	if mode != ModeReal {
		return nil
	}
	if !r.realEnabled {
		return ErrRealModeDisabled
	}

	txs, err := r.store.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("read transaction history: %w", err)
	}
	if len(txs) == 0 {
		return ErrDataUnavailable
	}
	return nil
}

// Resolve loads the snapshot for mode.
func (r *Resolver) Resolve(ctx context.Context, mode Mode) (*market.Snapshot, error) {
	if mode == ModeSimulated {
		return r.simulated(), nil
	}

	if !r.realEnabled {
		return nil, ErrRealModeDisabled
	}

	txs, err := r.store.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read transaction history: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrDataUnavailable
	}

	balances, err := r.store.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("read balances: %w", err)
	}

	table, err := r.rates.Table(ctx, r.pairs)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}

	return &market.Snapshot{
		Balances:     balances,
		Transactions: txs,
		Rates:        table,
		TakenAt:      r.now().UTC(),
	}, nil
}

// simulated builds the deterministic synthetic dataset: a modest mixed
// history so the engine and the fallback both have something to chew on.
func (r *Resolver) simulated() *market.Snapshot {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	txs := []market.Transaction{
		{Time: base, Pair: market.USDJPY, Amount: decimal.NewFromInt(1000), Rate: 148.2},
		{Time: base.Add(24 * time.Hour), Pair: market.USDJPY, Amount: decimal.NewFromInt(-1000), Rate: 149.8},
		{Time: base.Add(48 * time.Hour), Pair: market.EURJPY, Amount: decimal.NewFromInt(500), Rate: 158.9},
		{Time: base.Add(72 * time.Hour), Pair: market.EURJPY, Amount: decimal.NewFromInt(-500), Rate: 158.1},
		{Time: base.Add(96 * time.Hour), Pair: market.EURUSD, Amount: decimal.NewFromInt(300), Rate: 1.085},
	}

	table := make(market.RateTable, len(r.pairs))
	fetched := r.now().UTC()
	for p, v := range map[market.Pair]float64{
		market.USDJPY: 150.0,
		market.EURJPY: 160.0,
		market.EURUSD: 1.07,
	} {
		table[p] = market.Rate{Pair: p, Value: v, FetchedAt: fetched}
	}

	return &market.Snapshot{
		Balances: map[market.Currency]decimal.Decimal{
			market.JPY: decimal.NewFromInt(1000000),
			market.USD: decimal.NewFromInt(2000),
			market.EUR: decimal.NewFromInt(800),
		},
		Transactions: txs,
		Rates:        table,
		TakenAt:      fetched,
	}
}
