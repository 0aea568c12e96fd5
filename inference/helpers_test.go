package inference

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/advisor/ledger"
	"github.com/quantfx/advisor/market"
	"github.com/quantfx/advisor/rates"
)

// fakeLedger is an in-memory ledger.Store for tests.
type fakeLedger struct {
	balances map[market.Currency]decimal.Decimal
	txs      []market.Transaction
	err      error
}

func (f *fakeLedger) Balances(ctx context.Context) (map[market.Currency]decimal.Decimal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.balances == nil {
		return map[market.Currency]decimal.Decimal{
			market.JPY: decimal.NewFromInt(1000000),
			market.USD: decimal.NewFromInt(1000),
			market.EUR: decimal.Zero,
		}, nil
	}
	return f.balances, nil
}

func (f *fakeLedger) Transactions(ctx context.Context) ([]market.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txs, nil
}

func (f *fakeLedger) Append(ctx context.Context, rec ledger.Record) (string, error) {
	f.txs = append(f.txs, rec.Transaction())
	return rec.ID, nil
}

func (f *fakeLedger) UpdateBalances(ctx context.Context, balances map[market.Currency]decimal.Decimal) error {
	f.balances = balances
	return nil
}

func (f *fakeLedger) Close() error { return nil }

// threeTradeHistory is a small mixed REAL history: two closed USD_JPY round
// trips (one win, one loss) plus an open EUR_JPY position.
func threeTradeHistory() []market.Transaction {
	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return []market.Transaction{
		{Time: base, Pair: market.USDJPY, Amount: decimal.NewFromInt(100), Rate: 149.0},
		{Time: base.Add(time.Hour), Pair: market.USDJPY, Amount: decimal.NewFromInt(-100), Rate: 151.0},
		{Time: base.Add(2 * time.Hour), Pair: market.EURJPY, Amount: decimal.NewFromInt(200), Rate: 160.0},
	}
}

// stubEngine is an in-process Engine returning canned output or an error.
type stubEngine struct {
	out *EngineResult
	err error

	// block, when non-nil, stalls Invoke until the channel is closed.
	block chan struct{}
}

func (s *stubEngine) Invoke(ctx context.Context, snap *market.Snapshot) (*EngineResult, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, errors.Join(ErrEngineTimeout, ctx.Err())
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

// stubLocator returns a fixed engine or a locate error.
type stubLocator struct {
	engine Engine
	err    error
}

func (s stubLocator) Locate() (Engine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.engine, nil
}

func engineOutput(conf float64) *EngineResult {
	return &EngineResult{
		Output: RawOutput{
			Pair:         market.USDJPY,
			Direction:    Buy,
			SizeFraction: decimal.NewFromFloat(0.03),
			Amount:       decimal.NewFromInt(30),
			Confidence:   conf,
			Narrative:    "model sees upside",
		},
		Transcript: "engine transcript",
	}
}

// newTestOrchestrator wires an orchestrator with a real locker/resolver/store
// over fakes, persisting under a temp dir.
func newTestOrchestrator(t *testing.T, store ledger.Store, locator Locator) (*Orchestrator, *Store) {
	t.Helper()

	dir := t.TempDir()
	resultStore, err := NewStore(dir+"/real", dir+"/sim")
	require.NoError(t, err)

	resolver := NewResolver(store, rates.NewStatic(nil), true)
	locker := NewLocker(time.Minute)

	return NewOrchestrator(locker, resolver, locator, resultStore, slog.Default()), resultStore
}
