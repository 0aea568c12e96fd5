// ledger/ledger.go
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/market"
)

// Record is one entry of the transaction log as stored. Voided records stay
// in the log for audit but are excluded from analysis history.
type Record struct {
	ID     string          `json:"id"`
	Time   time.Time       `json:"time"`
	Pair   market.Pair     `json:"pair"`
	Amount decimal.Decimal `json:"amount"`
	Rate   float64         `json:"rate"`
	Voided bool            `json:"voided,omitempty"`
}

// Transaction converts the record to its read-only analysis form.
func (r Record) Transaction() market.Transaction {
	return market.Transaction{
		Time:   r.Time,
		Pair:   r.Pair,
		Amount: r.Amount,
		Rate:   r.Rate,
	}
}

// Store is the persistence collaborator for balances and transaction
// history. Reads are point-in-time snapshots; the inference core never
// writes account state back.
type Store interface {
	// Balances returns the current balance per currency. A store with no
	// recorded state returns the initial account balance.
	Balances(ctx context.Context) (map[market.Currency]decimal.Decimal, error)

	// Transactions returns the non-voided transaction history in
	// chronological order. An empty history is not an error.
	Transactions(ctx context.Context) ([]market.Transaction, error)

	// Append records a new transaction and returns its assigned ID.
	Append(ctx context.Context, rec Record) (string, error)

	// UpdateBalances replaces the stored balances.
	UpdateBalances(ctx context.Context, balances map[market.Currency]decimal.Decimal) error

	Close() error
}

// InitialBalanceJPY is the account's starting balance before any
// transaction has been recorded.
var InitialBalanceJPY = decimal.NewFromInt(1000000)

// initialBalances returns the bootstrap balance set for a fresh account.
func initialBalances() map[market.Currency]decimal.Decimal {
	b := make(map[market.Currency]decimal.Decimal, len(market.SupportedCurrencies))
	for _, cur := range market.SupportedCurrencies {
		if cur == market.AccountCurrency {
			b[cur] = InitialBalanceJPY
		} else {
			b[cur] = decimal.Zero
		}
	}
	return b
}

// normalizeBalances fills in any supported currency the stored data is
// missing, so callers always see the full currency set.
func normalizeBalances(b map[market.Currency]decimal.Decimal) map[market.Currency]decimal.Decimal {
	for _, cur := range market.SupportedCurrencies {
		if _, ok := b[cur]; !ok {
			b[cur] = decimal.Zero
		}
	}
	return b
}
