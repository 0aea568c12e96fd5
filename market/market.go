// market/market.go
package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217 currency code, e.g. "JPY".
type Currency string

const (
	JPY Currency = "JPY"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// SupportedCurrencies is the set of currencies the bot accounts in. JPY is
// the account base currency.
var SupportedCurrencies = []Currency{JPY, USD, EUR}

// AccountCurrency is the currency all portfolio valuations are expressed in.
const AccountCurrency = JPY

// Pair identifies a currency pair in BASE_QUOTE form, e.g. "USD_JPY".
type Pair string

const (
	USDJPY Pair = "USD_JPY"
	EURJPY Pair = "EUR_JPY"
	EURUSD Pair = "EUR_USD"
)

// Pairs lists every pair the bot analyzes.
var Pairs = []Pair{USDJPY, EURJPY, EURUSD}

// Base returns the base currency of the pair.
func (p Pair) Base() Currency {
	s := string(p)
	if len(s) < 3 {
		return ""
	}
	return Currency(s[:3])
}

// Quote returns the quote currency of the pair.
func (p Pair) Quote() Currency {
	s := string(p)
	if len(s) < 3 {
		return ""
	}
	return Currency(s[len(s)-3:])
}

// Valid reports whether the pair has the BASE_QUOTE shape.
func (p Pair) Valid() bool {
	s := string(p)
	return len(s) == 7 && s[3] == '_'
}

// Rate is a quoted exchange rate for one pair.
type Rate struct {
	Pair      Pair      `json:"pair"`
	Value     float64   `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RateTable maps pairs to their most recently fetched rate.
type RateTable map[Pair]Rate

// Get returns the rate for pair, or an error if the table has no quote.
func (t RateTable) Get(pair Pair) (Rate, error) {
	r, ok := t[pair]
	if !ok {
		return Rate{}, fmt.Errorf("no rate for %s", pair)
	}
	return r, nil
}

// Transaction is one executed trade from the account history. Amount is the
// signed quantity of the pair's base currency: positive for a buy, negative
// for a sell. Rate is the execution rate in quote currency per base unit.
type Transaction struct {
	Time   time.Time       `json:"time"`
	Pair   Pair            `json:"pair"`
	Amount decimal.Decimal `json:"amount"`
	Rate   float64         `json:"rate"`
}

// Snapshot bundles everything one analysis pass reads: current balances,
// the ordered transaction history and current market rates. A snapshot is
// built once per pass and treated as read-only downstream.
type Snapshot struct {
	Balances     map[Currency]decimal.Decimal `json:"balances"`
	Transactions []Transaction                `json:"transactions"`
	Rates        RateTable                    `json:"rates"`
	TakenAt      time.Time                    `json:"taken_at"`
}

// Balance returns the balance for c, zero if the currency is unknown.
func (s *Snapshot) Balance(c Currency) decimal.Decimal {
	if b, ok := s.Balances[c]; ok {
		return b
	}
	return decimal.Zero
}

// PortfolioValue converts every balance into the account currency using the
// snapshot's rate table. Currencies without a conversion rate are skipped.
func (s *Snapshot) PortfolioValue() decimal.Decimal {
	total := s.Balance(AccountCurrency)
	for cur, amt := range s.Balances {
		if cur == AccountCurrency {
			continue
		}
		r, err := s.Rates.Get(Pair(string(cur) + "_" + string(AccountCurrency)))
		if err != nil {
			continue
		}
		total = total.Add(amt.Mul(decimal.NewFromFloat(r.Value)))
	}
	return total
}
