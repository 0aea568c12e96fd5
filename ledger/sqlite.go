package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/market"
	"github.com/quantfx/advisor/pkg/id"
)

// SQLite is a ledger store backed by a single SQLite database, for
// deployments that outgrow the JSON files.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Balances(ctx context.Context) (map[market.Currency]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT currency, amount FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[market.Currency]decimal.Decimal)
	for rows.Next() {
		var cur, amt string
		if err := rows.Scan(&cur, &amt); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		d, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, fmt.Errorf("parse balance for %s: %w", cur, err)
		}
		balances[market.Currency(cur)] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(balances) == 0 {
		return initialBalances(), nil
	}
	return normalizeBalances(balances), nil
}

func (s *SQLite) UpdateBalances(ctx context.Context, balances map[market.Currency]decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for cur, amt := range balances {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO balances (currency, amount) VALUES (?, ?)
			ON CONFLICT(currency) DO UPDATE SET amount = excluded.amount`,
			string(cur), amt.String(),
		)
		if err != nil {
			return fmt.Errorf("upsert balance %s: %w", cur, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Transactions(ctx context.Context) ([]market.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, pair, amount, rate FROM transactions
		WHERE voided = 0 ORDER BY time ASC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []market.Transaction
	for rows.Next() {
		var (
			ts   time.Time
			pair string
			amt  string
			rate float64
		)
		if err := rows.Scan(&ts, &pair, &amt, &rate); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		txs = append(txs, market.Transaction{
			Time:   ts,
			Pair:   market.Pair(pair),
			Amount: d,
			Rate:   rate,
		})
	}
	return txs, rows.Err()
}

func (s *SQLite) Append(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = id.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, time, pair, amount, rate, voided)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Time, string(rec.Pair), rec.Amount.String(), rec.Rate, rec.Voided,
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return rec.ID, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
