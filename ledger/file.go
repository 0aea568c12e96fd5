package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/market"
	"github.com/quantfx/advisor/pkg/id"
)

// balanceDoc is the on-disk balance format. Older deployments stored the
// currency map at the top level; both shapes are accepted on read.
type balanceDoc struct {
	Balances    map[market.Currency]decimal.Decimal `json:"balances"`
	LastUpdated string                              `json:"last_updated,omitempty"`
}

// FileStore keeps balances and the transaction log in two JSON files,
// the original deployment format of the bot.
type FileStore struct {
	mu          sync.Mutex
	balancePath string
	txPath      string
}

// NewFileStore returns a store over balance and transaction-log files.
// Missing files are treated as a fresh account, not an error.
func NewFileStore(balancePath, txPath string) (*FileStore, error) {
	for _, p := range []string{balancePath, txPath} {
		if p == "" {
			return nil, fmt.Errorf("ledger file path is required")
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	return &FileStore{balancePath: balancePath, txPath: txPath}, nil
}

func (s *FileStore) Balances(ctx context.Context) (map[market.Currency]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.balancePath)
	if os.IsNotExist(err) {
		return initialBalances(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read balance file: %w", err)
	}

	var doc balanceDoc
	if err := json.Unmarshal(data, &doc); err == nil && doc.Balances != nil {
		return normalizeBalances(doc.Balances), nil
	}

	// Legacy flat format: currency map at the top level.
	var flat map[market.Currency]decimal.Decimal
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parse balance file: %w", err)
	}
	balances := make(map[market.Currency]decimal.Decimal)
	for _, cur := range market.SupportedCurrencies {
		if v, ok := flat[cur]; ok {
			balances[cur] = v
		}
	}
	return normalizeBalances(balances), nil
}

func (s *FileStore) UpdateBalances(ctx context.Context, balances map[market.Currency]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := balanceDoc{Balances: balances}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}
	return writeFileAtomic(s.balancePath, data)
}

func (s *FileStore) Transactions(ctx context.Context) ([]market.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.loadRecords()
	if err != nil {
		return nil, err
	}

	txs := make([]market.Transaction, 0, len(recs))
	for _, r := range recs {
		if r.Voided {
			continue
		}
		txs = append(txs, r.Transaction())
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Time.Before(txs[j].Time) })
	return txs, nil
}

func (s *FileStore) Append(ctx context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = id.New()
	}

	recs, err := s.loadRecords()
	if err != nil {
		return "", err
	}
	recs = append(recs, rec)

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transaction log: %w", err)
	}
	if err := writeFileAtomic(s.txPath, data); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *FileStore) Close() error { return nil }

// loadRecords reads the raw transaction log. Caller holds the lock.
func (s *FileStore) loadRecords() ([]Record, error) {
	data, err := os.ReadFile(s.txPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transaction log: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse transaction log: %w", err)
	}
	return recs, nil
}

// writeFileAtomic writes via a temp file and rename so concurrent readers
// never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
