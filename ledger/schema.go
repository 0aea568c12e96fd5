// ledger/schema.go
package ledger

const Schema = `
CREATE TABLE IF NOT EXISTS balances (
	currency TEXT PRIMARY KEY,
	amount TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	pair TEXT NOT NULL,
	amount TEXT NOT NULL,
	rate REAL NOT NULL,
	voided INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_transactions_time ON transactions(time);
`
