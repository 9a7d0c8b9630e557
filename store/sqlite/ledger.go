// Package sqlite provides a SQLite-backed ledger.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/xraph/wrapnzap/ledger"
)

// compile-time interface check
var _ ledger.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS balances (
    asset       TEXT NOT NULL,
    address     TEXT NOT NULL,
    amount      TEXT NOT NULL,
    PRIMARY KEY (asset, address)
);
`

// Store implements ledger.Store on SQLite. A single connection serializes
// updates.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("wrapnzap/sqlite: path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("wrapnzap/sqlite: create directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("wrapnzap/sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("wrapnzap/sqlite: initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ledger.ErrClosed
	}
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Balance returns the committed balance.
func (s *Store) Balance(ctx context.Context, asset ledger.Asset, addr common.Address) (*big.Int, error) {
	if s.closed.Load() {
		return nil, ledger.ErrClosed
	}
	v, err := readBalance(ctx, s.db, ledger.Key{Asset: asset, Address: addr})
	if err != nil {
		return nil, fmt.Errorf("wrapnzap/sqlite: balance: %w", err)
	}
	return v, nil
}

// Update runs fn inside one SQL transaction.
func (s *Store) Update(ctx context.Context, fn ledger.UpdateFunc) error {
	if s.closed.Load() {
		return ledger.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wrapnzap/sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	j := ledger.NewJournal(func(ctx context.Context, key ledger.Key) (*big.Int, error) {
		return readBalance(ctx, tx, key)
	})
	if err := fn(ctx, j); err != nil {
		return err
	}

	for _, e := range j.Dirty() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO balances (asset, address, amount) VALUES (?, ?, ?)
			 ON CONFLICT (asset, address) DO UPDATE SET amount = excluded.amount`,
			string(e.Key.Asset), e.Key.Address.Hex(), e.Amount.String(),
		); err != nil {
			return fmt.Errorf("wrapnzap/sqlite: write %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("wrapnzap/sqlite: commit: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readBalance(ctx context.Context, q querier, key ledger.Key) (*big.Int, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE asset = ? AND address = ?`,
		string(key.Asset), key.Address.Hex(),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}

	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance %q at %s", raw, key)
	}
	return v, nil
}
