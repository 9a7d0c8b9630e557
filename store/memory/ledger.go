// Package memory provides an in-memory ledger.Store for tests and
// single-process deployments.
package memory

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/ledger"
)

// compile-time interface check.
var _ ledger.Store = (*Store)(nil)

// Store is an in-memory ledger. Updates are fully serialized.
type Store struct {
	mu       sync.RWMutex
	balances map[ledger.Key]*big.Int
	closed   bool
}

// New creates an empty in-memory ledger.
func New() *Store {
	return &Store{
		balances: make(map[ledger.Key]*big.Int),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Ping reports ErrClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledger.ErrClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

// Balance returns the committed balance.
func (s *Store) Balance(_ context.Context, asset ledger.Asset, addr common.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ledger.ErrClosed
	}
	return s.get(ledger.Key{Asset: asset, Address: addr}), nil
}

// Update runs fn under the write lock and applies its journal on success.
func (s *Store) Update(ctx context.Context, fn ledger.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ledger.ErrClosed
	}

	j := ledger.NewJournal(func(_ context.Context, key ledger.Key) (*big.Int, error) {
		return s.get(key), nil
	})
	if err := fn(ctx, j); err != nil {
		return err
	}

	for _, e := range j.Dirty() {
		if e.Amount.Sign() == 0 {
			delete(s.balances, e.Key)
			continue
		}
		s.balances[e.Key] = e.Amount
	}
	return nil
}

// get returns a copy of the balance; callers hold s.mu.
func (s *Store) get(key ledger.Key) *big.Int {
	v, ok := s.balances[key]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
