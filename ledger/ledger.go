// Package ledger defines the balance ledger the Zapper and its wrapping
// service settle against.
//
// A ledger tracks one balance per (asset, address) pair. All writes happen
// inside Store.Update: the callback stages credits and debits on a Tx, and
// the backend commits them as a unit only when the callback returns nil.
// Any error discards every staged write, which is how a failed zap leaves
// no trace behind.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset names a balance class held in the ledger.
type Asset string

// Native is the ledger's native currency.
const Native Asset = "native"

// Key identifies a single balance.
type Key struct {
	Asset   Asset
	Address common.Address
}

// String returns "asset:0xADDR".
func (k Key) String() string {
	return string(k.Asset) + ":" + k.Address.Hex()
}

// Sentinel errors returned by ledger operations.
var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrNegativeAmount is returned for nil or negative amounts.
	ErrNegativeAmount = errors.New("ledger: amount must be non-negative")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("ledger: store is closed")

	// ErrConflict is returned when an optimistic transaction keeps losing
	// to concurrent writers.
	ErrConflict = errors.New("ledger: transaction conflict")
)

// Tx stages balance changes inside Store.Update.
type Tx interface {
	// Balance returns the balance as seen by this transaction, including
	// writes it has staged. The result is a copy.
	Balance(ctx context.Context, asset Asset, addr common.Address) (*big.Int, error)

	// Credit adds amount to the balance.
	Credit(ctx context.Context, asset Asset, addr common.Address, amount *big.Int) error

	// Debit subtracts amount from the balance. It fails with
	// ErrInsufficientFunds when the balance would go negative.
	Debit(ctx context.Context, asset Asset, addr common.Address, amount *big.Int) error
}

// UpdateFunc is the body of an atomic ledger update. Backends with
// optimistic concurrency may run it more than once.
type UpdateFunc func(ctx context.Context, tx Tx) error

// Store is a persistent ledger backend.
type Store interface {
	// Balance returns the committed balance of addr in asset.
	Balance(ctx context.Context, asset Asset, addr common.Address) (*big.Int, error)

	// Update runs fn and commits its writes iff fn returns nil. fn must only
	// touch the ledger through the Tx it is given.
	Update(ctx context.Context, fn UpdateFunc) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Transfer moves amount of asset from one address to another within tx.
func Transfer(ctx context.Context, tx Tx, asset Asset, from, to common.Address, amount *big.Int) error {
	if err := tx.Debit(ctx, asset, from, amount); err != nil {
		return err
	}
	return tx.Credit(ctx, asset, to, amount)
}

// Fund credits native currency to addr from outside the ledger. It runs no
// hooks: a Zapper funded this way holds the balance until someone pokes it.
func Fund(ctx context.Context, s Store, addr common.Address, amount *big.Int) error {
	return s.Update(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Credit(ctx, Native, addr, amount)
	})
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrNegativeAmount, amount)
	}
	return nil
}
