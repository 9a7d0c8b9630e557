package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ReadFunc loads a committed balance. A missing balance reads as zero.
type ReadFunc func(ctx context.Context, key Key) (*big.Int, error)

// Journal is a write overlay implementing Tx. Reads fall through to the
// backend until a key is written; writes stay in the journal until the
// backend flushes Dirty on commit.
type Journal struct {
	read  ReadFunc
	dirty map[Key]*big.Int
	order []Key
}

var _ Tx = (*Journal)(nil)

// NewJournal returns an empty journal over read.
func NewJournal(read ReadFunc) *Journal {
	return &Journal{
		read:  read,
		dirty: make(map[Key]*big.Int),
	}
}

// Balance implements Tx.
func (j *Journal) Balance(ctx context.Context, asset Asset, addr common.Address) (*big.Int, error) {
	v, err := j.load(ctx, Key{Asset: asset, Address: addr})
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(v), nil
}

// Credit implements Tx.
func (j *Journal) Credit(ctx context.Context, asset Asset, addr common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	key := Key{Asset: asset, Address: addr}
	v, err := j.load(ctx, key)
	if err != nil {
		return err
	}
	j.store(key, new(big.Int).Add(v, amount))
	return nil
}

// Debit implements Tx.
func (j *Journal) Debit(ctx context.Context, asset Asset, addr common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	key := Key{Asset: asset, Address: addr}
	v, err := j.load(ctx, key)
	if err != nil {
		return err
	}
	if v.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, key, v, amount)
	}
	j.store(key, new(big.Int).Sub(v, amount))
	return nil
}

// Dirty returns the staged balances in first-write order.
func (j *Journal) Dirty() []Entry {
	out := make([]Entry, 0, len(j.order))
	for _, k := range j.order {
		out = append(out, Entry{Key: k, Amount: new(big.Int).Set(j.dirty[k])})
	}
	return out
}

// Entry is a staged balance.
type Entry struct {
	Key    Key
	Amount *big.Int
}

func (j *Journal) load(ctx context.Context, key Key) (*big.Int, error) {
	if v, ok := j.dirty[key]; ok {
		return v, nil
	}
	v, err := j.read(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", key, err)
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

func (j *Journal) store(key Key, v *big.Int) {
	if _, ok := j.dirty[key]; !ok {
		j.order = append(j.order, key)
	}
	j.dirty[key] = v
}
