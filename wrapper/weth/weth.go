// Package weth is an in-process wrapping service that mints its token 1:1
// against native currency held in the same ledger.
package weth

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/wrapper"
)

// DefaultToken is the asset name used when none is configured.
const DefaultToken ledger.Asset = "WETH"

var _ wrapper.Service = (*Service)(nil)

// Service is a WETH-style wrapper.
type Service struct {
	addr  common.Address
	token ledger.Asset
}

// New returns a wrapper whose account is addr and whose token is token.
// An empty token falls back to DefaultToken.
func New(addr common.Address, token ledger.Asset) *Service {
	if token == "" {
		token = DefaultToken
	}
	return &Service{addr: addr, token: token}
}

// Address implements wrapper.Service.
func (s *Service) Address() common.Address { return s.addr }

// Token implements wrapper.Service.
func (s *Service) Token() ledger.Asset { return s.token }

// Deposit implements wrapper.Service.
func (s *Service) Deposit(ctx context.Context, tx ledger.Tx, from common.Address, amount *big.Int) error {
	if s.token == ledger.Native {
		return errors.New("weth: token cannot be the native asset")
	}
	if err := ledger.Transfer(ctx, tx, ledger.Native, from, s.addr, amount); err != nil {
		return err
	}
	return tx.Credit(ctx, s.token, from, amount)
}

// Transfer implements wrapper.Service. Like an ERC-20 that returns false
// instead of reverting, an underfunded transfer is refused, not an error.
func (s *Service) Transfer(ctx context.Context, tx ledger.Tx, from, to common.Address, amount *big.Int) (bool, error) {
	bal, err := tx.Balance(ctx, s.token, from)
	if err != nil {
		return false, err
	}
	if amount == nil || amount.Sign() < 0 || bal.Cmp(amount) < 0 {
		return false, nil
	}
	if err := ledger.Transfer(ctx, tx, s.token, from, to, amount); err != nil {
		return false, err
	}
	return true, nil
}

// Withdraw burns amount of token held by `from` and returns the native
// currency to it.
func (s *Service) Withdraw(ctx context.Context, tx ledger.Tx, from common.Address, amount *big.Int) error {
	if err := tx.Debit(ctx, s.token, from, amount); err != nil {
		return err
	}
	return ledger.Transfer(ctx, tx, ledger.Native, s.addr, from, amount)
}
