// Package wrappertest provides a scriptable wrapper.Service for tests.
//
// A Mock behaves like the weth reference wrapper until told otherwise:
// DepositReturns makes Deposit fail, TransferReturns(false) makes Transfer
// refuse. Every call is counted, including calls in updates that were
// later rolled back.
package wrappertest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/wrapper"
	"github.com/xraph/wrapnzap/wrapper/weth"
)

var _ wrapper.Service = (*Mock)(nil)

// Mock is a wrapper.Service with scripted outcomes.
type Mock struct {
	inner *weth.Service

	mu         sync.Mutex
	depositErr error
	transferOK bool
	deposits   int
	transfers  int
}

// New returns a Mock at addr that succeeds on every call.
func New(addr common.Address) *Mock {
	return &Mock{
		inner:      weth.New(addr, weth.DefaultToken),
		transferOK: true,
	}
}

// DepositReturns scripts the error returned by subsequent Deposit calls.
// nil restores normal behavior.
func (m *Mock) DepositReturns(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depositErr = err
}

// TransferReturns scripts the result of subsequent Transfer calls.
func (m *Mock) TransferReturns(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transferOK = ok
}

// DepositCalls reports how many times Deposit was called.
func (m *Mock) DepositCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deposits
}

// TransferCalls reports how many times Transfer was called.
func (m *Mock) TransferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transfers
}

// Address implements wrapper.Service.
func (m *Mock) Address() common.Address { return m.inner.Address() }

// Token implements wrapper.Service.
func (m *Mock) Token() ledger.Asset { return m.inner.Token() }

// Deposit implements wrapper.Service.
func (m *Mock) Deposit(ctx context.Context, tx ledger.Tx, from common.Address, amount *big.Int) error {
	m.mu.Lock()
	m.deposits++
	err := m.depositErr
	m.mu.Unlock()

	if err != nil {
		return err
	}
	return m.inner.Deposit(ctx, tx, from, amount)
}

// Transfer implements wrapper.Service.
func (m *Mock) Transfer(ctx context.Context, tx ledger.Tx, from, to common.Address, amount *big.Int) (bool, error) {
	m.mu.Lock()
	m.transfers++
	ok := m.transferOK
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	return m.inner.Transfer(ctx, tx, from, to, amount)
}
