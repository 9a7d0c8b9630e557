// Package wrapper defines the wrapping service a Zapper hands payments to.
package wrapper

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/ledger"
)

// Service converts native currency into a fungible token and moves that
// token between accounts. Both calls run inside the caller's ledger
// transaction, so anything they stage is discarded if the caller aborts.
type Service interface {
	// Address is the service's own ledger account; deposited native
	// currency ends up there.
	Address() common.Address

	// Token is the asset credited by Deposit.
	Token() ledger.Asset

	// Deposit takes amount of native currency from `from` and credits the
	// same amount of Token to `from`. Any error aborts the enclosing update.
	Deposit(ctx context.Context, tx ledger.Tx, from common.Address, amount *big.Int) error

	// Transfer moves amount of Token from `from` to `to`. It reports a
	// refused transfer by returning false; callers must check it.
	Transfer(ctx context.Context, tx ledger.Tx, from, to common.Address, amount *big.Int) (bool, error)
}
