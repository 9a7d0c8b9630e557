package wrapnzap

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/id"
)

// Trigger names the path that started a zap.
type Trigger string

// Trigger values.
const (
	TriggerReceive Trigger = "receive"
	TriggerPoke    Trigger = "poke"
)

// Payment is an inbound native-currency payment.
type Payment struct {
	From   common.Address
	Amount *big.Int
}

// Receipt describes a completed trigger. A zero-amount payment yields a
// receipt with a Nil ID and zero Amount: nothing was wrapped.
type Receipt struct {
	ID        id.ID          `json:"id"`
	Trigger   Trigger        `json:"trigger"`
	From      common.Address `json:"from"`
	Recipient common.Address `json:"recipient"`
	Token     string         `json:"token"`
	Amount    *big.Int       `json:"amount"`
	CreatedAt time.Time      `json:"created_at"`
}

// Forwarded reports whether the receipt moved any value.
func (r *Receipt) Forwarded() bool {
	return !r.ID.IsNil() && r.Amount != nil && r.Amount.Sign() > 0
}
