// Package wrapnzap wraps native-currency payments into a token and forwards
// them to one fixed recipient.
//
// A Zapper owns an account on a ledger. Every payment it receives is, in
// the same atomic ledger update, deposited into a wrapping service and the
// minted token is transferred to the recipient (the "zappee"). If the
// wrapping service refuses the transfer the whole update is discarded and
// the payer keeps its money. Balance that reaches the Zapper without going
// through Receive (for example via ledger.Fund) can be flushed by anyone
// with Poke.
//
// Quick start:
//
//	l := memory.New()
//	w := weth.New(wethAddr, weth.DefaultToken)
//
//	z, err := wrapnzap.New(wrapnzap.Config{
//	    Address:   zapperAddr,
//	    Recipient: zappee,
//	    Wrapper:   wethAddr,
//	}, wrapnzap.WithLedger(l), wrapnzap.WithWrapper(w))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	receipt, err := z.Receive(ctx, wrapnzap.Payment{
//	    From:   payer,
//	    Amount: big.NewInt(500),
//	})
package wrapnzap
