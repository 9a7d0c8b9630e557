package wrapnzap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap/id"
	"github.com/xraph/wrapnzap/ledger"
	"github.com/xraph/wrapnzap/observability"
)

// Config returns the construction-time configuration.
func (z *Zapper) Config() Config { return z.config }

// Address returns the Zapper's own ledger account.
func (z *Zapper) Address() common.Address { return z.config.Address }

// Recipient returns the address every forwarded token goes to.
func (z *Zapper) Recipient() common.Address { return z.config.Recipient }

// Wrapper returns the wrapping service's address.
func (z *Zapper) Wrapper() common.Address { return z.config.Wrapper }

// Token returns the asset the wrapping service mints.
func (z *Zapper) Token() ledger.Asset { return z.wrapper.Token() }

// Balance returns the native currency currently held by the Zapper.
func (z *Zapper) Balance(ctx context.Context) (*big.Int, error) {
	return z.ledger.Balance(ctx, ledger.Native, z.config.Address)
}

// Receive accepts a payment and forwards it.
//
// Within one ledger update:
//  1. Move Amount from the payer to the Zapper.
//  2. Deposit Amount into the wrapping service.
//  3. Transfer Amount of token to the recipient.
//
// A refused transfer returns ErrTransferFailed; a deposit error is returned
// wrapped. Either way nothing is committed and the payer keeps the funds.
// A zero amount is accepted without touching the ledger or the wrapper.
// Payments from the Zapper's own account or the wrapper's account are
// rejected with ErrSelfReference.
func (z *Zapper) Receive(ctx context.Context, p Payment) (*Receipt, error) {
	if p.Amount == nil || p.Amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, p.Amount)
	}
	if p.From == (common.Address{}) {
		return nil, fmt.Errorf("%w: payer", ErrZeroAddress)
	}
	if p.From == z.config.Address || p.From == z.config.Wrapper {
		return nil, fmt.Errorf("%w: payer %s", ErrSelfReference, p.From.Hex())
	}

	if p.Amount.Sign() == 0 {
		if z.metrics != nil {
			z.metrics.RecordZap(string(TriggerReceive), observability.StatusSkipped, nil, 0)
		}
		z.logger.DebugContext(ctx, "zero-value payment accepted", "from", p.From.Hex())
		return &Receipt{
			Trigger:   TriggerReceive,
			From:      p.From,
			Recipient: z.config.Recipient,
			Token:     string(z.wrapper.Token()),
			Amount:    new(big.Int),
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	amount := new(big.Int).Set(p.Amount)
	return z.zap(ctx, TriggerReceive, p.From, func(ctx context.Context, tx ledger.Tx) (*big.Int, error) {
		if err := ledger.Transfer(ctx, tx, ledger.Native, p.From, z.config.Address, amount); err != nil {
			return nil, fmt.Errorf("wrapnzap: accept payment: %w", err)
		}
		return amount, nil
	})
}

// Poke wraps and forwards the Zapper's entire native balance. Anyone may
// call it. It returns ErrNoBalance without calling the wrapping service when
// the balance is zero; otherwise the failure contract matches Receive.
func (z *Zapper) Poke(ctx context.Context) (*Receipt, error) {
	return z.zap(ctx, TriggerPoke, common.Address{}, func(ctx context.Context, tx ledger.Tx) (*big.Int, error) {
		bal, err := tx.Balance(ctx, ledger.Native, z.config.Address)
		if err != nil {
			return nil, err
		}
		if bal.Sign() == 0 {
			return nil, ErrNoBalance
		}
		return bal, nil
	})
}

// stageFunc stages whatever brings funds into the Zapper and returns the
// amount to wrap.
type stageFunc func(ctx context.Context, tx ledger.Tx) (*big.Int, error)

// zap runs stage, deposit, and transfer as one ledger update.
func (z *Zapper) zap(ctx context.Context, trigger Trigger, from common.Address, stage stageFunc) (*Receipt, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	start := time.Now()
	ctx, span := z.tracer.StartZapSpan(ctx, z.config.Address.Hex(), z.config.Recipient.Hex(), string(trigger))

	var amount *big.Int
	err := z.ledger.Update(ctx, func(ctx context.Context, tx ledger.Tx) error {
		amount = nil

		a, err := stage(ctx, tx)
		if err != nil {
			return err
		}

		if err := z.wrapper.Deposit(ctx, tx, z.config.Address, a); err != nil {
			return fmt.Errorf("wrapnzap: deposit: %w", err)
		}

		ok, err := z.wrapper.Transfer(ctx, tx, z.config.Address, z.config.Recipient, a)
		if err != nil {
			return fmt.Errorf("wrapnzap: transfer: %w", err)
		}
		if !ok {
			return ErrTransferFailed
		}

		amount = a
		return nil
	})

	status := statusOf(err)
	amountStr := ""
	if amount != nil {
		amountStr = amount.String()
	}
	z.tracer.EndZapSpan(span, status, amountStr, err)
	if z.metrics != nil {
		z.metrics.RecordZap(string(trigger), status, amount, time.Since(start))
	}

	if err != nil {
		z.logger.WarnContext(ctx, "zap rejected",
			"trigger", trigger,
			"zapper", z.config.Address.Hex(),
			"status", status,
			"error", err,
		)
		return nil, err
	}

	r := &Receipt{
		ID:        id.NewZapID(),
		Trigger:   trigger,
		From:      from,
		Recipient: z.config.Recipient,
		Token:     string(z.wrapper.Token()),
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	z.logger.DebugContext(ctx, "zap forwarded",
		"zap_id", r.ID,
		"trigger", trigger,
		"amount", amount.String(),
		"recipient", z.config.Recipient.Hex(),
	)
	return r, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return observability.StatusForwarded
	case errors.Is(err, ErrNoBalance):
		return observability.StatusNoBalance
	case errors.Is(err, ErrTransferFailed):
		return observability.StatusTransferFailed
	default:
		return observability.StatusError
	}
}
