package wrapnzap

import "errors"

// Sentinel errors returned by Zapper operations.
var (
	// ErrTransferFailed is returned when the wrapping service refuses to
	// move the minted token to the recipient. The trigger is rolled back.
	ErrTransferFailed = errors.New("wrapnzap: transfer failed")

	// ErrNoBalance is returned by Poke when the Zapper holds nothing.
	ErrNoBalance = errors.New("wrapnzap: no balance")

	// ErrNoLedger is returned when a Zapper is created without a ledger.
	ErrNoLedger = errors.New("wrapnzap: ledger is required")

	// ErrNoWrapper is returned when a Zapper is created without a wrapping service.
	ErrNoWrapper = errors.New("wrapnzap: wrapper is required")

	// ErrWrapperMismatch is returned when the wrapping service's address
	// differs from Config.Wrapper.
	ErrWrapperMismatch = errors.New("wrapnzap: wrapper address mismatch")

	// ErrZeroAddress is returned when a required address is the zero address.
	ErrZeroAddress = errors.New("wrapnzap: zero address")

	// ErrSelfReference is returned when the Zapper's account doubles as the
	// recipient or the wrapper, or when a payment names the Zapper or the
	// wrapper as payer.
	ErrSelfReference = errors.New("wrapnzap: zapper or wrapper address used in the wrong role")

	// ErrInvalidAmount is returned for nil or negative payment amounts.
	ErrInvalidAmount = errors.New("wrapnzap: invalid amount")
)
