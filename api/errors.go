package api

import (
	"errors"
	"net/http"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/ledger"
)

// statusFor maps Zapper and ledger errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wrapnzap.ErrNoBalance):
		return http.StatusConflict
	case errors.Is(err, wrapnzap.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, wrapnzap.ErrInvalidAmount),
		errors.Is(err, wrapnzap.ErrZeroAddress),
		errors.Is(err, wrapnzap.ErrSelfReference),
		errors.Is(err, ledger.ErrNegativeAmount):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
