package api

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/ledger"
)

type payRequest struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type receiptResponse struct {
	ID        string    `json:"id,omitempty"`
	Trigger   string    `json:"trigger"`
	From      string    `json:"from,omitempty"`
	Recipient string    `json:"recipient"`
	Token     string    `json:"token"`
	Amount    string    `json:"amount"`
	Forwarded bool      `json:"forwarded"`
	CreatedAt time.Time `json:"created_at"`
}

func toReceiptResponse(r *wrapnzap.Receipt) receiptResponse {
	resp := receiptResponse{
		ID:        r.ID.String(),
		Trigger:   string(r.Trigger),
		Recipient: r.Recipient.Hex(),
		Token:     r.Token,
		Amount:    r.Amount.String(),
		Forwarded: r.Forwarded(),
		CreatedAt: r.CreatedAt,
	}
	if r.From != (common.Address{}) {
		resp.From = r.From.Hex()
	}
	return resp
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	from, err := parseAddress(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount: "+err.Error())
		return
	}

	receipt, err := h.zapper.Receive(r.Context(), wrapnzap.Payment{From: from, Amount: amount})
	if err != nil {
		writeErr(w, err)
		return
	}

	status := http.StatusCreated
	if !receipt.Forwarded() {
		status = http.StatusOK
	}
	writeJSON(w, status, toReceiptResponse(receipt))
}

func (h *Handler) poke(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientKey(r), h.pokeRate) {
		writeError(w, http.StatusTooManyRequests, "poke rate limit exceeded")
		return
	}

	receipt, err := h.zapper.Poke(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(receipt))
}

type fundRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (h *Handler) fund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "address: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount: "+err.Error())
		return
	}

	if err := ledger.Fund(r.Context(), h.ledger, addr, amount); err != nil {
		writeErr(w, err)
		return
	}

	h.logger.WarnContext(r.Context(), "faucet credit",
		"address", addr.Hex(),
		"amount", amount.String(),
	)
	w.WriteHeader(http.StatusNoContent)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("not a hex address")
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("zero address")
	}
	return addr, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("not a base-10 integer")
	}
	if v.Sign() < 0 {
		return nil, errors.New("must be non-negative")
	}
	return v, nil
}
