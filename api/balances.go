package api

import (
	"net/http"

	"github.com/xraph/wrapnzap/ledger"
)

type configResponse struct {
	Address   string `json:"address"`
	Recipient string `json:"recipient"`
	Wrapper   string `json:"wrapper"`
	Token     string `json:"token"`
}

func (h *Handler) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Address:   h.zapper.Address().Hex(),
		Recipient: h.zapper.Recipient().Hex(),
		Wrapper:   h.zapper.Wrapper().Hex(),
		Token:     string(h.zapper.Token()),
	})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.zapper.Balance(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"address": h.zapper.Address().Hex(),
		"native":  bal.String(),
	})
}

type accountResponse struct {
	Address string `json:"address"`
	Native  string `json:"native"`
	Token   string `json:"token"`
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "address: "+err.Error())
		return
	}

	native, err := h.ledger.Balance(r.Context(), ledger.Native, addr)
	if err != nil {
		writeErr(w, err)
		return
	}
	token, err := h.ledger.Balance(r.Context(), h.zapper.Token(), addr)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		Address: addr.Hex(),
		Native:  native.String(),
		Token:   token.String(),
	})
}
