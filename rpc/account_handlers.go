package rpc

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tastefun/native/custody"
)

type creditRequest struct {
	Amount uint64 `json:"amount" validate:"gt=0"`
	Memo   string `json:"memo" validate:"max=128"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, "invalid address", nil)
		return
	}
	asset, err := parseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeBadRequest(w, "invalid asset", nil)
		return
	}
	balance, err := s.node.Balance(addr, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResult{Address: bech32(addr), Asset: assetString(asset), Balance: balance})
}

// handleCredit mints development base currency. The node only honours it
// for the admin and when the faucet is enabled.
func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		writeBadRequest(w, "invalid address", nil)
		return
	}
	var req creditRequest
	if details, err := s.decode(r, &req); err != nil {
		writeBadRequest(w, err.Error(), details)
		return
	}
	if err := s.node.Credit(r.Context(), callerFrom(r), addr, req.Amount, req.Memo); err != nil {
		s.writeError(w, r, err)
		return
	}
	balance, err := s.node.Balance(addr, custody.BaseAsset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResult{Address: bech32(addr), Asset: assetString(custody.BaseAsset), Balance: balance})
}
