// Package service — administrative handlers for the in-process
// collaborators: the native bank, the payment token, the asset registry,
// and the block clock. These exist so a deployment can be driven end to
// end without an external chain.
package service

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/auctionhaus/dutch-engine/internal/chain"
)

// DepositRequest funds a native-currency account.
type DepositRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// MintTokenRequest mints payment tokens to an account.
type MintTokenRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// ApproveTokenRequest grants the engine agent a spending allowance.
type ApproveTokenRequest struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

// MintNFTRequest mints a unique asset to an account.
type MintNFTRequest struct {
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
}

// ApproveNFTRequest approves the engine agent to transfer a unique asset.
type ApproveNFTRequest struct {
	Owner   string `json:"owner"`
	TokenID uint64 `json:"token_id"`
}

// Deposit handles POST /api/v1/bank/deposit
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	s.collab.Bank.Deposit(req.Account, req.Amount)
	slog.Info("bank deposit", "account", req.Account, "amount", req.Amount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account": req.Account,
		"balance": s.collab.Bank.BalanceOf(req.Account),
	})
}

// GetBalance handles GET /api/v1/bank/{account}
func (s *Service) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account": account,
		"balance": s.collab.Bank.BalanceOf(account),
	})
}

// MintToken handles POST /api/v1/token/mint
func (s *Service) MintToken(w http.ResponseWriter, r *http.Request) {
	var req MintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.collab.Token.Mint(req.Account, req.Amount); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"account": req.Account,
		"balance": s.collab.Token.BalanceOf(req.Account),
	})
}

// ApproveToken handles POST /api/v1/token/approve
// The allowance is always granted to the engine agent.
func (s *Service) ApproveToken(w http.ResponseWriter, r *http.Request) {
	var req ApproveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.collab.Token.Approve(req.Owner, EngineAgent, req.Amount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"owner":     req.Owner,
		"spender":   EngineAgent,
		"allowance": s.collab.Token.Allowance(req.Owner, EngineAgent),
	})
}

// MintNFT handles POST /api/v1/nft/mint
func (s *Service) MintNFT(w http.ResponseWriter, r *http.Request) {
	var req MintNFTRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := s.collab.NFT.Mint(req.Owner, req.TokenURI)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"owner":    req.Owner,
		"token_id": id,
	})
}

// ApproveNFT handles POST /api/v1/nft/approve
// The transfer approval is always granted to the engine agent.
func (s *Service) ApproveNFT(w http.ResponseWriter, r *http.Request) {
	var req ApproveNFTRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.collab.NFT.Approve(req.Owner, EngineAgent, req.TokenID); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"owner":    req.Owner,
		"spender":  EngineAgent,
		"token_id": req.TokenID,
	})
}

// GetHeight handles GET /api/v1/chain/height
func (s *Service) GetHeight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"height": s.clock.Height()})
}

// Mine handles POST /api/v1/chain/mine
// Advances a manual clock by one tick. Returns 409 when the configured
// clock derives height from wall time and cannot be driven by hand.
func (s *Service) Mine(w http.ResponseWriter, r *http.Request) {
	mc, ok := s.clock.(*chain.ManualClock)
	if !ok {
		writeError(w, "clock is not manually advanceable", http.StatusConflict)
		return
	}
	mc.Advance(1)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"height": mc.Height()})
}
