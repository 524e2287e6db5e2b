package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/auth"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/service"
)

// AccountHandler serves the account endpoints behind a session.
//
//	HandleMe         → the account bound to the current session
//	HandleBindWallet → validate and attach a wallet address
type AccountHandler struct {
	identities *service.IdentityService
	logger     *slog.Logger
}

func NewAccountHandler(identities *service.IdentityService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		identities: identities,
		logger:     logger,
	}
}

// bindWalletRequest is the body of POST /api/wallet.
type bindWalletRequest struct {
	Address string `json:"address"`
}

// HandleMe returns the account bound to the current session.
//
// HTTP: GET /api/user
// Auth: required (RequireAuth sets the account ID in context)
//
// A valid session whose account no longer resolves surfaces as 404 — the
// session/store desync case, distinct from the middleware's 401.
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't depend on wiring.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	account, err := h.identities.GetAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error("HandleMe: account lookup failed",
			slog.String("accountID", accountID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// HandleBindWallet validates a wallet address and binds it to the session's
// account, replacing any previous address.
//
// HTTP: POST /api/wallet {"address": "..."}
// Auth: required
//
// 400 on an invalid address, 404 when the session's account is gone, 200
// with the updated account on success.
func (h *AccountHandler) HandleBindWallet(w http.ResponseWriter, r *http.Request) {
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req bindWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request body must be JSON with an address field",
		})
		return
	}

	account, err := h.identities.BindWallet(r.Context(), accountID, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
