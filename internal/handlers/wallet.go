package handlers

import (
	"net/http"

	"github.com/cscoin/carshare/internal/engine"
	"github.com/cscoin/carshare/internal/wallet"
)

// WalletHandler handles ledger account requests
type WalletHandler struct {
	engine *engine.Engine
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(eng *engine.Engine) *WalletHandler {
	return &WalletHandler{engine: eng}
}

// Buy tops up the caller's balance. The amount arrives as a string and
// is parsed strictly.
func (h *WalletHandler) Buy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := wallet.ParseAmount(req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user, err := h.engine.BuyCscoin(r.Context(), callerID, amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Balance returns the caller's ledger account
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	user, err := h.engine.FindUser(r.Context(), callerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// AssetHandler handles raw asset administration
type AssetHandler struct {
	engine *engine.Engine
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(eng *engine.Engine) *AssetHandler {
	return &AssetHandler{engine: eng}
}

// Delete removes a record by raw key. The route is admin-gated.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key query parameter is required", http.StatusBadRequest)
		return
	}
	if err := h.engine.DeleteAsset(r.Context(), key); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": key})
}
