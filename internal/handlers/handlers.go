package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/cscoin/carshare/internal/engine"
	"github.com/cscoin/carshare/internal/middleware"
	"github.com/cscoin/carshare/internal/state"
	"github.com/cscoin/carshare/internal/wallet"
)

// caller returns the authenticated caller id for the request, or writes
// 401 and returns false.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return "", false
	}
	return claims.Username, true
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

// writeEngineError maps engine error classes onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, state.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, wallet.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	default:
		logrus.WithError(err).Error("internal error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeBody decodes the request body into v, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}
