package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/infra/integration/google"
	"github.com/eladlevy/leadgate/internal/usecase"
)

// WatchHandler is the operator endpoint for bootstrapping or force-renewing a
// mailbox subscription; day-to-day renewal is the periodic worker's job.
type WatchHandler struct {
	Lifecycle      *usecase.WatchLifecycle
	DefaultAccount string
}

func NewWatchHandler(lifecycle *usecase.WatchLifecycle, defaultAccount string) *WatchHandler {
	return &WatchHandler{Lifecycle: lifecycle, DefaultAccount: defaultAccount}
}

type registerWatchRequest struct {
	AccountEmail string `json:"account_email"`
}

func (h *WatchHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerWatchRequest
	// body is optional; empty means the configured default account
	_ = json.NewDecoder(r.Body).Decode(&req)
	account := req.AccountEmail
	if account == "" {
		account = h.DefaultAccount
	}
	if account == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account_email is required"})
		return
	}

	sub, err := h.Lifecycle.Register(r.Context(), account)
	if err != nil {
		middleware.RecordIntegrationError("gmail")
		if errors.Is(err, google.ErrCredentialRevoked) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "credentials revoked, re-authorize the account"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "watch registration failed"})
		return
	}

	middleware.RecordWatchRenewal(account)
	writeJSON(w, http.StatusOK, sub)
}
