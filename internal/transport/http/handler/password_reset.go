package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-account-api/internal/application/passwordreset"
	"github.com/go-chi/chi/v5"
)

// PasswordResetHandler handles the three-step reset flow.
type PasswordResetHandler struct {
	flow *passwordreset.Flow
}

func NewPasswordResetHandler(flow *passwordreset.Flow) *PasswordResetHandler {
	return &PasswordResetHandler{flow: flow}
}

// Request responds identically whether or not the email is registered.
func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := h.flow.Request(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "If that email is registered, a reset link is on its way.",
	})
}

func (h *PasswordResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req passwordreset.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	accountID := chi.URLParam(r, "id")
	token := chi.URLParam(r, "token")
	if err := h.flow.Confirm(r.Context(), accountID, token, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Your password has been set. You can now log in."})
}

// Complete is the stateless final step of the flow.
func (h *PasswordResetHandler) Complete(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password reset complete."})
}
