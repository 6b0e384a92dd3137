package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-account-api/internal/application/account"
	"github.com/go-account-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles signup and email verification endpoints.
type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		// The account was created; only the verification mail failed. Still a
		// 201 — the caller can use the resend endpoint.
		if errors.Is(err, domain.ErrMailDispatch) && a != nil {
			writeJSON(w, http.StatusCreated, SignupEnvelope{
				Account: toSafeAccount(a),
				Warning: "account created, but the verification email could not be sent — request a new one",
			})
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SignupEnvelope{
		Account: toSafeAccount(a),
		Message: "Account created! Please check your email to verify.",
	})
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	token := chi.URLParam(r, "token")
	if err := h.svc.VerifyEmail(r.Context(), accountID, token); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Email verified! You can now log in."})
}

func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{
		Message: "If that email belongs to an unverified account, a new link is on its way.",
	})
}
