package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-account-api/internal/application/session"
	"github.com/go-account-api/internal/transport/http/middleware"
)

// SessionHandler handles login, logout, refresh and the dashboard.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	// Already authenticated — short-circuit to the current session instead of
	// re-authenticating.
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		sess, err := h.svc.Current(r.Context(), claims.SessionID)
		if err == nil {
			writeJSON(w, http.StatusOK, SessionEnvelope{
				Session: toSafeSession(sess),
				Account: toSafeAccount(sess.Account),
			})
			return
		}
	}
	var req session.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  result.Bearer,
		RefreshToken: result.RefreshToken,
		Session:      toSafeSession(result.Session),
		Account:      toSafeAccount(result.Session.Account),
		Message:      "Welcome back, " + result.Session.Account.Username + "!",
	})
}

// Logout always reports success: with no valid bearer there is no session to
// terminate, which is the same outcome.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		_ = h.svc.Logout(r.Context(), claims.SessionID)
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "You have been logged out successfully."})
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token required")
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: bearer, RefreshToken: newToken})
}

func (h *SessionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sess, err := h.svc.Current(r.Context(), claims.SessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{
		Session: toSafeSession(sess),
		Account: toSafeAccount(sess.Account),
	})
}
