package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-account-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SignupEnvelope wraps signup responses. Warning carries the mail-dispatch
// notice when the account was created but the verification email failed.
type SignupEnvelope struct {
	Account *SafeAccount `json:"account,omitempty"`
	Message string       `json:"message,omitempty"`
	Warning string       `json:"warning,omitempty"`
}

// AuthEnvelope wraps login/refresh responses.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	Session      *SafeSession `json:"session,omitempty"`
	Account      *SafeAccount `json:"account,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *SafeSession `json:"session,omitempty"`
	Account *SafeAccount `json:"account,omitempty"`
}

// SafeAccount is the externally visible account shape — never the hash.
type SafeAccount struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Active   bool      `json:"active"`
	Created  time.Time `json:"created"`
}

// SafeSession is the externally visible session shape — no refresh token.
type SafeSession struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
}

func toSafeAccount(a *domain.Account) *SafeAccount {
	if a == nil {
		return nil
	}
	return &SafeAccount{
		ID:       a.AccountID,
		Username: a.Username,
		Email:    a.Email,
		Active:   a.Active,
		Created:  a.CreatedAt,
	}
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{ID: s.SessionID, Created: s.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes. Unrecognised
// errors come back as a generic 500 so infrastructure detail never reaches
// the client.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrPasswordMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAuthUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "could not process request")
	}
}
