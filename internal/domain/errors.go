package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	ErrInvalidInput       = errors.New("all fields are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("link is invalid or expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrMailDispatch       = errors.New("could not send email")
	ErrAuthUnavailable    = errors.New("authentication is not configured")
)
