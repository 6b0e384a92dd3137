package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints and validates the single-use tokens embedded in verification
// and password-reset links. Tokens are stateless HS256 JWTs; nothing is
// persisted. Single use is achieved by binding each token to the account
// fields it certifies: the `state` claim is a digest over those fields, and
// validation recomputes the digest from the *current* account. Activating the
// account or changing the password hash therefore kills every outstanding
// token of the matching purpose.
type Issuer struct {
	secret    []byte
	verifyTTL time.Duration
	resetTTL  time.Duration
}

type actionClaims struct {
	Purpose string `json:"purpose"`
	State   string `json:"state"`
	jwt.RegisteredClaims
}

func NewIssuer(cfg *config.Config) *Issuer {
	return &Issuer{
		secret:    []byte(cfg.ActionTokenSecret),
		verifyTTL: cfg.VerifyTokenTTL,
		resetTTL:  cfg.ResetTokenTTL,
	}
}

// Issue creates a token for the account bound to its current state.
func (i *Issuer) Issue(a *domain.Account, purpose string) (string, error) {
	ttl, err := i.ttl(purpose)
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := actionClaims{
		Purpose: purpose,
		State:   stateDigest(i.secret, a, purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate checks signature, expiry, purpose, subject, and that the state the
// token was bound to still matches the account. Any failure is reported as a
// plain error so callers can collapse all causes into one user-facing message.
func (i *Issuer) Validate(a *domain.Account, tokenStr, purpose string) error {
	token, err := jwt.ParseWithClaims(tokenStr, &actionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(*actionClaims)
	if !ok || !token.Valid {
		return errors.New("invalid token claims")
	}
	if claims.Purpose != purpose {
		return errors.New("token purpose mismatch")
	}
	if claims.Subject != a.AccountID {
		return errors.New("token subject mismatch")
	}
	want := stateDigest(i.secret, a, purpose)
	if !hmac.Equal([]byte(claims.State), []byte(want)) {
		return errors.New("token no longer matches account state")
	}
	return nil
}

func (i *Issuer) ttl(purpose string) (time.Duration, error) {
	switch purpose {
	case domain.TokenPurposeVerify:
		return i.verifyTTL, nil
	case domain.TokenPurposeReset:
		return i.resetTTL, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

// stateDigest hashes the mutable fields a token of the given purpose
// certifies. Verify tokens bind to the activation flag, reset tokens to the
// password hash; both bind to the email the link was sent to.
func stateDigest(secret []byte, a *domain.Account, purpose string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(a.AccountID))
	mac.Write([]byte{0})
	mac.Write([]byte(a.Email))
	mac.Write([]byte{0})
	switch purpose {
	case domain.TokenPurposeVerify:
		mac.Write([]byte(strconv.FormatBool(a.Active)))
	case domain.TokenPurposeReset:
		mac.Write([]byte(a.PasswordHash))
	}
	return hex.EncodeToString(mac.Sum(nil)[:16])
}
