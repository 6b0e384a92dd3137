package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	"github.com/go-account-api/internal/pkg/password"
	pkgtoken "github.com/go-account-api/internal/pkg/token"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Current(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type jwtSigner interface {
	Sign(accountID, sessionID string) (string, error)
}

type service struct {
	accountRepo     accountStore
	sessionRepo     sessionStore
	jwtProvider     jwtSigner
	refreshTokenDur time.Duration
}

type ServiceDeps struct {
	AccountRepo     accountStore
	SessionRepo     sessionStore
	JWTProvider     jwtSigner
	RefreshTokenDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		accountRepo:     deps.AccountRepo,
		sessionRepo:     deps.SessionRepo,
		jwtProvider:     deps.JWTProvider,
		refreshTokenDur: deps.RefreshTokenDur,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", domain.ErrInvalidInput)
	}
	a, err := s.accountRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		// Same answer as a wrong password — no account enumeration.
		return nil, domain.ErrInvalidCredentials
	}
	if !password.Verify(req.Password, a.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	// Checked after the password so an unverified login attempt with a wrong
	// password doesn't confirm the account exists.
	if !a.Active {
		return nil, fmt.Errorf("please verify your email first: %w", domain.ErrEmailNotVerified)
	}
	if s.jwtProvider == nil {
		return nil, domain.ErrAuthUnavailable
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		AccountID:        a.AccountID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// Sign before persisting so a signing failure can't leave a session row
	// behind.
	bearer, err := s.jwtProvider.Sign(a.AccountID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}
	sess.Account = a
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) Current(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Enable {
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	a, err := s.accountRepo.Get(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	sess.Account = a
	return sess, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	if s.jwtProvider == nil {
		return "", "", domain.ErrAuthUnavailable
	}
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid or expired refresh token: %w", domain.ErrUnauthorized)
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}
	bearer, err := s.jwtProvider.Sign(sess.AccountID, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}
