package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	"github.com/go-account-api/internal/pkg/password"
	"github.com/go-account-api/internal/pkg/validate"
)

const fieldActive = "active"

type Service interface {
	// Signup creates an inactive account and emails a verification link.
	// When mail dispatch fails the account still exists; the returned error
	// wraps domain.ErrMailDispatch and the account is returned alongside it.
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error)
	VerifyEmail(ctx context.Context, accountID, token string) error
	ResendVerification(ctx context.Context, email string) error
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type tokenIssuer interface {
	Issue(a *domain.Account, purpose string) (string, error)
	Validate(a *domain.Account, token, purpose string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	repo    accountStore
	signer  tokenIssuer
	mailer  mailer
	baseURL string
}

type ServiceDeps struct {
	AccountRepo accountStore
	Signer      tokenIssuer
	Mailer      mailer
	BaseURL     string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.AccountRepo,
		signer:  deps.Signer,
		mailer:  deps.Mailer,
		baseURL: deps.BaseURL,
	}
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.Account, error) {
	// Validation order matters: first failure wins, nothing is written.
	if req.Username == "" || req.Email == "" || req.Password == "" || req.PasswordConfirm == "" {
		return nil, domain.ErrInvalidInput
	}
	if req.Password != req.PasswordConfirm {
		return nil, domain.ErrPasswordMismatch
	}
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Active:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Uniqueness of username and email is enforced inside Create; a duplicate
	// comes back as ErrUsernameTaken or ErrEmailTaken.
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	if err := s.sendVerificationMail(a); err != nil {
		// The account exists and can still be verified via resend, so the
		// signup is not rolled back.
		slog.Warn("verification mail failed", "account_id", a.AccountID, "err", err)
		return a, fmt.Errorf("account created but %w", domain.ErrMailDispatch)
	}
	return a, nil
}

func (s *service) VerifyEmail(ctx context.Context, accountID, token string) error {
	// Unknown account and bad token collapse into one answer so the endpoint
	// can't be used to probe which account ids exist.
	a, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if err := s.signer.Validate(a, token, domain.TokenPurposeVerify); err != nil {
		return domain.ErrInvalidToken
	}
	return s.repo.Update(ctx, a.AccountID, map[string]interface{}{fieldActive: true})
}

func (s *service) ResendVerification(ctx context.Context, email string) error {
	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		// Same outcome whether or not the address is registered.
		return nil
	}
	if a.Active {
		return nil
	}
	if err := s.sendVerificationMail(a); err != nil {
		slog.Warn("verification mail failed", "account_id", a.AccountID, "err", err)
	}
	return nil
}

func (s *service) sendVerificationMail(a *domain.Account) error {
	token, err := s.signer.Issue(a, domain.TokenPurposeVerify)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/v1/accounts/verify/%s/%s", s.baseURL, a.AccountID, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease click the link below to verify your email:\n\n%s\n\nIf you didn't create this account, ignore this email.\n",
		a.Username, link,
	)
	return s.mailer.SendEmail(a.Email, "Verify your email address", body)
}
