package passwordreset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/password"
	"github.com/go-account-api/internal/pkg/validate"
)

const fieldPasswordHash = "password_hash"

// Flow implements the three-step password reset: request a link, confirm with
// the token, done. One configurable component — the notification text is
// injected through Options rather than subclassed.
type Flow struct {
	repo     accountStore
	sessions sessionStore
	signer   tokenIssuer
	mailer   mailer
	opts     Options
}

// Options customises the reset notification. Zero values fall back to the
// built-in subject and body.
type Options struct {
	LinkBase string
	Subject  string
	Body     func(username, link string) string
}

type accountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type sessionStore interface {
	DisableByAccount(ctx context.Context, accountID string) error
}

type tokenIssuer interface {
	Issue(a *domain.Account, purpose string) (string, error)
	Validate(a *domain.Account, token, purpose string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type FlowDeps struct {
	AccountRepo accountStore
	SessionRepo sessionStore
	Signer      tokenIssuer
	Mailer      mailer
}

func NewFlow(deps FlowDeps, opts Options) *Flow {
	if opts.Subject == "" {
		opts.Subject = "Password reset requested"
	}
	if opts.Body == nil {
		opts.Body = func(username, link string) string {
			return fmt.Sprintf(
				"Hi %s,\n\nSomeone requested a password reset for your account. Follow the link to choose a new password:\n\n%s\n\nIf this wasn't you, ignore this email.\n",
				username, link,
			)
		}
	}
	return &Flow{
		repo:     deps.AccountRepo,
		sessions: deps.SessionRepo,
		signer:   deps.Signer,
		mailer:   deps.Mailer,
		opts:     opts,
	}
}

// Request issues a reset token and mails the link. The outcome is identical
// whether or not the address belongs to an account; mail failures are logged
// rather than returned for the same reason.
func (f *Flow) Request(ctx context.Context, email string) error {
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrInvalidInput)
	}
	a, err := f.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil
	}
	token, err := f.signer.Issue(a, domain.TokenPurposeReset)
	if err != nil {
		slog.Warn("reset token issue failed", "account_id", a.AccountID, "err", err)
		return nil
	}
	link := fmt.Sprintf("%s/v1/password-reset/confirm/%s/%s", f.opts.LinkBase, a.AccountID, token)
	if err := f.mailer.SendEmail(a.Email, f.opts.Subject, f.opts.Body(a.Username, link)); err != nil {
		slog.Warn("reset mail failed", "account_id", a.AccountID, "err", err)
	}
	return nil
}

type ConfirmRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// Confirm validates the token against the account's current password hash and
// sets the new password. The hash change invalidates the token, so a second
// confirm with the same token fails. Live sessions are disabled as well.
func (f *Flow) Confirm(ctx context.Context, accountID, token string, req ConfirmRequest) error {
	if req.NewPassword == "" || req.PasswordConfirm == "" {
		return domain.ErrInvalidInput
	}
	if req.NewPassword != req.PasswordConfirm {
		return domain.ErrPasswordMismatch
	}
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidInput)
	}
	a, err := f.repo.Get(ctx, accountID)
	if err != nil {
		return domain.ErrInvalidToken
	}
	if err := f.signer.Validate(a, token, domain.TokenPurposeReset); err != nil {
		return domain.ErrInvalidToken
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	if err := f.repo.Update(ctx, a.AccountID, map[string]interface{}{fieldPasswordHash: hash}); err != nil {
		return err
	}
	if err := f.sessions.DisableByAccount(ctx, a.AccountID); err != nil {
		slog.Warn("failed to disable sessions after reset", "account_id", a.AccountID, "err", err)
	}
	return nil
}
