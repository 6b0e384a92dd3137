package http

import (
	"net/http"

	"github.com/go-account-api/internal/application/account"
	"github.com/go-account-api/internal/application/passwordreset"
	"github.com/go-account-api/internal/application/session"
	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-account-api/internal/infrastructure/jwt"
	"github.com/go-account-api/internal/infrastructure/signer"
	"github.com/go-account-api/internal/infrastructure/smtp"
	"github.com/go-account-api/internal/transport/http/handler"
	appmiddleware "github.com/go-account-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	SessionRepo *dynamo.SessionRepo
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Signer      *signer.Issuer
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	passthrough := func(next http.Handler) http.Handler { return next }
	authMw, optionalAuthMw := passthrough, passthrough
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
		optionalAuthMw = appmiddleware.OptionalAuth(deps.JWTProvider)
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	accountSvc := account.NewService(account.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		Signer:      deps.Signer,
		Mailer:      deps.Mailer,
		BaseURL:     cfg.AppBaseURL,
	})
	sessionDeps := session.ServiceDeps{
		AccountRepo:     deps.AccountRepo,
		SessionRepo:     deps.SessionRepo,
		RefreshTokenDur: cfg.RefreshTokenDur,
	}
	// A typed nil provider must not reach the service as a non-nil interface:
	// without keys, login and refresh report auth unavailable instead of
	// dereferencing a nil key.
	if deps.JWTProvider != nil {
		sessionDeps.JWTProvider = deps.JWTProvider
	}
	sessionSvc := session.NewService(sessionDeps)
	resetFlow := passwordreset.NewFlow(passwordreset.FlowDeps{
		AccountRepo: deps.AccountRepo,
		SessionRepo: deps.SessionRepo,
		Signer:      deps.Signer,
		Mailer:      deps.Mailer,
	}, passwordreset.Options{LinkBase: cfg.AppBaseURL})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	resetH := handler.NewPasswordResetHandler(resetFlow)

	r.Get("/", http.RedirectHandler("/v1/sessions/login", http.StatusTemporaryRedirect).ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Signup)
		r.Get("/accounts/verify/{id}/{token}", accountH.Verify)
		r.With(sensitiveRL.Limit).Post("/accounts/verify/resend", accountH.ResendVerification)
		r.With(sensitiveRL.Limit, optionalAuthMw).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(optionalAuthMw).Post("/sessions/logout", sessionH.Logout)
		r.With(sensitiveRL.Limit).Post("/password-reset/request", resetH.Request)
		r.With(sensitiveRL.Limit).Post("/password-reset/confirm/{id}/{token}", resetH.Confirm)
		r.Get("/password-reset/complete", resetH.Complete)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/dashboard", sessionH.Dashboard)
		})
	})

	return r
}
