package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccountStore) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if a, _ := args.Get(0).(*domain.Account); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(accountID, sessionID string) (string, error) {
	args := m.Called(accountID, sessionID)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newTestService(accounts *mockAccountStore, sessions *mockSessionStore, signer *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		AccountRepo:     accounts,
		SessionRepo:     sessions,
		JWTProvider:     signer,
		RefreshTokenDur: 24 * time.Hour,
	})
}

func activeAccount(t *testing.T) *domain.Account {
	t.Helper()
	hash, err := password.Hash("password1")
	require.NoError(t, err)
	return &domain.Account{
		AccountID:    "acc1",
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: hash,
		Active:       true,
	}
}

// --- Login ---

func TestLogin_EmptyCredentials(t *testing.T) {
	svc := newTestService(&mockAccountStore{}, &mockSessionStore{}, &mockJWTSigner{})

	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestLogin_UnknownUser_SameErrorAsWrongPassword(t *testing.T) {
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
	svc := newTestService(accounts, &mockSessionStore{}, &mockJWTSigner{})

	_, errUnknown := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever"})

	accounts2 := &mockAccountStore{}
	accounts2.On("GetByUsername", mock.Anything, "alice").Return(activeAccount(t), nil)
	svc2 := newTestService(accounts2, &mockSessionStore{}, &mockJWTSigner{})

	_, errWrong := svc2.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})

	// Indistinguishable failures: no account enumeration through login.
	assert.Equal(t, domain.ErrInvalidCredentials, errUnknown)
	assert.Equal(t, domain.ErrInvalidCredentials, errWrong)
}

func TestLogin_UnverifiedAccount_NoSessionWrite(t *testing.T) {
	a := activeAccount(t)
	a.Active = false
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "alice").Return(a, nil)
	sessions := &mockSessionStore{}
	svc := newTestService(accounts, sessions, &mockJWTSigner{})

	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password1"})

	assert.True(t, errors.Is(err, domain.ErrEmailNotVerified))
	sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_UnverifiedWrongPassword_StillInvalidCredentials(t *testing.T) {
	a := activeAccount(t)
	a.Active = false
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "alice").Return(a, nil)
	svc := newTestService(accounts, &mockSessionStore{}, &mockJWTSigner{})

	// The password is checked first, so a wrong guess never reveals that the
	// account exists but is unverified.
	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, domain.ErrInvalidCredentials, err)
}

func TestLogin_HappyPath(t *testing.T) {
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "alice").Return(activeAccount(t), nil)

	sessions := &mockSessionStore{}
	var stored *domain.Session
	sessions.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*domain.Session)
	}).Return(nil)

	signer := &mockJWTSigner{}
	signer.On("Sign", "acc1", mock.AnythingOfType("string")).Return("bearer-token", nil)

	svc := newTestService(accounts, sessions, signer)
	res, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password1"})

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "bearer-token", res.Bearer)
	assert.Equal(t, stored.RefreshToken, res.RefreshToken)
	assert.True(t, stored.Enable)
	assert.Equal(t, "acc1", stored.AccountID)
	assert.NotEmpty(t, stored.SessionID)
	assert.Greater(t, stored.RefreshExpiresAt, time.Now().Unix())
	require.NotNil(t, res.Session.Account)
	assert.Equal(t, "alice", res.Session.Account.Username)
}

func TestLogin_NoSigner_NoSessionWrite(t *testing.T) {
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "alice").Return(activeAccount(t), nil)
	sessions := &mockSessionStore{}
	// RS256 keys absent at startup: the service is wired without a signer and
	// must fail cleanly instead of persisting a session it can't hand out.
	svc := NewService(ServiceDeps{
		AccountRepo:     accounts,
		SessionRepo:     sessions,
		RefreshTokenDur: 24 * time.Hour,
	})

	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password1"})

	assert.True(t, errors.Is(err, domain.ErrAuthUnavailable))
	sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestLogin_SignFailure_NoSessionWrite(t *testing.T) {
	accounts := &mockAccountStore{}
	accounts.On("GetByUsername", mock.Anything, "alice").Return(activeAccount(t), nil)
	sessions := &mockSessionStore{}
	signer := &mockJWTSigner{}
	signer.On("Sign", "acc1", mock.AnythingOfType("string")).Return("", errors.New("key unusable"))
	svc := newTestService(accounts, sessions, signer)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "password1"})

	require.Error(t, err)
	sessions.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Logout / Current ---

func TestLogout_DisablesSession(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("Update", mock.Anything, "sess1", map[string]interface{}{"enable": false}).Return(nil)
	svc := newTestService(&mockAccountStore{}, sessions, &mockJWTSigner{})

	require.NoError(t, svc.Logout(context.Background(), "sess1"))
	sessions.AssertExpectations(t)
}

func TestCurrent_DisabledSession(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("Get", mock.Anything, "sess1").Return(&domain.Session{SessionID: "sess1", AccountID: "acc1", Enable: false}, nil)
	svc := newTestService(&mockAccountStore{}, sessions, &mockJWTSigner{})

	_, err := svc.Current(context.Background(), "sess1")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestCurrent_AttachesAccount(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("Get", mock.Anything, "sess1").Return(&domain.Session{SessionID: "sess1", AccountID: "acc1", Enable: true}, nil)
	accounts := &mockAccountStore{}
	accounts.On("Get", mock.Anything, "acc1").Return(activeAccount(t), nil)
	svc := newTestService(accounts, sessions, &mockJWTSigner{})

	sess, err := svc.Current(context.Background(), "sess1")
	require.NoError(t, err)
	require.NotNil(t, sess.Account)
	assert.Equal(t, "alice", sess.Account.Username)
}

// --- Refresh ---

func TestRefresh_UnknownToken(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("GetByRefreshToken", mock.Anything, "bad").Return(nil, domain.ErrNotFound)
	svc := newTestService(&mockAccountStore{}, sessions, &mockJWTSigner{})

	_, _, err := svc.Refresh(context.Background(), "bad")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_ExpiredToken(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("GetByRefreshToken", mock.Anything, "old").Return(&domain.Session{
		SessionID:        "sess1",
		AccountID:        "acc1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, nil)
	svc := newTestService(&mockAccountStore{}, sessions, &mockJWTSigner{})

	_, _, err := svc.Refresh(context.Background(), "old")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	sessions.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_NoSigner(t *testing.T) {
	sessions := &mockSessionStore{}
	svc := NewService(ServiceDeps{
		AccountRepo:     &mockAccountStore{},
		SessionRepo:     sessions,
		RefreshTokenDur: 24 * time.Hour,
	})

	_, _, err := svc.Refresh(context.Background(), "whatever")
	assert.True(t, errors.Is(err, domain.ErrAuthUnavailable))
	sessions.AssertNotCalled(t, "GetByRefreshToken", mock.Anything, mock.Anything)
}

func TestRefresh_RotatesToken(t *testing.T) {
	sessions := &mockSessionStore{}
	sessions.On("GetByRefreshToken", mock.Anything, "current").Return(&domain.Session{
		SessionID:        "sess1",
		AccountID:        "acc1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	var rotatedTo string
	sessions.On("RotateRefreshToken", mock.Anything, "sess1", mock.AnythingOfType("string"), mock.AnythingOfType("int64")).
		Run(func(args mock.Arguments) { rotatedTo = args.String(2) }).Return(nil)

	signer := &mockJWTSigner{}
	signer.On("Sign", "acc1", "sess1").Return("new-bearer", nil)

	svc := newTestService(&mockAccountStore{}, sessions, signer)
	bearer, newToken, err := svc.Refresh(context.Background(), "current")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.Equal(t, rotatedTo, newToken)
	assert.NotEqual(t, "current", newToken)
}
