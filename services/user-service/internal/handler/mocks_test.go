package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/provider"
	"github.com/SHAN0945/SafeTrail/shared/ratelimit"
	"github.com/SHAN0945/SafeTrail/shared/validator"
)

type mockAuthUsecase struct {
	googleAuthURLFunc     func(state string) string
	signInWithGoogleFunc  func(ctx context.Context, code string, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	signInWithIDTokenFunc func(ctx context.Context, idToken string, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	signInWithCredsFunc   func(ctx context.Context, params usecase.SignInParams, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	signUpFunc            func(ctx context.Context, params usecase.SignUpParams, meta usecase.SessionMeta) (*usecase.AuthResult, error)
	resolveSessionFunc    func(ctx context.Context, token string) (*model.SessionUser, error)
	signOutFunc           func(ctx context.Context, token string) error
	resolveRedirectFunc   func(target string) string
}

func (m *mockAuthUsecase) GoogleAuthURL(state string) string {
	if m.googleAuthURLFunc != nil {
		return m.googleAuthURLFunc(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *mockAuthUsecase) SignInWithGoogle(
	ctx context.Context,
	code string,
	meta usecase.SessionMeta,
) (*usecase.AuthResult, error) {
	if m.signInWithGoogleFunc != nil {
		return m.signInWithGoogleFunc(ctx, code, meta)
	}
	return nil, usecase.ErrAuthenticationFailed
}

func (m *mockAuthUsecase) SignInWithGoogleIDToken(
	ctx context.Context,
	idToken string,
	meta usecase.SessionMeta,
) (*usecase.AuthResult, error) {
	if m.signInWithIDTokenFunc != nil {
		return m.signInWithIDTokenFunc(ctx, idToken, meta)
	}
	return nil, usecase.ErrAuthenticationFailed
}

func (m *mockAuthUsecase) SignInWithCredentials(
	ctx context.Context,
	params usecase.SignInParams,
	meta usecase.SessionMeta,
) (*usecase.AuthResult, error) {
	if m.signInWithCredsFunc != nil {
		return m.signInWithCredsFunc(ctx, params, meta)
	}
	return nil, usecase.ErrInvalidCredentials
}

func (m *mockAuthUsecase) SignUp(
	ctx context.Context,
	params usecase.SignUpParams,
	meta usecase.SessionMeta,
) (*usecase.AuthResult, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, params, meta)
	}
	return nil, nil
}

func (m *mockAuthUsecase) ResolveSession(ctx context.Context, token string) (*model.SessionUser, error) {
	if m.resolveSessionFunc != nil {
		return m.resolveSessionFunc(ctx, token)
	}
	return nil, usecase.ErrUnauthorized
}

func (m *mockAuthUsecase) SignOut(ctx context.Context, token string) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx, token)
	}
	return nil
}

func (m *mockAuthUsecase) ResolveRedirect(target string) string {
	if m.resolveRedirectFunc != nil {
		return m.resolveRedirectFunc(target)
	}
	return "https://safetrail.app/dashboard"
}

type mockUserUsecase struct {
	updateUserFunc func(ctx context.Context, email string, params usecase.UpdateUserParams) (*model.User, error)
}

func (m *mockUserUsecase) CreateUser(context.Context, usecase.CreateUserParams) (*model.User, error) {
	return nil, nil
}

func (m *mockUserUsecase) GetUser(context.Context, string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserUsecase) FindUserByEmail(context.Context, string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserUsecase) FindUserByProviderID(context.Context, string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserUsecase) UpdateUser(
	ctx context.Context,
	email string,
	params usecase.UpdateUserParams,
) (*model.User, error) {
	if m.updateUserFunc != nil {
		return m.updateUserFunc(ctx, email, params)
	}
	return nil, usecase.ErrUserNotFound
}

func (m *mockUserUsecase) VerifyPassword(string, string) bool {
	return false
}

func (m *mockUserUsecase) FindOrCreateGoogleUser(context.Context, *provider.GoogleProfile) (*model.User, error) {
	return nil, nil
}

func (m *mockUserUsecase) SetPassword(context.Context, string, string) error {
	return nil
}

type mockPasswordResetUsecase struct {
	requestFunc  func(ctx context.Context, email string) error
	resetFunc    func(ctx context.Context, token, newPassword string) error
	validateFunc func(ctx context.Context, token string) error
}

func (m *mockPasswordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	if m.requestFunc != nil {
		return m.requestFunc(ctx, email)
	}
	return nil
}

func (m *mockPasswordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *mockPasswordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, token)
	}
	return nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(context.Context) error {
	return m.err
}

type handlerDeps struct {
	auth    *mockAuthUsecase
	users   *mockUserUsecase
	reset   *mockPasswordResetUsecase
	health  *mockHealthChecker
	counter ratelimit.Counter
}

func testConfig() *config.UserServiceConfig {
	return &config.UserServiceConfig{
		Server: config.ServerConfig{
			AppBaseURL:          "https://safetrail.app",
			DefaultRedirectPath: "/dashboard",
			CORSAllowedOrigins:  []string{"https://safetrail.app"},
		},
		Cookie: config.CookieConfig{
			SessionCookieName: "safetrail_session",
			Secure:            true,
			OAuthStateSecret:  "0123456789abcdef0123456789abcdef",
		},
		RateLimit: config.RateLimitConfig{RequestsPerMin: 2},
	}
}

func newTestHandler(t *testing.T, deps handlerDeps) http.Handler {
	t.Helper()

	if deps.auth == nil {
		deps.auth = &mockAuthUsecase{}
	}
	if deps.users == nil {
		deps.users = &mockUserUsecase{}
	}
	if deps.reset == nil {
		deps.reset = &mockPasswordResetUsecase{}
	}
	if deps.health == nil {
		deps.health = &mockHealthChecker{}
	}

	v, err := validator.New()
	require.NoError(t, err)

	logger := zerolog.Nop()
	return NewUserHTTPHandler(deps.auth, deps.users, deps.reset, v, deps.health, deps.counter, testConfig(), &logger)
}

var testSessionUser = &model.SessionUser{
	ID:           "66f1c0ffee0000000000abcd",
	Email:        "ana@example.com",
	Name:         "Ana",
	SafetyStatus: model.SafetyStatusSafe,
}

// signedIn resolves "good-token" to testSessionUser.
func signedIn(m *mockAuthUsecase) *mockAuthUsecase {
	m.resolveSessionFunc = func(_ context.Context, token string) (*model.SessionUser, error) {
		if token == "good-token" {
			return testSessionUser, nil
		}
		return nil, usecase.ErrUnauthorized
	}
	return m
}

func authResult() *usecase.AuthResult {
	return &usecase.AuthResult{
		User:      testSessionUser,
		Token:     "issued-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
