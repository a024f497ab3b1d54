package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/model"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/repository"
	"github.com/SHAN0945/SafeTrail/shared/auth"
	"github.com/SHAN0945/SafeTrail/shared/provider"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// GoogleProvider is the part of the Google OAuth client the auth flow needs.
type GoogleProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*provider.GoogleProfile, error)
	ValidateIDToken(ctx context.Context, idToken string) (*provider.GoogleProfile, error)
}

// AuthUsecase turns sign-ins into sessions and resolves session tokens back to users.
type AuthUsecase interface {
	GoogleAuthURL(state string) string
	SignInWithGoogle(ctx context.Context, code string, meta SessionMeta) (*AuthResult, error)
	SignInWithGoogleIDToken(ctx context.Context, idToken string, meta SessionMeta) (*AuthResult, error)
	SignInWithCredentials(ctx context.Context, params SignInParams, meta SessionMeta) (*AuthResult, error)
	SignUp(ctx context.Context, params SignUpParams, meta SessionMeta) (*AuthResult, error)
	ResolveSession(ctx context.Context, token string) (*model.SessionUser, error)
	SignOut(ctx context.Context, token string) error
	ResolveRedirect(target string) string
}

// SignInParams defines the parameters for a credentials sign-in.
type SignInParams struct {
	Email    string
	Password string
}

// SignUpParams defines the parameters for a credentials sign-up.
type SignUpParams struct {
	Name      string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Password  string
}

// SessionMeta describes the client a session is issued to.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// AuthResult is a freshly issued session.
type AuthResult struct {
	User      *model.SessionUser
	Token     string
	ExpiresAt time.Time
}

// SessionClaims are carried by a session token. The JWT ID names the session record.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type authUsecase struct {
	userUsecase    UserUsecase
	sessionRepo    repository.SessionRepository
	google         GoogleProvider
	jwtAuth        auth.JWTAuthenticator
	userServiceCfg *config.UserServiceConfig
}

func NewAuthUsecase(
	userUsecase UserUsecase,
	sessionRepo repository.SessionRepository,
	google GoogleProvider,
	jwtAuth auth.JWTAuthenticator,
	userServiceCfg *config.UserServiceConfig,
) AuthUsecase {
	return &authUsecase{
		userUsecase:    userUsecase,
		sessionRepo:    sessionRepo,
		google:         google,
		jwtAuth:        jwtAuth,
		userServiceCfg: userServiceCfg,
	}
}

func (u *authUsecase) GoogleAuthURL(state string) string {
	return u.google.AuthCodeURL(state)
}

func (u *authUsecase) SignInWithGoogle(ctx context.Context, code string, meta SessionMeta) (*AuthResult, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", ErrAuthenticationFailed)
	}

	profile, err := u.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	return u.signInWithGoogleProfile(ctx, profile, meta)
}

func (u *authUsecase) SignInWithGoogleIDToken(
	ctx context.Context,
	idToken string,
	meta SessionMeta,
) (*AuthResult, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: missing id token", ErrAuthenticationFailed)
	}

	profile, err := u.google.ValidateIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	return u.signInWithGoogleProfile(ctx, profile, meta)
}

func (u *authUsecase) signInWithGoogleProfile(
	ctx context.Context,
	profile *provider.GoogleProfile,
	meta SessionMeta,
) (*AuthResult, error) {
	if !profile.EmailVerified {
		return nil, fmt.Errorf("%w: google email is not verified", ErrAuthenticationFailed)
	}

	user, err := u.userUsecase.FindOrCreateGoogleUser(ctx, profile)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is disabled", ErrAuthenticationFailed)
	}

	return u.createAuthSession(ctx, user, meta)
}

// SignInWithCredentials reports ErrInvalidCredentials for an unknown email,
// a google-only account and a wrong password alike.
func (u *authUsecase) SignInWithCredentials(
	ctx context.Context,
	params SignInParams,
	meta SessionMeta,
) (*AuthResult, error) {
	user, err := u.userUsecase.FindUserByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Provider != model.ProviderCredentials || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if !u.userUsecase.VerifyPassword(params.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u.createAuthSession(ctx, user, meta)
}

func (u *authUsecase) SignUp(ctx context.Context, params SignUpParams, meta SessionMeta) (*AuthResult, error) {
	user, err := u.userUsecase.CreateUser(ctx, CreateUserParams{
		Name:      params.Name,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Phone:     params.Phone,
		Email:     params.Email,
		Provider:  model.ProviderCredentials,
		Password:  params.Password,
	})
	if err != nil {
		return nil, err
	}

	return u.createAuthSession(ctx, user, meta)
}

func (u *authUsecase) ResolveSession(ctx context.Context, token string) (*model.SessionUser, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	var claims SessionClaims
	if err := u.jwtAuth.ValidateTokenWithClaims(token, u.userServiceCfg.Token.SessionTokenSecret, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	session, err := u.sessionRepo.GetSessionByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !session.Active(time.Now()) {
		return nil, ErrUnauthorized
	}

	// Reload the record so the session reflects the live safety status.
	user, err := u.userUsecase.FindUserByEmail(ctx, session.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || user.ID.Hex() != session.UserID {
		return nil, ErrUnauthorized
	}

	return user.ToSessionUser(), nil
}

// SignOut revokes the session behind token. Unknown, invalid and expired
// tokens have nothing left to revoke and succeed.
func (u *authUsecase) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	var claims SessionClaims
	if err := u.jwtAuth.ValidateTokenWithClaims(token, u.userServiceCfg.Token.SessionTokenSecret, &claims); err != nil {
		return nil
	}

	if err := u.sessionRepo.RevokeSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}

// ResolveRedirect accepts a relative path or an absolute URL on the
// application's own origin. Anything else becomes the default landing page.
func (u *authUsecase) ResolveRedirect(target string) string {
	baseURL := strings.TrimRight(u.userServiceCfg.Server.AppBaseURL, "/")
	fallback := baseURL + u.userServiceCfg.Server.DefaultRedirectPath

	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, "\\\r\n\t") {
		return fallback
	}

	if strings.HasPrefix(target, "/") {
		// "//host" is protocol-relative and leaves the origin.
		if strings.HasPrefix(target, "//") {
			return fallback
		}
		return baseURL + target
	}

	targetURL, err := url.Parse(target)
	if err != nil || !targetURL.IsAbs() {
		return fallback
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return fallback
	}

	if strings.EqualFold(targetURL.Scheme, base.Scheme) && strings.EqualFold(targetURL.Host, base.Host) {
		return target
	}

	return fallback
}

func (u *authUsecase) createAuthSession(ctx context.Context, user *model.User, meta SessionMeta) (*AuthResult, error) {
	jti := uuid.NewString()
	claims := SessionClaims{
		Email:            user.Email,
		RegisteredClaims: u.jwtAuth.RegisteredClaims(user.ID.Hex(), jti, u.userServiceCfg.Token.SessionTokenExpiresIn),
	}

	token, err := u.jwtAuth.GenerateToken(claims, u.userServiceCfg.Token.SessionTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &model.Session{
		UserID:    user.ID.Hex(),
		Email:     user.Email,
		JTI:       jti,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}

	if _, err := u.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return &AuthResult{
		User:      user.ToSessionUser(),
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
