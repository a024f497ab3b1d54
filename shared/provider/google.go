package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
	ErrMissingGoogleEmail    = errors.New("google account has no email")
)

// GoogleProfile is the identity Google vouches for after a successful sign-in.
type GoogleProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// GoogleConfig configures the Google OAuth2 client.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and APIEndpoint override Google's production URLs.
	Endpoint    *oauth2.Endpoint
	APIEndpoint string
}

// GoogleOAuthProvider runs the authorization-code flow against Google and
// validates ID tokens issued to this application.
type GoogleOAuthProvider struct {
	config      *oauth2.Config
	apiEndpoint string
	httpClient  *http.Client
}

// NewGoogleOAuthProvider creates a provider for the given client credentials.
func NewGoogleOAuthProvider(cfg GoogleConfig) *GoogleOAuthProvider {
	endpoint := google.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}

	return &GoogleOAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"openid",
				googleoauth2.UserinfoEmailScope,
				googleoauth2.UserinfoProfileScope,
			},
		},
		apiEndpoint: cfg.APIEndpoint,
		httpClient:  &http.Client{},
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for a token and fetches the user's profile.
func (p *GoogleOAuthProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	svc, err := p.newService(ctx, option.WithHTTPClient(p.config.Client(ctx, token)))
	if err != nil {
		return nil, err
	}

	userInfo, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google userinfo: %w", err)
	}

	if userInfo.Email == "" {
		return nil, ErrMissingGoogleEmail
	}

	return &GoogleProfile{
		Subject:       userInfo.Id,
		Email:         userInfo.Email,
		EmailVerified: userInfo.VerifiedEmail != nil && *userInfo.VerifiedEmail,
		Name:          userInfo.Name,
		Picture:       userInfo.Picture,
	}, nil
}

// ValidateIDToken checks an ID token with Google's tokeninfo endpoint and
// requires it to be issued to this application's client id.
func (p *GoogleOAuthProvider) ValidateIDToken(ctx context.Context, idToken string) (*GoogleProfile, error) {
	svc, err := p.newService(ctx, option.WithHTTPClient(p.httpClient))
	if err != nil {
		return nil, err
	}

	tokenInfo, err := svc.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to validate google id token: %w", err)
	}

	if tokenInfo.Audience != p.config.ClientID {
		return nil, ErrInvalidGoogleAudience
	}

	if tokenInfo.Email == "" {
		return nil, ErrMissingGoogleEmail
	}

	return &GoogleProfile{
		Subject:       tokenInfo.UserId,
		Email:         tokenInfo.Email,
		EmailVerified: tokenInfo.VerifiedEmail,
	}, nil
}

func (p *GoogleOAuthProvider) newService(ctx context.Context, opts ...option.ClientOption) (*googleoauth2.Service, error) {
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}

	svc, err := googleoauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google oauth2 service: %w", err)
	}

	return svc, nil
}
