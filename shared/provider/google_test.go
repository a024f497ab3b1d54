package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "google-sub-1",
			"email":          "Ana@Example.com",
			"verified_email": true,
			"name":           "Ana Tourist",
			"picture":        "https://lh3.googleusercontent.com/a/ana",
		})
	})
	mux.HandleFunc("/oauth2/v2/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("id_token") {
		case "token-for-us":
			_, _ = w.Write([]byte(`{"audience":"client-id","user_id":"google-sub-2","email":"bo@example.com","verified_email":true}`))
		case "token-for-someone-else":
			_, _ = w.Write([]byte(`{"audience":"other-client","user_id":"google-sub-3","email":"eve@example.com","verified_email":true}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleOAuthProvider {
	return NewGoogleOAuthProvider(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://safetrail.app/auth/google/callback",
		Endpoint: &oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		APIEndpoint: srv.URL + "/",
	})
}

func TestGoogleOAuthProvider_AuthCodeURL(t *testing.T) {
	p := NewGoogleOAuthProvider(GoogleConfig{
		ClientID:    "client-id",
		RedirectURL: "https://safetrail.app/auth/google/callback",
	})

	raw := p.AuthCodeURL("state-xyz")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "https://safetrail.app/auth/google/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "openid")
}

func TestGoogleOAuthProvider_Exchange(t *testing.T) {
	srv := newFakeGoogle(t)
	p := newTestProvider(srv)

	profile, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)

	assert.Equal(t, "google-sub-1", profile.Subject)
	assert.Equal(t, "Ana@Example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Ana Tourist", profile.Name)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/ana", profile.Picture)
}

func TestGoogleOAuthProvider_Exchange_BadCode(t *testing.T) {
	srv := newFakeGoogle(t)
	p := newTestProvider(srv)

	_, err := p.Exchange(context.Background(), "stolen-code")
	assert.Error(t, err)
}

func TestGoogleOAuthProvider_ValidateIDToken(t *testing.T) {
	srv := newFakeGoogle(t)
	p := newTestProvider(srv)

	profile, err := p.ValidateIDToken(context.Background(), "token-for-us")
	require.NoError(t, err)
	assert.Equal(t, "google-sub-2", profile.Subject)
	assert.Equal(t, "bo@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)

	_, err = p.ValidateIDToken(context.Background(), "token-for-someone-else")
	assert.ErrorIs(t, err, ErrInvalidGoogleAudience)

	_, err = p.ValidateIDToken(context.Background(), "garbage")
	assert.Error(t, err)
}
