package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/hlog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/config"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/ratelimit"
	"github.com/SHAN0945/SafeTrail/shared/response"
)

const (
	oauthStateCookie = "safetrail_oauth_state"
	maxBodyBytes     = 1 << 20
)

func newStateStore(cfg *config.UserServiceConfig) sessions.Store {
	store := sessions.NewCookieStore([]byte(cfg.Cookie.OAuthStateSecret))
	store.Options = &sessions.Options{
		Path:     "/auth/google",
		MaxAge:   10 * 60,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (h *userHTTPHandler) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.userServiceCfg.Cookie.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.userServiceCfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *userHTTPHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.userServiceCfg.Cookie.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.userServiceCfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// loginErrorURL is where failed browser sign-ins land.
func (h *userHTTPHandler) loginErrorURL(code string) string {
	return h.userServiceCfg.Server.AppBaseURL + "/login?error=" + url.QueryEscape(code)
}

func sessionMeta(r *http.Request) usecase.SessionMeta {
	return usecase.SessionMeta{
		IPAddress: ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports false when the request is unusable.
func (h *userHTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, response.ErrBadRequest.WithMessage("Invalid JSON body"))
		return false
	}

	fields, err := h.validator.Struct(dst)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to validate request")
		response.Error(w, response.ErrInternal)
		return false
	}
	if fields != nil {
		response.Error(w, response.NewValidationErrors(fields))
		return false
	}

	return true
}

// writeError maps usecase errors onto API errors. Only unexpected errors are
// logged at error level; none of the mapped errors carry credentials.
func (h *userHTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := hlog.FromRequest(r)

	switch {
	case errors.Is(err, usecase.ErrValidation):
		response.Error(w, response.NewValidationErrors(nil).WithMessage(err.Error()))
	case errors.Is(err, usecase.ErrUserAlreadyExists):
		response.Error(w, response.ErrConflict.WithMessage("An account with this email already exists"))
	case errors.Is(err, usecase.ErrUserNotFound):
		response.Error(w, response.ErrNotFound.WithMessage("User not found"))
	case errors.Is(err, usecase.ErrInvalidCredentials):
		response.Error(w, response.ErrUnauthorized.WithMessage("Invalid email or password"))
	case errors.Is(err, usecase.ErrAuthenticationFailed):
		logger.Warn().Err(err).Msg("authentication failed")
		response.Error(w, response.ErrUnauthorized.WithMessage("Authentication failed"))
	case errors.Is(err, usecase.ErrUnauthorized):
		response.Error(w, response.ErrUnauthorized)
	case errors.Is(err, usecase.ErrPasswordResetDisabled):
		response.Error(w, response.ErrServiceUnavailable.WithMessage("Password reset is not available"))
	case errors.Is(err, usecase.ErrTokenNotFound):
		response.Error(w, response.ErrNotFound.WithMessage("Password reset token not found"))
	case errors.Is(err, usecase.ErrTokenAlreadyUsed):
		response.Error(w, response.ErrConflict.WithMessage("Password reset token has already been used"))
	case errors.Is(err, usecase.ErrTokenExpired):
		response.Error(w, response.ErrBadRequest.WithMessage("Password reset token has expired"))
	case errors.Is(err, usecase.ErrInvalidToken):
		response.Error(w, response.ErrBadRequest.WithMessage("Invalid password reset token"))
	default:
		logger.Error().Err(err).Msg("request failed")
		response.Error(w, response.ErrInternal)
	}
}
