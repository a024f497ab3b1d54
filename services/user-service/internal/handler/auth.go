package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/SHAN0945/SafeTrail/services/user-service/internal/payload"
	"github.com/SHAN0945/SafeTrail/services/user-service/internal/usecase"
	"github.com/SHAN0945/SafeTrail/shared/response"
)

// GoogleLogin starts the Google sign-in and remembers where to return afterwards.
func (h *userHTTPHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	session, _ := h.stateStore.Get(r, oauthStateCookie)
	session.Values["state"] = state
	session.Values["callback_url"] = r.URL.Query().Get("callbackUrl")
	if err := session.Save(r, w); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to save oauth state")
		http.Redirect(w, r, h.loginErrorURL("OAuthSignin"), http.StatusFound)
		return
	}

	http.Redirect(w, r, h.authUsecase.GoogleAuthURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback completes the Google sign-in started by GoogleLogin.
func (h *userHTTPHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	session, _ := h.stateStore.Get(r, oauthStateCookie)
	savedState, _ := session.Values["state"].(string)
	callbackURL, _ := session.Values["callback_url"].(string)

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("failed to clear oauth state")
	}

	if query.Get("error") != "" {
		recordSignIn("google", usecase.ErrAuthenticationFailed)
		http.Redirect(w, r, h.loginErrorURL("AccessDenied"), http.StatusFound)
		return
	}

	if savedState == "" || savedState != query.Get("state") {
		hlog.FromRequest(r).Warn().Msg("oauth state mismatch")
		recordSignIn("google", usecase.ErrAuthenticationFailed)
		http.Redirect(w, r, h.loginErrorURL("OAuthCallback"), http.StatusFound)
		return
	}

	result, err := h.authUsecase.SignInWithGoogle(r.Context(), query.Get("code"), sessionMeta(r))
	recordSignIn("google", err)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("google sign-in failed")
		http.Redirect(w, r, h.loginErrorURL("OAuthCallback"), http.StatusFound)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	http.Redirect(w, r, h.authUsecase.ResolveRedirect(callbackURL), http.StatusFound)
}

// GoogleToken signs in with a Google ID token obtained by the client.
func (h *userHTTPHandler) GoogleToken(w http.ResponseWriter, r *http.Request) {
	var req payload.GoogleTokenRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.SignInWithGoogleIDToken(r.Context(), req.IDToken, sessionMeta(r))
	recordSignIn("google_id_token", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	response.OK(w, sessionResponse(result))
}

func (h *userHTTPHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req payload.SignUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.SignUp(r.Context(), usecase.SignUpParams{
		Name:      req.Name,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
	}, sessionMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	response.Created(w, sessionResponse(result))
}

func (h *userHTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req payload.LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.authUsecase.SignInWithCredentials(r.Context(), usecase.SignInParams{
		Email:    req.Email,
		Password: req.Password,
	}, sessionMeta(r))
	recordSignIn("credentials", err)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	response.OK(w, sessionResponse(result))
}

func (h *userHTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authUsecase.SignOut(r.Context(), sessionTokenFromContext(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	response.OK(w, payload.MessageResponse{Message: "Signed out"})
}

// Session returns the current session, or null data when there is none.
func (h *userHTTPHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := sessionUserFromContext(r.Context())
	if !ok {
		if sessionTokenFromContext(r.Context()) != "" {
			h.clearSessionCookie(w)
		}
		response.OK(w, nil)
		return
	}

	response.OK(w, payload.SessionResponse{User: user})
}

func sessionResponse(result *usecase.AuthResult) payload.SessionResponse {
	return payload.SessionResponse{
		User:      result.User,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
